/*
Copyright © 2025 the iconkit authors.
This file is part of iconkit.

iconkit is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

iconkit is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with iconkit.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package cloud moves files between the local file system and
// S3-compatible or other blob storage.
package cloud

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"
)

// S3Config holds the connection settings of an S3-compatible
// object store.
type S3Config struct {
	// Endpoint is the URL of a non-AWS object store,
	// e.g. https://s3.example.org. Empty means AWS.
	Endpoint string

	// Region defaults to us-east-1.
	Region string

	// AccessKey and SecretKey are static credentials. If empty, the
	// AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables
	// are used.
	AccessKey, SecretKey string

	// PathStyle addresses buckets as endpoint/bucket instead of
	// bucket.endpoint, as most non-AWS stores need.
	PathStyle bool
}

// OpenBucket returns the blob storage bucket specified by bucketName,
// where bucketName must be in the format 'provider://name' where provider
// is the name of the storage provider and name is the name of the bucket.
// The accepted storage providers are "s3" for S3-compatible stores
// configured by cfg, "gs" for Google Cloud Storage, and "file" for a
// local directory (e.g., for testing), as in file:///data/bucket.
func OpenBucket(ctx context.Context, bucketName string, cfg S3Config) (*blob.Bucket, error) {
	u, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("cloud: parsing bucket name: %v", err)
	}
	switch u.Scheme {
	case "file":
		dir := filepath.FromSlash(u.Host + u.Path)
		b, err := fileblob.OpenBucket(dir, nil)
		if err != nil {
			return nil, fmt.Errorf("cloud: opening bucket %s: %v", bucketName, err)
		}
		return b, nil
	case "gs":
		return gsBucket(ctx, u.Hostname())
	case "s3":
		return s3Bucket(ctx, u.Hostname(), cfg)
	default:
		return nil, fmt.Errorf("cloud: invalid provider '%s' in bucket name %s", u.Scheme, bucketName)
	}
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	// See here for information on credentials:
	// https://cloud.google.com/docs/authentication/getting-started
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("cloud: %v", err)
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, fmt.Errorf("cloud: %v", err)
	}
	return gcsblob.OpenBucket(ctx, c, name, nil)
}

func s3Bucket(ctx context.Context, name string, cfg S3Config) (*blob.Bucket, error) {
	s, err := session.NewSession(cfg.awsConfig())
	if err != nil {
		return nil, fmt.Errorf("cloud: creating S3 session: %v", err)
	}
	return s3blob.OpenBucket(ctx, s, name, nil)
}

func (cfg S3Config) awsConfig() *aws.Config {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	c := &aws.Config{
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(cfg.PathStyle),
	}
	if cfg.Endpoint != "" {
		c.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		c.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	} else {
		c.Credentials = credentials.NewEnvCredentials()
	}
	return c
}
