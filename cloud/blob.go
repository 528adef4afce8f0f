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

package cloud

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// MaxRetries is the number of times a failed transfer is retried.
var MaxRetries uint64 = 4

// newBackOff returns the retry schedule of one transfer.
var newBackOff = func() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), MaxRetries)
}

// retry runs op until it succeeds, fails permanently, or runs out
// of retries.
func retry(ctx context.Context, key string, op func() error) error {
	return backoff.RetryNotify(
		func() error {
			err := op()
			if gcerrors.Code(err) == gcerrors.NotFound {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(newBackOff(), ctx),
		func(err error, d time.Duration) {
			logrus.WithField("key", key).Warnf("%v: retrying in %v", err, d)
		},
	)
}

// List returns the keys in b that start with prefix and end with suffix,
// in the order the store lists them.
func List(ctx context.Context, b *blob.Bucket, prefix, suffix string) ([]string, error) {
	iter := b.List(&blob.ListOptions{Prefix: prefix})
	var keys []string
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cloud: listing blobs under '%s': %v", prefix, err)
		}
		if obj.IsDir || !strings.HasSuffix(obj.Key, suffix) {
			continue
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// readBlob reads the given blob from the given bucket.
func readBlob(ctx context.Context, bucket *blob.Bucket, key string) ([]byte, error) {
	var b bytes.Buffer
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	if _, err = io.Copy(&b, r); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// writeBlob writes the contents of r to key in the given bucket.
// A failed copy is aborted without creating the blob.
func writeBlob(ctx context.Context, bucket *blob.Bucket, key string, r io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return err
	}
	if _, err = io.Copy(w, r); err != nil {
		cancel()
		w.Close()
		return err
	}
	return w.Close()
}

// Read returns the contents of key.
func Read(ctx context.Context, b *blob.Bucket, key string) ([]byte, error) {
	var data []byte
	err := retry(ctx, key, func() error {
		var err error
		data, err = readBlob(ctx, b, key)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("cloud: reading blob %s: %v", key, err)
	}
	return data, nil
}

// Upload copies the local file at path to key, which defaults to the
// base name of the file.
func Upload(ctx context.Context, b *blob.Bucket, path, key string) error {
	if key == "" {
		key = filepath.Base(path)
	}
	log := logrus.WithFields(logrus.Fields{"file": path, "key": key})
	err := retry(ctx, key, func() error {
		r, err := os.Open(path)
		if err != nil {
			return backoff.Permanent(err)
		}
		defer r.Close()
		return writeBlob(ctx, b, key, r)
	})
	if err != nil {
		log.Error(err)
		return fmt.Errorf("cloud: uploading %s to %s: %v", path, key, err)
	}
	log.Info("uploaded")
	return nil
}

// UploadGlob uploads the local files matching pattern, in name order,
// each under its base name. A failed upload doesn't stop the others.
// It returns the number of files uploaded and the combined errors.
func UploadGlob(ctx context.Context, b *blob.Bucket, pattern string) (int, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return 0, fmt.Errorf("cloud: glob '%s': %v", pattern, err)
	}
	sort.Strings(files)
	var n int
	var errs []error
	for _, f := range files {
		if err := Upload(ctx, b, f, ""); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	if len(errs) > 0 {
		return n, fmt.Errorf("cloud: %d of %d uploads failed: %w", len(errs), len(files), errors.Join(errs...))
	}
	return n, nil
}

// Download copies key to the local file at path, creating its
// directory if needed.
func Download(ctx context.Context, b *blob.Bucket, key, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("cloud: %v", err)
	}
	err := retry(ctx, key, func() error {
		r, err := b.NewReader(ctx, key, nil)
		if err != nil {
			return err
		}
		defer r.Close()
		w, err := os.Create(path)
		if err != nil {
			return backoff.Permanent(err)
		}
		if _, err := io.Copy(w, r); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	})
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("cloud: downloading %s: %v", key, err)
	}
	logrus.WithFields(logrus.Fields{"key": key, "file": path}).Info("downloaded")
	return nil
}

// DownloadGunzip downloads the gzipped blob key, which must end in .gz,
// into dir and decompresses it there. The compressed file is removed
// and the path of the decompressed file is returned.
func DownloadGunzip(ctx context.Context, b *blob.Bucket, key, dir string) (string, error) {
	if !strings.HasSuffix(key, ".gz") {
		return "", fmt.Errorf("cloud: blob %s is not gzipped", key)
	}
	gzPath := filepath.Join(dir, filepath.Base(key))
	outPath := strings.TrimSuffix(gzPath, ".gz")
	if err := Download(ctx, b, key, gzPath); err != nil {
		return "", err
	}
	logrus.WithField("file", gzPath).Infof("decompressing to %s", outPath)
	if err := gunzip(gzPath, outPath); err != nil {
		os.Remove(outPath)
		return "", err
	}
	if err := os.Remove(gzPath); err != nil {
		return "", fmt.Errorf("cloud: %v", err)
	}
	return outPath, nil
}

func gunzip(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("cloud: %v", err)
	}
	defer f.Close()
	r, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("cloud: decompressing %s: %v", src, err)
	}
	defer r.Close()
	w, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("cloud: %v", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("cloud: decompressing %s: %v", src, err)
	}
	return w.Close()
}
