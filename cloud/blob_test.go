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
	"os"
	"path/filepath"
	"testing"

	"github.com/cenkalti/backoff"
	"github.com/kr/pretty"
	"gocloud.dev/blob"
)

func init() {
	newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, MaxRetries)
	}
}

// testBucket returns a local bucket in a new temporary directory.
func testBucket(t *testing.T) (*blob.Bucket, string) {
	t.Helper()
	dir := t.TempDir()
	b, err := OpenBucket(context.Background(), "file://"+filepath.ToSlash(dir), S3Config{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { b.Close() })
	return b, dir
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestOpenBucket(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		url  string
	}{
		{name: "provider", url: "ftp://bucket"},
		{name: "missing dir", url: "file:///does/not/exist"},
		{name: "url", url: "s3://bad\x7f"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := OpenBucket(ctx, test.url, S3Config{}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestAWSConfig(t *testing.T) {
	c := S3Config{
		Endpoint:  "https://s3.example.org",
		AccessKey: "key",
		SecretKey: "secret",
		PathStyle: true,
	}.awsConfig()
	if *c.Region != "us-east-1" {
		t.Errorf("region = %s", *c.Region)
	}
	if *c.Endpoint != "https://s3.example.org" || !*c.S3ForcePathStyle {
		t.Errorf("endpoint = %s, path style = %v", *c.Endpoint, *c.S3ForcePathStyle)
	}
	v, err := c.Credentials.Get()
	if err != nil {
		t.Fatal(err)
	}
	if v.AccessKeyID != "key" || v.SecretAccessKey != "secret" {
		t.Errorf("credentials = %+v", v)
	}

	c = S3Config{Region: "eu-central-1"}.awsConfig()
	if *c.Region != "eu-central-1" || c.Endpoint != nil {
		t.Errorf("region = %s, endpoint = %v", *c.Region, c.Endpoint)
	}
}

func TestUploadList(t *testing.T) {
	ctx := context.Background()
	b, _ := testBucket(t)
	src := t.TempDir()
	for _, name := range []string{"icon_20250630_00.nc", "icon_20250630_01.nc", "notes.txt"} {
		writeFile(t, filepath.Join(src, name), []byte(name))
	}

	n, err := UploadGlob(ctx, b, filepath.Join(src, "*.nc"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("uploaded %d files, want 2", n)
	}
	if err := Upload(ctx, b, filepath.Join(src, "notes.txt"), "docs/notes.txt"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		prefix, suffix string
		want           []string
	}{
		{suffix: ".nc", want: []string{"icon_20250630_00.nc", "icon_20250630_01.nc"}},
		{prefix: "docs/", want: []string{"docs/notes.txt"}},
		{prefix: "icon_20250630_01", want: []string{"icon_20250630_01.nc"}},
		{suffix: ".gz"},
	}
	for _, test := range tests {
		keys, err := List(ctx, b, test.prefix, test.suffix)
		if err != nil {
			t.Fatal(err)
		}
		if diff := pretty.Diff(keys, test.want); len(diff) > 0 {
			t.Errorf("List(%q, %q): %v", test.prefix, test.suffix, diff)
		}
	}

	data, err := Read(ctx, b, "docs/notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "notes.txt" {
		t.Errorf("read %q", data)
	}
}

func TestUploadGlobFailure(t *testing.T) {
	ctx := context.Background()
	b, _ := testBucket(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.nc"), []byte("a"))
	// A directory matches the pattern but can't be uploaded.
	if err := os.Mkdir(filepath.Join(src, "b.nc"), os.ModePerm); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(src, "c.nc"), []byte("c"))

	n, err := UploadGlob(ctx, b, filepath.Join(src, "*.nc"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if n != 2 {
		t.Errorf("uploaded %d files, want 2", n)
	}
	keys, err := List(ctx, b, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(keys, []string{"a.nc", "c.nc"}); len(diff) > 0 {
		t.Error(diff)
	}
}

func TestDownload(t *testing.T) {
	ctx := context.Background()
	b, _ := testBucket(t)
	if err := b.WriteAll(ctx, "data/x.txt", []byte("hello"), nil); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "sub", "x.txt")
	if err := Download(ctx, b, "data/x.txt", out); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("downloaded %q", data)
	}

	missing := filepath.Join(t.TempDir(), "missing.txt")
	if err := Download(ctx, b, "data/missing.txt", missing); err == nil {
		t.Error("expected an error for a missing blob")
	}
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Error("failed download left a file")
	}
	if _, err := Read(ctx, b, "data/missing.txt"); err == nil {
		t.Error("expected an error reading a missing blob")
	}
}

func TestDownloadGunzip(t *testing.T) {
	ctx := context.Background()
	b, _ := testBucket(t)
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte("GRIB"))
	zw.Close()
	key := "sat_data/20250605_00/icon_20250605_00.grib2.gz"
	if err := b.WriteAll(ctx, key, buf.Bytes(), nil); err != nil {
		t.Fatal(err)
	}
	if err := b.WriteAll(ctx, "bad.gz", []byte("not gzip"), nil); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	path, err := DownloadGunzip(ctx, b, key, dir)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "icon_20250605_00.grib2"); path != want {
		t.Errorf("path = %s, want %s", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "GRIB" {
		t.Errorf("decompressed %q", data)
	}
	if _, err := os.Stat(path + ".gz"); !os.IsNotExist(err) {
		t.Error("compressed file was not removed")
	}

	if _, err := DownloadGunzip(ctx, b, "bad.gz", dir); err == nil {
		t.Error("expected an error for invalid gzip data")
	}
	if _, err := os.Stat(filepath.Join(dir, "bad")); !os.IsNotExist(err) {
		t.Error("failed decompression left a file")
	}
	if _, err := DownloadGunzip(ctx, b, "data.nc", dir); err == nil {
		t.Error("expected an error for a key without .gz")
	}
}
