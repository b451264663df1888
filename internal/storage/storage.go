// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package storage opens the destination bucket for downloaded products.
// A destination is either a gocloud blob URL (file://, mem://, s3://, gs://)
// or a plain directory path, which is served by the fileblob driver.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// Bucket is a blob bucket that remembers where it points.
type Bucket struct {
	*blob.Bucket

	dest string
	dir  string
}

// OpenBucket opens dest. Directory paths are created if missing and opened
// without fileblob's attribute sidecar files, so the directory holds only
// the downloaded products.
func OpenBucket(ctx context.Context, dest string) (*Bucket, error) {
	if dest == "" {
		dest = "."
	}
	if !isURL(dest) {
		return openDir(dest)
	}

	bkt, err := blob.OpenBucket(ctx, dest)
	if err != nil {
		return nil, fmt.Errorf("opening bucket %s: %w", dest, err)
	}
	b := &Bucket{Bucket: bkt, dest: dest}
	if u, err := url.Parse(dest); err == nil {
		b.dest = u.Scheme + "://" + u.Host + u.Path
		if u.Scheme == "file" {
			b.dir = filepath.FromSlash(u.Path)
		}
	}
	return b, nil
}

func openDir(dir string) (*Bucket, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", abs, err)
	}
	bkt, err := fileblob.OpenBucket(abs, &fileblob.Options{Metadata: fileblob.MetadataDontWrite})
	if err != nil {
		return nil, fmt.Errorf("opening directory bucket %s: %w", abs, err)
	}
	return &Bucket{Bucket: bkt, dest: abs, dir: abs}, nil
}

// Dest returns the destination the bucket was opened from, normalized.
func (b *Bucket) Dest() string { return b.dest }

// Locate returns where the object for key lives: a filesystem path for
// local buckets, a URL-style location otherwise.
func (b *Bucket) Locate(key string) string {
	if b.dir != "" {
		return filepath.Join(b.dir, filepath.FromSlash(key))
	}
	if strings.HasSuffix(b.dest, "/") {
		return b.dest + key
	}
	return b.dest + "/" + key
}

func isURL(dest string) bool {
	i := strings.Index(dest, "://")
	if i <= 0 {
		return false
	}
	for _, r := range dest[:i] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return false
		}
	}
	return true
}
