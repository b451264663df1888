// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mast

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/pdiddy/mastget/internal/httputil"
	"github.com/pdiddy/mastget/internal/logging"
	"github.com/pdiddy/mastget/internal/storage"
	"github.com/pdiddy/mastget/pkg/types"
)

// DefaultPrefix is the top-level key prefix for downloaded products.
const DefaultPrefix = "mastDownload"

// Downloader fetches product files into a bucket.
type Downloader struct {
	Client *Client
	Bucket *storage.Bucket

	// Cache skips products already present with a matching size.
	Cache bool

	// Prefix is prepended to every object key (default DefaultPrefix).
	Prefix string
}

// DownloadURL returns the file endpoint URL for a product's data URI.
func (c *Client) DownloadURL(dataURI string) string {
	return c.BaseURL + downloadPath + "?uri=" + url.QueryEscape(dataURI)
}

// Key returns the bucket key for p: prefix/collection/obs_id/filename.
func (d *Downloader) Key(p types.Product) string {
	prefix := d.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	name := p.Filename
	if name == "" {
		name = path.Base(p.DataURI)
	}
	return path.Join(prefix, safeSegment(p.Collection), safeSegment(p.ObsIDName), safeSegment(name))
}

// DownloadProducts downloads each product in order and returns one record per
// product. Per-file failures become ERROR records and do not stop the loop;
// only context cancellation does, in which case the records so far are
// returned with ctx.Err().
func (d *Downloader) DownloadProducts(ctx context.Context, products []types.Product, mrpOnly bool) ([]types.DownloadRecord, error) {
	if mrpOnly {
		products = FilterProducts(products, ProductFilter{MRPOnly: true})
	}

	records := make([]types.DownloadRecord, 0, len(products))
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		rec := d.downloadOne(ctx, p)
		if ctx.Err() != nil && rec.Status == types.StatusError {
			return records, ctx.Err()
		}
		records = append(records, rec)
	}
	return records, nil
}

func (d *Downloader) downloadOne(ctx context.Context, p types.Product) types.DownloadRecord {
	log := logging.Named("download")
	key := d.Key(p)
	rec := types.DownloadRecord{
		DataURI:   p.DataURI,
		LocalPath: d.Bucket.Locate(key),
		URL:       d.Client.DownloadURL(p.DataURI),
	}

	if p.DataURI == "" {
		rec.Status = types.StatusError
		rec.Message = "product has no data URI"
		return rec
	}

	if d.Cache {
		attrs, err := d.Bucket.Attributes(ctx, key)
		switch {
		case err == nil && (p.Size <= 0 || attrs.Size == p.Size):
			rec.Status = types.StatusSkipped
			rec.Message = "found cached file"
			rec.Size = attrs.Size
			return rec
		case err == nil:
			log.Debug().Str("key", key).Int64("have", attrs.Size).Int64("want", p.Size).Msg("cached size differs, downloading again")
		case gcerrors.Code(err) != gcerrors.NotFound:
			log.Warn().Err(err).Str("key", key).Msg("checking cached file")
		}
	}

	n, err := d.fetch(ctx, rec.URL, key)
	if err != nil {
		rec.Status = types.StatusError
		rec.Message = err.Error()
		log.Debug().Err(err).Str("uri", p.DataURI).Msg("download failed")
		return rec
	}
	rec.Status = types.StatusComplete
	rec.Size = n
	return rec
}

// fetch streams fileURL into key. The object is only committed when the
// whole body was copied.
func (d *Downloader) fetch(ctx context.Context, fileURL, key string) (int64, error) {
	req, err := http.NewRequest(http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	d.Client.setHeaders(req)

	resp, err := httputil.DoWithRetry(ctx, d.Client.HTTP, req, d.Client.MaxRetries)
	if err != nil {
		return 0, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: HTTP %d", ErrHTTPStatus, resp.StatusCode)
	}

	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := d.Bucket.NewWriter(writeCtx, key, &blob.WriterOptions{
		ContentType: resp.Header.Get("Content-Type"),
	})
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", key, err)
	}

	n, copyErr := io.Copy(w, resp.Body)
	if copyErr == nil && resp.ContentLength >= 0 && n != resp.ContentLength {
		copyErr = fmt.Errorf("short body: got %d of %d bytes", n, resp.ContentLength)
	}
	if copyErr != nil {
		cancel()
		w.Close()
		return n, fmt.Errorf("writing %s: %w", key, copyErr)
	}
	if err := w.Close(); err != nil {
		return n, fmt.Errorf("closing %s: %w", key, err)
	}
	return n, nil
}

// safeSegment keeps a path component from escaping its parent.
func safeSegment(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "." || s == ".." {
		return "_"
	}
	return s
}
