package provider

import (
	"context"
	"io"
)

// Optional provider capability interfaces.
//
// These interfaces are used for feature detection (type assertions). The core
// Provider interface remains intentionally small.

// ObjectGetter can download objects as a stream.
type ObjectGetter interface {
	GetObject(ctx context.Context, key string) (body io.ReadCloser, contentLength int64, err error)
}

// ObjectDownloader can download a full object into an io.WriterAt.
//
// Preferred over ObjectGetter when available; the S3 implementation backs
// this with the SDK managed downloader.
type ObjectDownloader interface {
	DownloadObject(ctx context.Context, key string, w io.WriterAt) (written int64, err error)
}
