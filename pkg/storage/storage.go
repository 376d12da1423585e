package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// Provider represents a storage provider type
type Provider string

const (
	ProviderS3    Provider = "s3"
	ProviderLocal Provider = "local"
)

// ErrUnsupportedScheme is returned for URIs no configured provider can serve
var ErrUnsupportedScheme = errors.New("storage: unsupported URI scheme")

// Location identifies a stored object
type Location struct {
	Provider Provider
	Bucket   string
	Key      string
}

// ParseURI parses s3://bucket/key or a plain/file:// local path
func ParseURI(uri string) (Location, error) {
	if uri == "" {
		return Location{}, fmt.Errorf("storage: empty URI")
	}
	if !strings.Contains(uri, "://") {
		return Location{Provider: ProviderLocal, Key: uri}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("storage: invalid URI: %w", err)
	}

	switch u.Scheme {
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("storage: s3 URI needs bucket and key: %q", uri)
		}
		return Location{Provider: ProviderS3, Bucket: u.Host, Key: key}, nil
	case "file":
		return Location{Provider: ProviderLocal, Key: u.Path}, nil
	default:
		return Location{}, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}

// ObjectReader downloads an object from a bucket
type ObjectReader interface {
	Download(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Opener resolves URIs to readers across providers
type Opener struct {
	s3 ObjectReader
}

// NewOpener creates an Opener. s3 may be nil when no S3 access is configured.
func NewOpener(s3 ObjectReader) *Opener {
	return &Opener{s3: s3}
}

// Open returns a reader for uri; the caller closes it
func (o *Opener) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	switch loc.Provider {
	case ProviderLocal:
		f, err := os.Open(loc.Key)
		if err != nil {
			return nil, fmt.Errorf("storage: open %s: %w", loc.Key, err)
		}
		return f, nil
	case ProviderS3:
		if o.s3 == nil {
			return nil, fmt.Errorf("%w: s3 is not configured", ErrUnsupportedScheme)
		}
		return o.s3.Download(ctx, loc.Bucket, loc.Key)
	default:
		return nil, ErrUnsupportedScheme
	}
}

// ReadAll opens uri and reads at most limit bytes
func (o *Opener) ReadAll(ctx context.Context, uri string, limit int64) ([]byte, error) {
	rc, err := o.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", uri, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("storage: %s exceeds %d bytes", uri, limit)
	}
	return data, nil
}
