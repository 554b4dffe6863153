// Package checkpoint persists opaque forecast checkpoint blobs to the local filesystem or
// redis.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

var (
	ErrNotFound      = errors.New("checkpoint not found")
	ErrEmptyDest     = errors.New("empty checkpoint destination")
	ErrUnknownScheme = errors.New("unknown checkpoint scheme")
)

// Store writes and reads checkpoint blobs by destination name
type Store interface {
	Write(ctx context.Context, blob []byte, dest string) error
	Read(ctx context.Context, dest string) ([]byte, error)
	io.Closer
}

// Open picks a store from the uri. redis:// and rediss:// uris connect to redis, file:// uris
// and bare paths name the directory of a file store.
func Open(ctx context.Context, uri string) (Store, error) {
	if !strings.Contains(uri, "://") {
		return NewFile(uri), nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("unable to parse checkpoint uri, %w", err)
	}
	switch u.Scheme {
	case "file":
		return NewFile(u.Path), nil
	case "redis", "rediss":
		return NewRedis(ctx, uri, DefaultRedisPrefix)
	default:
		return nil, fmt.Errorf("%q, %w", u.Scheme, ErrUnknownScheme)
	}
}
