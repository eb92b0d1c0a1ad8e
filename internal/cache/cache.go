// Package cache stores fully assembled analysis responses so repeated
// queries return byte-identical payloads.
package cache

import "context"

// Store is the result cache the pipeline reads through. Payloads are the
// marshaled response bodies, stored and returned verbatim.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte)
}
