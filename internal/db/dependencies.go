package db

import "context"

// Client is the durable key-value substrate the ledger persists into.
type Client interface {
	GetKV(ctx context.Context, key string) (string, error)
	SetKV(ctx context.Context, key string, value string) error
	Close() error
}
