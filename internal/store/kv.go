package store

//go:generate mockgen -source=kv.go -destination=kv_mock.go -package=store

import "context"

const (
	TransactionsKey = "pos_transactions"
	ProductsKey     = "pos_products_runtime"
)

// KV persists whole serialized collections under a fixed key. Load reports
// ok=false when the key has never been written.
type KV interface {
	Load(ctx context.Context, key string) (value []byte, ok bool, err error)
	Save(ctx context.Context, key string, value []byte) error
}
