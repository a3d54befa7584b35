package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const newMailTTL = 24 * time.Hour

// NewMailFlags holds the per-account "new mail arrived" signal the poll
// worker sets and the UI clears after a forced reload.
type NewMailFlags struct {
	rdb *redis.Client
}

func NewNewMailFlags(rdb *redis.Client) *NewMailFlags {
	return &NewMailFlags{rdb: rdb}
}

func key(accountID uint) string {
	return fmt.Sprintf("newmail:%d", accountID)
}

func (f *NewMailFlags) Mark(ctx context.Context, accountID uint) error {
	return f.rdb.Set(ctx, key(accountID), "1", newMailTTL).Err()
}

func (f *NewMailFlags) Check(ctx context.Context, accountID uint) (bool, error) {
	n, err := f.rdb.Exists(ctx, key(accountID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (f *NewMailFlags) Clear(ctx context.Context, accountID uint) error {
	return f.rdb.Del(ctx, key(accountID)).Err()
}
