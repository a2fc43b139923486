package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const quoteListGenerationKey = "quotes:list:gen"

// QuoteListKey returns the cache key for one list query under the current
// generation. Bumping the generation orphans every cached page at once.
func QuoteListKey(ctx context.Context, rdb *redis.Client, queryKey string) (string, error) {
	gen := int64(0)
	if rdb != nil {
		v, err := rdb.Get(ctx, quoteListGenerationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return "", err
		}
		gen = v
	}
	return fmt.Sprintf("quotes:list:%d:%s", gen, queryKey), nil
}

// InvalidateQuoteLists bumps the list generation after any quote or vote write.
func InvalidateQuoteLists(ctx context.Context, rdb *redis.Client) error {
	if rdb == nil {
		return nil
	}
	return rdb.Incr(ctx, quoteListGenerationKey).Err()
}
