package redisearch

import "github.com/redis/rueidis"

// NewStoreForTest wraps a (mock) rueidis client with the default key prefix.
func NewStoreForTest(c rueidis.Client) *Store {
	return NewStoreWithClient(c, "", nil)
}
