package redis

import (
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

// newMiniRedis starts an in-process server and a client bound to it. The
// client is closed with the test.
func newMiniRedis(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

// trialBalanceKey is a report cache key as the report use case builds it.
func trialBalanceKey(version int) string {
	return fmt.Sprintf("report:org-1:%d:trial_balance:9f86d081884c7d65", version)
}
