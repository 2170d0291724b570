package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectWithRetry_BadURLIsPermanent(t *testing.T) {
	start := time.Now()
	_, err := ConnectWithRetry(context.Background(), "postgres://%zz", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 1 attempts")
	assert.Less(t, time.Since(start), initialBackoff)
}

func TestConnectWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ConnectWithRetry(ctx, "postgres://user:pw@127.0.0.1:1/db?connect_timeout=1", 3)
	assert.Error(t, err)
}
