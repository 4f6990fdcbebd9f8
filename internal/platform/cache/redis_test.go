package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), Options{Addr: mr.Addr(), DB: 2})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	require.NoError(t, client.Set(context.Background(), "reporting:version", "3", 0).Err())
	v, err := mr.DB(2).Get("reporting:version")
	require.NoError(t, err)
	require.Equal(t, "3", v)
}

func TestNewFailsWhenUnreachable(t *testing.T) {
	_, err := New(context.Background(), Options{Addr: "127.0.0.1:1", PingTimeout: 200 * time.Millisecond})
	require.Error(t, err)

	_, err = New(context.Background(), Options{})
	require.Error(t, err)
}
