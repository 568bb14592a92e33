package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPutGetDelete(t *testing.T) {
	ctx := context.Background()
	d := NewLocal(t.TempDir(), "http://files.test/storage/")

	require.NoError(t, d.Put(ctx, "receipts/2026/o1.json", []byte(`{"id":"o1"}`), "application/json"))

	ok, err := d.Exists(ctx, "receipts/2026/o1.json")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := d.Get(ctx, "receipts/2026/o1.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"o1"}`, string(data))

	require.NoError(t, d.Delete(ctx, "receipts/2026/o1.json"))
	require.NoError(t, d.Delete(ctx, "receipts/2026/o1.json"))

	_, err = d.Get(ctx, "receipts/2026/o1.json")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestLocalRejectsEscapingPaths(t *testing.T) {
	d := NewLocal(t.TempDir(), "")
	err := d.Put(context.Background(), "../outside.txt", []byte("x"), "")
	assert.Error(t, err)
}

func TestLocalURL(t *testing.T) {
	d := NewLocal(t.TempDir(), "http://files.test/storage/")
	assert.Equal(t, "http://files.test/storage/receipts/o1.json", d.URL("/receipts/o1.json"))
}

func TestRegistry(t *testing.T) {
	d := NewLocal(t.TempDir(), "")
	Register("scratch", d)
	SetDefault("scratch")
	t.Cleanup(func() { SetDefault("local") })

	got, err := Default()
	require.NoError(t, err)
	assert.Same(t, d, got)

	_, err = Use("missing")
	assert.Error(t, err)
}
