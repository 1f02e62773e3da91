package storage

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// ============================================
// MemoryStore Tests
// ============================================

func TestMemoryStore_LoadMissingKey(t *testing.T) {
	store := NewMemoryStore()

	_, ok, err := store.Load(context.Background(), "missing")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_SaveThenLoad(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "k", []byte(`{"a":1}`)))

	payload, ok, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(payload))
}

func TestMemoryStore_SaveCopiesPayload(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	payload := []byte(`"original"`)
	require.NoError(t, store.Save(ctx, "k", payload))
	payload[1] = 'X'

	loaded, ok, err := store.Load(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"original"`, string(loaded))
}

// ============================================
// Cell Tests
// ============================================

func TestNewCell_FreshStoreSeedsDefault(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	cell := NewCell(ctx, store, "numbers", []int{1, 2, 3}, testLogger())

	assert.Equal(t, []int{1, 2, 3}, cell.Get())

	// The default must be persisted, not just cached.
	payload, ok, err := store.Load(ctx, "numbers")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[1,2,3]`, string(payload))
}

func TestNewCell_ExistingPayloadWinsOverDefault(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "numbers", []byte(`[9]`)))

	cell := NewCell(ctx, store, "numbers", []int{1, 2, 3}, testLogger())

	assert.Equal(t, []int{9}, cell.Get())
}

func TestNewCell_CorruptPayloadFallsBackToDefault(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "numbers", []byte(`{not json`)))

	cell := NewCell(ctx, store, "numbers", []int{1, 2, 3}, testLogger())

	assert.Equal(t, []int{1, 2, 3}, cell.Get())

	// The corrupt payload is replaced by the serialized default.
	payload, ok, err := store.Load(ctx, "numbers")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[1,2,3]`, string(payload))
}

func TestCell_SetWritesThroughSynchronously(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	cell := NewCell(ctx, store, "value", "", testLogger())

	require.NoError(t, cell.Set(ctx, "updated"))

	assert.Equal(t, "updated", cell.Get())
	payload, ok, err := store.Load(ctx, "value")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"updated"`, string(payload))
}

func TestCell_SetSurvivesReopen(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := NewCell(ctx, store, "value", "default", testLogger())
	require.NoError(t, first.Set(ctx, "persisted"))

	// A new cell over the same store sees the write, not the default.
	second := NewCell(ctx, store, "value", "default", testLogger())
	assert.Equal(t, "persisted", second.Get())
}

// ============================================
// SQLiteStore Tests
// ============================================

func TestSQLiteStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, "k", []byte(`[1]`)))
	require.NoError(t, store.Save(ctx, "k", []byte(`[1,2]`)))

	payload, ok, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[1,2]`, string(payload))
}

func TestSQLiteStore_PersistsAcrossConnections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "k", []byte(`"v"`)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	payload, ok, err := reopened.Load(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"v"`, string(payload))
}
