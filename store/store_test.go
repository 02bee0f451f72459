package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, KeyPoints, []byte("10")))
	got, err := s.Get(ctx, KeyPoints)
	require.NoError(t, err)
	assert.Equal(t, "10", string(got))

	require.NoError(t, s.Set(ctx, KeyPoints, []byte("20")))
	got, err = s.Get(ctx, KeyPoints)
	require.NoError(t, err)
	assert.Equal(t, "20", string(got), "set must overwrite")

	require.NoError(t, s.Delete(ctx, KeyPoints))
	_, err = s.Get(ctx, KeyPoints)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, "never-written"))
	require.NoError(t, s.Ping(ctx))
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	value := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "aclio.db")
	s, err := Open("sqlite://"+path, WithLogLevel("silent"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	runStoreContract(t, s)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "aclio.db")

	first, err := Open(path, WithLogLevel("silent"))
	require.NoError(t, err)
	require.NoError(t, SetJSON(ctx, first, KeyProfile, map[string]string{"name": "Sam"}))
	require.NoError(t, first.Close())

	second, err := Open(path, WithLogLevel("silent"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	var profile map[string]string
	found, err := GetJSON(ctx, second, KeyProfile, &profile)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Sam", profile["name"])
}

func TestGetJSONMissingKey(t *testing.T) {
	var v []int
	found, err := GetJSON(context.Background(), NewMemoryStore(), KeyGoals, &v)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, v)
}

func TestGetJSONCorruptRecord(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, KeyStreak, []byte("{not json")))

	var v map[string]any
	_, err := GetJSON(ctx, s, KeyStreak, &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyStreak)
}

func TestOpenSelectsBackend(t *testing.T) {
	s, err := Open("memory://")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open("")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open("ftp://example.com/db")
	require.Error(t, err)

	_, err = Open("redis://%zz")
	require.Error(t, err)
}

func TestUsageKey(t *testing.T) {
	assert.Equal(t, "aclio.usage.expandStep", UsageKey("expandStep"))
}
