package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aclio/aclio/models"
)

// openTestRedis connects to ACLIO_TEST_REDIS (for example
// redis://localhost:6379/15). The database is shared, so tests clean up the
// keys they write.
func openTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	url := os.Getenv("ACLIO_TEST_REDIS")
	if url == "" {
		t.Skip("ACLIO_TEST_REDIS not set")
	}
	s, err := OpenRedis(url, defaultOptions())
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()), "redis at %s", url)
	t.Cleanup(func() {
		ctx := context.Background()
		for _, k := range []string{KeyPoints, KeyGoals, "missing", "never-written"} {
			_ = s.Delete(ctx, k)
		}
		_ = s.Close()
	})
	return s
}

func TestRedisStore(t *testing.T) {
	runStoreContract(t, openTestRedis(t))
}

func TestRedisStoreJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestRedis(t)

	goals := []models.Goal{{ID: 1, Name: "Learn guitar", Steps: []models.Step{{ID: 1, Title: "Buy a guitar"}}, CompletedSteps: []int{1}}}
	require.NoError(t, SetJSON(ctx, s, KeyGoals, goals))

	reopened, err := Open(os.Getenv("ACLIO_TEST_REDIS"))
	require.NoError(t, err)
	defer reopened.Close()

	var got []models.Goal
	found, err := GetJSON(ctx, reopened, KeyGoals, &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 1)
	assert.Equal(t, "Learn guitar", got[0].Name)
	assert.True(t, got[0].IsComplete())
}
