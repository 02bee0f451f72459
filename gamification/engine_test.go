package gamification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aclio/aclio/models"
	"github.com/aclio/aclio/store"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) advanceDays(n int) { c.now = c.now.AddDate(0, 0, n) }

func newTestEngine(t *testing.T, s store.Store) (*Engine, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
	e := New(context.Background(), s, WithClock(clock.Now), WithLocation(time.UTC))
	return e, clock
}

func TestAwardStepPointsAddsTenPerCall(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, store.NewMemoryStore())

	const n = 7
	prev := e.Points()
	for i := 0; i < n; i++ {
		award := e.AwardStepPoints(ctx)
		assert.Equal(t, StepPoints, award.Gained)
		assert.Greater(t, award.Total, prev)
		prev = award.Total
	}
	assert.Equal(t, StepPoints*n, e.Points())
}

func TestAwardStepPointsUpdatesStreakOncePerDay(t *testing.T) {
	ctx := context.Background()
	e, clock := newTestEngine(t, store.NewMemoryStore())

	e.AwardStepPoints(ctx)
	e.AwardStepPoints(ctx)
	assert.Equal(t, models.StreakData{Current: 1, Best: 1, LastActiveDateString: "2026-03-14"}, e.Streak())

	clock.advanceDays(1)
	e.AwardStepPoints(ctx)
	assert.Equal(t, 2, e.Streak().Current)
	assert.Equal(t, 2, e.Streak().Best)
}

func TestStreakBrokenAfterGap(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, store.SetJSON(ctx, s, store.KeyStreak,
		models.StreakData{Current: 12, Best: 15, LastActiveDateString: "2026-03-12"}))

	e, _ := newTestEngine(t, s)
	got := e.UpdateStreak(ctx)

	assert.Equal(t, 1, got.Current)
	assert.Equal(t, 15, got.Best)
}

func TestUpdateStreakIdempotentWithinDay(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, store.NewMemoryStore())

	first := e.UpdateStreak(ctx)
	second := e.UpdateStreak(ctx)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, second.Current)
}

func TestAwardGoalPoints(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, store.NewMemoryStore())

	first := e.AwardGoalPoints(ctx, true)
	assert.Equal(t, GoalPoints+FirstGoalBonus, first.Gained)

	second := e.AwardGoalPoints(ctx, false)
	assert.Equal(t, GoalPoints, second.Gained)
	assert.Equal(t, 2*GoalPoints+FirstGoalBonus, e.Points())
	assert.Empty(t, e.Streak().LastActiveDateString, "goal points do not touch the streak")
}

func TestAwardDetectsLevelUp(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, store.SetJSON(ctx, s, store.KeyPoints, 95))
	e, _ := newTestEngine(t, s)

	award := e.AwardStepPoints(ctx)
	assert.True(t, award.LeveledUp)
	assert.Equal(t, 1, award.PreviousLevel.Level)
	assert.Equal(t, 2, award.Level.Level)

	award = e.AwardStepPoints(ctx)
	assert.False(t, award.LeveledUp)
}

func TestClaimDailyBonus(t *testing.T) {
	ctx := context.Background()
	e, clock := newTestEngine(t, store.NewMemoryStore())

	award, ok := e.ClaimDailyBonus(ctx)
	require.True(t, ok)
	assert.Equal(t, DailyBonusPoints, award.Gained)
	assert.Equal(t, 1, e.Streak().Current)

	award, ok = e.ClaimDailyBonus(ctx)
	assert.False(t, ok)
	assert.Zero(t, award.Gained)
	assert.Equal(t, DailyBonusPoints, e.Points())

	// A step on the same day must not extend the streak a second time.
	e.AwardStepPoints(ctx)
	assert.Equal(t, 1, e.Streak().Current)

	clock.advanceDays(1)
	_, ok = e.ClaimDailyBonus(ctx)
	assert.True(t, ok)
	assert.Equal(t, 2, e.Streak().Current)
	assert.Equal(t, 2*DailyBonusPoints+StepPoints, e.Points())
}

func TestCheckAchievementsFirstGoal(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, store.NewMemoryStore())

	assert.Empty(t, e.CheckAchievements(ctx, nil))

	goals := []models.Goal{{ID: 1, Name: "Learn guitar"}}
	fresh := e.CheckAchievements(ctx, goals)
	require.Len(t, fresh, 1)
	assert.Equal(t, "first_goal", fresh[0].ID)

	assert.Empty(t, e.CheckAchievements(ctx, goals), "already unlocked ids are not re-added")
	assert.Empty(t, e.CheckAchievements(ctx, nil), "unlocks are never removed")
	assert.Equal(t, []string{"first_goal"}, e.Snapshot().Unlocked)
}

func TestCheckAchievementsMultipleInCatalogOrder(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, store.SetJSON(ctx, s, store.KeyPoints, 600))
	require.NoError(t, store.SetJSON(ctx, s, store.KeyStreak, models.StreakData{Current: 3, Best: 3, LastActiveDateString: "2026-03-14"}))
	e, _ := newTestEngine(t, s)

	goals := []models.Goal{{
		ID:             1,
		Steps:          []models.Step{{ID: 1}, {ID: 2}},
		CompletedSteps: []int{1, 2},
	}}
	fresh := e.CheckAchievements(ctx, goals)

	ids := make([]string, 0, len(fresh))
	for _, a := range fresh {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"first_goal", "first_step", "goal_complete", "streak_3", "points_500"}, ids)
}

func TestEngineStatePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	e, _ := newTestEngine(t, s)
	e.AwardStepPoints(ctx)
	e.ClaimDailyBonus(ctx)
	e.CheckAchievements(ctx, []models.Goal{{ID: 1}})

	reloaded, _ := newTestEngine(t, s)
	snap := reloaded.Snapshot()
	assert.Equal(t, StepPoints+DailyBonusPoints, snap.Points)
	assert.Equal(t, 1, snap.Streak.Current)
	assert.True(t, snap.DailyBonusClaimed)
	assert.Equal(t, []string{"first_goal"}, snap.Unlocked)
	require.Len(t, snap.Achievements, 1)
	assert.Equal(t, "First Step", snap.Achievements[0].Name)
}

type failingStore struct {
	*store.MemoryStore
}

func (failingStore) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestEngineSurvivesStoreFailures(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, failingStore{store.NewMemoryStore()})

	award := e.AwardStepPoints(ctx)
	assert.Equal(t, StepPoints, award.Total)
	_, ok := e.ClaimDailyBonus(ctx)
	assert.True(t, ok)
	assert.Equal(t, StepPoints+DailyBonusPoints, e.Points())
}

func TestCatalogIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, def := range Catalog {
		assert.False(t, seen[def.ID], "duplicate id %s", def.ID)
		seen[def.ID] = true
		assert.NotNil(t, def.Check)
	}
	assert.Len(t, Catalog, 12)
}
