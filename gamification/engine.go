// Package gamification keeps points, levels, daily streaks and achievement
// unlocks. It is the single implementation shared by every client surface.
package gamification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aclio/aclio/models"
	"github.com/aclio/aclio/store"
)

// Point rewards.
const (
	StepPoints       = 10
	GoalPoints       = 50
	FirstGoalBonus   = 30
	DailyBonusPoints = 25
)

// Award is the result of a points mutation. Gained > 0 means the points
// popup should show; LeveledUp means the level-up celebration should.
type Award struct {
	Gained        int          `json:"gained"`
	Total         int          `json:"total"`
	Level         models.Level `json:"level"`
	PreviousLevel models.Level `json:"previousLevel"`
	LeveledUp     bool         `json:"leveledUp"`
}

// Snapshot is a read-only view of the engine state.
type Snapshot struct {
	Points            int                  `json:"points"`
	Level             LevelProgress        `json:"level"`
	Streak            models.StreakData    `json:"streak"`
	Unlocked          []string             `json:"unlocked"`
	DailyBonusClaimed bool                 `json:"dailyBonusClaimed"`
	Achievements      []models.Achievement `json:"achievements"`
}

// Engine owns the persisted gamification counters. Methods never fail:
// persistence errors are logged and the in-memory state stays authoritative.
type Engine struct {
	store store.Store
	log   *zap.Logger
	now   func() time.Time
	loc   *time.Location

	mu       sync.Mutex
	points   int
	streak   models.StreakData
	unlocked []string
	claimed  string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the timezone used to derive calendar days.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// WithLogger sets the logger; the default discards.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New loads persisted state from s.
func New(ctx context.Context, s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store: s,
		log:   zap.NewNop(),
		now:   time.Now,
		loc:   time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.load(ctx)
	return e
}

func (e *Engine) load(ctx context.Context) {
	e.read(ctx, store.KeyPoints, &e.points)
	e.read(ctx, store.KeyStreak, &e.streak)
	e.read(ctx, store.KeyAchievements, &e.unlocked)
	e.read(ctx, store.KeyDailyBonusClaimed, &e.claimed)
	if e.points < 0 {
		e.points = 0
	}
}

func (e *Engine) read(ctx context.Context, key string, v any) {
	if _, err := store.GetJSON(ctx, e.store, key, v); err != nil {
		e.log.Warn("gamification state load failed", zap.String("key", key), zap.Error(err))
	}
}

func (e *Engine) write(ctx context.Context, key string, v any) {
	if err := store.SetJSON(ctx, e.store, key, v); err != nil {
		e.log.Warn("gamification state save failed", zap.String("key", key), zap.Error(err))
	}
}

func (e *Engine) today() (string, string) {
	now := e.now()
	return DayString(now, e.loc), YesterdayString(now, e.loc)
}

// AwardStepPoints grants StepPoints and counts today toward the streak.
func (e *Engine) AwardStepPoints(ctx context.Context) Award {
	e.mu.Lock()
	defer e.mu.Unlock()
	award := e.addPointsLocked(ctx, StepPoints)
	e.updateStreakLocked(ctx)
	return award
}

// AwardGoalPoints grants GoalPoints, plus FirstGoalBonus for the first goal.
func (e *Engine) AwardGoalPoints(ctx context.Context, isFirstGoal bool) Award {
	amount := GoalPoints
	if isFirstGoal {
		amount += FirstGoalBonus
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addPointsLocked(ctx, amount)
}

// ClaimDailyBonus grants DailyBonusPoints once per calendar day. The bool is
// false when today's bonus was already claimed.
func (e *Engine) ClaimDailyBonus(ctx context.Context) (Award, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	today, _ := e.today()
	if e.claimed == today {
		return Award{Total: e.points, Level: LevelFor(e.points), PreviousLevel: LevelFor(e.points)}, false
	}
	award := e.addPointsLocked(ctx, DailyBonusPoints)
	e.updateStreakLocked(ctx)
	e.claimed = today
	e.write(ctx, store.KeyDailyBonusClaimed, e.claimed)
	return award, true
}

// UpdateStreak applies the daily streak rule; repeated calls on one day are no-ops.
func (e *Engine) UpdateStreak(ctx context.Context) models.StreakData {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.updateStreakLocked(ctx)
	return e.streak
}

// CheckAchievements unlocks every catalog entry whose predicate now holds
// and returns the newly unlocked ones in catalog order.
func (e *Engine) CheckAchievements(ctx context.Context, goals []models.Goal) []models.Achievement {
	e.mu.Lock()
	defer e.mu.Unlock()

	unlocked := make(map[string]bool, len(e.unlocked))
	for _, id := range e.unlocked {
		unlocked[id] = true
	}

	var fresh []models.Achievement
	for _, def := range Catalog {
		if unlocked[def.ID] {
			continue
		}
		if def.Check(goals, e.streak.Current, e.points) {
			e.unlocked = append(e.unlocked, def.ID)
			fresh = append(fresh, def.Achievement)
		}
	}
	if len(fresh) > 0 {
		e.write(ctx, store.KeyAchievements, e.unlocked)
		for _, a := range fresh {
			e.log.Info("achievement unlocked", zap.String("id", a.ID))
		}
	}
	return fresh
}

// Points returns the current total.
func (e *Engine) Points() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.points
}

// Streak returns the current streak record.
func (e *Engine) Streak() models.StreakData {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.streak
}

// Snapshot returns a consistent copy of all derived state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	today, _ := e.today()
	snap := Snapshot{
		Points:            e.points,
		Level:             ProgressFor(e.points),
		Streak:            e.streak,
		Unlocked:          append([]string(nil), e.unlocked...),
		DailyBonusClaimed: e.claimed == today,
	}
	for _, id := range e.unlocked {
		if a, ok := FindAchievement(id); ok {
			snap.Achievements = append(snap.Achievements, a)
		}
	}
	return snap
}

func (e *Engine) addPointsLocked(ctx context.Context, amount int) Award {
	before := LevelFor(e.points)
	e.points += amount
	after := LevelFor(e.points)
	e.write(ctx, store.KeyPoints, e.points)

	award := Award{
		Gained:        amount,
		Total:         e.points,
		Level:         after,
		PreviousLevel: before,
		LeveledUp:     after.Level > before.Level,
	}
	if award.LeveledUp {
		e.log.Info("level up", zap.Int("level", after.Level), zap.String("name", after.Name))
	}
	return award
}

func (e *Engine) updateStreakLocked(ctx context.Context) {
	today, yesterday := e.today()
	next, changed := AdvanceStreak(e.streak, today, yesterday)
	if !changed {
		return
	}
	e.streak = next
	e.write(ctx, store.KeyStreak, e.streak)
}
