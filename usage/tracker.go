// Package usage counts daily use of AI features and applies the free-tier
// limits. Premium users are unlimited.
package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aclio/aclio/gamification"
	"github.com/aclio/aclio/store"
)

// Feature names an AI-backed action.
type Feature string

const (
	FeatureGenerateSteps Feature = "generateSteps"
	FeatureExpandStep    Feature = "expandStep"
	FeatureDoItForMe     Feature = "doItForMe"
	FeatureChat          Feature = "chat"
)

// DefaultLimits are the free-tier daily allowances.
var DefaultLimits = map[Feature]int{
	FeatureGenerateSteps: 3,
	FeatureExpandStep:    5,
	FeatureDoItForMe:     3,
	FeatureChat:          10,
}

// ErrLimitReached is returned by Check when today's allowance is used up.
var ErrLimitReached = errors.New("daily limit reached")

type counter struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Tracker persists one counter per feature; counters reset on a new calendar day.
type Tracker struct {
	store  store.Store
	limits map[Feature]int
	now    func() time.Time
	loc    *time.Location
}

// NewTracker uses DefaultLimits when limits is nil.
func NewTracker(s store.Store, limits map[Feature]int) *Tracker {
	if limits == nil {
		limits = DefaultLimits
	}
	return &Tracker{store: s, limits: limits, now: time.Now, loc: time.Local}
}

// WithClock overrides the clock and location; for tests.
func (t *Tracker) WithClock(now func() time.Time, loc *time.Location) *Tracker {
	t.now = now
	t.loc = loc
	return t
}

// IsPremium reads the premium flag.
func (t *Tracker) IsPremium(ctx context.Context) (bool, error) {
	var premium bool
	if _, err := store.GetJSON(ctx, t.store, store.KeyPremium, &premium); err != nil {
		return false, err
	}
	return premium, nil
}

// SetPremium writes the premium flag.
func (t *Tracker) SetPremium(ctx context.Context, premium bool) error {
	return store.SetJSON(ctx, t.store, store.KeyPremium, premium)
}

// Used returns today's count for f.
func (t *Tracker) Used(ctx context.Context, f Feature) (int, error) {
	c, err := t.load(ctx, f)
	if err != nil {
		return 0, err
	}
	return c.Count, nil
}

// Remaining returns what is left today; unlimited is true for premium users
// and for features without a limit.
func (t *Tracker) Remaining(ctx context.Context, f Feature) (remaining int, unlimited bool, err error) {
	premium, err := t.IsPremium(ctx)
	if err != nil {
		return 0, false, err
	}
	limit, limited := t.limits[f]
	if premium || !limited {
		return 0, true, nil
	}
	used, err := t.Used(ctx, f)
	if err != nil {
		return 0, false, err
	}
	if used >= limit {
		return 0, false, nil
	}
	return limit - used, false, nil
}

// Check returns ErrLimitReached when f cannot be used again today.
func (t *Tracker) Check(ctx context.Context, f Feature) error {
	remaining, unlimited, err := t.Remaining(ctx, f)
	if err != nil {
		return err
	}
	if !unlimited && remaining == 0 {
		return fmt.Errorf("%w: %s", ErrLimitReached, f)
	}
	return nil
}

// Record counts one use of f today.
func (t *Tracker) Record(ctx context.Context, f Feature) error {
	c, err := t.load(ctx, f)
	if err != nil {
		return err
	}
	c.Count++
	return store.SetJSON(ctx, t.store, store.UsageKey(string(f)), c)
}

func (t *Tracker) load(ctx context.Context, f Feature) (counter, error) {
	today := gamification.DayString(t.now(), t.loc)
	var c counter
	if _, err := store.GetJSON(ctx, t.store, store.UsageKey(string(f)), &c); err != nil {
		return counter{}, err
	}
	if c.Date != today {
		c = counter{Date: today}
	}
	return c, nil
}
