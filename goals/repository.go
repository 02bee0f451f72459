// Package goals is the goal repository: CRUD over the persisted goal list.
package goals

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/aclio/aclio/models"
	"github.com/aclio/aclio/store"
)

// MaxNameLength bounds goal names in runes.
const MaxNameLength = 200

var (
	ErrGoalNotFound = errors.New("goal not found")
	ErrStepNotFound = errors.New("step not found")
	ErrInvalidGoal  = errors.New("invalid goal")
)

// Repository stores every goal as one list under store.KeyGoals.
type Repository struct {
	store store.Store
	now   func() time.Time
	mu    sync.Mutex
}

// NewRepository returns a repository over s.
func NewRepository(s store.Store) *Repository {
	return &Repository{store: s, now: time.Now}
}

// WithClock overrides the clock used for CreatedAt; for tests.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

// ValidateName trims name and checks it is non-empty and within MaxNameLength.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidGoal)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrInvalidGoal, MaxNameLength)
	}
	return name, nil
}

// List returns goals in creation order.
func (r *Repository) List(ctx context.Context) ([]models.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Count returns the number of stored goals.
func (r *Repository) Count(ctx context.Context) (int, error) {
	list, err := r.List(ctx)
	return len(list), err
}

// Get returns one goal by id.
func (r *Repository) Get(ctx context.Context, id int) (models.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.load(ctx)
	if err != nil {
		return models.Goal{}, err
	}
	i := indexOf(list, id)
	if i < 0 {
		return models.Goal{}, fmt.Errorf("%w: %d", ErrGoalNotFound, id)
	}
	return list[i], nil
}

// Create assigns the next id and CreatedAt, then appends g.
func (r *Repository) Create(ctx context.Context, g models.Goal) (models.Goal, error) {
	name, err := ValidateName(g.Name)
	if err != nil {
		return models.Goal{}, err
	}
	g.Name = name
	if g.IconColor == "" {
		g.IconColor = models.IconColorBlue
	}
	if !g.IconColor.Valid() {
		return models.Goal{}, fmt.Errorf("%w: unknown icon color %q", ErrInvalidGoal, g.IconColor)
	}
	if g.IconKey == "" {
		g.IconKey = "target"
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.load(ctx)
	if err != nil {
		return models.Goal{}, err
	}

	g.ID = nextID(list)
	g.CreatedAt = r.now()
	renumberSteps(&g)
	g.CompletedSteps = normalizeCompleted(g)
	if g.Steps == nil {
		g.Steps = []models.Step{}
	}

	list = append(list, g)
	if err := r.save(ctx, list); err != nil {
		return models.Goal{}, err
	}
	return g, nil
}

// Update replaces the goal with the same id. ID and CreatedAt are preserved.
func (r *Repository) Update(ctx context.Context, g models.Goal) (models.Goal, error) {
	name, err := ValidateName(g.Name)
	if err != nil {
		return models.Goal{}, err
	}
	g.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.load(ctx)
	if err != nil {
		return models.Goal{}, err
	}
	i := indexOf(list, g.ID)
	if i < 0 {
		return models.Goal{}, fmt.Errorf("%w: %d", ErrGoalNotFound, g.ID)
	}
	if g.IconColor == "" {
		g.IconColor = list[i].IconColor
	}
	if !g.IconColor.Valid() {
		return models.Goal{}, fmt.Errorf("%w: unknown icon color %q", ErrInvalidGoal, g.IconColor)
	}
	g.CreatedAt = list[i].CreatedAt
	g.CompletedSteps = normalizeCompleted(g)
	list[i] = g
	if err := r.save(ctx, list); err != nil {
		return models.Goal{}, err
	}
	return g, nil
}

// Delete removes a goal.
func (r *Repository) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(list, id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrGoalNotFound, id)
	}
	list = append(list[:i], list[i+1:]...)
	return r.save(ctx, list)
}

// ToggleStep flips the completion of one step and reports the new state.
func (r *Repository) ToggleStep(ctx context.Context, goalID, stepID int) (models.Goal, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.load(ctx)
	if err != nil {
		return models.Goal{}, false, err
	}
	i := indexOf(list, goalID)
	if i < 0 {
		return models.Goal{}, false, fmt.Errorf("%w: %d", ErrGoalNotFound, goalID)
	}
	g := list[i]
	if !g.HasStep(stepID) {
		return models.Goal{}, false, fmt.Errorf("%w: goal %d step %d", ErrStepNotFound, goalID, stepID)
	}

	completed := !g.IsStepCompleted(stepID)
	if completed {
		g.CompletedSteps = append(g.CompletedSteps, stepID)
	} else {
		kept := make([]int, 0, len(g.CompletedSteps))
		for _, id := range g.CompletedSteps {
			if id != stepID {
				kept = append(kept, id)
			}
		}
		g.CompletedSteps = kept
	}
	sort.Ints(g.CompletedSteps)
	list[i] = g

	if err := r.save(ctx, list); err != nil {
		return models.Goal{}, false, err
	}
	return g, completed, nil
}

// ExtendGoal appends steps, renumbering them after the goal's current ids.
func (r *Repository) ExtendGoal(ctx context.Context, goalID int, steps []models.Step) (models.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.load(ctx)
	if err != nil {
		return models.Goal{}, err
	}
	i := indexOf(list, goalID)
	if i < 0 {
		return models.Goal{}, fmt.Errorf("%w: %d", ErrGoalNotFound, goalID)
	}
	g := list[i]
	next := g.NextStepID()
	for _, s := range steps {
		s.ID = next
		next++
		g.Steps = append(g.Steps, s)
	}
	list[i] = g
	if err := r.save(ctx, list); err != nil {
		return models.Goal{}, err
	}
	return g, nil
}

func (r *Repository) load(ctx context.Context) ([]models.Goal, error) {
	var list []models.Goal
	if _, err := store.GetJSON(ctx, r.store, store.KeyGoals, &list); err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}
	return list, nil
}

func (r *Repository) save(ctx context.Context, list []models.Goal) error {
	if list == nil {
		list = []models.Goal{}
	}
	if err := store.SetJSON(ctx, r.store, store.KeyGoals, list); err != nil {
		return fmt.Errorf("save goals: %w", err)
	}
	return nil
}

func indexOf(list []models.Goal, id int) int {
	for i, g := range list {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func nextID(list []models.Goal) int {
	next := 1
	for _, g := range list {
		if g.ID >= next {
			next = g.ID + 1
		}
	}
	return next
}

// renumberSteps assigns ids 1..n when any step id is missing or repeated.
// Completed ids that pointed at a unique step follow it; the rest are dropped.
func renumberSteps(g *models.Goal) {
	count := make(map[int]int, len(g.Steps))
	valid := true
	for _, st := range g.Steps {
		count[st.ID]++
		if st.ID <= 0 || count[st.ID] > 1 {
			valid = false
		}
	}
	if valid {
		return
	}
	moved := make(map[int]int, len(g.Steps))
	for i := range g.Steps {
		old := g.Steps[i].ID
		g.Steps[i].ID = i + 1
		if old > 0 && count[old] == 1 {
			moved[old] = i + 1
		}
	}
	completed := make([]int, 0, len(g.CompletedSteps))
	for _, id := range g.CompletedSteps {
		if to, ok := moved[id]; ok {
			completed = append(completed, to)
		}
	}
	g.CompletedSteps = completed
}

// normalizeCompleted drops unknown and duplicate step ids so that
// CompletedSteps stays a subset of the goal's step ids.
func normalizeCompleted(g models.Goal) []int {
	seen := make(map[int]bool, len(g.CompletedSteps))
	out := make([]int, 0, len(g.CompletedSteps))
	for _, id := range g.CompletedSteps {
		if seen[id] || !g.HasStep(id) {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
