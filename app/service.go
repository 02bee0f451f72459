// Package app wires the client core together and exposes the use cases a
// UI layer drives: planning and creating goals, checking off steps, the
// daily bonus and the AI helpers.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aclio/aclio/gamification"
	"github.com/aclio/aclio/goals"
	"github.com/aclio/aclio/models"
	"github.com/aclio/aclio/offline"
	"github.com/aclio/aclio/planclient"
	"github.com/aclio/aclio/profile"
	"github.com/aclio/aclio/store"
	"github.com/aclio/aclio/usage"
)

// Planner is the subset of planclient.Client the service needs.
type Planner interface {
	GenerateSteps(ctx context.Context, req planclient.StepsRequest) (planclient.Plan, error)
	GenerateQuestions(ctx context.Context, goal string) ([]planclient.Question, error)
	ExpandStep(ctx context.Context, goalName string, step models.Step) (planclient.Expansion, error)
	DoItForMe(ctx context.Context, goalName string, step models.Step, p *models.UserProfile) (string, error)
	Chat(ctx context.Context, req planclient.ChatRequest) (string, error)
	ChatStream(ctx context.Context, req planclient.ChatRequest) (<-chan string, <-chan error)
	Reachable(ctx context.Context) bool
}

// Service is the composed client core.
type Service struct {
	Goals   *goals.Repository
	Profile *profile.Repository
	Engine  *gamification.Engine
	Queue   *offline.Queue
	Usage   *usage.Tracker

	planner Planner
	log     *zap.Logger
	now     func() time.Time
}

type options struct {
	log       *zap.Logger
	now       func() time.Time
	loc       *time.Location
	connected bool
	exec      offline.Executor
	limits    map[usage.Feature]int
}

// Option configures a Service.
type Option func(*options)

// WithLogger sets the logger shared by every component.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithClock sets the clock and calendar location; for tests.
func WithClock(now func() time.Time, loc *time.Location) Option {
	return func(o *options) {
		o.now = now
		o.loc = loc
	}
}

// WithConnected sets the initial connectivity of the offline queue.
func WithConnected(connected bool) Option {
	return func(o *options) { o.connected = connected }
}

// WithExecutor replaces the offline queue executor.
func WithExecutor(exec offline.Executor) Option {
	return func(o *options) { o.exec = exec }
}

// WithLimits overrides the free-tier daily limits.
func WithLimits(limits map[usage.Feature]int) Option {
	return func(o *options) { o.limits = limits }
}

// New builds every component on top of s.
func New(ctx context.Context, s store.Store, planner Planner, opts ...Option) *Service {
	o := options{log: zap.NewNop(), now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		Goals:   goals.NewRepository(s).WithClock(o.now),
		Profile: profile.NewRepository(s),
		Engine: gamification.New(ctx, s,
			gamification.WithClock(o.now),
			gamification.WithLocation(o.loc),
			gamification.WithLogger(o.log.Named("gamification"))),
		Queue: offline.NewQueue(ctx, s, o.exec,
			offline.WithLogger(o.log.Named("offline")),
			offline.WithConnected(o.connected)),
		Usage:   usage.NewTracker(s, o.limits).WithClock(o.now, o.loc),
		planner: planner,
		log:     o.log,
		now:     o.now,
	}
}

// Monitor returns a connectivity monitor that checks the proxy.
func (s *Service) Monitor(interval time.Duration) *offline.Monitor {
	return offline.NewMonitor(s.Queue, s.planner.Reachable, interval, s.log.Named("monitor"))
}

// GoalResult is returned by mutations that can earn points.
type GoalResult struct {
	Goal     models.Goal          `json:"goal"`
	Award    *gamification.Award  `json:"award,omitempty"`
	Unlocked []models.Achievement `json:"unlocked,omitempty"`
}

// ToggleResult adds the new completion state of the toggled step.
type ToggleResult struct {
	GoalResult
	Completed     bool `json:"completed"`
	GoalCompleted bool `json:"goalCompleted"`
}

// NewGoal is the user-customized goal built from a plan.
type NewGoal struct {
	Name      string
	Category  string
	IconKey   string
	IconColor models.IconColor
	DueDate   *time.Time
	Steps     []models.Step
}

// PlanGoal asks the proxy for a plan, counting against the daily limit.
// The saved profile is attached when req carries none.
func (s *Service) PlanGoal(ctx context.Context, req planclient.StepsRequest) (planclient.Plan, error) {
	if err := planclient.ValidateGoal(req.Goal); err != nil {
		return planclient.Plan{}, err
	}
	if err := s.Usage.Check(ctx, usage.FeatureGenerateSteps); err != nil {
		return planclient.Plan{}, err
	}
	if req.Profile == nil {
		req.Profile = s.savedProfile(ctx)
	}
	plan, err := s.planner.GenerateSteps(ctx, req)
	if err != nil {
		return planclient.Plan{}, err
	}
	s.record(ctx, usage.FeatureGenerateSteps)
	return plan, nil
}

// Questions fetches clarifying questions for goal text. They are free.
func (s *Service) Questions(ctx context.Context, goal string) ([]planclient.Question, error) {
	return s.planner.GenerateQuestions(ctx, goal)
}

// CreateGoal saves the goal, awards goal points (with the first-goal bonus)
// and evaluates achievements.
func (s *Service) CreateGoal(ctx context.Context, in NewGoal) (GoalResult, error) {
	count, err := s.Goals.Count(ctx)
	if err != nil {
		return GoalResult{}, err
	}
	g, err := s.Goals.Create(ctx, models.Goal{
		Name:      in.Name,
		Category:  in.Category,
		IconKey:   in.IconKey,
		IconColor: in.IconColor,
		DueDate:   in.DueDate,
		Steps:     in.Steps,
	})
	if err != nil {
		return GoalResult{}, err
	}
	award := s.Engine.AwardGoalPoints(ctx, count == 0)
	s.enqueue(ctx, models.OpCreateGoal, g)
	return GoalResult{Goal: g, Award: &award, Unlocked: s.checkAchievements(ctx)}, nil
}

// UpdateGoal saves edits to a goal's details.
func (s *Service) UpdateGoal(ctx context.Context, g models.Goal) (models.Goal, error) {
	g, err := s.Goals.Update(ctx, g)
	if err != nil {
		return models.Goal{}, err
	}
	s.enqueue(ctx, models.OpUpdateGoal, g)
	return g, nil
}

// DeleteGoal removes a goal. Points and achievements are kept.
func (s *Service) DeleteGoal(ctx context.Context, id int) error {
	if err := s.Goals.Delete(ctx, id); err != nil {
		return err
	}
	s.enqueue(ctx, models.OpDeleteGoal, map[string]int{"goalId": id})
	return nil
}

// ToggleStep flips a step. Completing a step awards step points and
// updates the streak; un-completing never takes points back.
func (s *Service) ToggleStep(ctx context.Context, goalID, stepID int) (ToggleResult, error) {
	g, completed, err := s.Goals.ToggleStep(ctx, goalID, stepID)
	if err != nil {
		return ToggleResult{}, err
	}
	res := ToggleResult{GoalResult: GoalResult{Goal: g}, Completed: completed, GoalCompleted: g.IsComplete()}
	if completed {
		award := s.Engine.AwardStepPoints(ctx)
		res.Award = &award
	}
	s.enqueue(ctx, models.OpToggleStep, map[string]any{"goalId": goalID, "stepId": stepID, "completed": completed})
	res.Unlocked = s.checkAchievements(ctx)
	return res, nil
}

// ExtendGoal asks the proxy for follow-up steps and appends them.
func (s *Service) ExtendGoal(ctx context.Context, goalID int) (models.Goal, error) {
	g, err := s.Goals.Get(ctx, goalID)
	if err != nil {
		return models.Goal{}, err
	}
	if err := s.Usage.Check(ctx, usage.FeatureGenerateSteps); err != nil {
		return models.Goal{}, err
	}

	titles := make([]string, len(g.Steps))
	for i, st := range g.Steps {
		titles[i] = st.Title
	}
	req := planclient.StepsRequest{
		Goal:              g.Name,
		Profile:           s.savedProfile(ctx),
		AdditionalContext: "The user already has these steps: " + strings.Join(titles, "; ") + ". Suggest only new steps that come after them.",
	}
	if g.Category != "" {
		req.Categories = []string{g.Category}
	}
	plan, err := s.planner.GenerateSteps(ctx, req)
	if err != nil {
		return models.Goal{}, err
	}
	s.record(ctx, usage.FeatureGenerateSteps)

	g, err = s.Goals.ExtendGoal(ctx, goalID, plan.Steps)
	if err != nil {
		return models.Goal{}, err
	}
	s.enqueue(ctx, models.OpExtendGoal, map[string]any{"goalId": goalID, "steps": plan.Steps})
	return g, nil
}

// ClaimDailyBonus grants the daily bonus once per calendar day.
func (s *Service) ClaimDailyBonus(ctx context.Context) (gamification.Award, bool) {
	return s.Engine.ClaimDailyBonus(ctx)
}

// ExpandStep fetches a detailed guide for one step of a saved goal.
func (s *Service) ExpandStep(ctx context.Context, goalID, stepID int) (planclient.Expansion, error) {
	g, step, err := s.step(ctx, goalID, stepID)
	if err != nil {
		return planclient.Expansion{}, err
	}
	if err := s.Usage.Check(ctx, usage.FeatureExpandStep); err != nil {
		return planclient.Expansion{}, err
	}
	out, err := s.planner.ExpandStep(ctx, g.Name, step)
	if err != nil {
		return planclient.Expansion{}, err
	}
	s.record(ctx, usage.FeatureExpandStep)
	return out, nil
}

// DoItForMe asks the model to complete a step and returns its result.
func (s *Service) DoItForMe(ctx context.Context, goalID, stepID int) (string, error) {
	g, step, err := s.step(ctx, goalID, stepID)
	if err != nil {
		return "", err
	}
	if err := s.Usage.Check(ctx, usage.FeatureDoItForMe); err != nil {
		return "", err
	}
	out, err := s.planner.DoItForMe(ctx, g.Name, step, s.savedProfile(ctx))
	if err != nil {
		return "", err
	}
	s.record(ctx, usage.FeatureDoItForMe)
	return out, nil
}

// Chat sends the conversation to the coach. goalID 0 means no goal context.
func (s *Service) Chat(ctx context.Context, messages []planclient.ChatMessage, goalID int) (string, error) {
	req, err := s.chatRequest(ctx, messages, goalID)
	if err != nil {
		return "", err
	}
	reply, err := s.planner.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	s.record(ctx, usage.FeatureChat)
	return reply, nil
}

// ChatStream is Chat with incremental delivery. Usage is counted when the
// stream starts.
func (s *Service) ChatStream(ctx context.Context, messages []planclient.ChatMessage, goalID int) (<-chan string, <-chan error, error) {
	req, err := s.chatRequest(ctx, messages, goalID)
	if err != nil {
		return nil, nil, err
	}
	s.record(ctx, usage.FeatureChat)
	deltas, errc := s.planner.ChatStream(ctx, req)
	return deltas, errc, nil
}

// Stats is the dashboard summary.
type Stats struct {
	gamification.Snapshot
	Goals          int  `json:"goals"`
	CompletedGoals int  `json:"completedGoals"`
	CompletedSteps int  `json:"completedSteps"`
	PendingChanges int  `json:"pendingChanges"`
	Premium        bool `json:"premium"`
}

// Stats summarizes goals, gamification state and pending offline changes.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	list, err := s.Goals.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	premium, err := s.Usage.IsPremium(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		Snapshot:       s.Engine.Snapshot(),
		Goals:          len(list),
		PendingChanges: s.Queue.PendingCount(),
		Premium:        premium,
	}
	for _, g := range list {
		st.CompletedSteps += len(g.CompletedSteps)
		if g.IsComplete() {
			st.CompletedGoals++
		}
	}
	return st, nil
}

func (s *Service) chatRequest(ctx context.Context, messages []planclient.ChatMessage, goalID int) (planclient.ChatRequest, error) {
	req := planclient.ChatRequest{Messages: messages, Profile: s.savedProfile(ctx)}
	if goalID != 0 {
		g, err := s.Goals.Get(ctx, goalID)
		if err != nil {
			return planclient.ChatRequest{}, err
		}
		req.GoalName = g.Name
	}
	if err := s.Usage.Check(ctx, usage.FeatureChat); err != nil {
		return planclient.ChatRequest{}, err
	}
	return req, nil
}

func (s *Service) step(ctx context.Context, goalID, stepID int) (models.Goal, models.Step, error) {
	g, err := s.Goals.Get(ctx, goalID)
	if err != nil {
		return models.Goal{}, models.Step{}, err
	}
	for _, st := range g.Steps {
		if st.ID == stepID {
			return g, st, nil
		}
	}
	return models.Goal{}, models.Step{}, fmt.Errorf("%w: goal %d step %d", goals.ErrStepNotFound, goalID, stepID)
}

func (s *Service) savedProfile(ctx context.Context) *models.UserProfile {
	p, err := s.Profile.Load(ctx)
	if err != nil {
		if !errors.Is(err, profile.ErrNoProfile) {
			s.log.Warn("profile load failed", zap.Error(err))
		}
		return nil
	}
	return &p
}

func (s *Service) checkAchievements(ctx context.Context) []models.Achievement {
	list, err := s.Goals.List(ctx)
	if err != nil {
		s.log.Warn("achievement check skipped", zap.Error(err))
		return nil
	}
	return s.Engine.CheckAchievements(ctx, list)
}

func (s *Service) record(ctx context.Context, f usage.Feature) {
	if err := s.Usage.Record(ctx, f); err != nil {
		s.log.Warn("usage record failed", zap.String("feature", string(f)), zap.Error(err))
	}
}

func (s *Service) enqueue(ctx context.Context, typ models.OperationType, payload any) {
	op, err := models.NewOfflineOperation(typ, payload, s.now())
	if err != nil {
		s.log.Warn("offline operation not recorded", zap.String("type", string(typ)), zap.Error(err))
		return
	}
	s.Queue.Enqueue(ctx, op)
}
