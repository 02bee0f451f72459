package gamification

import "github.com/aclio/aclio/models"

// Predicate decides whether an achievement is earned.
type Predicate func(goals []models.Goal, streakCurrent, points int) bool

// AchievementDef couples catalog metadata with its predicate.
type AchievementDef struct {
	models.Achievement
	Check Predicate
}

// Catalog is evaluated in declaration order.
var Catalog = []AchievementDef{
	{models.Achievement{ID: "first_goal", Name: "First Step", Description: "Create your first goal", Icon: "🎯"},
		func(goals []models.Goal, _, _ int) bool { return len(goals) >= 1 }},
	{models.Achievement{ID: "goal_setter", Name: "Goal Setter", Description: "Create 5 goals", Icon: "📋"},
		func(goals []models.Goal, _, _ int) bool { return len(goals) >= 5 }},
	{models.Achievement{ID: "first_step", Name: "Getting Started", Description: "Complete your first step", Icon: "✅"},
		func(goals []models.Goal, _, _ int) bool { return completedStepCount(goals) >= 1 }},
	{models.Achievement{ID: "step_master", Name: "Step Master", Description: "Complete 25 steps", Icon: "🪜"},
		func(goals []models.Goal, _, _ int) bool { return completedStepCount(goals) >= 25 }},
	{models.Achievement{ID: "step_legend", Name: "Step Legend", Description: "Complete 100 steps", Icon: "🏔️"},
		func(goals []models.Goal, _, _ int) bool { return completedStepCount(goals) >= 100 }},
	{models.Achievement{ID: "goal_complete", Name: "Finisher", Description: "Complete a goal", Icon: "🏁"},
		func(goals []models.Goal, _, _ int) bool { return completedGoalCount(goals) >= 1 }},
	{models.Achievement{ID: "overachiever", Name: "Overachiever", Description: "Complete 5 goals", Icon: "🥇"},
		func(goals []models.Goal, _, _ int) bool { return completedGoalCount(goals) >= 5 }},
	{models.Achievement{ID: "streak_3", Name: "On a Roll", Description: "Reach a 3-day streak", Icon: "🔥"},
		func(_ []models.Goal, streak, _ int) bool { return streak >= 3 }},
	{models.Achievement{ID: "streak_7", Name: "Week Warrior", Description: "Reach a 7-day streak", Icon: "📅"},
		func(_ []models.Goal, streak, _ int) bool { return streak >= 7 }},
	{models.Achievement{ID: "streak_30", Name: "Unstoppable", Description: "Reach a 30-day streak", Icon: "⚡"},
		func(_ []models.Goal, streak, _ int) bool { return streak >= 30 }},
	{models.Achievement{ID: "points_500", Name: "Point Collector", Description: "Earn 500 points", Icon: "💰"},
		func(_ []models.Goal, _, points int) bool { return points >= 500 }},
	{models.Achievement{ID: "points_2000", Name: "Point Hoarder", Description: "Earn 2000 points", Icon: "💎"},
		func(_ []models.Goal, _, points int) bool { return points >= 2000 }},
}

// FindAchievement looks up catalog metadata by id.
func FindAchievement(id string) (models.Achievement, bool) {
	for _, def := range Catalog {
		if def.ID == id {
			return def.Achievement, true
		}
	}
	return models.Achievement{}, false
}

func completedStepCount(goals []models.Goal) int {
	n := 0
	for _, g := range goals {
		n += len(g.CompletedSteps)
	}
	return n
}

func completedGoalCount(goals []models.Goal) int {
	n := 0
	for _, g := range goals {
		if g.IsComplete() {
			n++
		}
	}
	return n
}
