package models

import "time"

// IconColor is one of the four accent colours a goal card can use.
type IconColor string

const (
	IconColorBlue   IconColor = "blue"
	IconColorOrange IconColor = "orange"
	IconColorGreen  IconColor = "green"
	IconColorPurple IconColor = "purple"
)

// Valid reports whether c is a known colour.
func (c IconColor) Valid() bool {
	switch c {
	case IconColorBlue, IconColorOrange, IconColorGreen, IconColorPurple:
		return true
	}
	return false
}

// Step is one actionable sub-task of a goal. IDs are unique within the goal only.
type Step struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    string `json:"duration,omitempty"`
	MapSearch   string `json:"mapSearch,omitempty"`
}

// Goal is a user objective with an ordered list of steps.
type Goal struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Category       string     `json:"category,omitempty"`
	IconKey        string     `json:"iconKey"`
	IconColor      IconColor  `json:"iconColor"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	Steps          []Step     `json:"steps"`
	CompletedSteps []int      `json:"completedSteps"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Progress returns the completed share of steps as a percentage in [0, 100].
func (g Goal) Progress() int {
	if len(g.Steps) == 0 {
		return 0
	}
	return len(g.CompletedSteps) * 100 / len(g.Steps)
}

// IsComplete reports whether every step of a non-empty goal is checked off.
func (g Goal) IsComplete() bool {
	return len(g.Steps) > 0 && len(g.CompletedSteps) >= len(g.Steps)
}

// HasStep reports whether the goal owns a step with the given id.
func (g Goal) HasStep(stepID int) bool {
	for _, s := range g.Steps {
		if s.ID == stepID {
			return true
		}
	}
	return false
}

// IsStepCompleted reports whether stepID is in CompletedSteps.
func (g Goal) IsStepCompleted(stepID int) bool {
	for _, id := range g.CompletedSteps {
		if id == stepID {
			return true
		}
	}
	return false
}

// NextStepID returns the id a newly appended step should use.
func (g Goal) NextStepID() int {
	next := 1
	for _, s := range g.Steps {
		if s.ID >= next {
			next = s.ID + 1
		}
	}
	return next
}
