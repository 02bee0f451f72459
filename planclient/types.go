package planclient

import (
	"time"

	"github.com/aclio/aclio/models"
)

// Health is the proxy's /api/health answer.
type Health struct {
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	APIKeyConfigured bool      `json:"apiKeyConfigured"`
}

// StepsRequest is the generate-steps body.
type StepsRequest struct {
	Goal              string              `json:"goal"`
	Profile           *models.UserProfile `json:"profile,omitempty"`
	Location          string              `json:"location,omitempty"`
	AdditionalContext string              `json:"additionalContext,omitempty"`
	Categories        []string            `json:"categories,omitempty"`
}

// Plan is a generated category and step list.
type Plan struct {
	Category string        `json:"category"`
	Steps    []models.Step `json:"steps"`
}

// Question is one clarifying question.
type Question struct {
	ID          int    `json:"id"`
	Question    string `json:"question"`
	Placeholder string `json:"placeholder"`
}

// Resource is a learning resource attached to an expanded step.
type Resource struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Cost        string `json:"cost"`
}

// Expansion is the detailed guide for a step.
type Expansion struct {
	DetailedGuide string     `json:"detailedGuide"`
	Resources     []Resource `json:"resources"`
	Tips          []string   `json:"tips"`
	SearchQuery   string     `json:"searchQuery"`
}

// ChatMessage is one turn of a coaching conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the chat body.
type ChatRequest struct {
	Messages []ChatMessage       `json:"messages"`
	GoalName string              `json:"goalName,omitempty"`
	Profile  *models.UserProfile `json:"profile,omitempty"`
	Stream   bool                `json:"stream,omitempty"`
}

type stepRequest struct {
	GoalName string              `json:"goalName"`
	Step     models.Step         `json:"step"`
	Profile  *models.UserProfile `json:"profile,omitempty"`
}

type questionsResponse struct {
	Questions []Question `json:"questions"`
}

type resultResponse struct {
	Result string `json:"result"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
}
