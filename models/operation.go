package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OperationType enumerates the mutating intents recorded while offline.
type OperationType string

const (
	OpCreateGoal OperationType = "createGoal"
	OpUpdateGoal OperationType = "updateGoal"
	OpDeleteGoal OperationType = "deleteGoal"
	OpToggleStep OperationType = "toggleStep"
	OpExtendGoal OperationType = "extendGoal"
)

// OfflineOperation is a queued intent awaiting future delivery.
type OfflineOperation struct {
	ID         uuid.UUID       `json:"id"`
	Type       OperationType   `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	RetryCount int             `json:"retryCount"`
}

// NewOfflineOperation builds an operation with a fresh id and a JSON payload.
func NewOfflineOperation(opType OperationType, payload any, now time.Time) (OfflineOperation, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return OfflineOperation{}, err
	}
	return OfflineOperation{
		ID:        uuid.New(),
		Type:      opType,
		Payload:   raw,
		CreatedAt: now,
	}, nil
}
