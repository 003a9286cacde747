package types

import (
	"time"

	"github.com/google/uuid"
)

// Chat message roles accepted on the wire.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	ID             uuid.UUID   `json:"id"`
	Role           string      `json:"role"`
	Content        string      `json:"content"`
	CityID         *uuid.UUID  `json:"cityId,omitempty"`
	DestinationIDs []uuid.UUID `json:"destinationIds,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

type Chat struct {
	ID        uuid.UUID     `json:"id"`
	UserID    uuid.UUID     `json:"-"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// ChatSummary is the listing shape, messages omitted.
type ChatSummary struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CompletionMessage is one turn sent to the retrieval service.
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the relay's request to the retrieval service.
// CityID narrows retrieval to one city when set.
type CompletionRequest struct {
	Model          string              `json:"model,omitempty"`
	Messages       []CompletionMessage `json:"messages"`
	CityID         *uuid.UUID          `json:"cityId,omitempty"`
	IsUseKnowledge bool                `json:"isUseKnowledge"`
}

// CompletionResult is the answer returned by the retrieval service,
// including any destination ids it grounded the answer on.
type CompletionResult struct {
	Content        string      `json:"content"`
	DestinationIDs []uuid.UUID `json:"destinationIds"`
	Model          string      `json:"model"`
}

// SendMessageParams is the client request for a chat turn. ChatID nil
// means continue-or-create by title. IsUseKnowledge nil means use the
// retrieval index.
type SendMessageParams struct {
	ChatID         *uuid.UUID          `json:"chatId,omitempty"`
	CityID         *uuid.UUID          `json:"cityId,omitempty"`
	Model          string              `json:"model,omitempty"`
	IsUseKnowledge *bool               `json:"isUseKnowledge,omitempty"`
	Messages       []CompletionMessage `json:"messages"`
	UserID         uuid.UUID           `json:"-"`
}

// IngestParams pushes destination content into the retrieval index.
type IngestParams struct {
	DestinationID uuid.UUID `json:"destinationId"`
	Content       string    `json:"content"`
}
