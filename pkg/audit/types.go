package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of audit event.
type EventType string

const (
	EventCredentialsSaved   EventType = "credentials.saved"
	EventCredentialsDeleted EventType = "credentials.deleted"

	EventRepositoryCreated EventType = "repository.created"
	EventRepositoryPushed  EventType = "repository.pushed"
	EventRepositoryDeleted EventType = "repository.deleted"

	EventDeploymentCreated EventType = "deployment.created"
	EventDeploymentFailed  EventType = "deployment.failed"
	EventProjectDeleted    EventType = "project.deleted"
)

// Target kinds.
const (
	KindCredentials = "credentials"
	KindRepository  = "repository"
	KindDeployment  = "deployment"
	KindProject     = "project"
)

// Event is a single audit record.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Actor     string            `json:"actor,omitempty"`
	Source    string            `json:"source,omitempty"`
	Target    Target            `json:"target"`
	Details   map[string]string `json:"details,omitempty"`
}

// Target identifies the resource an event refers to.
type Target struct {
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Provider string `json:"provider,omitempty"`
}

// NewEvent stamps a new event with a random id and the current UTC time.
func NewEvent(eventType EventType, target Target) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Target:    target,
	}
}
