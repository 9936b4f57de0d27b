package events

import "time"

const (
	UserCreated      = "user.created"
	UserUpdated      = "user.updated"
	UserDeleted      = "user.deleted"
	UsersCreated     = "user.batch_created"
	UsersDeleted     = "user.batch_deleted"
	UserEventsStream = "user.events"
)

type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actorId,omitempty"`
	Data      any       `json:"data"`
}

type UserCreatedEvent struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// UserUpdatedEvent lists only the fields the update wrote.
type UserUpdatedEvent struct {
	UserID  string   `json:"userId"`
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	Changed []string `json:"changed"`
}

type UserDeletedEvent struct {
	UserID string `json:"userId"`
}

type UsersCreatedEvent struct {
	Count int64 `json:"count"`
}

type UsersDeletedEvent struct {
	UserIDs []string `json:"userIds"`
	Count   int64    `json:"count"`
}
