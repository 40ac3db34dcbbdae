package agent

import "context"

// Repository is the durable collection of agent records.
type Repository interface {
	List(ctx context.Context) ([]*Agent, error)
	Get(ctx context.Context, address string) (*Agent, error)
	Create(ctx context.Context, a *Agent) (*Agent, error)
	Update(ctx context.Context, address string, mutate func(*Agent) error) (*Agent, error)
	Delete(ctx context.Context, address string) error
}

// EventPublisher is notified after a mutation has been durably committed.
type EventPublisher interface {
	AgentChanged(event ChangeEvent)
}

type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

type ChangeEvent struct {
	Kind    ChangeKind `json:"kind"`
	Address string     `json:"address"`
	Agent   *Agent     `json:"agent,omitempty"`
}
