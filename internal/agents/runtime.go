package agents

import "context"

// Event is one message from the model runtime's response stream.
type Event struct {
	Author       string
	Text         string
	Final        bool
	Escalated    bool
	ErrorMessage string
}

// EventStream yields runtime events until io.EOF.
type EventStream interface {
	Next(ctx context.Context) (*Event, error)
}

// Runtime is the model-invocation collaborator: it turns a prompt plus
// conversation state into a stream of events ending at a final response.
type Runtime interface {
	CreateSession(ctx context.Context, appName, userID string, state map[string]any) (string, error)
	Run(ctx context.Context, sessionID, instructions, content string) (EventStream, error)
}
