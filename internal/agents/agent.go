package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/learnweave/backend/internal/platform/logger"
)

// errNoFinal marks a response stream that ended without a final event. It is
// an expected failure mode, normalized to an error Result rather than retried.
var errNoFinal = errors.New("agent did not give a final response")

// TextAgent wraps one model call whose final answer is free text. Run never
// returns a Go error: every outcome is normalized to a Result and transient
// runtime failures are absorbed by a small internal retry budget.
type TextAgent struct {
	log          *logger.Logger
	runtime      Runtime
	appName      string
	name         string
	instructions string
	retry        RetryConfig
}

func NewTextAgent(baseLog *logger.Logger, runtime Runtime, appName, name, instructions string) *TextAgent {
	return &TextAgent{
		log:          baseLog.With("agent", name),
		runtime:      runtime,
		appName:      appName,
		name:         name,
		instructions: instructions,
		retry:        DefaultRetryConfig(),
	}
}

func (a *TextAgent) Name() string { return a.name }

func (a *TextAgent) Run(ctx context.Context, userID string, state map[string]any, content string) Result {
	var out Result
	err := Do(ctx, a.retry, a.log, func(ctx context.Context) error {
		text, invErr := a.invoke(ctx, userID, state, content)
		if invErr != nil {
			return invErr
		}
		out = Success(text)
		return nil
	})
	if err != nil {
		if errors.Is(err, errNoFinal) {
			return Errorf("%s: %s", a.name, errNoFinal.Error())
		}
		return Errorf("%s: %s", a.name, err.Error())
	}
	return out
}

// invoke creates a fresh session and consumes the event stream until the
// first final event. Escalations and stream exhaustion surface as errors so
// Run can decide between retry and normalization.
func (a *TextAgent) invoke(ctx context.Context, userID string, state map[string]any, content string) (string, error) {
	sessionID, err := a.runtime.CreateSession(ctx, a.appName, userID, state)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	stream, err := a.runtime.Run(ctx, sessionID, a.instructions, content)
	if err != nil {
		return "", err
	}

	for {
		ev, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", errNoFinal
			}
			return "", err
		}
		if ev == nil {
			continue
		}
		if ev.Escalated {
			msg := ev.ErrorMessage
			if msg == "" {
				msg = "no specific message"
			}
			return "", fmt.Errorf("agent escalated: %s", msg)
		}
		if !ev.Final {
			continue
		}
		if ev.Text == "" {
			return "", errNoFinal
		}
		return ev.Text, nil
	}
}

// StructuredAgent wraps one model call whose final answer must be a JSON
// object. A parse failure is reported distinctly from infrastructure errors
// so callers can tell malformed output from a failed call.
type StructuredAgent struct {
	inner *TextAgent
}

func NewStructuredAgent(baseLog *logger.Logger, runtime Runtime, appName, name, instructions string) *StructuredAgent {
	return &StructuredAgent{inner: NewTextAgent(baseLog, runtime, appName, name, instructions)}
}

func (a *StructuredAgent) Name() string { return a.inner.name }

func (a *StructuredAgent) Run(ctx context.Context, userID string, state map[string]any, content string) Result {
	res := a.inner.Run(ctx, userID, state, content)
	if !res.OK() {
		return res
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(res.Explanation), &payload); err != nil {
		return Errorf("%s: error parsing JSON response: %s", a.inner.name, err.Error())
	}
	return SuccessPayload(payload)
}
