package agents

import "fmt"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the normalized outcome of one agent invocation. Every failure
// mode of a model call (network, malformed output, empty completion,
// escalation) collapses into an error Result so downstream stages handle
// one shape instead of matching error types.
type Result struct {
	Status      string         `json:"status"`
	Explanation string         `json:"explanation,omitempty"`
	Message     string         `json:"message,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
}

func Success(explanation string) Result {
	return Result{Status: StatusSuccess, Explanation: explanation}
}

func SuccessPayload(payload map[string]any) Result {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["status"] = StatusSuccess
	return Result{Status: StatusSuccess, Payload: payload}
}

func Errorf(format string, args ...any) Result {
	return Result{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

func (r Result) OK() bool { return r.Status == StatusSuccess }
