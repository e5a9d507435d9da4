package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/learnweave/backend/internal/platform/logger"
)

// ErrorDetail is a single finding from a Validator, positioned when the
// validator knows where the problem is.
type ErrorDetail struct {
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (d ErrorDetail) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d col %d [%s]: %s", d.Line, d.Column, d.Rule, d.Message)
	}
	return d.Message
}

// ValidationOutcome is the verdict on one candidate response.
type ValidationOutcome struct {
	Valid  bool
	Errors []ErrorDetail
}

// Validator checks generated content against an external tool.
type Validator interface {
	Validate(ctx context.Context, content string) (ValidationOutcome, error)
}

const defaultMaxIterations = 5

// fallbackContent is served when every iteration produced invalid output.
// It is known-valid markup so downstream rendering never breaks.
const fallbackContent = "() => {\n  return <div>Content could not be generated for this section.</div>;\n}"

// ValidatedAgent runs a TextAgent and loops its output through a Validator,
// feeding the findings back to the model until the output passes or the
// iteration budget runs out. The quality loop is separate from the transient
// retry inside the agent itself: a flaky call is retried within one
// iteration, a bad answer costs an iteration.
type ValidatedAgent struct {
	log           *logger.Logger
	agent         *TextAgent
	validator     Validator
	maxIterations int
}

func NewValidatedAgent(baseLog *logger.Logger, agent *TextAgent, validator Validator) *ValidatedAgent {
	return &ValidatedAgent{
		log:           baseLog.With("agent", agent.Name()),
		agent:         agent,
		validator:     validator,
		maxIterations: defaultMaxIterations,
	}
}

func (a *ValidatedAgent) Name() string { return a.agent.Name() }

func (a *ValidatedAgent) Run(ctx context.Context, userID string, state map[string]any, content string) Result {
	prompt := content
	var last ValidationOutcome

	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		res := a.agent.Run(ctx, userID, state, prompt)
		if !res.OK() {
			return res
		}

		candidate := cleanResponse(res.Explanation)
		outcome, err := a.validator.Validate(ctx, candidate)
		if err != nil {
			return Errorf("%s: validation failed: %s", a.agent.Name(), err.Error())
		}
		if outcome.Valid {
			if iteration > 1 {
				a.log.Info("response passed validation after feedback", "iteration", iteration)
			}
			return Success(candidate)
		}

		last = outcome
		a.log.Warn("response failed validation",
			"iteration", iteration,
			"errors", len(outcome.Errors),
		)
		prompt = feedbackPrompt(content, candidate, outcome.Errors)
	}

	res := Errorf("%s: output still invalid after %d attempts: %s",
		a.agent.Name(), a.maxIterations, joinErrors(last.Errors))
	res.Explanation = fallbackContent
	return res
}

// feedbackPrompt asks the model to fix its own output, quoting the failing
// candidate and the validator findings verbatim.
func feedbackPrompt(original, candidate string, errs []ErrorDetail) string {
	var b strings.Builder
	b.WriteString(original)
	b.WriteString("\n\nYour previous response failed validation. The response was:\n\n")
	b.WriteString(candidate)
	b.WriteString("\n\nThe validator reported:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.String())
		b.WriteString("\n")
	}
	b.WriteString("\nFix every reported problem and return the corrected response only.")
	return b.String()
}

func joinErrors(errs []ErrorDetail) string {
	if len(errs) == 0 {
		return "no error details"
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}

// cleanResponse strips a markdown code fence the model sometimes wraps its
// answer in, including an optional language tag on the opening fence.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first != "" && !strings.ContainsAny(first, " \t") && len(first) <= 12 {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
