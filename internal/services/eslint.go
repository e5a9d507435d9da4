package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/learnweave/backend/internal/agents"
	"github.com/learnweave/backend/internal/platform/logger"
)

// ESLintValidator checks generated chapter markup by piping it through the
// eslint binary. Generated content is a JSX arrow component, so a plain
// syntax pass catches most model mistakes before they reach the browser.
type ESLintValidator struct {
	log        *logger.Logger
	binary     string
	configPath string
}

func NewESLintValidator(baseLog *logger.Logger) *ESLintValidator {
	binary := strings.TrimSpace(os.Getenv("ESLINT_PATH"))
	if binary == "" {
		binary = "eslint"
	}
	return &ESLintValidator{
		log:        baseLog.With("service", "ESLintValidator"),
		binary:     binary,
		configPath: strings.TrimSpace(os.Getenv("ESLINT_CONFIG")),
	}
}

type eslintMessage struct {
	RuleID   string `json:"ruleId"`
	Severity int    `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Fatal    bool   `json:"fatal"`
}

type eslintFileResult struct {
	Messages   []eslintMessage `json:"messages"`
	ErrorCount int             `json:"errorCount"`
}

func (v *ESLintValidator) Validate(ctx context.Context, content string) (agents.ValidationOutcome, error) {
	// The model emits a bare arrow component; wrap it into an assignment so
	// eslint parses it as a module.
	source := "const Component = " + strings.TrimSpace(content) + "\n"

	args := []string{"--stdin", "--stdin-filename", "generated.jsx", "--format", "json", "--no-ignore"}
	if v.configPath != "" {
		args = append(args, "--config", v.configPath)
	}

	cmd := exec.CommandContext(ctx, v.binary, args...)
	cmd.Stdin = strings.NewReader(source)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// exit code 1 = lint findings; anything else is the tool failing
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
			return agents.ValidationOutcome{}, fmt.Errorf("eslint run: %w: %s", err, stderr.String())
		}
	}

	var results []eslintFileResult
	if err := json.Unmarshal(stdout.Bytes(), &results); err != nil {
		return agents.ValidationOutcome{}, fmt.Errorf("eslint output decode: %w; raw=%s", err, stdout.String())
	}

	var details []agents.ErrorDetail
	for _, fr := range results {
		for _, m := range fr.Messages {
			if m.Severity < 2 && !m.Fatal {
				continue
			}
			details = append(details, agents.ErrorDetail{
				Line:    m.Line,
				Column:  m.Column,
				Rule:    m.RuleID,
				Message: m.Message,
			})
		}
	}

	return agents.ValidationOutcome{Valid: len(details) == 0, Errors: details}, nil
}
