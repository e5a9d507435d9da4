package genai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/learnweave/backend/internal/agents"
	"github.com/learnweave/backend/internal/platform/env"
	"github.com/learnweave/backend/internal/platform/httpx"
	"github.com/learnweave/backend/internal/platform/logger"
)

// Client talks to the hosted agent engine over HTTP. It covers
// agents.Runtime (session creation plus a streamed run whose events end at a
// final response) and embeddings for retrieval.
type Client interface {
	agents.Runtime
	Embedder
	GenerateImage(ctx context.Context, prompt string) (ImageGeneration, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	apiKey := strings.TrimSpace(os.Getenv("GENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing GENAI_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("GENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("GENAI_MODEL"))
	if model == "" {
		model = "gemini-2.5-flash"
	}

	timeoutSec := env.GetAsInt("GENAI_TIMEOUT_SECONDS", 180, log)
	if timeoutSec <= 0 {
		timeoutSec = 180
	}

	maxRetries := env.GetAsInt("GENAI_MAX_RETRIES", 4, log)
	if maxRetries < 0 {
		maxRetries = 4
	}

	return &client{
		log:        log.With("service", "GenAIClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type genaiHTTPError struct {
	StatusCode int
	Body       string
}

func (e *genaiHTTPError) Error() string {
	return fmt.Sprintf("genai http %d: %s", e.StatusCode, e.Body)
}

func (e *genaiHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &genaiHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("genai decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("GenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

type createSessionRequest struct {
	AppName string         `json:"app_name"`
	UserID  string         `json:"user_id"`
	State   map[string]any `json:"state,omitempty"`
}

func (c *client) CreateSession(ctx context.Context, appName, userID string, state map[string]any) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	req := createSessionRequest{AppName: appName, UserID: userID, State: state}
	if err := c.do(ctx, "POST", "/v1/sessions", req, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", fmt.Errorf("genai create session: missing id")
	}
	return strings.TrimSpace(out.ID), nil
}

type runRequest struct {
	Model        string `json:"model"`
	Instructions string `json:"instructions,omitempty"`
	Content      string `json:"content"`
	Stream       bool   `json:"stream"`
}

// Run opens an SSE stream of agent events for one turn of the session. The
// returned stream owns the response body and closes it at io.EOF or on the
// first decode failure.
func (c *client) Run(ctx context.Context, sessionID, instructions, content string) (agents.EventStream, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session_id required")
	}

	reqBody := runRequest{
		Model:        c.model,
		Instructions: strings.TrimSpace(instructions),
		Content:      content,
		Stream:       true,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/sessions/"+sessionID+":run", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, &genaiHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return &eventStream{body: resp.Body, br: bufio.NewReader(resp.Body)}, nil
}

// wireEvent is the SSE payload shape of one agent event.
type wireEvent struct {
	Author  string `json:"author"`
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
	TurnComplete bool `json:"turn_complete"`
	Actions      struct {
		Escalate bool `json:"escalate"`
	} `json:"actions"`
	ErrorMessage string `json:"error_message"`
}

type eventStream struct {
	body   io.ReadCloser
	br     *bufio.Reader
	closed bool
}

func (s *eventStream) Next(ctx context.Context) (*agents.Event, error) {
	if s.closed {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		s.close()
		return nil, err
	}

	for {
		data, err := s.nextData()
		if err != nil {
			s.close()
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, err
		}
		if data == "" || data == "[DONE]" {
			if data == "[DONE]" {
				s.close()
				return nil, io.EOF
			}
			continue
		}

		var we wireEvent
		if err := json.Unmarshal([]byte(data), &we); err != nil {
			s.close()
			return nil, fmt.Errorf("genai decode event: %w; raw=%s", err, data)
		}

		var text strings.Builder
		for _, p := range we.Content.Parts {
			text.WriteString(p.Text)
		}
		return &agents.Event{
			Author:       we.Author,
			Text:         text.String(),
			Final:        we.TurnComplete,
			Escalated:    we.Actions.Escalate,
			ErrorMessage: we.ErrorMessage,
		}, nil
	}
}

// nextData reads SSE lines until one event's data payload is complete.
func (s *eventStream) nextData() (string, error) {
	var dataLines []string
	for {
		line, err := s.br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) && len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			return "", err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") || strings.HasPrefix(line, "event:") {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}

func (s *eventStream) close() {
	if s.closed {
		return
	}
	s.closed = true
	_ = s.body.Close()
}
