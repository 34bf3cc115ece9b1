package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lumenlearn/insight-backend/internal/pkg/httpx"
	"github.com/lumenlearn/insight-backend/internal/platform/envutil"
	"github.com/lumenlearn/insight-backend/internal/platform/logger"
)

// Client generates short qualitative text from an OpenAI-compatible
// chat completions endpoint. It performs exactly one HTTP call per
// invocation: retries and circuit breaking belong to the resilience
// layer wrapping it.
type Client interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient reads TEXTGEN_* env configuration. A missing API key is not
// an error; the caller treats a nil client as "no narrator".
func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(os.Getenv("TEXTGEN_API_KEY"))
	if apiKey == "" {
		log.Warn("TEXTGEN_API_KEY not set, qualitative text disabled")
		return nil, nil
	}

	baseURL := strings.TrimRight(envutil.String("TEXTGEN_BASE_URL", "https://api.openai.com"), "/")
	model := envutil.String("TEXTGEN_MODEL", "gpt-4o-mini")
	timeout := envutil.Duration("TEXTGEN_TIMEOUT", 30*time.Second)

	return &client{
		log:        log.With("service", "TextgenClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *client) GenerateText(ctx context.Context, system, user string) (string, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &httpx.StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			RetryAfter: httpx.RetryAfterDuration(resp, 0, 30*time.Second),
		}
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("textgen decode error: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("textgen returned no choices")
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}
