// Package gateway calls the external text-completion provider over its
// OpenAI-compatible chat API. Exactly one attempt per turn: a duplicate
// completion could fire a directive's side effects twice, so the caller
// degrades to a canned apology instead of retrying.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "chatbot-engine/internal/common/errors"
	"chatbot-engine/internal/common/logger"
)

// Turn is one prior exchange sent as conversation history.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// CompletionGateway produces one reply for the conversation so far.
type CompletionGateway interface {
	Complete(ctx context.Context, systemPrompt string, history []Turn) (string, error)
}

// Config holds the provider settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// HTTP is the production CompletionGateway.
type HTTP struct {
	config Config
	client *http.Client
	logger logger.Logger
}

var _ CompletionGateway = (*HTTP)(nil)

func NewHTTP(config Config, log logger.Logger) *HTTP {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &HTTP{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: log,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends the system prompt plus history and returns the raw model
// output, markers included.
func (h *HTTP) Complete(ctx context.Context, systemPrompt string, history []Turn) (string, error) {
	messages := make([]chatMessage, 0, len(history)+1)
	messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	for _, turn := range history {
		messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Content})
	}

	payload, err := json.Marshal(chatRequest{
		Model:       h.config.Model,
		Messages:    messages,
		MaxTokens:   h.config.MaxTokens,
		Temperature: h.config.Temperature,
	})
	if err != nil {
		return "", apperrors.NewCompletionFailedError(fmt.Sprintf("marshal request: %v", err))
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		h.config.BaseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.NewCompletionFailedError(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if h.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.config.APIKey)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			h.logger.Warn("completion call timed out", map[string]interface{}{
				"elapsed_ms": time.Since(start).Milliseconds(),
			})
			return "", apperrors.NewCompletionTimeoutError(err.Error())
		}
		return "", apperrors.NewCompletionFailedError(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", apperrors.NewCompletionFailedError(fmt.Sprintf("read response: %v", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewCompletionFailedError(
			fmt.Sprintf("provider returned %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", apperrors.NewCompletionFailedError(fmt.Sprintf("decode response: %v", err))
	}
	if parsed.Error != nil {
		return "", apperrors.NewCompletionFailedError(parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", apperrors.NewCompletionFailedError("empty completion")
	}

	h.logger.Debug("completion ok", map[string]interface{}{
		"elapsed_ms": time.Since(start).Milliseconds(),
		"turns":      len(history),
	})
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
