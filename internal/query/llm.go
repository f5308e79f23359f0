package query

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/codequery-ai/codequery/internal/config"
	"github.com/codequery-ai/codequery/pkg/types"
)

const (
	defaultLLMBaseURL = "https://api.openai.com/v1"
	systemPrompt      = "You are a helpful code assistant."
)

// LLMClient calls an OpenAI-compatible chat completions endpoint.
type LLMClient struct {
	apiKey      string
	model       string
	temperature float32
	baseURL     string
	client      *http.Client
}

// NewLLMClient builds a client from the LLM configuration section.
func NewLLMClient(cfg *config.Config) *LLMClient {
	return &LLMClient{
		apiKey:      cfg.LLM.APIKey,
		model:       cfg.LLM.Model,
		temperature: cfg.LLM.Temperature,
		baseURL:     defaultLLMBaseURL,
		client:      &http.Client{Timeout: 60 * time.Second},
	}
}

// WithBaseURL points the client at a different endpoint. Used by tests and
// OpenAI-compatible gateways.
func (l *LLMClient) WithBaseURL(url string) *LLMClient {
	l.baseURL = url
	return l
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func buildPrompt(question, contextDoc string) string {
	return fmt.Sprintf(
		"You are a helpful code assistant. Based on the following code context, answer the user's question.\n\n"+
			"Context:\n%s\n\n"+
			"Question: %s\n\n"+
			"Please provide a clear and concise answer, referencing specific files and line numbers when relevant.",
		contextDoc, question)
}

// Completion asks for the full answer in one round trip.
func (l *LLMClient) Completion(ctx context.Context, question, contextDoc string) (string, error) {
	resp, err := l.send(ctx, question, contextDoc, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode completion response: %v", types.ErrNetwork, err)
	}
	if len(parsed.Choices) == 0 {
		return "No response", nil
	}
	return parsed.Choices[0].Message.Content, nil
}

// StreamCompletion consumes a server-sent-event stream, invoking onDelta for
// every fragment and returning the concatenated answer.
func (l *LLMClient) StreamCompletion(ctx context.Context, question, contextDoc string, onDelta func(string)) (string, error) {
	resp, err := l.send(ctx, question, contextDoc, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var answer strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			answer.WriteString(content)
			if onDelta != nil {
				onDelta(content)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: read completion stream: %v", types.ErrNetwork, err)
	}

	return answer.String(), nil
}

func (l *LLMClient) send(ctx context.Context, question, contextDoc string, stream bool) (*http.Response, error) {
	body, err := json.Marshal(chatRequest{
		Model: l.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(question, contextDoc)},
		},
		Temperature: l.temperature,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal completion request: %v", types.ErrQuery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build completion request: %v", types.ErrQuery, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: completion request: %v", types.ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: completion API returned %d: %s", types.ErrNetwork, resp.StatusCode, msg)
	}
	return resp, nil
}
