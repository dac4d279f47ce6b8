// Package answerer generates grounded answers from retrieved context via an
// OpenAI-compatible chat completions endpoint.
package answerer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"questionnaire-agent/internal/retrieval"
)

const systemPrompt = `Answer the question using ONLY the provided context. If the context does not contain enough information, set "answerable" to false.
Output a JSON object with keys: "answer" (string), "answerable" (boolean), "confidence" (float 0-1), "citations" (array of {"chunk_id": "...", "snippet": "..."}).`

// Result is the model's structured answer to one question.
type Result struct {
	Answer     string           `json:"answer"`
	Answerable bool             `json:"answerable"`
	Confidence float64          `json:"confidence"`
	Citations  []ResultCitation `json:"citations"`
}

// ResultCitation points back into the retrieved context.
type ResultCitation struct {
	ChunkID string `json:"chunk_id"`
	Snippet string `json:"snippet"`
}

type Answerer interface {
	Answer(ctx context.Context, question string, chunks []retrieval.ScoredChunk) (*Result, error)
}

type chatAnswerer struct {
	baseURL string
	apiKey  string
	model   string
	logger  *zap.Logger
	client  *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewChatAnswerer(baseURL, apiKey, model string, logger *zap.Logger) Answerer {
	return &chatAnswerer{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		logger:  logger,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (a *chatAnswerer) Answer(ctx context.Context, question string, chunks []retrieval.ScoredChunk) (*Result, error) {
	userPrompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n\nOutput JSON only.",
		buildContext(chunks), question)

	jsonData, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		a.logger.Error("chat API error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, fmt.Errorf("chat API returned status %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if cr.Error != nil {
		return nil, fmt.Errorf("chat API error: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return parseResult(cr.Choices[0].Message.Content), nil
}

// buildContext labels each chunk with its id so the model can cite it.
func buildContext(chunks []retrieval.ScoredChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("[%s]\n%s", c.Chunk.ID, c.Chunk.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// parseResult accepts bare JSON, a fenced code block, or JSON buried in
// surrounding prose. Unparseable content degrades to a plain-text answer
// with middling confidence rather than an error.
func parseResult(content string) *Result {
	var result Result
	if err := json.Unmarshal([]byte(extractJSON(content)), &result); err != nil {
		return &Result{Answer: strings.TrimSpace(content), Answerable: true, Confidence: 0.5}
	}
	return &result
}

func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if start := strings.Index(content, "```"); start >= 0 {
		rest := content[start+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			content = strings.TrimSpace(rest[:end])
		}
	}

	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}
