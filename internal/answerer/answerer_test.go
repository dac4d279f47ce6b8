package answerer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"questionnaire-agent/internal/models"
	"questionnaire-agent/internal/retrieval"
)

func TestExtractJSON(t *testing.T) {
	want := `{"answer": "yes", "answerable": true}`

	cases := map[string]string{
		"bare":    want,
		"fenced":  "```json\n" + want + "\n```",
		"fence":   "```\n" + want + "\n```",
		"buried":  "Here is the result:\n" + want + "\nHope that helps.",
		"spacing": "   " + want + "   ",
	}
	for name, input := range cases {
		if got := extractJSON(input); got != want {
			t.Errorf("%s: extractJSON = %q, want %q", name, got, want)
		}
	}
}

func TestParseResultFallback(t *testing.T) {
	r := parseResult("The context does not mention this topic at all.")
	if r.Answer != "The context does not mention this topic at all." {
		t.Errorf("unexpected fallback answer: %q", r.Answer)
	}
	if !r.Answerable || r.Confidence != 0.5 {
		t.Errorf("fallback should be answerable with 0.5 confidence: %+v", r)
	}
}

func TestAnswer(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{
					"role":    "assistant",
					"content": `{"answer":"Data is encrypted with AES-256.","answerable":true,"confidence":0.9,"citations":[{"chunk_id":"doc-1_sec_0","snippet":"AES-256 at rest"}]}`,
				}},
			},
		})
	}))
	defer srv.Close()

	a := NewChatAnswerer(srv.URL, "test-key", "test-model", zap.NewNop())
	chunks := []retrieval.ScoredChunk{
		{Chunk: models.Chunk{ID: "doc-1_sec_0", Content: "All data encrypted with AES-256 at rest."}, Score: 0.9},
	}

	result, err := a.Answer(context.Background(), "Do you encrypt data at rest?", chunks)
	if err != nil {
		t.Fatalf("Answer returned error: %v", err)
	}
	if result.Answer != "Data is encrypted with AES-256." || !result.Answerable {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(result.Citations) != 1 || result.Citations[0].ChunkID != "doc-1_sec_0" {
		t.Errorf("unexpected citations: %+v", result.Citations)
	}

	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages: %+v", gotReq.Messages)
	}
	userMsg := gotReq.Messages[1].Content
	if !strings.Contains(userMsg, "[doc-1_sec_0]") {
		t.Errorf("context chunks should be labeled with their ids: %q", userMsg)
	}
}

func TestAnswerAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewChatAnswerer(srv.URL, "test-key", "test-model", zap.NewNop())
	if _, err := a.Answer(context.Background(), "question", nil); err == nil {
		t.Errorf("expected error on non-200 response")
	}
}
