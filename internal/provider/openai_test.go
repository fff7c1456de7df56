package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/router-for-me/AnswerGateway/internal/apierr"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	gen, err := NewOpenAI(OpenAIOptions{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Timeout: 200 * time.Millisecond, MaxTokens: 1500, Temperature: 0.1})
	if err != nil {
		t.Fatalf("new openai: %v", err)
	}
	return gen
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 11, "completion_tokens": 22, "total_tokens": 33},
	})
}

func TestGenerate_Success(t *testing.T) {
	var captured map[string]any
	gen := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		writeCompletion(w, "1. Open the CAM settings")
	})

	completion, err := gen.Generate(context.Background(), Prompt{Question: "calibrate", Platform: "mozaik"}, "gpt-4o-mini")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if completion.Text != "1. Open the CAM settings" || completion.PromptTokens != 11 || completion.CompletionTokens != 22 {
		t.Fatalf("unexpected completion: %+v", completion)
	}
	if captured["model"] != "gpt-4o-mini" {
		t.Fatalf("expected model forwarded, got %v", captured["model"])
	}
	if captured["max_tokens"] != float64(1500) {
		t.Fatalf("expected max_tokens 1500, got %v", captured["max_tokens"])
	}
	messages, _ := captured["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system and user messages, got %v", captured["messages"])
	}
	system, _ := messages[0].(map[string]any)
	if content, _ := system["content"].(string); !strings.Contains(content, "using mozaik.") {
		t.Fatalf("expected platform tailored prompt, got %q", content)
	}
}

func TestGenerate_EmptyAnswer(t *testing.T) {
	gen := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeCompletion(w, "   ")
	})
	_, err := gen.Generate(context.Background(), Prompt{Question: "q"}, "m")
	if !apierr.Is(err, apierr.EmptyResponse) {
		t.Fatalf("expected empty response, got %v", err)
	}
}

func TestGenerate_UpstreamFailure(t *testing.T) {
	gen := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	})
	_, err := gen.Generate(context.Background(), Prompt{Question: "q"}, "m")
	if !apierr.Is(err, apierr.UpstreamUnavailable) {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}
}

func TestGenerate_Timeout(t *testing.T) {
	gen := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		writeCompletion(w, "late")
	})
	_, err := gen.Generate(context.Background(), Prompt{Question: "q"}, "m")
	if !apierr.Is(err, apierr.UpstreamUnavailable) {
		t.Fatalf("expected timeout to map to upstream unavailable, got %v", err)
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	if got := BuildSystemPrompt("", ""); got != basePersona {
		t.Fatalf("expected base persona for unknown platform, got %q", got)
	}
	if got := BuildSystemPrompt("generic", "generic"); got != basePersona {
		t.Fatalf("expected base persona for generic platform, got %q", got)
	}
	got := BuildSystemPrompt("mozaik", "2024")
	if !strings.Contains(got, "using mozaik version 2024.") {
		t.Fatalf("expected platform and version, got %q", got)
	}
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	if _, err := NewOpenAI(OpenAIOptions{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
