package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGeneratedPost(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    *GeneratedPost
		wantErr bool
	}{
		{
			name:  "bare object",
			reply: `{"title":"T","content":"C","summary":"S"}`,
			want:  &GeneratedPost{Title: "T", Content: "C", Summary: "S"},
		},
		{
			name:  "wrapped in prose and fences",
			reply: "Sure! Here it is:\n```json\n{\"title\":\"Go\",\"content\":\"Body {with braces}\",\"summary\":\"S\"}\n```\nEnjoy.",
			want:  &GeneratedPost{Title: "Go", Content: "Body {with braces}", Summary: "S"},
		},
		{name: "no object", reply: "I cannot help with that", wantErr: true},
		{name: "broken json", reply: `{"title": "T", "content": }`, wantErr: true},
		{name: "empty object", reply: `{}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseGeneratedPost(tt.reply)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// newFakeOpenAI serves canned chat and image responses.
func newFakeOpenAI(t *testing.T, chatReply string, imageB64 string) *OpenAIGenerator {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req openai.ChatCompletionRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "test-model", req.Model)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-1",
			Object: "chat.completion",
			Model:  req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: chatReply},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	})
	mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ImageResponse{
			Data: []openai.ImageResponseDataInner{{B64JSON: imageB64}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return newOpenAIGenerator(cfg, "test-model", "", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestOpenAIGenerator_Summarize(t *testing.T) {
	g := newFakeOpenAI(t, "  A short summary.\n", "")

	got, err := g.Summarize(context.Background(), "<p>long text</p>")
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", got)
}

func TestOpenAIGenerator_GeneratePost(t *testing.T) {
	g := newFakeOpenAI(t, `{"title":"Channels","content":"<p>body</p>","summary":"About channels"}`, "")

	got, err := g.GeneratePost(context.Background(), "go channels")
	require.NoError(t, err)
	assert.Equal(t, &GeneratedPost{Title: "Channels", Content: "<p>body</p>", Summary: "About channels"}, got)
}

func TestOpenAIGenerator_EmptyReply(t *testing.T) {
	g := newFakeOpenAI(t, "   ", "")

	_, err := g.Summarize(context.Background(), "text")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIGenerator_GenerateImage(t *testing.T) {
	png := []byte("\x89PNG fake image")
	g := newFakeOpenAI(t, "", base64.StdEncoding.EncodeToString(png))

	img, err := g.GenerateImage(context.Background(), "a gopher at sunset")
	require.NoError(t, err)
	assert.Equal(t, png, img.Data)
	assert.Equal(t, "image/png", img.ContentType)
}
