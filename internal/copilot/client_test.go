package copilot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueryExtractsAssistantText(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"output": [
				{"type": "reasoning"},
				{"type": "message", "role": "assistant", "content": [
					{"type": "output_text", "text": "first"},
					{"type": "refusal", "text": "ignored"},
					{"type": "output_text", "text": "second"}
				]}
			]
		}`))
	}))
	defer upstream.Close()

	client := New("test-key", "test-model", upstream.URL, zap.NewNop())
	text, err := client.Query(context.Background(), []Message{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: "hello"},
	})
	require.NoError(t, err)

	assert.Equal(t, "first\nsecond", text)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-model", gotBody["model"])
	assert.Len(t, gotBody["input"], 2)
}

func TestQueryUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "bad request"}`, http.StatusBadRequest)
	}))
	defer upstream.Close()

	client := New("test-key", "test-model", upstream.URL, zap.NewNop())
	_, err := client.Query(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestParseReply(t *testing.T) {
	parsed := ParseReply(`{"reply": "done", "actions": [{"type": "create_ticket", "payload": {"title": "x"}}]}`)
	assert.Equal(t, "done", parsed.Reply)
	require.Len(t, parsed.Actions, 1)
	assert.Equal(t, "create_ticket", parsed.Actions[0].Type)
	assert.Equal(t, "x", parsed.Actions[0].Payload["title"])

	plain := ParseReply("I could not find that ticket.")
	assert.Equal(t, "I could not find that ticket.", plain.Reply)
	assert.Empty(t, plain.Actions)

	otherJSON := ParseReply(`{"unexpected": true}`)
	assert.Equal(t, `{"unexpected": true}`, otherJSON.Reply)
	assert.Empty(t, otherJSON.Actions)
}
