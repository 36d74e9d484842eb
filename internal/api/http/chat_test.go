package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swefoundry/backend/internal/copilot"
	"github.com/swefoundry/backend/internal/store"
)

// fakeResponses serves a canned Responses API reply whose output_text is
// the given envelope.
func fakeResponses(t *testing.T, envelope string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body := map[string]any{
			"output": []any{
				map[string]any{
					"type": "message",
					"role": "assistant",
					"content": []any{
						map[string]any{"type": "output_text", "text": envelope},
					},
				},
			},
		}
		enc, err := sonic.Marshal(body)
		require.NoError(t, err)
		_, _ = w.Write(enc)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatThreadsAndMessages(t *testing.T) {
	env := newTestEnv(t, nil)
	project := env.createProject(t, t.TempDir())

	var thread store.ThreadRecord
	resp := env.do(t, http.MethodPost, "/api/chat/threads",
		gin.H{"project_id": project.ID, "title": "planning"}, &thread)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "planning", thread.Title)

	var threads []store.ThreadRecord
	env.do(t, http.MethodGet, "/api/chat/threads?project_id="+project.ID, nil, &threads)
	require.Len(t, threads, 1)

	var messages []store.MessageRecord
	resp = env.do(t, http.MethodGet, "/api/chat/messages?thread_id="+thread.ID, nil, &messages)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, messages)
}

func TestCopilotQueryWithoutClient(t *testing.T) {
	env := newTestEnv(t, nil)
	project := env.createProject(t, t.TempDir())

	resp := env.do(t, http.MethodPost, "/api/copilot/query",
		gin.H{"project_id": project.ID, "input": "hello"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "OPENAI_API_KEY")
}

func TestCopilotQueryExecutesActions(t *testing.T) {
	upstream := fakeResponses(t, `{
		"reply": "Created the ticket.",
		"actions": [
			{"type": "create_ticket", "payload": {"title": "Add retry logic", "description": "wrap the client"}},
			{"type": "bogus_action", "payload": {}}
		]
	}`)
	client := copilot.New("test-key", "test-model", upstream.URL, zap.NewNop())

	env := newTestEnv(t, client)
	project := env.createProject(t, t.TempDir())

	var out struct {
		ThreadID      string         `json:"thread_id"`
		Reply         string         `json:"reply"`
		ActionResults []actionResult `json:"action_results"`
	}
	resp := env.do(t, http.MethodPost, "/api/copilot/query",
		gin.H{"project_id": project.ID, "input": "make a ticket for retries"}, &out)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	assert.Equal(t, "Created the ticket.", out.Reply)
	assert.NotEmpty(t, out.ThreadID, "a thread is created when none is given")

	require.Len(t, out.ActionResults, 2)
	assert.True(t, out.ActionResults[0].OK)
	assert.NotEmpty(t, out.ActionResults[0].ID)
	assert.False(t, out.ActionResults[1].OK)
	assert.Equal(t, "unsupported action", out.ActionResults[1].Error)

	// The action landed: the ticket exists with slug-derived branch.
	var tickets []store.TicketRecord
	env.do(t, http.MethodGet, "/api/tickets?project_id="+project.ID, nil, &tickets)
	require.Len(t, tickets, 1)
	assert.Equal(t, "Add retry logic", tickets[0].Title)
	assert.Contains(t, tickets[0].BranchName, "add-retry-logic")

	// Both sides of the exchange were persisted.
	var messages []store.MessageRecord
	env.do(t, http.MethodGet, "/api/chat/messages?thread_id="+out.ThreadID, nil, &messages)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "assistant", messages[1].Role)
	assert.Equal(t, "Created the ticket.", messages[1].Content)
}

func TestCopilotQueryPlainTextReply(t *testing.T) {
	upstream := fakeResponses(t, "Sorry, I cannot do that.")
	client := copilot.New("test-key", "test-model", upstream.URL, zap.NewNop())

	env := newTestEnv(t, client)
	project := env.createProject(t, t.TempDir())

	var out struct {
		Reply         string         `json:"reply"`
		ActionResults []actionResult `json:"action_results"`
	}
	resp := env.do(t, http.MethodPost, "/api/copilot/query",
		gin.H{"project_id": project.ID, "input": "do something"}, &out)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Sorry, I cannot do that.", out.Reply)
	assert.Empty(t, out.ActionResults)
}
