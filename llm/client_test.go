package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicClient_BuildRequestBody(t *testing.T) {
	c := NewAnthropicClient(
		WithModel("claude-sonnet-4-20250514"),
		WithMaxTokens(1024),
		WithSystemPrompt(func(req StreamRequest) string {
			return "You are " + req.Persona + "."
		}),
		WithTools([]ToolDefinition{
			{Name: "add_workflow_node", Description: "add a node", InputSchema: json.RawMessage(`{"type":"object"}`)},
		}),
	)

	body, err := c.BuildRequestBody(StreamRequest{
		Persona: "oracle",
		Messages: []Message{
			Text(RoleSystem, "Extra context."),
			Text(RoleUser, "I copy data from Salesforce into a spreadsheet"),
			Text(RoleAssistant, "Where does the data come from?"),
		},
	})
	require.NoError(t, err)

	var decoded anthropicRequest
	require.NoError(t, json.Unmarshal(body, &decoded))

	assert.Equal(t, "claude-sonnet-4-20250514", decoded.Model)
	assert.Equal(t, 1024, decoded.MaxTokens)
	assert.True(t, decoded.Stream)

	// System turns fold into the system prompt; only user/assistant travel.
	assert.Equal(t, "You are oracle.\n\nExtra context.", decoded.System)
	require.Len(t, decoded.Messages, 2)
	assert.Equal(t, RoleUser, decoded.Messages[0].Role)
	assert.Equal(t, RoleAssistant, decoded.Messages[1].Role)

	require.Len(t, decoded.Tools, 1)
	require.NotNil(t, decoded.ToolChoice)
	assert.Equal(t, "any", decoded.ToolChoice.Type)
}

func TestAnthropicClient_OpenStreamConvertsSSE(t *testing.T) {
	sse := "event: content_block_start\n" +
		"data: {\"type\":\"content_block_start\",\"content_block\":{\"type\":\"text\"}}\n" +
		"\n" +
		"event: content_block_delta\n" +
		"data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"hi\"}}\n" +
		"\n" +
		": keepalive comment\n" +
		"data: [DONE]\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, sse)
	}))
	defer srv.Close()

	c := NewAnthropicClient(WithBaseURL(srv.URL), WithAPIKey("test-key"))
	body, err := c.OpenStream(context.Background(), StreamRequest{
		Messages: []Message{Text(RoleUser, "hello")},
	})
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"type":"content_block_start","content_block":{"type":"text"}}`, lines[0])
	assert.JSONEq(t, `{"type":"content_block_delta","delta":{"type":"text_delta","text":"hi"}}`, lines[1])
}

func TestAnthropicClient_OpenStreamErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{name: "rate limited is transient", status: http.StatusTooManyRequests, transient: true},
		{name: "server error is transient", status: http.StatusBadGateway, transient: true},
		{name: "auth failure is fatal", status: http.StatusUnauthorized, transient: false},
		{name: "bad request is fatal", status: http.StatusBadRequest, transient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			c := NewAnthropicClient(WithBaseURL(srv.URL))
			_, err := c.OpenStream(context.Background(), StreamRequest{
				Messages: []Message{Text(RoleUser, "hi")},
			})
			require.Error(t, err)
			assert.Equal(t, tt.transient, IsTransient(err))
			assert.Equal(t, !tt.transient, IsFatal(err))
		})
	}
}

func TestUserWithImage(t *testing.T) {
	t.Run("valid data URL splits into image and text parts", func(t *testing.T) {
		msg := UserWithImage("what is on my screen?", "data:image/png;base64,aGVsbG8=")
		require.Len(t, msg.Content, 2)
		assert.Equal(t, "image", msg.Content[0].Type)
		require.NotNil(t, msg.Content[0].Source)
		assert.Equal(t, "image/png", msg.Content[0].Source.MediaType)
		assert.Equal(t, "aGVsbG8=", msg.Content[0].Source.Data)
		assert.Equal(t, "what is on my screen?", msg.Content[1].Text)
	})

	t.Run("malformed data URL falls back to plain text", func(t *testing.T) {
		msg := UserWithImage("hello", "https://example.com/pic.png")
		require.Len(t, msg.Content, 1)
		assert.Equal(t, "text", msg.Content[0].Type)
	})
}

func TestStreamRequest_UserTurns(t *testing.T) {
	req := StreamRequest{Messages: []Message{
		Text(RoleUser, "a"),
		Text(RoleAssistant, "b"),
		Text(RoleUser, "c"),
		Text(RoleSystem, "d"),
	}}
	assert.Equal(t, 2, req.UserTurns())
}

func TestProviderRegistry(t *testing.T) {
	c := NewRelayClient("http://localhost:0/v1/chat/stream")
	RegisterProvider(c)

	got := GetProvider("relay")
	require.NotNil(t, got)
	assert.Equal(t, "relay", got.Name())
	assert.Contains(t, ListProviders(), "relay")
	assert.Nil(t, GetProvider("unregistered"))
}
