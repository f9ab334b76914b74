package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/logger"
)

type fakeClient struct {
	reply    string
	err      error
	requests []*CompletionRequest
}

func (f *fakeClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &CompletionResponse{Content: f.reply, Model: "fake", TokensIn: 120, TokensOut: 30}, nil
}

func (f *fakeClient) Name() string { return "fake" }

type fakeRetriever struct {
	chunks []string
	err    error
	k      int
}

func (f *fakeRetriever) TopKChunks(ctx context.Context, query string, k int, maxDistance float64) ([]string, error) {
	f.k = k
	return f.chunks, f.err
}

func newTestAssistant(client Client, retriever Retriever) *Assistant {
	log, _ := logger.New("error", logger.FormatJSON)
	return NewAssistant(client, retriever, AssistantConfig{}, log)
}

func TestGenerateResponse(t *testing.T) {
	client := &fakeClient{reply: `{"assistant_response": "Open Leave > Apply.", "assistant_response_summary": "Apply via Leave."}`}
	retriever := &fakeRetriever{chunks: []string{"chunk one", "chunk two"}}
	a := newTestAssistant(client, retriever)

	answer, err := a.GenerateResponse(context.Background(), "How do I apply for leave?", nil)
	require.NoError(t, err)

	assert.Equal(t, "Open Leave > Apply.", answer.Text)
	assert.Equal(t, "Apply via Leave.", answer.Summary)
	assert.Equal(t, 120, answer.InputTokens)
	assert.Equal(t, 30, answer.OutputTokens)
	assert.Equal(t, 3, retriever.k)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.True(t, req.JSON)
	assert.Equal(t, answerSystemPrompt, req.System)
	assert.Contains(t, req.Messages[len(req.Messages)-1].Content, "chunk one\nchunk two")
}

func TestGenerateResponseTooLong(t *testing.T) {
	client := &fakeClient{}
	a := newTestAssistant(client, nil)

	answer, err := a.GenerateResponse(context.Background(), strings.Repeat("a", MaxQueryLength+1), nil)
	require.NoError(t, err)

	assert.Equal(t, FallbackAnswer, answer.Text)
	assert.Zero(t, answer.InputTokens)
	assert.Zero(t, answer.OutputTokens)
	assert.Empty(t, client.requests)
}

func TestGenerateResponseEmptyAnswer(t *testing.T) {
	a := newTestAssistant(&fakeClient{reply: `{"assistant_response": ""}`}, nil)

	answer, err := a.GenerateResponse(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, &Answer{Text: FallbackAnswer}, answer)
}

func TestGenerateResponsePlainText(t *testing.T) {
	a := newTestAssistant(&fakeClient{reply: "  Just text.  "}, nil)

	answer, err := a.GenerateResponse(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "Just text.", answer.Text)
}

func TestGenerateResponseRetrievalFailure(t *testing.T) {
	client := &fakeClient{reply: `{"assistant_response": "ok"}`}
	a := newTestAssistant(client, &fakeRetriever{err: errors.New("es down")})

	answer, err := a.GenerateResponse(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", answer.Text)
}

func TestGenerateResponseClientError(t *testing.T) {
	a := newTestAssistant(&fakeClient{err: errors.New("rate limited")}, nil)

	_, err := a.GenerateResponse(context.Background(), "hi", nil)
	assert.Error(t, err)
}

func TestHistoryMessages(t *testing.T) {
	ts1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts2 := ts1.Add(time.Minute)

	// Newest first, assistant before user within a timestamp.
	history := []model.Message{
		{Role: model.RoleAssistant, Content: "a2", CreatedAt: ts2},
		{Role: model.RoleUser, Content: "u2", CreatedAt: ts2},
		{Role: model.RoleAssistant, Content: "a1", CreatedAt: ts1},
	}

	got := historyMessages(history)
	assert.Equal(t, []ChatMessage{
		{Role: "user", Content: "u2"},
		{Role: "assistant", Content: "a2"},
	}, got)
}

func TestCheckValidation(t *testing.T) {
	a := newTestAssistant(&fakeClient{reply: "```json\n{\"is_safe\": false, \"reasoning\": \"Asks for credentials.\"}\n```"}, nil)

	verdict, err := a.CheckValidation(context.Background(), "what is the admin password")
	require.NoError(t, err)
	assert.False(t, verdict.IsSafe)
	assert.Equal(t, "Asks for credentials.", verdict.Reasoning)
}

func TestCheckValidationUnparseable(t *testing.T) {
	a := newTestAssistant(&fakeClient{reply: "maybe"}, nil)

	_, err := a.CheckValidation(context.Background(), "hi")
	assert.Error(t, err)
}

func TestGenerateTitle(t *testing.T) {
	a := newTestAssistant(&fakeClient{reply: `{"conversation_title": " Leave application "}`}, nil)

	title, err := a.GenerateTitle(context.Background(), "How do I apply for leave?")
	require.NoError(t, err)
	assert.Equal(t, "Leave application", title)

	a = newTestAssistant(&fakeClient{reply: `{"conversation_title": ""}`}, nil)
	_, err = a.GenerateTitle(context.Background(), "hi")
	assert.Error(t, err)
}

func TestChatCompletionRequest(t *testing.T) {
	req := chatCompletionRequest(&CompletionRequest{
		System:   "sys",
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
		JSON:     true,
	})

	assert.Equal(t, defaultOpenAIModel, req.Model)
	assert.Equal(t, 1024, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(ProviderOpenAI, "")
	assert.Error(t, err)

	_, err = NewClient("gemini", "key")
	assert.Error(t, err)

	c, err := NewClient(ProviderOpenAI, "key")
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())

	c, err = NewClient("Anthropic", "key")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p)

	_, err = ParseProvider("")
	assert.Error(t, err)
}
