package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/logger"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/metrics"
)

// MaxQueryLength is the longest question, in characters, sent to the model.
const MaxQueryLength = 1200

// FallbackAnswer is returned when no answer can be produced.
const FallbackAnswer = "Sorry, I could not find an answer to your question."

// Retriever finds knowledge-base passages related to a question.
type Retriever interface {
	TopKChunks(ctx context.Context, query string, k int, maxDistance float64) ([]string, error)
}

// AssistantConfig tunes the assistant.
type AssistantConfig struct {
	Model       string
	MaxTokens   int
	TopK        int
	MaxDistance float64
}

// Answer is a generated reply and the tokens it cost.
type Answer struct {
	Text         string
	Summary      string
	InputTokens  int
	OutputTokens int
}

// Verdict is the guardrail's decision on a question.
type Verdict struct {
	IsSafe    bool   `json:"is_safe"`
	Reasoning string `json:"reasoning"`
}

// Assistant answers PiHR questions on top of a completion client.
type Assistant struct {
	client    Client
	retriever Retriever
	cfg       AssistantConfig
	logger    *logger.Logger
}

// NewAssistant creates an assistant. retriever may be nil, in which case
// questions are answered without background context.
func NewAssistant(client Client, retriever Retriever, cfg AssistantConfig, log *logger.Logger) *Assistant {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &Assistant{
		client:    client,
		retriever: retriever,
		cfg:       cfg,
		logger:    log,
	}
}

// GenerateResponse answers query. history is the recent conversation,
// newest first, as the ledger returns it. Overlong questions and empty
// model replies produce FallbackAnswer at no token cost.
func (a *Assistant) GenerateResponse(ctx context.Context, query string, history []model.Message) (*Answer, error) {
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return &Answer{Text: FallbackAnswer}, nil
	}

	background := ""
	if a.retriever != nil {
		chunks, err := a.retriever.TopKChunks(ctx, query, a.cfg.TopK, a.cfg.MaxDistance)
		if err != nil {
			a.logger.Warn("retrieval failed, answering without context", zap.Error(err))
		}
		background = strings.Join(chunks, "\n")
	}

	messages := historyMessages(history)
	messages = append(messages, ChatMessage{Role: "user", Content: answerUserPrompt(query, background)})

	resp, err := a.complete(ctx, &CompletionRequest{
		System:   answerSystemPrompt,
		Messages: messages,
		JSON:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}

	var parsed struct {
		Response string `json:"assistant_response"`
		Summary  string `json:"assistant_response_summary"`
	}
	if err := decodeJSON(resp.Content, &parsed); err != nil {
		// Some models ignore the format instruction; keep the raw text.
		parsed.Response = strings.TrimSpace(resp.Content)
	}
	if parsed.Response == "" {
		return &Answer{Text: FallbackAnswer}, nil
	}

	return &Answer{
		Text:         parsed.Response,
		Summary:      parsed.Summary,
		InputTokens:  resp.TokensIn,
		OutputTokens: resp.TokensOut,
	}, nil
}

// CheckValidation asks the model whether query is safe and on topic.
func (a *Assistant) CheckValidation(ctx context.Context, query string) (*Verdict, error) {
	resp, err := a.complete(ctx, &CompletionRequest{
		System:   guardrailSystemPrompt,
		Messages: []ChatMessage{{Role: "user", Content: questionPrompt(query)}},
		JSON:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check question: %w", err)
	}

	var verdict Verdict
	if err := decodeJSON(resp.Content, &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse guardrail verdict: %w", err)
	}
	return &verdict, nil
}

// GenerateTitle summarizes query into a conversation title.
func (a *Assistant) GenerateTitle(ctx context.Context, query string) (string, error) {
	resp, err := a.complete(ctx, &CompletionRequest{
		System:   titleSystemPrompt,
		Messages: []ChatMessage{{Role: "user", Content: questionPrompt(query)}},
		JSON:     true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate title: %w", err)
	}

	var parsed struct {
		Title string `json:"conversation_title"`
	}
	if err := decodeJSON(resp.Content, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse title: %w", err)
	}

	title := strings.TrimSpace(parsed.Title)
	if title == "" {
		return "", errors.New("model returned an empty title")
	}
	return title, nil
}

func (a *Assistant) complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	req.Model = a.cfg.Model
	req.MaxTokens = a.cfg.MaxTokens

	start := time.Now()
	resp, err := a.client.Complete(ctx, req)
	if err != nil {
		metrics.RecordLLM(a.modelLabel(), "error", time.Since(start).Seconds(), 0, 0)
		return nil, err
	}

	metrics.RecordLLM(a.modelLabel(), "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)
	if resp.Truncated {
		a.logger.Warn("model reply hit the token limit",
			zap.String("model", resp.Model),
			zap.Int("max_tokens", maxTokens(req.MaxTokens)),
		)
	}
	return resp, nil
}

func (a *Assistant) modelLabel() string {
	if a.cfg.Model != "" {
		return a.cfg.Model
	}
	return a.client.Name()
}

// historyMessages turns newest-first ledger messages into an oldest-first
// transcript that starts with a user turn.
func historyMessages(history []model.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(history)+1)
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if len(out) == 0 && msg.Role != model.RoleUser {
			continue
		}
		out = append(out, ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}

// decodeJSON parses the first JSON object in s, tolerating code fences
// around it.
func decodeJSON(s string, v interface{}) error {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return errors.New("no JSON object in reply")
	}
	return json.Unmarshal([]byte(s[start:end+1]), v)
}
