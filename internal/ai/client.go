// Package ai talks to the OpenAI-compatible transcription and chat completion APIs.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/ace/internal/config"
	"github.com/myrjola/ace/internal/errors"
	"github.com/sashabaranov/go-openai"
)

var (
	// ErrMissingAPIKey is the configuration error returned before any network call when no credential is set.
	ErrMissingAPIKey = errors.NewSentinel("missing OPENAI_KEY environment variable")
	// ErrUpstream matches every [UpstreamError].
	ErrUpstream = errors.NewSentinel("upstream API request failed")
)

// UpstreamError is a failed or non-successful call to the API. Detail carries the upstream error body.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Detail)
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream //nolint:errorlint // sentinel comparison
}

type Client struct {
	client           *openai.Client
	apiKey           string
	transcribeModel  string
	transcribeFormat openai.AudioResponseFormat
	evaluationModel  string
	logger           *slog.Logger
}

func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	clientConfig := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAIBaseURL
	}
	return &Client{
		client:           openai.NewClientWithConfig(clientConfig),
		apiKey:           cfg.OpenAIKey,
		transcribeModel:  cfg.TranscribeModel,
		transcribeFormat: openai.AudioResponseFormat(cfg.TranscribeFormat),
		evaluationModel:  cfg.EvaluationModel,
		logger:           logger.With("source", "ai.Client"),
	}
}

// CheckCredentials returns [ErrMissingAPIKey] when the client has no API key.
func (c *Client) CheckCredentials() error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// TimedText is a span of transcribed text with its offsets relative to the start of the submitted file.
type TimedText struct {
	Start float64
	End   float64
	Text  string
}

// Transcription is the raw transcription of one audio file. Segments is empty when the service only
// returned flat text.
type Transcription struct {
	Text     string
	Segments []TimedText
	Duration float64
}

// TranscribeAudio submits the file at path to the transcription endpoint.
func (c *Client) TranscribeAudio(ctx context.Context, path string) (*Transcription, error) {
	if err := c.CheckCredentials(); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{ //nolint:exhaustruct // optional fields
		Model:    c.transcribeModel,
		FilePath: path,
		Format:   c.transcribeFormat,
	})
	if err != nil {
		return nil, newUpstreamError("Transcription", err)
	}

	transcription := Transcription{
		Text:     resp.Text,
		Segments: make([]TimedText, 0, len(resp.Segments)),
		Duration: resp.Duration,
	}
	for _, segment := range resp.Segments {
		transcription.Segments = append(transcription.Segments, TimedText{
			Start: segment.Start,
			End:   segment.End,
			Text:  segment.Text,
		})
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "transcribed audio",
		slog.String("path", path),
		slog.Int("segments", len(transcription.Segments)),
		slog.Duration("duration", time.Since(start)))
	return &transcription, nil
}

// CompleteJSON sends a system and a user message and returns the text of the first choice. The model is asked
// for a JSON object, so the prompt must mention JSON.
func (c *Client) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	if err := c.CheckCredentials(); err != nil {
		return "", err
	}

	start := time.Now()
	completion, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{ //nolint:exhaustruct // optional fields
		Model: c.evaluationModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{ //nolint:exhaustruct // no schema
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", newUpstreamError("Evaluation", err)
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "chat completion finished",
		slog.String("model", completion.Model),
		slog.Int("total_tokens", completion.Usage.TotalTokens),
		slog.Duration("duration", time.Since(start)))

	if len(completion.Choices) == 0 {
		return "[]", nil
	}
	return completion.Choices[0].Message.Content, nil
}

func newUpstreamError(operation string, err error) *UpstreamError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Operation: operation, StatusCode: apiErr.HTTPStatusCode, Detail: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := strings.TrimSpace(string(reqErr.Body))
		if detail == "" {
			detail = reqErr.Error()
		}
		return &UpstreamError{Operation: operation, StatusCode: reqErr.HTTPStatusCode, Detail: detail}
	}
	return &UpstreamError{Operation: operation, StatusCode: 0, Detail: err.Error()}
}
