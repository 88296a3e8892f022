package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/config"
)

const (
	systemPromptJSON = "You are an SEO content strategist. Reply with a single JSON object and nothing else."
	systemPromptText = "You are an expert SEO writer. Reply with the requested content only."
)

// ProviderError is returned when the generation provider fails after
// retries or returns output that cannot be used.
type ProviderError struct {
	Stage      string
	Model      string
	Message    string
	RawExcerpt string
	Attempts   int
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Stage, e.Model, e.Message)
	if e.RawExcerpt != "" {
		msg += " (raw excerpt: " + e.RawExcerpt + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Kind names the error category in job error messages.
func (e *ProviderError) Kind() string { return "ProviderError" }

func excerpt(s string) string {
	const max = 300
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// LLMClient talks to any OpenAI-compatible chat completions endpoint
type LLMClient struct {
	client    openai.Client
	model     string
	textModel string
	retry     RetryPolicy
}

// NewLLMClient creates a new LLM client. SDK retries are disabled because
// the client applies its own policy.
func NewLLMClient(cfg *config.LLMConfig) (*LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm api key missing; provide llm.api_key")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.RequestTimeout()))
	}

	textModel := cfg.TextModel
	if textModel == "" {
		textModel = cfg.Model
	}

	return &LLMClient{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		textModel: textModel,
		retry:     DefaultRetryPolicy(cfg.MaxRetries),
	}, nil
}

// GenerateStructured asks for a JSON object and decodes it into out,
// which must be a non-nil pointer to a struct.
func (c *LLMClient) GenerateStructured(ctx context.Context, stage, prompt string, out any) error {
	var raw string
	attempts, err := c.retry.Do(ctx, func(ctx context.Context) error {
		resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(c.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPromptJSON),
				openai.UserMessage(prompt),
			},
			Temperature: openai.Float(0),
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty choices")
		}
		raw = resp.Choices[0].Message.Content
		return DecodeStructured(raw, out)
	})
	if err != nil {
		log.Printf("llm: stage=%s model=%s structured call failed after %d attempt(s): %v", stage, c.model, attempts, err)
		return &ProviderError{
			Stage:      stage,
			Model:      c.model,
			Message:    fmt.Sprintf("structured call failed after %d attempt(s)", attempts),
			RawExcerpt: excerpt(raw),
			Attempts:   attempts,
			Err:        err,
		}
	}
	return nil
}

// GenerateText returns free-form completion text.
func (c *LLMClient) GenerateText(ctx context.Context, stage, prompt string) (string, error) {
	var text string
	attempts, err := c.retry.Do(ctx, func(ctx context.Context) error {
		resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(c.textModel),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPromptText),
				openai.UserMessage(prompt),
			},
			Temperature: openai.Float(0.7),
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty choices")
		}
		text = resp.Choices[0].Message.Content
		if strings.TrimSpace(text) == "" {
			return errors.New("empty text content")
		}
		return nil
	})
	if err != nil {
		log.Printf("llm: stage=%s model=%s text call failed after %d attempt(s): %v", stage, c.textModel, attempts, err)
		return "", &ProviderError{
			Stage:    stage,
			Model:    c.textModel,
			Message:  fmt.Sprintf("text call failed after %d attempt(s)", attempts),
			Attempts: attempts,
			Err:      err,
		}
	}
	return text, nil
}

// Model returns the model used for structured calls.
func (c *LLMClient) Model() string {
	return c.model
}

var structValidator = validator.New()

// validatable is implemented by outputs with cross-field rules.
type validatable interface {
	Validate() error
}

// DecodeStructured parses raw model output into out. Markdown code fences
// are stripped and, when the text carries prose around the object, the
// first balanced {...} block is used. The decoded value is then checked
// against its validate tags and its own Validate method. out is only
// written on success.
func DecodeStructured(raw string, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", out)
	}

	fresh := reflect.New(rv.Elem().Type())
	text := stripFences(raw)

	err := decodeObject(text, fresh.Interface())
	if err != nil {
		block, ok := firstJSONObject(text)
		if !ok {
			return fmt.Errorf("cannot parse JSON object: %w", err)
		}
		fresh = reflect.New(rv.Elem().Type())
		if err2 := decodeObject(block, fresh.Interface()); err2 != nil {
			return fmt.Errorf("cannot parse JSON object: %w", err)
		}
	}

	if fresh.Elem().Kind() == reflect.Struct {
		if err := structValidator.Struct(fresh.Interface()); err != nil {
			return fmt.Errorf("schema validation failed: %w", err)
		}
	}
	if v, ok := fresh.Interface().(validatable); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	rv.Elem().Set(fresh.Elem())
	return nil
}

func decodeObject(text string, target any) error {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return errors.New("expected a JSON object")
	}
	return json.Unmarshal([]byte(trimmed), target)
}

func stripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	} else {
		t = strings.TrimPrefix(t, "```")
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

// firstJSONObject returns the first brace-balanced object in s, skipping
// braces inside string literals.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
