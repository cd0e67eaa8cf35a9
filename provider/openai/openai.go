package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/studyowl/studyowl/config"
	"github.com/studyowl/studyowl/models"
	"github.com/studyowl/studyowl/provider"
)

// Client calls an OpenAI-compatible HTTP API for embeddings and chat
// completions. Every outbound call goes through the shared retry policy.
type Client struct {
	apiKey          string
	baseURL         string
	completionModel string
	embeddingModel  string
	temperature     float64
	maxTokens       int
	httpClient      *http.Client
	logger          *log.Logger

	maxAttempts int
	baseBackoff time.Duration
}

// New constructs a Client from configuration.
func New(cfg config.OpenAIConfig, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.Writer(), "[PROVIDER] ", log.LstdFlags)
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:          cfg.APIKey,
		baseURL:         baseURL,
		completionModel: cfg.CompletionModel,
		embeddingModel:  cfg.EmbeddingModel,
		temperature:     cfg.Temperature,
		maxTokens:       cfg.MaxTokens,
		httpClient:      &http.Client{Timeout: timeout},
		logger:          logger,
		maxAttempts:     defaultMaxAttempts,
		baseBackoff:     defaultBaseBackoff,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed implements provider.Provider. Inputs that are empty or whitespace
// only are dropped before the call; output vectors align 1:1 with what
// remains, in input order. Aggregate token usage is apportioned evenly since
// the API does not report per-item cost.
func (c *Client) Embed(ctx context.Context, texts []string) (*provider.EmbeddingResult, error) {
	filtered := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		return nil, provider.ErrEmptyInput
	}

	resp, err := withRetry(ctx, c, func(ctx context.Context) (*embeddingResponse, error) {
		var out embeddingResponse
		if err := c.postJSON(ctx, "/embeddings", embeddingRequest{Model: c.embeddingModel, Input: filtered}, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(filtered) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d inputs, got %d vectors", len(filtered), len(resp.Data))
	}

	// The API documents data as index-ordered; sort defensively so output
	// stays aligned with input.
	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	result := &provider.EmbeddingResult{
		Vectors:     make([][]float32, len(resp.Data)),
		TotalTokens: resp.Usage.TotalTokens,
		TokensEach:  make([]int, len(resp.Data)),
	}
	perItem := int(math.Round(float64(resp.Usage.TotalTokens) / float64(len(resp.Data))))
	for i, d := range resp.Data {
		result.Vectors[i] = d.Embedding
		result.TokensEach[i] = perItem
	}
	return result, nil
}

// EmbedOne embeds a single text.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	res, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return res.Vectors[0], nil
}

// Complete implements provider.Provider.
func (c *Client) Complete(ctx context.Context, systemPrompt, query, contextText string) (string, error) {
	userContent := query
	if contextText != "" {
		userContent = fmt.Sprintf("Context information:\n%s\n\nQuestion: %s", contextText, query)
	}
	messages := []chatMessage{}
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userContent})
	return c.chat(ctx, messages)
}

func (c *Client) chat(ctx context.Context, messages []chatMessage) (string, error) {
	resp, err := withRetry(ctx, c, func(ctx context.Context) (*chatResponse, error) {
		var out chatResponse
		req := chatRequest{
			Model:       c.completionModel,
			Messages:    messages,
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
		}
		if err := c.postJSON(ctx, "/chat/completions", req, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", provider.ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

const quizSystemPrompt = `You are a quiz generator. Given study material, produce multiple-choice questions that test understanding of the material.

Respond ONLY with a valid JSON array. Each element must be an object with exactly these fields:
  "question": the question text,
  "options": an array of exactly 4 answer options,
  "correctAnswer": the zero-based index of the correct option,
  "explanation": a short explanation of the correct answer.
Do not include any other text, markdown, or code fences.`

// GenerateQuiz asks the model for numQuestions multiple-choice questions
// derived from contextText. The response is treated as untrusted input:
// it must parse as a JSON array and every question must carry exactly four
// options with an in-range correct index. Parse and shape failures surface
// as ErrMalformedQuiz and are not retried; only transport failures go
// through the retry policy.
func (c *Client) GenerateQuiz(ctx context.Context, contextText string, numQuestions int) ([]models.QuizQuestion, error) {
	userContent := fmt.Sprintf("Generate %d questions from the following material:\n\n%s", numQuestions, contextText)
	raw, err := c.chat(ctx, []chatMessage{
		{Role: "system", Content: quizSystemPrompt},
		{Role: "user", Content: userContent},
	})
	if err != nil {
		return nil, err
	}
	questions, err := parseQuizJSON(raw)
	if err != nil {
		return nil, err
	}
	if len(questions) > numQuestions {
		questions = questions[:numQuestions]
	}
	return questions, nil
}

// parseQuizJSON validates model output into quiz questions. Entries failing
// shape validation are dropped; an unparseable body or zero valid questions
// is a malformed-output failure.
func parseQuizJSON(raw string) ([]models.QuizQuestion, error) {
	cleaned := stripCodeFence(raw)
	var parsed []models.QuizQuestion
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrMalformedQuiz, err)
	}
	valid := make([]models.QuizQuestion, 0, len(parsed))
	for _, q := range parsed {
		if strings.TrimSpace(q.Question) == "" {
			continue
		}
		if len(q.Options) != 4 {
			continue
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			continue
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: no valid questions in response", provider.ErrMalformedQuiz)
	}
	return valid, nil
}

// stripCodeFence removes a markdown code fence the model sometimes wraps
// around JSON despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// postJSON sends one request and decodes a success body into out. Non-2xx
// responses become *provider.APIError so the retry policy can classify them.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// apiError builds an APIError from a failure response, pulling the
// machine-readable code out of the standard error envelope when present.
func (c *Client) apiError(resp *http.Response) error {
	apiErr := &provider.APIError{Status: resp.StatusCode}
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil {
			apiErr.RetryAfter = secs
		}
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		apiErr.Code = envelope.Error.Code
		if apiErr.Code == "" {
			apiErr.Code = envelope.Error.Type
		}
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = resp.Status
		}
	}
	return apiErr
}
