package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/vc-scout/backend/internal/metrics"
	"github.com/vc-scout/backend/pkg/circuitbreaker"
	"github.com/vc-scout/backend/pkg/logger"
)

var ErrEmptyCompletion = errors.New("llm returned no choices")

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
}

type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
	// JSON asks the model for a single JSON object.
	JSON bool
}

type CompletionResponse struct {
	Content string
	Usage   Usage
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

func NewClient(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 40 * time.Second
	}

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      2,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	logger.Info("LLM client initialized",
		zap.String("model", cfg.Model),
		zap.Bool("custom_base_url", cfg.BaseURL != ""),
	)

	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
		cb:          cb,
	}
}

// Complete runs one chat completion. Failures are returned to the caller
// unretried; the breaker stops calls while the provider keeps failing.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var result *CompletionResponse
	err := c.cb.Execute(ctx, func(ctx context.Context) error {
		resp, err := c.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return fmt.Errorf("failed to create completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return ErrEmptyCompletion
		}

		metrics.LLMTokensUsed.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

		logger.Debug("LLM completion generated",
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		)

		result = &CompletionResponse{
			Content: resp.Choices[0].Message.Content,
			Usage: Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// AnalysisRequest carries everything the analyst prompt needs. PageText may
// be empty when the website could not be fetched.
type AnalysisRequest struct {
	CompanyName string
	Website     string
	PageText    string
	Thesis      string
}

type Analysis struct {
	Summary          string
	WhatTheyDo       []string
	Keywords         []string
	Signals          []string
	MatchScore       int
	MatchExplanation string
}

const analystSystemPrompt = `You are a professional VC analyst. Provide objective, high-signal data about early-stage companies.`

// AnalyzeCompany asks the model for a structured company report scored against
// the investor's thesis.
func (c *Client) AnalyzeCompany(ctx context.Context, req AnalysisRequest) (*Analysis, error) {
	content := req.PageText
	if strings.TrimSpace(content) == "" {
		content = "No content could be scraped. Use your internal knowledge if the company is well-known, otherwise infer from the URL and company name."
	}

	name := req.CompanyName
	if name == "" {
		name = req.Website
	}

	userPrompt := fmt.Sprintf(`Analyze the company %s (%s).

WEBSITE CONTENT:
%s

INVESTMENT THESIS:
%s

Return a JSON object with exactly these fields:
- "summary": 1-2 sentences
- "what_they_do": 3-6 short bullets
- "keywords": 5-10 single words or short phrases
- "signals": 2-4 inferred momentum signals, e.g. "Hiring for AI roles", "New product launch"
- "match_score": integer 0-100, fit against the investment thesis
- "match_explanation": 1-2 sentences justifying the score

Respond only with valid JSON.`, name, req.Website, content, req.Thesis)

	resp, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: analystSystemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.2,
		JSON:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to analyze company: %w", err)
	}

	analysis, err := parseAnalysis(resp.Content)
	if err != nil {
		return nil, err
	}

	logger.Info("Company analyzed",
		zap.String("website", req.Website),
		zap.Int("match_score", analysis.MatchScore),
		zap.Int("keywords", len(analysis.Keywords)),
	)
	return analysis, nil
}
