// Package extract turns free-text payment requests into candidate invoices
// using an OpenAI-compatible chat completion service.
package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/paysplit/paysplit"
	"github.com/paysplit/paysplit/internal/logger"
)

const (
	// DefaultBaseURL points at Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	// DefaultModel balances extraction quality against latency.
	DefaultModel = "llama-3.3-70b-versatile"
	// DefaultTemperature keeps extraction deterministic enough for
	// structured output while tolerating phrasing variety.
	DefaultTemperature = 0.3
)

const systemPrompt = `You are an AI that extracts invoice details from natural language.

Rules:
- Extract recipient addresses (or names if addresses not provided)
- Extract amount and currency
- Extract description
- If splits mentioned (e.g., "split 60/40"), calculate percentages
- If no split mentioned, assume 100% to single recipient
- Currency should be USDC unless specified
- For addresses, only include if they look like Ethereum addresses (0x...)
- If only names are provided, leave address field empty

Return JSON in this exact format:
{
  "recipients": [
    { "address": "0x..." (optional), "name": "Alice" (optional), "percentage": 60 },
    { "address": "0x..." (optional), "name": "Bob" (optional), "percentage": 40 }
  ],
  "amount": 1000,
  "currency": "USDC",
  "description": "Website design project"
}

Percentages must add up to 100.
Always return valid JSON without any markdown formatting or code blocks.`

// Config configures the extraction client. APIKey is required; everything
// else has a working default.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

// Client calls the chat completion service and validates its reply against
// the candidate-invoice schema before handing it to the caller.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	log         zerolog.Logger
}

// NewClient creates an extraction client. Defaults are applied for all
// fields except the API key.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL
	return &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		log:         logger.WithComponent("extract"),
	}
}

// Extract sends the free text to the completion service and returns the
// candidate invoice it describes. The reply must be a JSON object matching
// the candidate schema; extraction does not validate business rules, that
// is the validator's job.
func (c *Client) Extract(ctx context.Context, text string) (*paysplit.CandidateInvoice, error) {
	if strings.TrimSpace(text) == "" {
		return nil, paysplit.NewInputError(paysplit.CodeExtractionEmpty, "text", text, "extraction text is required")
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("completion request failed")
		return nil, paysplit.NewUpstreamError(paysplit.CodeExtractionFailed, "extraction service request failed", err)
	}

	if len(resp.Choices) == 0 {
		return nil, paysplit.NewUpstreamError(paysplit.CodeExtractionEmpty, "extraction service returned no choices", nil)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = stripCodeFence(content)
	if content == "" {
		return nil, paysplit.NewUpstreamError(paysplit.CodeExtractionEmpty, "extraction service returned an empty reply", nil)
	}

	if err := validateCandidateJSON(content); err != nil {
		c.log.Warn().Err(err).Str("reply", content).Msg("reply failed schema validation")
		return nil, err
	}

	var candidate paysplit.CandidateInvoice
	if err := json.Unmarshal([]byte(content), &candidate); err != nil {
		return nil, paysplit.NewUpstreamError(paysplit.CodeExtractionMalformed, "extraction reply is not valid JSON", err)
	}
	if len(candidate.Recipients) == 0 {
		return nil, paysplit.NewUpstreamError(paysplit.CodeExtractionEmpty, "no recipients found in the extraction reply", nil)
	}

	c.log.Debug().
		Int("recipients", len(candidate.Recipients)).
		Float64("amount", candidate.Amount).
		Str("currency", candidate.Currency).
		Msg("extracted candidate invoice")
	return &candidate, nil
}

// stripCodeFence removes a surrounding markdown code fence that some models
// emit despite instructions.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Service pairs extraction with validation so callers get either a fully
// validated invoice or a typed failure.
type Service struct {
	extractor paysplit.Extractor
	validator *paysplit.InvoiceValidator
}

// NewService wires an extractor to a validator.
func NewService(extractor paysplit.Extractor, validator *paysplit.InvoiceValidator) *Service {
	return &Service{extractor: extractor, validator: validator}
}

// ExtractInvoice extracts a candidate from free text and validates it.
func (s *Service) ExtractInvoice(ctx context.Context, text string) (*paysplit.Invoice, error) {
	candidate, err := s.extractor.Extract(ctx, text)
	if err != nil {
		return nil, err
	}
	return s.validator.Validate(*candidate)
}
