// Package sdk wraps the OpenAI client so every chat completion is
// recorded in the usage ledger and evaluated against the guardrails,
// without changing the call's behavior.
package sdk

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/upb/llm-cost-guard/models"
	"github.com/upb/llm-cost-guard/services/evaluation"
	"github.com/upb/llm-cost-guard/services/pricing"
	"go.uber.org/zap"
)

// GuardedClient wraps OpenAI chat completions with usage recording.
// Every successful call is appended to the ledger and evaluated; all
// recording failures are loud so the audit trail never silently loses
// data.
type GuardedClient struct {
	client  *openai.Client
	eval    *evaluation.Service
	feature string
	logger  *zap.Logger
}

// NewGuardedClient creates a client recording usage under the given
// feature key.
func NewGuardedClient(client *openai.Client, eval *evaluation.Service, feature string, logger *zap.Logger) (*GuardedClient, error) {
	if client == nil {
		return nil, fmt.Errorf("openai client is required")
	}
	if eval == nil {
		return nil, fmt.Errorf("evaluation service is required")
	}
	if feature == "" {
		return nil, fmt.Errorf("feature is required")
	}

	return &GuardedClient{
		client:  client,
		eval:    eval,
		feature: feature,
		logger:  logger,
	}, nil
}

// ChatCompletion makes the API call, records the observed usage, and
// returns the unchanged response together with the guardrail verdict.
// The caller decides what a warn or fail verdict means for its flow;
// the call itself has already happened and is on the ledger.
func (c *GuardedClient) ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, *models.Verdict, error) {
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return openai.ChatCompletionResponse{}, nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if resp.Usage.TotalTokens == 0 && resp.Usage.PromptTokens == 0 {
		return resp, nil, fmt.Errorf("response missing usage information")
	}

	cost, err := pricing.EstimateCost(req.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	if err != nil {
		return resp, nil, err
	}

	record := &models.UsageRecord{
		Feature:          c.feature,
		Model:            req.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.PromptTokens + resp.Usage.CompletionTokens,
		EstimatedCostUSD: cost,
		Succeeded:        true,
		RequestID:        resp.ID,
	}

	verdict, err := c.eval.EvaluateLive(ctx, record)
	if err != nil {
		return resp, nil, fmt.Errorf("failed to record usage: %w", err)
	}

	c.logger.Debug("chat completion recorded",
		zap.String("feature", c.feature),
		zap.String("model", req.Model),
		zap.Int64("record_id", record.ID),
		zap.String("status", string(verdict.Status)))

	return resp, verdict, nil
}

// Precheck estimates the cost of a request from its messages and runs
// a read-only evaluation before any money is spent. A block-action
// policy match here lets the caller skip the API call entirely.
func (c *GuardedClient) Precheck(ctx context.Context, req openai.ChatCompletionRequest) (*models.Verdict, error) {
	promptTokens, err := EstimateMessageTokens(req.Model, req.Messages)
	if err != nil {
		return nil, err
	}

	completionTokens := req.MaxTokens
	cost, err := pricing.EstimateCost(req.Model, promptTokens, completionTokens)
	if err != nil {
		return nil, err
	}

	record := &models.UsageRecord{
		Feature:          c.feature,
		Model:            req.Model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		EstimatedCostUSD: cost,
		Succeeded:        true,
	}

	return c.eval.EvaluateSimulated(ctx, record)
}
