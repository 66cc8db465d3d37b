package ai

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type AnthropicProvider struct {
	Model     string
	MaxTokens int64

	client sdk.Client
}

func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	if model == "" {
		model = "claude-haiku-4-5-20251001"
	}
	return &AnthropicProvider{
		Model:     model,
		MaxTokens: 1024,
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
	}
}

func (p *AnthropicProvider) Chat(ctx context.Context, messages []Message) (*Result, error) {
	var system []sdk.TextBlockParam
	sdkMsgs := make([]sdk.MessageParam, 0, len(messages))
	for _, m := range messages {
		// Anthropic takes system prompts out-of-band.
		if m.Role == "system" {
			system = append(system, sdk.TextBlockParam{Text: m.Content})
			continue
		}
		block := sdk.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			sdkMsgs = append(sdkMsgs, sdk.NewAssistantMessage(block))
		} else {
			sdkMsgs = append(sdkMsgs, sdk.NewUserMessage(block))
		}
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.Model),
		MaxTokens: p.MaxTokens,
		Messages:  sdkMsgs,
	}
	if len(system) > 0 {
		params.System = system
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return nil, errors.New("anthropic: empty response")
	}

	return &Result{
		Content: b.String(),
		Usage: Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}
