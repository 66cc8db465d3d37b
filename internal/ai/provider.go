package ai

import "context"

type Message struct {
	Role    string
	Content string
}

// Usage reports token consumption for one chat call. Adapters fill in
// what their backend reports; zero values mean "unknown".
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

func (u Usage) Total() int { return u.PromptTokens + u.CompletionTokens }

type Result struct {
	Content string
	Usage   Usage
}

// Provider is a single chat-completion backend.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (*Result, error)
}
