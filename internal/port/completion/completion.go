// Package completion defines the hosted language-model completion port.
// The model is an opaque, possibly-unreliable oracle: calls may fail, time
// out, or rate-limit, and the core never retries on its own.
package completion

import "context"

// Request is a single completion call: prompt in, text out.
type Request struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
}

// Result carries the completion text and reported token usage.
type Result struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// TotalTokens returns prompt plus completion tokens.
func (r *Result) TotalTokens() int {
	return r.TokensIn + r.TokensOut
}

// Service is the port interface for the completion provider.
type Service interface {
	Complete(ctx context.Context, req Request) (*Result, error)
}
