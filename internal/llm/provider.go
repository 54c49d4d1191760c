package llm

import (
	"context"
	"strings"
	"sync"
	"time"
)

// ProviderType represents the type of LLM provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGroq   ProviderType = "groq"
	ProviderGemini ProviderType = "gemini"
)

// ProviderConfig holds configuration for a single provider instance.
type ProviderConfig struct {
	Type      ProviderType `yaml:"type"`
	APIKey    string       `yaml:"api_key"`
	BaseURL   string       `yaml:"base_url"` // optional override for OpenAI-compatible APIs
	ModelName string       `yaml:"model_name"`
	// Rate limiting per provider
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// CompletionRequest is one chat-style completion call.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// Completion is the raw model output plus audit metadata. Callers own any
// parsing of Text; providers never interpret it.
type Completion struct {
	Text         string
	ModelName    string // provider identifier, e.g. "openai"
	ModelVersion string // concrete model id, e.g. "gpt-4o-mini"
}

// Provider interface for any LLM backend.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	Close() error
	ModelInfo() (name, version string)
}

// RateLimiter implements token bucket rate limiting.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerMinute calls.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		tokens:     requestsPerMinute,
		maxTokens:  requestsPerMinute,
		refillRate: time.Minute / time.Duration(requestsPerMinute),
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)
	if tokensToAdd := int(elapsed / rl.refillRate); tokensToAdd > 0 {
		rl.tokens += tokensToAdd
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = now
	}

	if rl.tokens <= 0 {
		waitTime := rl.refillRate
		rl.mu.Unlock()
		select {
		case <-time.After(waitTime):
			rl.mu.Lock()
			rl.tokens = 1
			rl.lastRefill = time.Now()
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	rl.tokens--
	rl.mu.Unlock()
	return nil
}

// RateLimitedProvider wraps a provider with rate limiting.
type RateLimitedProvider struct {
	provider Provider
	limiter  *RateLimiter
}

// NewRateLimitedProvider wraps provider, allowing requestsPerMinute calls.
func NewRateLimitedProvider(provider Provider, requestsPerMinute int) *RateLimitedProvider {
	return &RateLimitedProvider{
		provider: provider,
		limiter:  NewRateLimiter(requestsPerMinute),
	}
}

func (p *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.provider.Complete(ctx, req)
}

func (p *RateLimitedProvider) Close() error {
	return p.provider.Close()
}

func (p *RateLimitedProvider) ModelInfo() (string, string) {
	return p.provider.ModelInfo()
}

// isRateLimitError checks if err looks like a quota or rate limit rejection.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "429") ||
		strings.Contains(s, "quota") ||
		strings.Contains(s, "rate limit")
}
