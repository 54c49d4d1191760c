package llm

import (
	"context"
	"fmt"
	"sync"

	"voxnow-backend/internal/llm/chatapi"
	"voxnow-backend/internal/llm/gemini"

	"go.uber.org/zap"
)

// MultiProviderClient manages multiple LLM providers with fallback. The
// current provider serves every call until it accumulates maxFailures
// consecutive errors (or hits a rate limit), then the next one takes over.
type MultiProviderClient struct {
	providers    []*RateLimitedProvider
	currentIndex int
	mu           sync.RWMutex
	logger       *zap.Logger
	failureCount map[int]int
	maxFailures  int
}

// MultiProviderConfig holds configuration for multiple providers.
type MultiProviderConfig struct {
	Providers   []ProviderConfig
	MaxFailures int // consecutive failures before switching provider
}

// NewMultiProviderClient builds every configured provider. Providers that
// fail to initialize are skipped; at least one must survive.
func NewMultiProviderClient(cfg MultiProviderConfig, logger *zap.Logger) (*MultiProviderClient, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}

	providers := make([]*RateLimitedProvider, 0, len(cfg.Providers))

	for i, providerCfg := range cfg.Providers {
		var provider Provider
		var err error

		switch providerCfg.Type {
		case ProviderOpenAI:
			var client *chatapi.Client
			client, err = chatapi.NewClient(chatapi.Config{
				APIKey:    providerCfg.APIKey,
				BaseURL:   providerCfg.BaseURL,
				Provider:  "openai",
				ModelName: providerCfg.ModelName,
			}, logger)
			if err == nil {
				provider = &chatAPIProvider{client: client}
			}
		case ProviderGroq:
			var client *chatapi.Client
			client, err = chatapi.NewClient(chatapi.Config{
				APIKey:    providerCfg.APIKey,
				BaseURL:   "https://api.groq.com/openai/v1",
				Provider:  "groq",
				ModelName: providerCfg.ModelName,
			}, logger)
			if err == nil {
				provider = &chatAPIProvider{client: client}
			}
		case ProviderGemini:
			var client *gemini.Client
			client, err = gemini.NewClient(gemini.Config{
				APIKey:    providerCfg.APIKey,
				ModelName: providerCfg.ModelName,
			}, logger)
			if err == nil {
				provider = &geminiProvider{client: client}
			}
		default:
			logger.Warn("Unknown provider type, skipping",
				zap.String("type", string(providerCfg.Type)),
				zap.Int("index", i))
			continue
		}

		if err != nil {
			logger.Error("Failed to create provider",
				zap.String("type", string(providerCfg.Type)),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}

		rateLimit := providerCfg.RequestsPerMinute
		if rateLimit == 0 {
			rateLimit = 30
		}

		providers = append(providers, NewRateLimitedProvider(provider, rateLimit))

		logger.Info("Provider initialized",
			zap.String("type", string(providerCfg.Type)),
			zap.String("model", providerCfg.ModelName),
			zap.Int("rate_limit", rateLimit))
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers could be initialized")
	}

	return &MultiProviderClient{
		providers:    providers,
		logger:       logger,
		failureCount: make(map[int]int),
		maxFailures:  cfg.MaxFailures,
	}, nil
}

func (c *MultiProviderClient) getCurrentProvider() (*RateLimitedProvider, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.providers[c.currentIndex], c.currentIndex
}

func (c *MultiProviderClient) switchToNextProvider() {
	c.mu.Lock()
	defer c.mu.Unlock()

	oldIndex := c.currentIndex
	c.currentIndex = (c.currentIndex + 1) % len(c.providers)

	c.logger.Info("Switching provider",
		zap.Int("from_index", oldIndex),
		zap.Int("to_index", c.currentIndex))
}

// recordFailure returns true when the provider reached maxFailures.
func (c *MultiProviderClient) recordFailure(providerIndex int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount[providerIndex]++
	if c.failureCount[providerIndex] >= c.maxFailures {
		c.logger.Warn("Provider reached max failures",
			zap.Int("provider_index", providerIndex),
			zap.Int("failures", c.failureCount[providerIndex]))
		return true
	}
	return false
}

func (c *MultiProviderClient) resetFailureCount(providerIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount[providerIndex] = 0
}

// Complete tries the current provider, falling back to the next on failure.
func (c *MultiProviderClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	var lastErr error
	for attempts := 0; attempts < len(c.providers); attempts++ {
		provider, providerIndex := c.getCurrentProvider()

		result, err := provider.Complete(ctx, req)
		if err == nil {
			c.resetFailureCount(providerIndex)
			return result, nil
		}
		lastErr = err

		c.logger.Error("Provider failed",
			zap.Int("provider_index", providerIndex),
			zap.Error(err))

		if c.recordFailure(providerIndex) || isRateLimitError(err) {
			c.switchToNextProvider()
		}
	}

	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

// Close closes all providers.
func (c *MultiProviderClient) Close() error {
	var lastErr error
	for i, provider := range c.providers {
		if err := provider.Close(); err != nil {
			c.logger.Error("Failed to close provider",
				zap.Int("index", i),
				zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}

// ModelInfo reports the current provider's identity.
func (c *MultiProviderClient) ModelInfo() (string, string) {
	provider, _ := c.getCurrentProvider()
	return provider.ModelInfo()
}
