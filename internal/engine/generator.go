package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Provider names accepted by NewGenerator.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Options configures the text-generation service.
type Options struct {
	Provider          string
	APIKey            string
	Model             string
	BaseURL           string // openai only
	RequestsPerMinute int
	Timeout           time.Duration
}

// NewGenerator builds the configured provider wrapped with rate limiting and
// a per-call timeout. The returned close func releases provider resources.
func NewGenerator(ctx context.Context, opts Options) (Generator, func() error, error) {
	var gen Generator
	closeFn := func() error { return nil }

	switch opts.Provider {
	case ProviderGemini, "":
		g, err := NewGemini(ctx, opts.APIKey, opts.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("create gemini client: %w", err)
		}
		gen, closeFn = g, g.Close
	case ProviderOpenAI:
		gen = NewOpenAI(opts.APIKey, opts.BaseURL, opts.Model)
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", opts.Provider)
	}
	return Limit(gen, opts.RequestsPerMinute, opts.Timeout), closeFn, nil
}

// Limited throttles calls to a Generator and bounds each call's duration.
type Limited struct {
	next    Generator
	limiter *rate.Limiter
	timeout time.Duration
}

// Limit wraps gen. A non-positive perMinute disables throttling and a zero
// timeout disables the deadline.
func Limit(gen Generator, perMinute int, timeout time.Duration) *Limited {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if perMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1)
	}
	return &Limited{next: gen, limiter: limiter, timeout: timeout}
}

func (l *Limited) Generate(ctx context.Context, msgs []ChatMessage) (string, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	return l.next.Generate(ctx, msgs)
}
