package swap

import (
	"time"

	"relay-swap/pkg/fee"
	"relay-swap/pkg/safety"
)

const (
	DefaultQuoteTimeout   = 30 * time.Second
	DefaultExecuteTimeout = 2 * time.Minute
)

// Options configures a Service. Start from DefaultOptions: a zero
// MaxSlippageTolerance only admits exact requests.
type Options struct {
	SafetyMargin         float64
	MaxSlippageTolerance float64
	// QuoteTimeout bounds the provider quote call
	QuoteTimeout time.Duration
	// ExecuteTimeout bounds execution. Execution ignores caller cancellation.
	ExecuteTimeout time.Duration
}

// DefaultOptions returns the default orchestration options
func DefaultOptions() Options {
	return Options{
		SafetyMargin:         fee.DefaultSafetyMargin,
		MaxSlippageTolerance: safety.DefaultMaxSlippageTolerance,
		QuoteTimeout:         DefaultQuoteTimeout,
		ExecuteTimeout:       DefaultExecuteTimeout,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.QuoteTimeout <= 0 {
		o.QuoteTimeout = def.QuoteTimeout
	}
	if o.ExecuteTimeout <= 0 {
		o.ExecuteTimeout = def.ExecuteTimeout
	}
	return o
}

func (o Options) checks() safety.Checks {
	return safety.Checks{
		SafetyMargin:         o.SafetyMargin,
		MaxSlippageTolerance: o.MaxSlippageTolerance,
	}
}
