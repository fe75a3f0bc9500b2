package download

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// MaxRetryCooldown caps the wait between two attempts of an item.
const MaxRetryCooldown = 2 * time.Minute

// Options is the execution policy of one batch.
type Options struct {
	// MaxConcurrency is the number of items in flight at once.
	MaxConcurrency int

	// MaxRetries is the number of attempts allowed after the first failure
	// of an item. An item fails the batch after MaxRetries+1 failures.
	MaxRetries int

	// Timeout bounds the whole batch.
	Timeout time.Duration

	// RetryCooldown is the wait before the first retry. Later retries wait
	// RetryCooldown * RetryExponent^(n-1), capped at MaxRetryCooldown.
	RetryCooldown time.Duration
	RetryExponent float64

	// Logger receives per-attempt diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the policy used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MaxConcurrency: 4,
		MaxRetries:     3,
		Timeout:        10 * time.Minute,
		RetryCooldown:  200 * time.Millisecond,
		RetryExponent:  4.0,
	}
}

// Validate reports every invalid field.
func (o Options) Validate() error {
	var errs []error
	if o.MaxConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("max concurrency must be positive, got %d", o.MaxConcurrency))
	}
	if o.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries must not be negative, got %d", o.MaxRetries))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", o.Timeout))
	}
	if o.RetryCooldown < 0 {
		errs = append(errs, fmt.Errorf("retry cooldown must not be negative, got %s", o.RetryCooldown))
	}
	if o.RetryExponent <= 0 {
		errs = append(errs, fmt.Errorf("retry exponent must be positive, got %g", o.RetryExponent))
	}
	return errors.Join(errs...)
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
