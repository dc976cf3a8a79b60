package ai

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
	"github.com/Iron-Ham/crewpm/internal/logging"
)

// WithTimeout bounds every call with its own deadline. A call that runs out
// of time while the caller's context is still live yields a retryable
// TimeoutError. A zero duration disables the middleware.
func WithTimeout(d time.Duration) Middleware {
	return func(next Generator) Generator {
		if d <= 0 {
			return next
		}
		return Func(func(ctx context.Context, prompt string) (string, error) {
			callCtx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			out, err := next.Complete(callCtx, prompt)
			if err != nil && ctx.Err() == nil && callCtx.Err() == context.DeadlineExceeded {
				return "", crewerrors.NewTimeoutError(string(PurposeFrom(ctx))+" completion", d).WithCause(err)
			}
			return out, err
		})
	}
}

// RetryPolicy controls WithRetry.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// OnRetry is called before sleeping between tries. May be nil.
	OnRetry func(ctx context.Context, err error, wait time.Duration)
}

// WithRetry retries calls whose error is classified retryable by
// errors.IsRetryable, using exponential backoff. Non-retryable errors and
// caller cancellation end the loop immediately.
func WithRetry(p RetryPolicy) Middleware {
	return func(next Generator) Generator {
		if p.MaxTries <= 1 {
			return next
		}
		return Func(func(ctx context.Context, prompt string) (string, error) {
			b := backoff.NewExponentialBackOff()
			if p.InitialInterval > 0 {
				b.InitialInterval = p.InitialInterval
			}
			if p.MaxInterval > 0 {
				b.MaxInterval = p.MaxInterval
			}

			op := func() (string, error) {
				out, err := next.Complete(ctx, prompt)
				if err == nil {
					return out, nil
				}
				if ctx.Err() != nil {
					return "", backoff.Permanent(crewerrors.Canceled(ctx.Err()))
				}
				if !crewerrors.IsRetryable(err) {
					return "", backoff.Permanent(err)
				}
				return "", err
			}

			opts := []backoff.RetryOption{
				backoff.WithBackOff(b),
				backoff.WithMaxTries(p.MaxTries),
				backoff.WithMaxElapsedTime(0),
			}
			if p.OnRetry != nil {
				opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
					p.OnRetry(ctx, err, wait)
				}))
			}

			out, err := backoff.Retry(ctx, op, opts...)
			if err != nil && ctx.Err() != nil && !crewerrors.IsCanceled(err) {
				return "", crewerrors.Canceled(ctx.Err())
			}
			return out, err
		})
	}
}

// WithRateLimit makes every call wait for a token from limiter.
// A nil limiter disables the middleware.
func WithRateLimit(limiter *rate.Limiter) Middleware {
	return func(next Generator) Generator {
		if limiter == nil {
			return next
		}
		return Func(func(ctx context.Context, prompt string) (string, error) {
			if err := limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return "", crewerrors.Canceled(ctx.Err())
				}
				return "", crewerrors.Wrap(err, "rate limiter")
			}
			return next.Complete(ctx, prompt)
		})
	}
}

// PerMinuteLimiter returns a limiter allowing rpm calls per minute with no
// burst, or nil when rpm is not positive.
func PerMinuteLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}

// CallObserver receives the outcome of every generator call.
type CallObserver interface {
	ObserveCall(purpose Purpose, d time.Duration, promptChars, replyChars int, err error)
}

// Instrument logs every call with its purpose and latency and forwards the
// outcome to observer, which may be nil.
func Instrument(logger *logging.Logger, observer CallObserver) Middleware {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return func(next Generator) Generator {
		return Func(func(ctx context.Context, prompt string) (string, error) {
			purpose := PurposeFrom(ctx)
			start := time.Now()
			out, err := next.Complete(ctx, prompt)
			elapsed := time.Since(start)

			if observer != nil {
				observer.ObserveCall(purpose, elapsed, len(prompt), len(out), err)
			}

			log := logger.WithPurpose(string(purpose))
			if err != nil {
				log.Warn("generator call failed",
					"latency_ms", elapsed.Milliseconds(),
					"prompt_chars", len(prompt),
					"error", err.Error())
				return "", err
			}
			log.Debug("generator call",
				"latency_ms", elapsed.Milliseconds(),
				"prompt_chars", len(prompt),
				"reply_chars", len(out))
			return out, nil
		})
	}
}
