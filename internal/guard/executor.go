package guard

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultTimeout leaves 5 seconds of margin under the host's own 60-second
// hook ceiling for the guard's bookkeeping and response encoding.
const DefaultTimeout = 55 * time.Second

// Unit is one bounded piece of work. Units must honor ctx where they can;
// the guard stops waiting at the deadline either way.
type Unit func(ctx context.Context) (any, error)

// RetryPolicy controls retry of transient failures.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// NoRetry is the single-attempt policy.
var NoRetry = RetryPolicy{MaxAttempts: 1, BaseDelay: time.Second, Multiplier: 1}

// Delay returns the wait before the retry following the given attempt
// (attempt numbering starts at 1).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	return time.Duration(d)
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	return p
}

// Executor runs Units under a deadline with a retry policy.
type Executor struct {
	timeout       time.Duration
	retry         RetryPolicy
	retryTimeouts bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout sets the per-attempt wall-clock budget.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(p RetryPolicy) Option {
	return func(e *Executor) { e.retry = p.normalized() }
}

// WithRetryableTimeouts opts timeouts into retry. Only safe for idempotent
// units; a timed-out commit must not be retried.
func WithRetryableTimeouts() Option {
	return func(e *Executor) { e.retryTimeouts = true }
}

// New builds an Executor with the default 55s budget and no retry.
func New(opts ...Option) *Executor {
	e := &Executor{
		timeout: DefaultTimeout,
		retry:   NoRetry,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Timeout returns the configured per-attempt budget.
func (e *Executor) Timeout() time.Duration { return e.timeout }

type outcome struct {
	out any
	err error
}

// Run executes the unit, retrying transient failures per the policy.
// It always returns within roughly timeout (per attempt) plus retry delays,
// even against a unit that ignores its context: the attempt goroutine is
// abandoned at the deadline and the unit's own cancellation (e.g. a child
// process kill) is best-effort.
func (e *Executor) Run(ctx context.Context, unit Unit) Result {
	start := time.Now()
	var res Result

	for attempt := 1; ; attempt++ {
		res = e.runOnce(ctx, unit)
		res.Attempts = attempt

		if res.Succeeded || attempt >= e.retry.MaxAttempts || !e.retryable(res) {
			break
		}
		if !sleepCtx(ctx, e.retry.Delay(attempt)) {
			break
		}
	}

	res.Duration = time.Since(start)
	return res
}

// runOnce executes a single attempt under the deadline and classifies the
// outcome. Panics inside the unit are recovered into Unexpected.
func (e *Executor) runOnce(ctx context.Context, unit Unit) Result {
	actx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: NewFailure(KindUnexpected, "panic: %v", r)}
			}
		}()
		out, err := unit(actx)
		ch <- outcome{out: out, err: err}
	}()

	select {
	case o := <-ch:
		if o.err == nil {
			return Result{Succeeded: true, Output: o.out}
		}
		return classify(o.err, e.timeout)
	case <-actx.Done():
		if ctx.Err() != nil {
			// Parent cancellation, not our budget.
			return Result{
				ErrorKind:    KindUnexpected,
				ErrorMessage: Truncate(fmt.Sprintf("canceled: %v", ctx.Err())),
			}
		}
		return Result{
			ErrorKind:    KindTimeout,
			ErrorMessage: fmt.Sprintf("exceeded %s budget", e.timeout),
		}
	}
}

// retryable decides whether a failed result may be tried again. NotFound is
// never retried (the binary will not appear between attempts), and only
// caller-marked transient failures or opted-in timeouts qualify.
func (e *Executor) retryable(res Result) bool {
	switch res.ErrorKind {
	case KindTimeout:
		return e.retryTimeouts
	case KindNotFound:
		return false
	default:
		return res.transient
	}
}

// classify maps a unit error to a typed failure result.
func classify(err error, timeout time.Duration) Result {
	var f *Failure
	if errors.As(err, &f) {
		res := Result{ErrorKind: f.Kind, ErrorMessage: Truncate(f.Message), transient: f.Transient}
		if f.Kind == KindTimeout && res.ErrorMessage == "" {
			res.ErrorMessage = fmt.Sprintf("exceeded %s budget", timeout)
		}
		return res
	}
	if errors.Is(err, exec.ErrNotFound) {
		return Result{ErrorKind: KindNotFound, ErrorMessage: Truncate(err.Error())}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{
			ErrorKind:    KindProcessFailure,
			ErrorMessage: Truncate(fmt.Sprintf("exit %d: %s", exitErr.ExitCode(), exitErr.Stderr)),
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Result{ErrorKind: KindTimeout, ErrorMessage: fmt.Sprintf("exceeded %s budget", timeout)}
	}
	return Result{ErrorKind: KindUnexpected, ErrorMessage: Truncate(err.Error())}
}

// sleepCtx waits for d or until ctx is done. Reports false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
