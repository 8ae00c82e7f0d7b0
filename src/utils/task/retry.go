package task

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Implement operation retrying
type Retry struct {
	ctx            context.Context
	maxElapsedTime time.Duration
	maxInterval    time.Duration
	maxRetries     uint64
	baseDelay      time.Duration
	onError        func(err error, duration time.Duration)
}

func NewRetry() *Retry {
	return new(Retry)
}

func (self *Retry) WithMaxElapsedTime(maxElapsedTime time.Duration) *Retry {
	self.maxElapsedTime = maxElapsedTime
	return self
}

func (self *Retry) WithMaxInterval(maxInterval time.Duration) *Retry {
	self.maxInterval = maxInterval
	return self
}

// Max number of attempts, including the first one. 0 means no limit.
func (self *Retry) WithMaxRetries(maxAttempts int) *Retry {
	if maxAttempts > 0 {
		self.maxRetries = uint64(maxAttempts)
	}
	return self
}

// Delay before the first retry. Doubled after every failed attempt.
func (self *Retry) WithBaseDelay(baseDelay time.Duration) *Retry {
	self.baseDelay = baseDelay
	return self
}

func (self *Retry) WithContext(ctx context.Context) *Retry {
	self.ctx = ctx
	return self
}

func (self *Retry) WithOnError(v func(err error, duration time.Duration)) *Retry {
	self.onError = v
	return self
}

func (self *Retry) onNotify(err error, duration time.Duration) {
	if self.onError != nil {
		self.onError(err, duration)
	}
}

func (self *Retry) Run(f func() error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = self.maxElapsedTime
	if self.baseDelay > 0 {
		// Deterministic base*2^(attempt-1) schedule
		b.InitialInterval = self.baseDelay
		b.Multiplier = 2
		b.RandomizationFactor = 0
	}
	if self.maxInterval > 0 {
		b.MaxInterval = self.maxInterval
	} else if self.baseDelay > 0 {
		// Don't let the default cap truncate the schedule
		b.MaxInterval = time.Hour
	}

	var bo backoff.BackOff = b
	if self.maxRetries > 0 {
		bo = backoff.WithMaxRetries(bo, self.maxRetries-1)
	}
	if self.ctx != nil {
		bo = backoff.WithContext(bo, self.ctx)
	}

	return backoff.RetryNotify(f, bo, self.onNotify)
}
