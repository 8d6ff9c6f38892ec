package llm

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Retrying retries transient provider failures with exponential backoff.
// The caller's context bounds the total time spent.
type Retrying struct {
	next       Provider
	maxRetries uint
	initial    time.Duration
	log        *logrus.Logger
}

func NewRetrying(next Provider, maxRetries uint, log *logrus.Logger) *Retrying {
	if log == nil {
		log = logrus.New()
	}
	return &Retrying{next: next, maxRetries: maxRetries, initial: 500 * time.Millisecond, log: log}
}

func (r *Retrying) Generate(ctx context.Context, req Request) (*Reply, error) {
	attempt := 0
	operation := func() (*Reply, error) {
		attempt++
		reply, err := r.next.Generate(ctx, req)
		if err == nil {
			return reply, nil
		}
		if !Temporary(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.initial
	bo.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(r.maxRetries+1),
		backoff.WithNotify(func(err error, wait time.Duration) {
			r.log.WithError(err).WithFields(logrus.Fields{
				"attempt": attempt,
				"wait_ms": wait.Milliseconds(),
			}).Warn("llm call failed, retrying")
		}),
	)
}

func (r *Retrying) Close() error { return r.next.Close() }

// Temporary reports whether err is worth retrying: rate limits, server
// errors and network failures are, bad credentials and expired contexts are not.
func Temporary(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrNotConfigured) {
		return false
	}

	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Temporary()
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.ResourceExhausted, codes.Internal, codes.Aborted:
			return true
		}
		return false
	}

	var ne net.Error
	return errors.As(err, &ne)
}
