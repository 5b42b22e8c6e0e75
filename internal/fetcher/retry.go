package fetcher

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"
)

// retry runs attempt until it succeeds, fails permanently, or maxRetries
// retries are used up. It returns the number of attempts made.
func (f *Fetcher) retry(ctx context.Context, rawURL string, attempt func() error) (int, error) {
	for n := 0; ; n++ {
		err := attempt()
		if err == nil {
			return n + 1, nil
		}

		fe := classify(ctx, rawURL, err)
		fe.Attempts = n + 1
		if fe.Kind != Transient || n >= f.maxRetries {
			return fe.Attempts, fe
		}

		wait := f.backoff(n)
		if fe.retryAfter > wait {
			wait = min(fe.retryAfter, MaxRetryAfter)
		}
		f.logger.Debug("retrying fetch",
			"url", rawURL,
			"attempt", n+1,
			"wait", wait,
			"error", fe.Err,
		)

		if err := sleep(ctx, wait); err != nil {
			fe.Kind = Permanent
			fe.Err = err
			return fe.Attempts, fe
		}
	}
}

// backoff returns the wait before retry number n+1: base, 2*base, 4*base, ...
func (f *Fetcher) backoff(n int) time.Duration {
	return f.backoffBase << n
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// classify wraps err in a FetchError of the right kind.
func classify(ctx context.Context, rawURL string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}

	fe = &FetchError{Kind: Permanent, URL: rawURL, Err: err}
	if ctx.Err() != nil {
		// The caller gave up; retrying would be pointless.
		return fe
	}
	if isTransient(err) {
		fe.Kind = Transient
	}
	return fe
}

// isTransient reports whether a transport-level error is worth retrying.
func isTransient(err error) bool {
	switch {
	case errors.Is(err, ErrTooManyRedirects), errors.Is(err, ErrMalformedResponse):
		return false
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return !dnsErr.IsNotFound
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
