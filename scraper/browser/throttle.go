package browser

import (
	"context"

	"golang.org/x/time/rate"
)

type throttled struct {
	Session
	limiter *rate.Limiter
}

// Throttle spaces out the page loads of s according to limiter.
func Throttle(s Session, limiter *rate.Limiter) Session {
	if limiter == nil {
		return s
	}
	return &throttled{Session: s, limiter: limiter}
}

func (t *throttled) Navigate(ctx context.Context, url string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.Session.Navigate(ctx, url)
}

func (t *throttled) Submit(ctx context.Context, inputName, query string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.Session.Submit(ctx, inputName, query)
}
