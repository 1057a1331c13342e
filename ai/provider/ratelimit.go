package provider

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/kenjpais/diagram-generator/errors"
)

// RateLimited spaces calls to c at most rps per second. rps <= 0 returns c unchanged.
func RateLimited(c Client, rps float64) Client {
	if rps <= 0 {
		return c
	}
	return &rateLimited{next: c, limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

type rateLimited struct {
	next    Client
	limiter *rate.Limiter
}

func (r *rateLimited) Generate(ctx context.Context, msgs []Message) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, "rate limiter")
	}
	return r.next.Generate(ctx, msgs)
}

func (r *rateLimited) GenerateWith(ctx context.Context, msgs []Message, p Params) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, "rate limiter")
	}
	return Call(ctx, r.next, msgs, p)
}
