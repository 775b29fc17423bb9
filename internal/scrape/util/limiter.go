package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out successive requests to the same site. The first Wait
// returns immediately; each following one waits for the next token.
type Pacer struct {
	lim *rate.Limiter
}

// NewPacer allows one request per interval. A zero interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{lim: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *Pacer) Wait(ctx context.Context) error {
	return p.lim.Wait(ctx)
}
