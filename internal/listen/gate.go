package listen

import (
	"log"

	"golang.org/x/time/rate"
)

// Gate enforces the intake policy at the listener boundary: transcripts are
// rejected, not queued, while a turn is in flight, and bursts beyond the
// configured rate are dropped before they reach the session at all.
type Gate struct {
	submit  func(text string) bool // session submit, false when a turn is in flight
	limiter *rate.Limiter
}

// NewGate wraps a session submit function. ratePerSec is the sustained
// transcript rate and burst the tolerated burst size.
func NewGate(submit func(text string) bool, ratePerSec float64, burst int) *Gate {
	return &Gate{
		submit:  submit,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

// Offer presents one transcript to the session. It reports whether the
// transcript was accepted; rejections are logged and dropped, never queued.
func (g *Gate) Offer(text string) bool {
	if !g.limiter.Allow() {
		log.Printf("listen: transcript dropped, rate limit exceeded: %q", text)
		return false
	}
	if !g.submit(text) {
		log.Printf("listen: transcript rejected, a turn is in flight: %q", text)
		return false
	}
	return true
}
