package server

import (
	"golang.org/x/time/rate"
)

// newConnLimiter builds the token bucket applied to one websocket
// connection's inbound messages.
func (s *Server) newConnLimiter() *rate.Limiter {
	if s.cfg.RateLimitPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := s.cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.cfg.RateLimitPerSecond), burst)
}
