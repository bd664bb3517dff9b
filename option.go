package stackpay

import (
	"github.com/stackpay/stackpay/links"
	"github.com/stackpay/stackpay/logger"
	"github.com/stackpay/stackpay/metrics"
)

type Option func(*Service)

func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(s *Service) {
		s.rec = r
	}
}

// WithStore substitutes the link store, bypassing the configured
// database.
func WithStore(store links.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}
