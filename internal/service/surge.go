package service

import "swift/internal/logger"

// Operator-settable surge bounds.
const (
	MinSurge = 0.5
	MaxSurge = 5.0
)

// Surge returns the current multiplier.
func (s *FareService) Surge() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.surge
}

// SetSurge replaces the multiplier. Values outside [MinSurge, MaxSurge] are rejected.
// The new value applies to fares computed afterwards; accepted bookings keep their frozen fare.
func (s *FareService) SetSurge(multiplier float64) error {
	if !(multiplier >= MinSurge && multiplier <= MaxSurge) {
		return ErrInvalidSurge
	}

	s.mu.Lock()
	previous := s.surge
	s.surge = multiplier
	s.mu.Unlock()

	if previous != multiplier {
		s.log.Info(logger.Entry{
			Action:     "surge_updated",
			Message:    "surge multiplier changed",
			Additional: map[string]any{"previous": previous, "surge": multiplier},
		})
	}
	return nil
}
