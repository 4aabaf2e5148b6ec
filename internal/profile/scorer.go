package profile

import "github.com/Iron-Ham/negotiator/internal/wire"

// Scorer values offers with whatever profile is active when Score is
// called, so context switches take effect mid-negotiation.
//
// Score(o, ref) = value(o) - value(ref) + AcceptMargin.
type Scorer struct {
	Manager      *Manager
	AcceptMargin float64
}

// NewScorer returns a Scorer over m.
func NewScorer(m *Manager, acceptMargin float64) *Scorer {
	return &Scorer{Manager: m, AcceptMargin: acceptMargin}
}

// Score implements negotiation.Scorer. Without an active profile every
// offer is worth zero, leaving only the margin.
func (s *Scorer) Score(offer, reference wire.Offer) float64 {
	p, err := s.Manager.Active()
	if err != nil {
		return s.AcceptMargin
	}
	return p.Value(offer) - p.Value(reference) + s.AcceptMargin
}

// Value returns the active profile's value of o, or 0 without one. It
// matches offer.Valuer.
func (s *Scorer) Value(o wire.Offer) float64 {
	p, err := s.Manager.Active()
	if err != nil {
		return 0
	}
	return p.Value(o)
}
