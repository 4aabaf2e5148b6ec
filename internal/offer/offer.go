// Package offer provides the agent's offer supply: a catalog loaded from
// YAML and an ordered queue that hands offers to the negotiation engine.
package offer

import (
	"fmt"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/negotiator/internal/errors"
	"github.com/Iron-Ham/negotiator/internal/wire"
)

// Offer is a proposed task allocation.
type Offer = wire.Offer

// Catalog is the on-disk list of offers an agent may make.
//
//	offers:
//	  - task: deliver
//	    conditions: [escort]
type Catalog struct {
	Offers []Offer `yaml:"offers"`
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse offer catalog: %w", err)
	}
	for i, o := range c.Offers {
		if o.Task == "" {
			return nil, errors.NewValidationError("offer without task").
				WithField(fmt.Sprintf("offers[%d].task", i))
		}
		if o.Conditions == nil {
			c.Offers[i].Conditions = []string{}
		}
	}
	return &c, nil
}

// LoadCatalog reads a YAML catalog from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read offer catalog: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, errors.Wrapf(err, "offer catalog %s", path)
	}
	return c, nil
}

// Valuer rates an offer from this agent's point of view.
type Valuer func(Offer) float64

// Queue yields offers from most to least valued. Offers of equal value keep
// their catalog order. It satisfies negotiation.OfferSupply and Resetter and
// is safe for concurrent use.
type Queue struct {
	mu     sync.Mutex
	offers []Offer
	value  Valuer
	next   int
}

// NewQueue builds a queue over offers. A nil valuer keeps catalog order.
func NewQueue(offers []Offer, value Valuer) *Queue {
	q := &Queue{offers: slices.Clone(offers), value: value}
	q.sort()
	return q
}

func (q *Queue) sort() {
	if q.value == nil {
		return
	}
	slices.SortStableFunc(q.offers, func(a, b Offer) int {
		va, vb := q.value(a), q.value(b)
		switch {
		case va > vb:
			return -1
		case va < vb:
			return 1
		default:
			return 0
		}
	})
}

// HasNext reports whether offers remain.
func (q *Queue) HasNext() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.next < len(q.offers)
}

// Next returns the next offer, or the zero Offer when exhausted.
func (q *Queue) Next() Offer {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.next >= len(q.offers) {
		return Offer{}
	}
	o := q.offers[q.next]
	q.next++
	return o
}

// Max returns the most valued offer regardless of position, or the zero
// Offer for an empty queue.
func (q *Queue) Max() Offer {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.offers) == 0 {
		return Offer{}
	}
	return q.offers[0]
}

// Reset rewinds the queue and re-sorts it, picking up valuer changes such
// as a new active profile.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.next = 0
	q.sort()
}

// Remaining returns how many offers have not been handed out.
func (q *Queue) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.offers) - q.next
}

// Len returns the total number of offers.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.offers)
}
