package flight

import (
	"cmp"
	"slices"
	"time"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// ResultStatus is the upstream's own completion flag, normalized.
type ResultStatus string

// Result statuses.
const (
	ResultComplete    ResultStatus = "complete"
	ResultIncomplete  ResultStatus = "incomplete"
	ResultUnspecified ResultStatus = "unspecified"
)

// Price is an amount in minor currency units.
type Price struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// ItineraryLeg is one directional journey inside an itinerary.
type ItineraryLeg struct {
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	Departure       time.Time `json:"departure"`
	Arrival         time.Time `json:"arrival"`
	DurationMinutes int       `json:"durationMinutes"`
	StopCount       int       `json:"stopCount"`
	Carriers        []string  `json:"carriers,omitempty"`
}

// Itinerary is a bookable combination of legs at a price.
type Itinerary struct {
	ID       string         `json:"id"`
	Price    Price          `json:"price"`
	Legs     []ItineraryLeg `json:"legs"`
	Deeplink string         `json:"deeplink,omitempty"`
	Score    float64        `json:"score,omitempty"`
}

// Payload is a full upstream result snapshot.
type Payload struct {
	Status      ResultStatus         `json:"status"`
	Progress    *int                 `json:"progress,omitempty"`
	Itineraries map[string]Itinerary `json:"itineraries"`
}

// IsComplete applies the completeness heuristic: the upstream says it is
// done, or it returned itineraries without flagging itself incomplete.
// A reported progress below 100 counts as such a flag. An upstream may
// legitimately finish with zero itineraries.
func (p *Payload) IsComplete() bool {
	if p == nil {
		return false
	}
	if p.Status == ResultComplete {
		return true
	}
	return len(p.Itineraries) > 0 && !p.flaggedIncomplete()
}

func (p *Payload) flaggedIncomplete() bool {
	if p.Status == ResultIncomplete {
		return true
	}
	return p.Progress != nil && *p.Progress < 100
}

// Equal reports deep value equality. Nil and empty collections compare equal.
func (p *Payload) Equal(other *Payload) bool {
	return gocmp.Equal(p, other, cmpopts.EquateEmpty())
}

// Sorted returns the itineraries ordered by price, then id.
func (p *Payload) Sorted() []Itinerary {
	if p == nil {
		return []Itinerary{}
	}
	out := make([]Itinerary, 0, len(p.Itineraries))
	for _, it := range p.Itineraries {
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b Itinerary) int {
		if c := cmp.Compare(a.Price.Amount, b.Price.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
