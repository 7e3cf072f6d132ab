package livequote

import (
	"fmt"
	"strings"
	"time"

	"github.com/txn2/trip-planner/pkg/flight"
)

type createRequest struct {
	Query wireQuery `json:"query"`
}

type wireQuery struct {
	Market       string         `json:"market,omitempty"`
	Locale       string         `json:"locale,omitempty"`
	Currency     string         `json:"currency,omitempty"`
	QueryLegs    []wireQueryLeg `json:"queryLegs"`
	CabinClass   string         `json:"cabinClass"`
	Adults       int            `json:"adults"`
	ChildrenAges []int          `json:"childrenAges,omitempty"`
}

type wireQueryLeg struct {
	OriginPlaceID      placeID `json:"originPlaceId"`
	DestinationPlaceID placeID `json:"destinationPlaceId"`
	Date               string  `json:"date"`
}

type placeID struct {
	IATA string `json:"iata"`
}

// searchResponse is the subset of the provider response this adapter reads.
// Itineraries may arrive nested under content.results or at the top level.
type searchResponse struct {
	SessionToken string                   `json:"sessionToken"`
	Status       string                   `json:"status"`
	Progress     *int                     `json:"progress,omitempty"`
	Content      *wireContent             `json:"content,omitempty"`
	Itineraries  map[string]wireItinerary `json:"itineraries,omitempty"`
}

type wireContent struct {
	Results *wireResults `json:"results,omitempty"`
}

type wireResults struct {
	Itineraries map[string]wireItinerary `json:"itineraries"`
}

type wireItinerary struct {
	ID       string    `json:"id,omitempty"`
	Price    wirePrice `json:"price"`
	Legs     []wireLeg `json:"legs"`
	Deeplink string    `json:"deeplink,omitempty"`
	Score    float64   `json:"score,omitempty"`
}

type wirePrice struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type wireLeg struct {
	Origin            string    `json:"origin"`
	Destination       string    `json:"destination"`
	Departure         time.Time `json:"departure"`
	Arrival           time.Time `json:"arrival"`
	DurationInMinutes int       `json:"durationInMinutes"`
	StopCount         int       `json:"stopCount"`
	Carriers          []string  `json:"carriers,omitempty"`
}

func parseStatus(s string) (flight.ResultStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "COMPLETED", "COMPLETE", "RESULT_STATUS_COMPLETE":
		return flight.ResultComplete, nil
	case "INCOMPLETE", "RESULT_STATUS_INCOMPLETE":
		return flight.ResultIncomplete, nil
	case "", "RESULT_STATUS_UNSPECIFIED":
		return flight.ResultUnspecified, nil
	case "FAILED", "RESULT_STATUS_FAILED":
		return "", fmt.Errorf("provider reported search failure (status %q)", s)
	default:
		return "", fmt.Errorf("%w: unknown status %q", errShape, s)
	}
}

// toPayload validates the response and converts it to the domain payload.
func (r *searchResponse) toPayload() (*flight.Payload, error) {
	status, err := parseStatus(r.Status)
	if err != nil {
		return nil, err
	}

	items := r.Itineraries
	if r.Content != nil && r.Content.Results != nil {
		items = r.Content.Results.Itineraries
	}

	payload := &flight.Payload{
		Status:      status,
		Itineraries: make(map[string]flight.Itinerary, len(items)),
	}
	if r.Progress != nil {
		p := min(max(*r.Progress, 0), 100)
		payload.Progress = &p
	}

	for key, wi := range items {
		it, err := wi.toItinerary(key)
		if err != nil {
			return nil, err
		}
		payload.Itineraries[key] = it
	}
	return payload, nil
}

func (wi wireItinerary) toItinerary(key string) (flight.Itinerary, error) {
	if key == "" {
		return flight.Itinerary{}, fmt.Errorf("%w: empty itinerary id", errShape)
	}
	if wi.ID != "" && wi.ID != key {
		return flight.Itinerary{}, fmt.Errorf("%w: itinerary %q carries id %q", errShape, key, wi.ID)
	}
	if wi.Price.Amount < 0 {
		return flight.Itinerary{}, fmt.Errorf("%w: itinerary %q has negative price", errShape, key)
	}

	it := flight.Itinerary{
		ID:       key,
		Price:    flight.Price{Amount: wi.Price.Amount, Currency: wi.Price.Currency},
		Deeplink: wi.Deeplink,
		Score:    wi.Score,
		Legs:     make([]flight.ItineraryLeg, 0, len(wi.Legs)),
	}
	for _, l := range wi.Legs {
		it.Legs = append(it.Legs, flight.ItineraryLeg{
			Origin:          l.Origin,
			Destination:     l.Destination,
			Departure:       l.Departure,
			Arrival:         l.Arrival,
			DurationMinutes: l.DurationInMinutes,
			StopCount:       l.StopCount,
			Carriers:        l.Carriers,
		})
	}
	return it, nil
}
