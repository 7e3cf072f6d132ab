// Package flight defines the flight-search query and the subset of upstream
// result data the search service consumes.
package flight

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for leg dates.
const DateLayout = "2006-01-02"

const (
	maxAdults   = 9
	maxChildAge = 17
	iataCodeLen = 3
)

// ErrInvalidQuery is wrapped by every query validation failure.
var ErrInvalidQuery = errors.New("invalid flight query")

// Cabin is the requested cabin class.
type Cabin string

// Cabin classes.
const (
	CabinEconomy        Cabin = "economy"
	CabinPremiumEconomy Cabin = "premium_economy"
	CabinBusiness       Cabin = "business"
	CabinFirst          Cabin = "first"
)

// Valid reports whether c is a known cabin class.
func (c Cabin) Valid() bool {
	switch c {
	case CabinEconomy, CabinPremiumEconomy, CabinBusiness, CabinFirst:
		return true
	default:
		return false
	}
}

// Leg is one origin/destination/date segment of a query.
type Leg struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
}

// Query is a structured flight search request.
type Query struct {
	Legs         []Leg `json:"legs"`
	Adults       int   `json:"adults,omitempty"`
	ChildrenAges []int `json:"childrenAges,omitempty"`
	Cabin        Cabin `json:"cabin,omitempty"`
}

// OneWay builds a single-leg query.
func OneWay(origin, destination, date string) Query {
	return Query{Legs: []Leg{{Origin: origin, Destination: destination, Date: date}}}
}

// Return builds a two-leg round trip query.
func Return(origin, destination, outbound, inbound string) Query {
	return Query{Legs: []Leg{
		{Origin: origin, Destination: destination, Date: outbound},
		{Origin: destination, Destination: origin, Date: inbound},
	}}
}

// Origin returns the origin of the first leg.
func (q Query) Origin() string {
	if len(q.Legs) == 0 {
		return ""
	}
	return q.Legs[0].Origin
}

// Destination returns the destination of the first leg.
func (q Query) Destination() string {
	if len(q.Legs) == 0 {
		return ""
	}
	return q.Legs[0].Destination
}

// Passengers returns the total traveller count.
func (q Query) Passengers() int {
	return q.Adults + len(q.ChildrenAges)
}

// Normalize returns a copy with defaults applied and airport codes upper-cased.
func (q Query) Normalize() Query {
	out := Query{
		Legs:         make([]Leg, len(q.Legs)),
		Adults:       q.Adults,
		ChildrenAges: append([]int(nil), q.ChildrenAges...),
		Cabin:        Cabin(strings.ToLower(strings.TrimSpace(string(q.Cabin)))),
	}
	for i, leg := range q.Legs {
		out.Legs[i] = Leg{
			Origin:      strings.ToUpper(strings.TrimSpace(leg.Origin)),
			Destination: strings.ToUpper(strings.TrimSpace(leg.Destination)),
			Date:        strings.TrimSpace(leg.Date),
		}
	}
	if out.Adults == 0 {
		out.Adults = 1
	}
	if out.Cabin == "" {
		out.Cabin = CabinEconomy
	}
	return out
}

// Validate checks a normalized query. Every failure wraps ErrInvalidQuery.
func (q Query) Validate() error {
	if len(q.Legs) == 0 {
		return fmt.Errorf("%w: at least one leg is required", ErrInvalidQuery)
	}
	for i, leg := range q.Legs {
		if err := validateLeg(leg); err != nil {
			return fmt.Errorf("%w: leg %d: %s", ErrInvalidQuery, i, err.Error())
		}
	}
	if q.Adults < 1 || q.Adults > maxAdults {
		return fmt.Errorf("%w: adults must be between 1 and %d", ErrInvalidQuery, maxAdults)
	}
	for _, age := range q.ChildrenAges {
		if age < 0 || age > maxChildAge {
			return fmt.Errorf("%w: child age %d out of range", ErrInvalidQuery, age)
		}
	}
	if !q.Cabin.Valid() {
		return fmt.Errorf("%w: unknown cabin %q", ErrInvalidQuery, q.Cabin)
	}
	return nil
}

func validateLeg(leg Leg) error {
	if leg.Origin == "" || leg.Destination == "" || leg.Date == "" {
		return errors.New("origin, destination and date are required")
	}
	if !isIATACode(leg.Origin) {
		return fmt.Errorf("origin %q is not an IATA code", leg.Origin)
	}
	if !isIATACode(leg.Destination) {
		return fmt.Errorf("destination %q is not an IATA code", leg.Destination)
	}
	if leg.Origin == leg.Destination {
		return errors.New("origin and destination must differ")
	}
	if _, err := time.Parse(DateLayout, leg.Date); err != nil {
		return fmt.Errorf("date %q is not YYYY-MM-DD", leg.Date)
	}
	return nil
}

func isIATACode(s string) bool {
	if len(s) != iataCodeLen {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
