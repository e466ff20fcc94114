// market/instruments.go
package market

import (
	"fmt"
	"strings"
)

// Venue is the broker's market division code for a listing.
type Venue string

const (
	VenueKRX     Venue = "J"  // Korea Exchange
	VenueNXT     Venue = "NX" // Nextrade
	VenueUnified Venue = "UN" // KRX + Nextrade
)

func (v Venue) Valid() bool {
	switch v {
	case VenueKRX, VenueNXT, VenueUnified:
		return true
	}
	return false
}

// Instrument is an exchange-traded product identified by its listing code.
type Instrument struct {
	Code  string `json:"code" yaml:"code"`
	Venue Venue  `json:"venue,omitempty" yaml:"venue,omitempty"`
}

// NewInstrument returns an instrument listed on the Korea Exchange.
func NewInstrument(code string) Instrument {
	return Instrument{Code: code, Venue: VenueKRX}
}

func (i Instrument) String() string {
	if i.Venue == "" || i.Venue == VenueKRX {
		return i.Code
	}
	return i.Code + "@" + string(i.Venue)
}

// ParseInstrument accepts "379800" or "379800@NX".
func ParseInstrument(s string) (Instrument, error) {
	s = strings.TrimSpace(s)
	code, venue, found := strings.Cut(s, "@")
	if code == "" {
		return Instrument{}, fmt.Errorf("instrument code is required")
	}
	inst := NewInstrument(code)
	if found {
		inst.Venue = Venue(strings.ToUpper(venue))
		if !inst.Venue.Valid() {
			return Instrument{}, fmt.Errorf("unknown venue %q for %s", venue, code)
		}
	}
	return inst, nil
}

// ParseInstruments splits a comma separated list of instruments.
func ParseInstruments(s string) ([]Instrument, error) {
	var out []Instrument
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		inst, err := ParseInstrument(part)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}
