package weather

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-forecast-api/internal/common"
)

var (
	// ErrNotFound is returned when no tier could produce a forecast for a key.
	ErrNotFound = errors.New("weather forecast data not found")

	validate = validator.New()
)

// Units is the measurement system requested from the provider.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
	UnitsStandard Units = "standard"
)

// DefaultUnits is used when a request does not name a unit system.
const DefaultUnits = UnitsMetric

// ParseUnits maps a query value to Units. An empty value yields DefaultUnits.
func ParseUnits(s string) (Units, error) {
	switch Units(s) {
	case "":
		return DefaultUnits, nil
	case UnitsMetric, UnitsImperial, UnitsStandard:
		return Units(s), nil
	default:
		return "", fmt.Errorf("invalid units %q: must be one of metric, imperial, standard", s)
	}
}

// Part is a section of the One Call document that can be excluded from the response.
type Part string

const (
	PartCurrent  Part = "current"
	PartMinutely Part = "minutely"
	PartHourly   Part = "hourly"
	PartDaily    Part = "daily"
	PartAlerts   Part = "alerts"
)

// ParseParts parses a comma-separated exclude list. Empty input yields nil.
func ParseParts(s string) ([]Part, error) {
	items := common.SplitList(s)
	if len(items) == 0 {
		return nil, nil
	}
	parts := make([]Part, 0, len(items))
	for _, item := range items {
		switch p := Part(item); p {
		case PartCurrent, PartMinutely, PartHourly, PartDaily, PartAlerts:
			parts = append(parts, p)
		default:
			return nil, fmt.Errorf("invalid exclude part %q: must be one of current, minutely, hourly, daily, alerts", item)
		}
	}
	return parts, nil
}

// Key identifies a forecast: a coordinate pair plus a unit system.
type Key struct {
	Lat   float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Lon   float64 `json:"lon" yaml:"lon" validate:"gte=-180,lte=180"`
	Units Units   `json:"units" yaml:"units" validate:"oneof=metric imperial standard"`
}

// String returns the canonical encoding shared by the ephemeral cache and the durable store.
func (k Key) String() string {
	return formatCoordinate(k.Lat) + "_" + formatCoordinate(k.Lon) + "_" + string(k.Units)
}

// formatCoordinate encodes -0 as 0 so both spellings share one key.
func formatCoordinate(v float64) string {
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Validate checks coordinate ranges and the unit system.
func (k Key) Validate() error {
	return validate.Struct(k)
}

// FetchOptions carries the optional upstream filters. They do not take part in the key.
type FetchOptions struct {
	Exclude []Part
}

// Payload is the provider document, kept as raw JSON and never reshaped.
type Payload []byte

// MarshalJSON emits the payload verbatim.
func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

// UnmarshalJSON keeps a copy of the raw document.
func (p *Payload) UnmarshalJSON(data []byte) error {
	if p == nil {
		return errors.New("weather.Payload: UnmarshalJSON on nil pointer")
	}
	*p = append((*p)[0:0], data...)
	return nil
}

// Outcome classifies the answer of a single tier.
type Outcome int

const (
	OutcomeMiss Outcome = iota
	OutcomeHit
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeFailure:
		return "failure"
	default:
		return "miss"
	}
}

// Result is what the durable store and the fetcher report back to the orchestrator.
// Failure carries the reason so callers can tell "absent" from "errored".
type Result struct {
	Payload Payload
	Outcome Outcome
	Err     error
}

func Hit(p Payload) Result {
	return Result{Payload: p, Outcome: OutcomeHit}
}

func Miss() Result {
	return Result{Outcome: OutcomeMiss}
}

func Failure(err error) Result {
	return Result{Outcome: OutcomeFailure, Err: err}
}

// OK reports whether the result carries a payload.
func (r Result) OK() bool {
	return r.Outcome == OutcomeHit
}
