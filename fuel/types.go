/*
Package fuel provides the fuel-tracking engine: events, tank cycles and the
discrepancy analysis built on top of them.

PURPOSE:
  Machinery burns fuel and gets refilled. Operators record those actions as
  dated events. This package turns that unordered stream of events into
  tank cycles (refill to refill) and compares what was consumed against what
  was put in. Everything here is storage-agnostic; stores live behind the
  interfaces in store.go.

KEY CONCEPTS IN THIS FILE (types.go):
  - Litres: a decimal quantity of fuel (never float64)
  - Event: an immutable-ish record of consumption, refill or maintenance
  - EventDetail: an Event joined with its machinery and place names
  - Machinery / Place: the equipment and where it sits

DESIGN PRINCIPLES:
  1. Precision: Litres wrap decimal.Decimal to avoid floating-point drift
  2. Parse once: raw values from a store are coerced by ParseLitres at the
     boundary; aggregation code never parses
  3. Type Safety: distinct ID types for events, machinery and places

USAGE:
  e := fuel.Event{
      MachineryID: 7,
      OccurredAt:  time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC),
      Litres:      fuel.NewLitres(50),
      Type:        fuel.EventRefill,
  }

SEE ALSO:
  - cycle.go: Cycle reconstruction
  - analysis.go: Discrepancy statistics and tank levels
  - store.go: Persistence interfaces
*/
package fuel

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LITRES - Decimal fuel quantity
// =============================================================================

type Litres struct {
	Value decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

func NewLitres(value float64) Litres        { return Litres{Value: decimal.NewFromFloat(value)} }
func NewLitresFromInt(value int64) Litres   { return Litres{Value: decimal.NewFromInt(value)} }
func ZeroLitres() Litres                    { return Litres{Value: decimal.Zero} }
func (l Litres) Add(o Litres) Litres        { return Litres{Value: l.Value.Add(o.Value)} }
func (l Litres) Sub(o Litres) Litres        { return Litres{Value: l.Value.Sub(o.Value)} }
func (l Litres) IsZero() bool               { return l.Value.IsZero() }
func (l Litres) IsPositive() bool           { return l.Value.IsPositive() }
func (l Litres) IsNegative() bool           { return l.Value.IsNegative() }
func (l Litres) Equal(o Litres) bool        { return l.Value.Equal(o.Value) }
func (l Litres) GreaterThan(o Litres) bool  { return l.Value.GreaterThan(o.Value) }
func (l Litres) Float64() float64           { return l.Value.InexactFloat64() }
func (l Litres) String() string             { return l.Value.String() }

// FloorZero returns l, or zero when l is negative.
func (l Litres) FloorZero() Litres {
	if l.IsNegative() {
		return ZeroLitres()
	}
	return l
}

// ParseLitres converts a raw stored value into Litres.
// Empty, malformed or non-finite input becomes zero; it never fails.
func ParseLitres(s string) Litres {
	s = strings.TrimSpace(s)
	if s == "" {
		return ZeroLitres()
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroLitres()
	}
	return Litres{Value: d}
}

// Percentage returns part / whole * 100, or 0 when whole is zero.
func Percentage(part, whole Litres) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Value.Div(whole.Value).Mul(hundred)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EventID int64
type MachineryID int64
type PlaceID int64
type UserID int64

// =============================================================================
// EVENT - One recorded action against one machine
// =============================================================================

type EventType string

const (
	EventConsumption EventType = "consumption" // Fuel burned by the machine
	EventRefill      EventType = "refill"      // Tank filled
	EventMaintenance EventType = "maintenance" // Recorded, ignored by tank analysis
)

// ParseEventType validates a raw type string.
func ParseEventType(s string) (EventType, bool) {
	switch EventType(s) {
	case EventConsumption, EventRefill, EventMaintenance:
		return EventType(s), true
	default:
		return "", false
	}
}

type Event struct {
	ID          EventID
	MachineryID MachineryID
	OccurredAt  time.Time
	Litres      Litres
	Type        EventType
	Notes       string
	CreatedAt   time.Time
}

// EventDetail is an Event joined with the display names of its machine and place.
type EventDetail struct {
	Event
	MachineryName string
	MachineryType string
	PlaceName     string
	PlaceLocation string
}

// NewEvent carries the fields needed to record an event.
type NewEvent struct {
	MachineryID MachineryID
	OccurredAt  time.Time
	Litres      Litres
	Type        EventType
	Notes       string
}

// EventPatch holds the fields of an update. Nil fields are left unchanged.
type EventPatch struct {
	MachineryID *MachineryID
	OccurredAt  *time.Time
	Litres      *Litres
	Type        *EventType
	Notes       *string
}

// =============================================================================
// MACHINERY & PLACES
// =============================================================================

type Machinery struct {
	ID          MachineryID
	Name        string
	Type        string
	PlaceID     *PlaceID
	Capacity    Litres // zero means unknown
	Description string
	CreatedAt   time.Time

	// Joined from places
	PlaceName     string
	PlaceLocation string
}

type Place struct {
	ID          PlaceID
	Name        string
	Location    string
	Description string
	CreatedAt   time.Time
}

// =============================================================================
// USERS
// =============================================================================

type User struct {
	ID           UserID
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}
