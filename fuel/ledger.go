/*
ledger.go - Validated writes for events and reference data

PURPOSE:
  The Ledger is the write side of the engine. Every insert, update and
  delete passes through here so that the store only ever sees well-formed
  rows. The read side lives in report.go.

RULES:
  1. Litres are never negative
  2. Event type is one of consumption, refill, maintenance (default consumption)
  3. An event's machine must exist
  4. A machine's place must exist
  5. Update/delete affecting zero rows is a not-found error
  6. A place with machinery, or a machine with events, cannot be deleted

CORRECTIONS:
  Unlike an accounting ledger, fuel events may be edited and deleted. The
  analysis is recomputed on every read, so an edit is visible immediately.

SEE ALSO:
  - store.go: Low-level persistence interface
  - errors.go: ValidationError, ErrEventNotFound, ErrInUse
*/
package fuel

import (
	"context"
	"fmt"
	"strings"
)

// LedgerStore is the persistence surface the Ledger writes through.
type LedgerStore interface {
	EventStore
	MachineryStore
	PlaceStore
}

type Ledger struct {
	Store LedgerStore
}

func NewLedger(store LedgerStore) *Ledger {
	return &Ledger{Store: store}
}

// =============================================================================
// EVENTS
// =============================================================================

// RecordEvent validates and inserts an event, returning it joined with names.
func (l *Ledger) RecordEvent(ctx context.Context, e NewEvent) (*EventDetail, error) {
	if e.Type == "" {
		e.Type = EventConsumption
	}
	var errs ValidationErrors
	if e.MachineryID < 1 {
		errs = append(errs, &ValidationError{Field: "machinery_id", Message: "valid machinery ID is required"})
	}
	if e.OccurredAt.IsZero() {
		errs = append(errs, &ValidationError{Field: "date", Message: "valid date is required"})
	}
	if e.Litres.IsNegative() {
		errs = append(errs, &ValidationError{Field: "litres", Message: "litres must be a positive number"})
	}
	if _, ok := ParseEventType(string(e.Type)); !ok {
		errs = append(errs, &ValidationError{Field: "type", Message: "type must be consumption, refill, or maintenance"})
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	if err := l.requireMachinery(ctx, e.MachineryID); err != nil {
		return nil, err
	}

	id, err := l.Store.InsertEvent(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return l.loadEvent(ctx, id)
}

// UpdateEvent applies patch to an existing event.
func (l *Ledger) UpdateEvent(ctx context.Context, id EventID, patch EventPatch) (*EventDetail, error) {
	var errs ValidationErrors
	if patch.MachineryID != nil && *patch.MachineryID < 1 {
		errs = append(errs, &ValidationError{Field: "machinery_id", Message: "valid machinery ID is required"})
	}
	if patch.OccurredAt != nil && patch.OccurredAt.IsZero() {
		errs = append(errs, &ValidationError{Field: "date", Message: "valid date is required"})
	}
	if patch.Litres != nil && patch.Litres.IsNegative() {
		errs = append(errs, &ValidationError{Field: "litres", Message: "litres must be a positive number"})
	}
	if patch.Type != nil {
		if _, ok := ParseEventType(string(*patch.Type)); !ok {
			errs = append(errs, &ValidationError{Field: "type", Message: "type must be consumption, refill, or maintenance"})
		}
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	if patch.MachineryID != nil {
		if err := l.requireMachinery(ctx, *patch.MachineryID); err != nil {
			return nil, err
		}
	}

	n, err := l.Store.UpdateEvent(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update event %d: %w", id, err)
	}
	if n == 0 {
		return nil, ErrEventNotFound
	}
	return l.loadEvent(ctx, id)
}

func (l *Ledger) DeleteEvent(ctx context.Context, id EventID) error {
	n, err := l.Store.DeleteEvent(ctx, id)
	if err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (l *Ledger) loadEvent(ctx context.Context, id EventID) (*EventDetail, error) {
	e, err := l.Store.GetEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load event %d: %w", id, err)
	}
	if e == nil {
		return nil, ErrEventNotFound
	}
	return e, nil
}

func (l *Ledger) requireMachinery(ctx context.Context, id MachineryID) error {
	m, err := l.Store.GetMachinery(ctx, id)
	if err != nil {
		return fmt.Errorf("load machinery %d: %w", id, err)
	}
	if m == nil {
		return ErrMachineryNotFound
	}
	return nil
}

// =============================================================================
// MACHINERY
// =============================================================================

func (l *Ledger) validateMachinery(ctx context.Context, m *Machinery) error {
	m.Name = strings.TrimSpace(m.Name)
	var errs ValidationErrors
	if m.Name == "" {
		errs = append(errs, &ValidationError{Field: "name", Message: "machinery name is required"})
	}
	if m.PlaceID == nil || *m.PlaceID < 1 {
		errs = append(errs, &ValidationError{Field: "place_id", Message: "place ID is required"})
	}
	if m.Capacity.IsNegative() {
		errs = append(errs, &ValidationError{Field: "capacity", Message: "capacity must be a positive number"})
	}
	if err := errs.OrNil(); err != nil {
		return err
	}

	p, err := l.Store.GetPlace(ctx, *m.PlaceID)
	if err != nil {
		return fmt.Errorf("load place %d: %w", *m.PlaceID, err)
	}
	if p == nil {
		return &ValidationError{Field: "place_id", Message: "selected place does not exist"}
	}
	return nil
}

// CreateMachinery validates and inserts a machine.
func (l *Ledger) CreateMachinery(ctx context.Context, m Machinery) (*Machinery, error) {
	if err := l.validateMachinery(ctx, &m); err != nil {
		return nil, err
	}
	id, err := l.Store.InsertMachinery(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("insert machinery: %w", err)
	}
	return l.loadMachinery(ctx, id)
}

// UpdateMachinery replaces every editable field of machine m.ID.
func (l *Ledger) UpdateMachinery(ctx context.Context, m Machinery) (*Machinery, error) {
	if err := l.validateMachinery(ctx, &m); err != nil {
		return nil, err
	}
	n, err := l.Store.UpdateMachinery(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("update machinery %d: %w", m.ID, err)
	}
	if n == 0 {
		return nil, ErrMachineryNotFound
	}
	return l.loadMachinery(ctx, m.ID)
}

func (l *Ledger) DeleteMachinery(ctx context.Context, id MachineryID) error {
	count, err := l.Store.CountEvents(ctx, EventFilter{MachineryID: &id})
	if err != nil {
		return fmt.Errorf("count events of machinery %d: %w", id, err)
	}
	if count > 0 {
		return fmt.Errorf("machinery %d has %d events: %w", id, count, ErrInUse)
	}
	n, err := l.Store.DeleteMachinery(ctx, id)
	if err != nil {
		return fmt.Errorf("delete machinery %d: %w", id, err)
	}
	if n == 0 {
		return ErrMachineryNotFound
	}
	return nil
}

func (l *Ledger) loadMachinery(ctx context.Context, id MachineryID) (*Machinery, error) {
	m, err := l.Store.GetMachinery(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load machinery %d: %w", id, err)
	}
	if m == nil {
		return nil, ErrMachineryNotFound
	}
	return m, nil
}

// =============================================================================
// PLACES
// =============================================================================

func validatePlace(p *Place) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return &ValidationError{Field: "name", Message: "place name is required"}
	}
	return nil
}

func (l *Ledger) CreatePlace(ctx context.Context, p Place) (*Place, error) {
	if err := validatePlace(&p); err != nil {
		return nil, err
	}
	id, err := l.Store.InsertPlace(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("insert place: %w", err)
	}
	return l.loadPlace(ctx, id)
}

func (l *Ledger) UpdatePlace(ctx context.Context, p Place) (*Place, error) {
	if err := validatePlace(&p); err != nil {
		return nil, err
	}
	n, err := l.Store.UpdatePlace(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("update place %d: %w", p.ID, err)
	}
	if n == 0 {
		return nil, ErrPlaceNotFound
	}
	return l.loadPlace(ctx, p.ID)
}

// DeletePlace refuses to orphan machinery.
func (l *Ledger) DeletePlace(ctx context.Context, id PlaceID) error {
	machines, err := l.Store.ListMachineryByPlace(ctx, id)
	if err != nil {
		return fmt.Errorf("list machinery of place %d: %w", id, err)
	}
	if len(machines) > 0 {
		return fmt.Errorf("place %d has %d machines: %w", id, len(machines), ErrInUse)
	}
	n, err := l.Store.DeletePlace(ctx, id)
	if err != nil {
		return fmt.Errorf("delete place %d: %w", id, err)
	}
	if n == 0 {
		return ErrPlaceNotFound
	}
	return nil
}

func (l *Ledger) loadPlace(ctx context.Context, id PlaceID) (*Place, error) {
	p, err := l.Store.GetPlace(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load place %d: %w", id, err)
	}
	if p == nil {
		return nil, ErrPlaceNotFound
	}
	return p, nil
}
