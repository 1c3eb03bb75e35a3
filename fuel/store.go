/*
store.go - Persistence interfaces for events, machinery, places and users

PURPOSE:
  Defines the interface between the engine and the database. The engine
  never builds SQL; it hands an EventQuery to an EventStore and gets back
  ordered EventDetails.

KEY INTERFACES:
  EventStore:     Fuel events (insert, update, delete, ordered listing, count)
  MachineryStore: Machinery records joined with their place
  PlaceStore:     Places
  UserStore:      Accounts used by the auth layer
  Store:          Everything above plus lifecycle

ORDERING CONTRACT:
  ListEvents returns events ascending by (occurred_at, created_at, id) unless
  EventQuery.Descending is set. The cycle reconstructor still re-sorts, so a
  store that cannot guarantee order is slower, not wrong.

NOT-FOUND CONTRACT:
  Update and delete report affected rows. Zero means the id did not exist;
  callers turn that into ErrEventNotFound. Getters return (nil, nil) when the
  row is missing.

IMPLEMENTATIONS:
  - store/sqldb: SQLite and PostgreSQL through database/sql
  - fuel/store/memory.go: In-memory for testing and demos

SEE ALSO:
  - ledger.go: Validated writes on top of EventStore
  - report.go: Read side
*/
package fuel

import "context"

// =============================================================================
// EVENT STORE
// =============================================================================

// EventQuery is a filter plus ordering and paging.
type EventQuery struct {
	Filter     EventFilter
	Descending bool
	Limit      int // 0 = no limit
	Offset     int
}

type EventStore interface {
	// ListEvents returns events matching the query in the documented order.
	ListEvents(ctx context.Context, q EventQuery) ([]EventDetail, error)

	// CountEvents counts events matching the filter. Paging is ignored.
	CountEvents(ctx context.Context, f EventFilter) (int, error)

	// GetEvent returns one event or (nil, nil).
	GetEvent(ctx context.Context, id EventID) (*EventDetail, error)

	// InsertEvent records an event and returns its new id.
	InsertEvent(ctx context.Context, e NewEvent) (EventID, error)

	// UpdateEvent applies the non-nil fields of patch. Returns affected rows.
	UpdateEvent(ctx context.Context, id EventID, patch EventPatch) (int64, error)

	// DeleteEvent removes an event. Returns affected rows.
	DeleteEvent(ctx context.Context, id EventID) (int64, error)
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

type MachineryStore interface {
	GetMachinery(ctx context.Context, id MachineryID) (*Machinery, error)
	ListMachinery(ctx context.Context) ([]Machinery, error)
	ListMachineryByPlace(ctx context.Context, placeID PlaceID) ([]Machinery, error)
	InsertMachinery(ctx context.Context, m Machinery) (MachineryID, error)
	UpdateMachinery(ctx context.Context, m Machinery) (int64, error)
	DeleteMachinery(ctx context.Context, id MachineryID) (int64, error)
}

type PlaceStore interface {
	GetPlace(ctx context.Context, id PlaceID) (*Place, error)
	ListPlaces(ctx context.Context) ([]Place, error)
	InsertPlace(ctx context.Context, p Place) (PlaceID, error)
	UpdatePlace(ctx context.Context, p Place) (int64, error)
	DeletePlace(ctx context.Context, id PlaceID) (int64, error)
}

type UserStore interface {
	// InsertUser fails with ErrDuplicateUser when username or email is taken.
	InsertUser(ctx context.Context, u User) (UserID, error)
	GetUserByLogin(ctx context.Context, login string) (*User, error)
	GetUser(ctx context.Context, id UserID) (*User, error)
}

// Store is the full persistence surface used by the HTTP layer.
type Store interface {
	EventStore
	MachineryStore
	PlaceStore
	UserStore

	// Reset deletes all places, machinery and events. Users are kept.
	// Used by demo scenarios only.
	Reset(ctx context.Context) error

	Close() error
}
