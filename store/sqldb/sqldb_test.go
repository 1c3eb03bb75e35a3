package sqldb_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/fuel-engine/fuel"
	"github.com/warp/fuel-engine/store/sqldb"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// fakeClock hands out strictly increasing creation times.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newSQLiteStore(t *testing.T) *sqldb.Store {
	clock := &fakeClock{t: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)}
	st, err := sqldb.Open(context.Background(), "sqlite://:memory:", sqldb.Options{Now: clock.now})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// newPostgresStore connects to FUEL_TEST_POSTGRES_DSN or skips.
func newPostgresStore(t *testing.T) *sqldb.Store {
	dsn := os.Getenv("FUEL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FUEL_TEST_POSTGRES_DSN not set")
	}
	st, err := sqldb.Open(context.Background(), dsn, sqldb.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Reset(context.Background()))
	return st
}

type seeded struct {
	place   fuel.PlaceID
	machine fuel.MachineryID
	other   fuel.MachineryID
}

func seed(t *testing.T, st fuel.Store) seeded {
	ctx := context.Background()
	place, err := st.InsertPlace(ctx, fuel.Place{Name: "Quarry", Location: "North"})
	require.NoError(t, err)
	m1, err := st.InsertMachinery(ctx, fuel.Machinery{Name: "Excavator", Type: "excavator", PlaceID: &place, Capacity: fuel.NewLitres(50)})
	require.NoError(t, err)
	m2, err := st.InsertMachinery(ctx, fuel.Machinery{Name: "Loader", PlaceID: &place})
	require.NoError(t, err)
	return seeded{place: place, machine: m1, other: m2}
}

func at(d, h int) time.Time {
	return time.Date(2025, time.September, d, h, 0, 0, 0, time.UTC)
}

func insert(t *testing.T, st fuel.Store, m fuel.MachineryID, when time.Time, l float64, typ fuel.EventType) fuel.EventID {
	id, err := st.InsertEvent(context.Background(), fuel.NewEvent{MachineryID: m, OccurredAt: when, Litres: fuel.NewLitres(l), Type: typ})
	require.NoError(t, err)
	return id
}

// =============================================================================
// SUITE (runs against every engine)
// =============================================================================

func runStoreSuite(t *testing.T, open func(t *testing.T) *sqldb.Store) {
	t.Run("EventRoundTrip", func(t *testing.T) {
		st := open(t)
		s := seed(t, st)
		ctx := context.Background()

		id, err := st.InsertEvent(ctx, fuel.NewEvent{
			MachineryID: s.machine,
			OccurredAt:  at(3, 14),
			Litres:      fuel.NewLitres(12.5),
			Type:        fuel.EventRefill,
			Notes:       "tanker",
		})
		require.NoError(t, err)

		got, err := st.GetEvent(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.OccurredAt.Equal(at(3, 14)))
		assert.True(t, fuel.NewLitres(12.5).Equal(got.Litres), "litres %s", got.Litres)
		assert.Equal(t, fuel.EventRefill, got.Type)
		assert.Equal(t, "tanker", got.Notes)
		assert.Equal(t, "Excavator", got.MachineryName)
		assert.Equal(t, "excavator", got.MachineryType)
		assert.Equal(t, "Quarry", got.PlaceName)
		assert.Equal(t, "North", got.PlaceLocation)
		assert.False(t, got.CreatedAt.IsZero())

		missing, err := st.GetEvent(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("OrderingWithTies", func(t *testing.T) {
		// GIVEN: Two events at the same timestamp inserted in sequence
		// WHEN: Listing ascending and descending
		// THEN: Creation order breaks the tie

		st := open(t)
		s := seed(t, st)
		ctx := context.Background()

		late := insert(t, st, s.machine, at(5, 8), 1, fuel.EventConsumption)
		tieA := insert(t, st, s.machine, at(2, 8), 2, fuel.EventRefill)
		tieB := insert(t, st, s.machine, at(2, 8), 3, fuel.EventConsumption)

		asc, err := st.ListEvents(ctx, fuel.EventQuery{})
		require.NoError(t, err)
		require.Len(t, asc, 3)
		assert.Equal(t, []fuel.EventID{tieA, tieB, late}, ids(asc))

		desc, err := st.ListEvents(ctx, fuel.EventQuery{Descending: true})
		require.NoError(t, err)
		assert.Equal(t, []fuel.EventID{late, tieB, tieA}, ids(desc))
	})

	t.Run("FilterAndCountAgree", func(t *testing.T) {
		st := open(t)
		s := seed(t, st)
		ctx := context.Background()

		insert(t, st, s.machine, time.Date(2025, 8, 31, 23, 0, 0, 0, time.UTC), 5, fuel.EventConsumption)
		insert(t, st, s.machine, at(1, 0), 50, fuel.EventRefill)
		insert(t, st, s.machine, at(15, 12), 7, fuel.EventConsumption)
		insert(t, st, s.other, at(16, 12), 9, fuel.EventConsumption)
		insert(t, st, s.machine, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), 1, fuel.EventConsumption)

		id := s.machine
		typ := fuel.EventConsumption
		f := fuel.EventFilter{MachineryID: &id, Type: &typ, Year: 2025, Month: time.September}

		events, err := st.ListEvents(ctx, fuel.EventQuery{Filter: f})
		require.NoError(t, err)
		n, err := st.CountEvents(ctx, f)
		require.NoError(t, err)

		assert.Len(t, events, 1)
		assert.Equal(t, 1, n)

		all, err := st.CountEvents(ctx, fuel.EventFilter{Year: 2025, Month: time.September})
		require.NoError(t, err)
		assert.Equal(t, 3, all)
	})

	t.Run("DayAndRangeFilters", func(t *testing.T) {
		st := open(t)
		s := seed(t, st)
		ctx := context.Background()

		insert(t, st, s.machine, at(10, 0), 1, fuel.EventConsumption)
		insert(t, st, s.machine, at(10, 23), 1, fuel.EventConsumption)
		insert(t, st, s.machine, at(11, 0), 1, fuel.EventConsumption)

		d := at(10, 0)
		n, err := st.CountEvents(ctx, fuel.EventFilter{Day: &d})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		from, to := at(10, 12), at(11, 0)
		n, err = st.CountEvents(ctx, fuel.EventFilter{Range: fuel.DateRange{From: &from, To: &to}})
		require.NoError(t, err)
		assert.Equal(t, 2, n, "a midnight end date covers the whole day")
	})

	t.Run("Paging", func(t *testing.T) {
		st := open(t)
		s := seed(t, st)
		ctx := context.Background()
		for d := 1; d <= 5; d++ {
			insert(t, st, s.machine, at(d, 9), float64(d), fuel.EventConsumption)
		}

		page, err := st.ListEvents(ctx, fuel.EventQuery{Descending: true, Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.True(t, page[0].OccurredAt.Equal(at(3, 9)))
		assert.True(t, page[1].OccurredAt.Equal(at(2, 9)))
	})

	t.Run("UpdateAndDeleteAffectedRows", func(t *testing.T) {
		st := open(t)
		s := seed(t, st)
		ctx := context.Background()
		id := insert(t, st, s.machine, at(1, 9), 10, fuel.EventConsumption)

		l := fuel.NewLitres(30)
		notes := "corrected"
		n, err := st.UpdateEvent(ctx, id, fuel.EventPatch{Litres: &l, Notes: &notes, MachineryID: &s.other})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := st.GetEvent(ctx, id)
		require.NoError(t, err)
		assert.True(t, l.Equal(got.Litres))
		assert.Equal(t, "corrected", got.Notes)
		assert.Equal(t, s.other, got.MachineryID)

		n, err = st.UpdateEvent(ctx, 9999, fuel.EventPatch{Notes: &notes})
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = st.UpdateEvent(ctx, id, fuel.EventPatch{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = st.DeleteEvent(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = st.DeleteEvent(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Machinery", func(t *testing.T) {
		st := open(t)
		s := seed(t, st)
		ctx := context.Background()

		m, err := st.GetMachinery(ctx, s.machine)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, "Quarry", m.PlaceName)
		assert.True(t, fuel.NewLitres(50).Equal(m.Capacity))

		loader, err := st.GetMachinery(ctx, s.other)
		require.NoError(t, err)
		assert.True(t, loader.Capacity.IsZero(), "unset capacity reads as zero")

		all, err := st.ListMachinery(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Loader", all[0].Name, "newest first")

		byPlace, err := st.ListMachineryByPlace(ctx, s.place)
		require.NoError(t, err)
		assert.Len(t, byPlace, 2)

		m.Name = "Big Excavator"
		m.Capacity = fuel.NewLitres(75)
		n, err := st.UpdateMachinery(ctx, *m)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		updated, err := st.GetMachinery(ctx, s.machine)
		require.NoError(t, err)
		assert.Equal(t, "Big Excavator", updated.Name)
		assert.True(t, fuel.NewLitres(75).Equal(updated.Capacity))
	})

	t.Run("ForeignKeys", func(t *testing.T) {
		// GIVEN: A place with machinery, a machine with events
		// WHEN: Deleting them directly in the store
		// THEN: ErrInUse; dangling references on insert are not-found

		st := open(t)
		s := seed(t, st)
		ctx := context.Background()
		insert(t, st, s.machine, at(1, 9), 10, fuel.EventConsumption)

		_, err := st.DeleteMachinery(ctx, s.machine)
		assert.ErrorIs(t, err, fuel.ErrInUse)

		_, err = st.DeletePlace(ctx, s.place)
		assert.ErrorIs(t, err, fuel.ErrInUse)

		_, err = st.InsertEvent(ctx, fuel.NewEvent{MachineryID: 9999, OccurredAt: at(1, 1), Litres: fuel.NewLitres(1), Type: fuel.EventConsumption})
		assert.ErrorIs(t, err, fuel.ErrMachineryNotFound)
	})

	t.Run("Places", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()

		id, err := st.InsertPlace(ctx, fuel.Place{Name: "Depot", Description: "main yard"})
		require.NoError(t, err)

		n, err := st.UpdatePlace(ctx, fuel.Place{ID: id, Name: "Depot 2", Location: "South"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		p, err := st.GetPlace(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Depot 2", p.Name)
		assert.Equal(t, "South", p.Location)
		assert.Empty(t, p.Description)

		n, err = st.DeletePlace(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		p, err = st.GetPlace(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("Users", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()

		id, err := st.InsertUser(ctx, fuel.User{Username: "Operator", Email: "Op@Example.com", PasswordHash: "hash"})
		require.NoError(t, err)

		u, err := st.GetUserByLogin(ctx, "operator")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, id, u.ID)
		assert.Equal(t, fuel.RoleUser, u.Role)

		u, err = st.GetUserByLogin(ctx, "op@example.com")
		require.NoError(t, err)
		require.NotNil(t, u)

		_, err = st.InsertUser(ctx, fuel.User{Username: "OPERATOR", PasswordHash: "x"})
		assert.ErrorIs(t, err, fuel.ErrDuplicateUser)

		_, err = st.InsertUser(ctx, fuel.User{Username: "someone", Email: "op@example.com", PasswordHash: "x"})
		assert.ErrorIs(t, err, fuel.ErrDuplicateUser)

		missing, err := st.GetUser(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("ResetKeepsUsers", func(t *testing.T) {
		st := open(t)
		s := seed(t, st)
		ctx := context.Background()
		insert(t, st, s.machine, at(1, 9), 10, fuel.EventConsumption)
		_, err := st.InsertUser(ctx, fuel.User{Username: "keeper", PasswordHash: "x"})
		require.NoError(t, err)

		require.NoError(t, st.Reset(ctx))

		n, err := st.CountEvents(ctx, fuel.EventFilter{})
		require.NoError(t, err)
		assert.Zero(t, n)
		machines, err := st.ListMachinery(ctx)
		require.NoError(t, err)
		assert.Empty(t, machines)

		u, err := st.GetUserByLogin(ctx, "keeper")
		require.NoError(t, err)
		assert.NotNil(t, u)
	})
}

func ids(events []fuel.EventDetail) []fuel.EventID {
	out := make([]fuel.EventID, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

// =============================================================================
// ENGINES
// =============================================================================

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, newSQLiteStore)
}

func TestPostgresStore(t *testing.T) {
	runStoreSuite(t, newPostgresStore)
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	_, err := sqldb.Open(context.Background(), "mysql://localhost/fuel", sqldb.Options{})
	assert.Error(t, err)
}

func TestSQLiteStore_Analysis_EndToEnd(t *testing.T) {
	// GIVEN: The two-cycle history persisted in SQLite
	// WHEN: The reporter analyzes the machine
	// THEN: The same cycles come back as from memory

	st := newSQLiteStore(t)
	s := seed(t, st)
	insert(t, st, s.machine, at(1, 8), 50, fuel.EventRefill)
	insert(t, st, s.machine, at(2, 8), 20, fuel.EventConsumption)
	insert(t, st, s.machine, at(3, 8), 10, fuel.EventConsumption)
	insert(t, st, s.machine, at(4, 8), 50, fuel.EventRefill)
	insert(t, st, s.machine, at(5, 8), 15, fuel.EventConsumption)

	reporter := fuel.NewReporter(st, st, fuel.FixedClock{At: at(17, 12)}, time.UTC)
	a, err := reporter.MachineTankAnalysis(context.Background(), s.machine, fuel.DateRange{})
	require.NoError(t, err)

	require.Len(t, a.Cycles, 2)
	assert.True(t, fuel.NewLitres(-20).Equal(a.Cycles[0].Discrepancy))
	assert.True(t, a.Cycles[0].EndDate.Equal(at(4, 8)))
	assert.True(t, a.Cycles[1].Ongoing())
	assert.True(t, fuel.NewLitres(35).Equal(a.Status.CurrentTankLevel))
}
