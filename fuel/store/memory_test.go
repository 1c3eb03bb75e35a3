package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/fuel-engine/fuel"
)

func steppingClock() func() time.Time {
	t := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func ids(events []fuel.EventDetail) []fuel.EventID {
	out := make([]fuel.EventID, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestMemory_EventOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Now = steppingClock()

	at := func(d int) time.Time { return time.Date(2025, 9, d, 8, 0, 0, 0, time.UTC) }
	insert := func(d int, typ fuel.EventType) fuel.EventID {
		id, err := m.InsertEvent(ctx, fuel.NewEvent{MachineryID: 1, OccurredAt: at(d), Litres: fuel.NewLitresFromInt(1), Type: typ})
		require.NoError(t, err)
		return id
	}

	// GIVEN: Events inserted out of order, two sharing a timestamp
	e1 := insert(3, fuel.EventConsumption)
	e2 := insert(1, fuel.EventRefill)
	e3 := insert(3, fuel.EventRefill)

	// THEN: Ascending by timestamp, ties by insertion
	all, err := m.ListEvents(ctx, fuel.EventQuery{})
	require.NoError(t, err)
	assert.Equal(t, []fuel.EventID{e2, e1, e3}, ids(all))

	desc, err := m.ListEvents(ctx, fuel.EventQuery{Descending: true, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []fuel.EventID{e3, e1}, ids(desc))

	// WHEN: Moving the first event later
	later := at(5)
	n, err := m.UpdateEvent(ctx, e2, fuel.EventPatch{OccurredAt: &later})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// THEN: It moves to the end
	all, err = m.ListEvents(ctx, fuel.EventQuery{})
	require.NoError(t, err)
	assert.Equal(t, []fuel.EventID{e1, e3, e2}, ids(all))

	past, err := m.ListEvents(ctx, fuel.EventQuery{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestMemory_MissingRowsAffectNothing(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	n, err := m.UpdateEvent(ctx, 42, fuel.EventPatch{})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = m.DeleteEvent(ctx, 42)
	require.NoError(t, err)
	assert.Zero(t, n)

	e, err := m.GetEvent(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestMemory_DetailJoinsNames(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	placeID, err := m.InsertPlace(ctx, fuel.Place{Name: "Quarry", Location: "North"})
	require.NoError(t, err)
	machID, err := m.InsertMachinery(ctx, fuel.Machinery{Name: "Excavator", Type: "excavator", PlaceID: &placeID})
	require.NoError(t, err)
	eventID, err := m.InsertEvent(ctx, fuel.NewEvent{MachineryID: machID, OccurredAt: time.Now(), Litres: fuel.NewLitresFromInt(5), Type: fuel.EventRefill})
	require.NoError(t, err)

	e, err := m.GetEvent(ctx, eventID)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "Excavator", e.MachineryName)
	assert.Equal(t, "excavator", e.MachineryType)
	assert.Equal(t, "Quarry", e.PlaceName)
	assert.Equal(t, "North", e.PlaceLocation)
}

func TestMemory_ResetKeepsUsers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.InsertUser(ctx, fuel.User{Username: "root", Email: "root@example.com", Role: fuel.RoleSuperAdmin})
	require.NoError(t, err)
	_, err = m.InsertPlace(ctx, fuel.Place{Name: "Quarry"})
	require.NoError(t, err)

	require.NoError(t, m.Reset(ctx))

	places, err := m.ListPlaces(ctx)
	require.NoError(t, err)
	assert.Empty(t, places)

	u, err := m.GetUserByLogin(ctx, "ROOT@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, fuel.RoleSuperAdmin, u.Role)

	_, err = m.InsertUser(ctx, fuel.User{Username: "Root"})
	assert.ErrorIs(t, err, fuel.ErrDuplicateUser)
}
