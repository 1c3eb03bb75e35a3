// Package store provides in-process fuel.Store implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/warp/fuel-engine/fuel"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	events    []fuel.Event // kept in ascending event order
	machinery map[fuel.MachineryID]fuel.Machinery
	places    map[fuel.PlaceID]fuel.Place
	users     map[fuel.UserID]fuel.User

	nextEvent     fuel.EventID
	nextMachinery fuel.MachineryID
	nextPlace     fuel.PlaceID
	nextUser      fuel.UserID

	// Now stamps CreatedAt. Defaults to time.Now.
	Now func() time.Time
}

var _ fuel.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		machinery: make(map[fuel.MachineryID]fuel.Machinery),
		places:    make(map[fuel.PlaceID]fuel.Place),
		users:     make(map[fuel.UserID]fuel.User),
		Now:       time.Now,
	}
}

func (m *Memory) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// =============================================================================
// EVENTS
// =============================================================================

// insertLocked keeps m.events sorted. Binary search for the insertion point.
func (m *Memory) insertLocked(e fuel.Event) {
	i := sort.Search(len(m.events), func(i int) bool {
		return fuel.EventLess(e, m.events[i])
	})
	m.events = append(m.events, fuel.Event{})
	copy(m.events[i+1:], m.events[i:])
	m.events[i] = e
}

func (m *Memory) removeLocked(id fuel.EventID) (fuel.Event, bool) {
	for i, e := range m.events {
		if e.ID == id {
			m.events = append(m.events[:i], m.events[i+1:]...)
			return e, true
		}
	}
	return fuel.Event{}, false
}

func (m *Memory) detailLocked(e fuel.Event) fuel.EventDetail {
	d := fuel.EventDetail{Event: e}
	if mach, ok := m.machinery[e.MachineryID]; ok {
		d.MachineryName = mach.Name
		d.MachineryType = mach.Type
		if mach.PlaceID != nil {
			if p, ok := m.places[*mach.PlaceID]; ok {
				d.PlaceName = p.Name
				d.PlaceLocation = p.Location
			}
		}
	}
	return d
}

func (m *Memory) ListEvents(_ context.Context, q fuel.EventQuery) ([]fuel.EventDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]fuel.EventDetail, 0)
	for _, e := range m.events {
		if q.Filter.Matches(e) {
			matched = append(matched, m.detailLocked(e))
		}
	}
	if q.Descending {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []fuel.EventDetail{}, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (m *Memory) CountEvents(_ context.Context, f fuel.EventFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, e := range m.events {
		if f.Matches(e) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) GetEvent(_ context.Context, id fuel.EventID) (*fuel.EventDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.events {
		if e.ID == id {
			d := m.detailLocked(e)
			return &d, nil
		}
	}
	return nil, nil
}

func (m *Memory) InsertEvent(_ context.Context, ne fuel.NewEvent) (fuel.EventID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextEvent++
	m.insertLocked(fuel.Event{
		ID:          m.nextEvent,
		MachineryID: ne.MachineryID,
		OccurredAt:  ne.OccurredAt,
		Litres:      ne.Litres,
		Type:        ne.Type,
		Notes:       ne.Notes,
		CreatedAt:   m.now(),
	})
	return m.nextEvent, nil
}

func (m *Memory) UpdateEvent(_ context.Context, id fuel.EventID, p fuel.EventPatch) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.removeLocked(id)
	if !ok {
		return 0, nil
	}
	if p.MachineryID != nil {
		e.MachineryID = *p.MachineryID
	}
	if p.OccurredAt != nil {
		e.OccurredAt = *p.OccurredAt
	}
	if p.Litres != nil {
		e.Litres = *p.Litres
	}
	if p.Type != nil {
		e.Type = *p.Type
	}
	if p.Notes != nil {
		e.Notes = *p.Notes
	}
	m.insertLocked(e)
	return 1, nil
}

func (m *Memory) DeleteEvent(_ context.Context, id fuel.EventID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.removeLocked(id); !ok {
		return 0, nil
	}
	return 1, nil
}

// =============================================================================
// MACHINERY
// =============================================================================

func (m *Memory) joinPlaceLocked(mach fuel.Machinery) fuel.Machinery {
	mach.PlaceName, mach.PlaceLocation = "", ""
	if mach.PlaceID != nil {
		if p, ok := m.places[*mach.PlaceID]; ok {
			mach.PlaceName = p.Name
			mach.PlaceLocation = p.Location
		}
	}
	return mach
}

// newestFirst orders by creation time descending, then id descending.
func newestFirst(a, b time.Time, ai, bi int64) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return ai > bi
}

func (m *Memory) GetMachinery(_ context.Context, id fuel.MachineryID) (*fuel.Machinery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mach, ok := m.machinery[id]
	if !ok {
		return nil, nil
	}
	mach = m.joinPlaceLocked(mach)
	return &mach, nil
}

func (m *Memory) ListMachinery(_ context.Context) ([]fuel.Machinery, error) {
	return m.listMachinery(func(fuel.Machinery) bool { return true })
}

func (m *Memory) ListMachineryByPlace(_ context.Context, placeID fuel.PlaceID) ([]fuel.Machinery, error) {
	return m.listMachinery(func(mach fuel.Machinery) bool {
		return mach.PlaceID != nil && *mach.PlaceID == placeID
	})
}

func (m *Memory) listMachinery(keep func(fuel.Machinery) bool) ([]fuel.Machinery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]fuel.Machinery, 0, len(m.machinery))
	for _, mach := range m.machinery {
		if keep(mach) {
			result = append(result, m.joinPlaceLocked(mach))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return newestFirst(result[i].CreatedAt, result[j].CreatedAt, int64(result[i].ID), int64(result[j].ID))
	})
	return result, nil
}

func (m *Memory) InsertMachinery(_ context.Context, mach fuel.Machinery) (fuel.MachineryID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextMachinery++
	mach.ID = m.nextMachinery
	mach.CreatedAt = m.now()
	m.machinery[mach.ID] = mach
	return mach.ID, nil
}

func (m *Memory) UpdateMachinery(_ context.Context, mach fuel.Machinery) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.machinery[mach.ID]
	if !ok {
		return 0, nil
	}
	mach.CreatedAt = old.CreatedAt
	m.machinery[mach.ID] = mach
	return 1, nil
}

func (m *Memory) DeleteMachinery(_ context.Context, id fuel.MachineryID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.machinery[id]; !ok {
		return 0, nil
	}
	delete(m.machinery, id)
	return 1, nil
}

// =============================================================================
// PLACES
// =============================================================================

func (m *Memory) GetPlace(_ context.Context, id fuel.PlaceID) (*fuel.Place, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.places[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) ListPlaces(_ context.Context) ([]fuel.Place, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]fuel.Place, 0, len(m.places))
	for _, p := range m.places {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return newestFirst(result[i].CreatedAt, result[j].CreatedAt, int64(result[i].ID), int64(result[j].ID))
	})
	return result, nil
}

func (m *Memory) InsertPlace(_ context.Context, p fuel.Place) (fuel.PlaceID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextPlace++
	p.ID = m.nextPlace
	p.CreatedAt = m.now()
	m.places[p.ID] = p
	return p.ID, nil
}

func (m *Memory) UpdatePlace(_ context.Context, p fuel.Place) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.places[p.ID]
	if !ok {
		return 0, nil
	}
	p.CreatedAt = old.CreatedAt
	m.places[p.ID] = p
	return 1, nil
}

func (m *Memory) DeletePlace(_ context.Context, id fuel.PlaceID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.places[id]; !ok {
		return 0, nil
	}
	delete(m.places, id)
	return 1, nil
}

// =============================================================================
// USERS
// =============================================================================

func (m *Memory) InsertUser(_ context.Context, u fuel.User) (fuel.UserID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if strings.EqualFold(existing.Username, u.Username) ||
			(u.Email != "" && strings.EqualFold(existing.Email, u.Email)) {
			return 0, fuel.ErrDuplicateUser
		}
	}
	m.nextUser++
	u.ID = m.nextUser
	u.CreatedAt = m.now()
	m.users[u.ID] = u
	return u.ID, nil
}

func (m *Memory) GetUserByLogin(_ context.Context, login string) (*fuel.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Username, login) || (u.Email != "" && strings.EqualFold(u.Email, login)) {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *Memory) GetUser(_ context.Context, id fuel.UserID) (*fuel.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Reset drops places, machinery and events. Users survive.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = nil
	m.machinery = make(map[fuel.MachineryID]fuel.Machinery)
	m.places = make(map[fuel.PlaceID]fuel.Place)
	return nil
}

func (m *Memory) Close() error { return nil }
