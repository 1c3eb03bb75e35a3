/*
handlers_test.go - End-to-end tests for the HTTP API

Tests run the full router against the in-memory store with the clock pinned
to 15 September 2025, so the date scope of non-privileged callers is fixed.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/fuel-engine/auth"
	"github.com/warp/fuel-engine/fuel"
	"github.com/warp/fuel-engine/fuel/store"
)

var testSecret = []byte("api-test-secret")

type testEnv struct {
	h      *Handler
	router http.Handler
	store  *store.Memory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := store.NewMemory()
	h := NewHandler(mem, Options{
		Secret:   testSecret,
		TokenTTL: time.Hour,
		Clock:    fuel.FixedClock{At: time.Date(2025, 9, 15, 10, 0, 0, 0, time.UTC)},
		Location: time.UTC,
		Metrics:  NewMetrics(),
	})
	return &testEnv{
		h:      h,
		router: NewRouter(h, RouterOptions{Logger: zerolog.Nop()}),
		store:  mem,
	}
}

// token signs a token for an already existing or synthetic user.
func (e *testEnv) token(t *testing.T, id int64, role fuel.Role) string {
	t.Helper()
	tok, err := auth.IssueToken(testSecret, fuel.User{ID: fuel.UserID(id), Username: string(role), Role: role}, time.Hour, time.Now())
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &v), resp.Body.String())
	return v
}

func sept(day, hour int) time.Time {
	return time.Date(2025, 9, day, hour, 0, 0, 0, time.UTC)
}

// seedMachine creates a place and one machine, returning the machine.
func (e *testEnv) seedMachine(t *testing.T, name string, capacity int64) *fuel.Machinery {
	t.Helper()
	ctx := context.Background()
	places, err := e.store.ListPlaces(ctx)
	require.NoError(t, err)
	var placeID fuel.PlaceID
	if len(places) > 0 {
		placeID = places[0].ID
	} else {
		p, err := e.h.Ledger.CreatePlace(ctx, fuel.Place{Name: "Quarry", Location: "North"})
		require.NoError(t, err)
		placeID = p.ID
	}
	m, err := e.h.Ledger.CreateMachinery(ctx, fuel.Machinery{
		Name:     name,
		Type:     "excavator",
		PlaceID:  &placeID,
		Capacity: fuel.NewLitresFromInt(capacity),
	})
	require.NoError(t, err)
	return m
}

func (e *testEnv) record(t *testing.T, id fuel.MachineryID, at time.Time, litres int64, typ fuel.EventType) fuel.EventID {
	t.Helper()
	ev, err := e.h.Ledger.RecordEvent(context.Background(), fuel.NewEvent{
		MachineryID: id,
		OccurredAt:  at,
		Litres:      fuel.NewLitresFromInt(litres),
		Type:        typ,
	})
	require.NoError(t, err)
	return ev.ID
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

func TestProtectedRoutes_RequireToken(t *testing.T) {
	env := newTestEnv(t)

	// GIVEN: No token
	// WHEN: Listing events
	resp := env.do(t, http.MethodGet, "/api/data", "", nil)

	// THEN: 401
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	// GIVEN: A token signed with another secret
	bad, err := auth.IssueToken([]byte("other"), fuel.User{ID: 1, Role: fuel.RoleUser}, time.Hour, time.Now())
	require.NoError(t, err)

	// THEN: 403
	resp = env.do(t, http.MethodGet, "/api/data", bad, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestHealth_IsPublic(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/health", "", nil)

	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "2025-09-15T10:00:00Z", body["time"])
}

func TestRegisterLoginMe(t *testing.T) {
	env := newTestEnv(t)

	// GIVEN: A new account
	resp := env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Username: "driver", Email: "Driver@Example.com", Password: "secret1",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	registered := decode[AuthResponse](t, resp)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "user", registered.User.Role)
	assert.Equal(t, "driver@example.com", registered.User.Email)

	// WHEN: Logging in by username and by email
	for _, login := range []LoginRequest{
		{Username: "driver", Password: "secret1"},
		{Email: "driver@example.com", Password: "secret1"},
	} {
		resp = env.do(t, http.MethodPost, "/api/auth/login", "", login)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		logged := decode[AuthResponse](t, resp)
		assert.Equal(t, registered.User.ID, logged.User.ID)

		// THEN: The token identifies the account
		resp = env.do(t, http.MethodGet, "/api/auth/me", logged.Token, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "driver", decode[UserDTO](t, resp).Username)
	}

	// Wrong password is 401
	resp = env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "driver", Password: "nope123"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	// Duplicate username is 400
	resp = env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Username: "driver", Email: "other@example.com", Password: "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Username: "ab", Email: "not-an-email", Password: "123",
	})

	require.Equal(t, http.StatusBadRequest, resp.Code)
	body := decode[ErrorResponse](t, resp)
	fields := make([]string, len(body.Errors))
	for i, e := range body.Errors {
		fields[i] = e.Field
	}
	assert.Equal(t, []string{"username", "email", "password"}, fields)
}

func TestScenarios_RequireSuperAdmin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/scenarios", env.token(t, 1, fuel.RoleAdmin), nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = env.do(t, http.MethodGet, "/api/scenarios", env.token(t, 1, fuel.RoleSuperAdmin), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[[]ScenarioDTO](t, resp), 3)
}

// =============================================================================
// TANK ANALYSIS
// =============================================================================

func TestTankAnalysis_TwoCycles(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, 1, fuel.RoleUser)

	// GIVEN: A 50 L machine refilled twice
	m := env.seedMachine(t, "Excavator M", 50)
	env.record(t, m.ID, sept(1, 8), 50, fuel.EventRefill)
	env.record(t, m.ID, sept(2, 8), 20, fuel.EventConsumption)
	env.record(t, m.ID, sept(3, 8), 10, fuel.EventConsumption)
	env.record(t, m.ID, sept(4, 8), 50, fuel.EventRefill)
	env.record(t, m.ID, sept(5, 8), 15, fuel.EventConsumption)

	// WHEN: Analyzing its tank
	resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/data/tank-analysis/%d", m.ID), tok, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	a := decode[TankAnalysisDTO](t, resp)

	// THEN: Two cycles, the first closed by the second refill
	require.Len(t, a.TankCycles, 2)
	c1, c2 := a.TankCycles[0], a.TankCycles[1]
	assert.InDelta(t, 50, c1.RefillAmount, 0.001)
	assert.InDelta(t, 30, c1.ActualConsumption, 0.001)
	assert.InDelta(t, -20, c1.Discrepancy, 0.001)
	assert.InDelta(t, -40, c1.DiscrepancyPercentage, 0.001)
	require.NotNil(t, c1.EndDate)
	assert.Equal(t, "2025-09-04T08:00:00Z", *c1.EndDate)
	assert.Len(t, c1.Entries, 3)

	assert.InDelta(t, 15, c2.ActualConsumption, 0.001)
	assert.InDelta(t, -35, c2.Discrepancy, 0.001)
	assert.InDelta(t, -70, c2.DiscrepancyPercentage, 0.001)
	assert.Nil(t, c2.EndDate)

	// Current status follows the last refill
	assert.InDelta(t, 35, a.CurrentTankLevel, 0.001)
	assert.InDelta(t, 15, a.ConsumptionSinceLastRefill, 0.001)
	assert.InDelta(t, 15, a.RemainingCapacity, 0.001)
	assert.Equal(t, 2, a.Statistics.TotalRefills)
	assert.InDelta(t, 45, a.Statistics.TotalConsumption, 0.001)
}

func TestTankAnalysis_NoEvents(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, 1, fuel.RoleUser)
	m := env.seedMachine(t, "Idle", 80)

	resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/data/tank-analysis/%d", m.ID), tok, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	// THEN: Zero state, and tankCycles is an empty array, not null
	assert.Contains(t, resp.Body.String(), `"tankCycles":[]`)
	assert.Contains(t, resp.Body.String(), `"lastRefillDate":null`)
	a := decode[TankAnalysisDTO](t, resp)
	assert.Zero(t, a.CurrentTankLevel)
	assert.Equal(t, StatisticsDTO{}, a.Statistics)
}

func TestTankAnalysis_UnknownMachine(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, 1, fuel.RoleUser)

	resp := env.do(t, http.MethodGet, "/api/data/tank-analysis/999", tok, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = env.do(t, http.MethodGet, "/api/data/tank-analysis/abc", tok, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCentralTankAnalysis_MachineSummaries(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, 1, fuel.RoleAdmin)

	// GIVEN: Two machines sharing one refill stream
	x := env.seedMachine(t, "Truck X", 300)
	y := env.seedMachine(t, "Loader Y", 300)
	env.record(t, x.ID, sept(1, 8), 200, fuel.EventRefill)
	env.record(t, x.ID, sept(2, 8), 40, fuel.EventConsumption)
	env.record(t, y.ID, sept(3, 8), 60, fuel.EventConsumption)
	env.record(t, y.ID, sept(4, 8), 150, fuel.EventRefill)
	env.record(t, x.ID, sept(5, 8), 30, fuel.EventConsumption)
	env.record(t, y.ID, sept(6, 8), 20, fuel.EventConsumption)

	// WHEN: Analyzing the central tank
	resp := env.do(t, http.MethodGet, "/api/data/central-tank-analysis", tok, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	a := decode[CentralTankAnalysisDTO](t, resp)

	// THEN: One summary per machine, adding up to the pooled total
	require.Len(t, a.MachinerySummary, 2)
	var sum float64
	byName := map[string]MachinerySummaryDTO{}
	for _, s := range a.MachinerySummary {
		sum += s.TotalConsumption
		byName[s.Name] = s
	}
	assert.InDelta(t, a.Statistics.TotalConsumption, sum, 0.001)
	assert.InDelta(t, 150, sum, 0.001)
	assert.InDelta(t, 70, byName["Truck X"].TotalConsumption, 0.001)
	assert.Equal(t, 1, byName["Truck X"].RefillCount)
	assert.InDelta(t, 80, byName["Loader Y"].TotalConsumption, 0.001)
	assert.Equal(t, 1, byName["Loader Y"].RefillCount)

	require.Len(t, a.CentralTankCycles, 2)
	first := a.CentralTankCycles[0]
	assert.InDelta(t, 100, first.TotalConsumption, 0.001)
	assert.InDelta(t, 40, first.MachineryConsumption[int64(x.ID)].Consumption, 0.001)
	assert.InDelta(t, 60, first.MachineryConsumption[int64(y.ID)].Consumption, 0.001)
	assert.Nil(t, a.CentralTankCycles[1].EndDate)
}

// =============================================================================
// DATE SCOPE
// =============================================================================

func TestListEvents_ScopedToCurrentMonthForUsers(t *testing.T) {
	env := newTestEnv(t)
	m := env.seedMachine(t, "Excavator", 50)

	// GIVEN: Events across several months and years
	env.record(t, m.ID, time.Date(2024, 9, 10, 8, 0, 0, 0, time.UTC), 5, fuel.EventConsumption)
	env.record(t, m.ID, time.Date(2025, 8, 31, 23, 0, 0, 0, time.UTC), 6, fuel.EventConsumption)
	env.record(t, m.ID, sept(1, 0), 7, fuel.EventConsumption)
	env.record(t, m.ID, sept(14, 12), 8, fuel.EventRefill)

	// WHEN: A plain user lists without year or month
	resp := env.do(t, http.MethodGet, "/api/data", env.token(t, 1, fuel.RoleUser), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	page := decode[EventListResponse](t, resp)

	// THEN: Only September 2025, newest first
	assert.Equal(t, 2, page.Pagination.TotalRecords)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "2025-09-14T12:00:00Z", page.Data[0].Date)
	assert.Equal(t, "2025-09-01T00:00:00Z", page.Data[1].Date)

	// An explicit year is honoured
	resp = env.do(t, http.MethodGet, "/api/data?year=2024&month=9", env.token(t, 1, fuel.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, decode[EventListResponse](t, resp).Pagination.TotalRecords)

	// A month alone stays in the current year
	resp = env.do(t, http.MethodGet, "/api/data?month=8", env.token(t, 1, fuel.RoleUser), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	page = decode[EventListResponse](t, resp)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "2025-08-31T23:00:00Z", page.Data[0].Date)

	// WHEN: A superadmin lists
	resp = env.do(t, http.MethodGet, "/api/data?limit=3", env.token(t, 1, fuel.RoleSuperAdmin), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	page = decode[EventListResponse](t, resp)

	// THEN: Everything, paged
	assert.Equal(t, 4, page.Pagination.TotalRecords)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.Equal(t, 3, page.Pagination.PerPage)
	assert.Len(t, page.Data, 3)
}

func TestListEvents_InvalidQuery(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, 1, fuel.RoleSuperAdmin)

	for _, q := range []string{"month=13", "type=leak", "page=0", "limit=5000", "start_date=yesterday"} {
		resp := env.do(t, http.MethodGet, "/api/data?"+q, tok, nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code, q)
	}
}

// =============================================================================
// WRITES
// =============================================================================

func TestEventLifecycle(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, 1, fuel.RoleAdmin)
	m := env.seedMachine(t, "Excavator", 50)

	// Create accepts litres as a string and a local date
	resp := env.do(t, http.MethodPost, "/api/data", tok,
		fmt.Sprintf(`{"machinery_id": %d, "date": "2025-09-10T07:30", "litres": "12.5", "type": "refill", "notes": "morning"}`, m.ID))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	created := decode[EventDTO](t, resp)
	assert.InDelta(t, 12.5, created.Litres, 0.0001)
	assert.Equal(t, "refill", created.Type)
	assert.Equal(t, "Excavator", created.MachineryName)
	assert.Equal(t, "Quarry", created.PlaceName)

	// Type defaults to consumption
	resp = env.do(t, http.MethodPost, "/api/data", tok,
		fmt.Sprintf(`{"machinery_id": %d, "date": "2025-09-11", "litres": 3}`, m.ID))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, "consumption", decode[EventDTO](t, resp).Type)

	// Partial update keeps the other fields
	resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/data/%d", created.ID), tok, `{"litres": 14}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := decode[EventDTO](t, resp)
	assert.InDelta(t, 14, updated.Litres, 0.0001)
	assert.Equal(t, "morning", updated.Notes)
	assert.Equal(t, created.Date, updated.Date)

	// Delete, then the id is gone
	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/data/%d", created.ID), tok, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/data/%d", created.ID), tok, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/data/%d", created.ID), tok, `{"litres": 1}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCreateEvent_Validation(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, 1, fuel.RoleUser)
	m := env.seedMachine(t, "Excavator", 50)

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"negative litres", fmt.Sprintf(`{"machinery_id": %d, "date": "2025-09-10", "litres": -1}`, m.ID), http.StatusBadRequest, "litres"},
		{"missing litres", fmt.Sprintf(`{"machinery_id": %d, "date": "2025-09-10"}`, m.ID), http.StatusBadRequest, "litres"},
		{"bad date", fmt.Sprintf(`{"machinery_id": %d, "date": "10/09/2025", "litres": 1}`, m.ID), http.StatusBadRequest, "date"},
		{"bad type", fmt.Sprintf(`{"machinery_id": %d, "date": "2025-09-10", "litres": 1, "type": "leak"}`, m.ID), http.StatusBadRequest, "type"},
		{"missing machine", `{"date": "2025-09-10", "litres": 1}`, http.StatusBadRequest, "machinery_id"},
		{"unknown machine", `{"machinery_id": 999, "date": "2025-09-10", "litres": 1}`, http.StatusNotFound, ""},
		{"malformed", `{"machinery_id":`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/data", tok, tt.body)
			require.Equal(t, tt.status, resp.Code, resp.Body.String())
			if tt.field != "" {
				body := decode[ErrorResponse](t, resp)
				require.NotEmpty(t, body.Errors)
				assert.Equal(t, tt.field, body.Errors[0].Field)
			}
		})
	}
}

func TestCatalog_DeleteConflicts(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, 1, fuel.RoleAdmin)

	// GIVEN: A place with a machine that has an event
	resp := env.do(t, http.MethodPost, "/api/places", tok, PlaceRequest{Name: "Depot", Location: "South"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	place := decode[PlaceDTO](t, resp)

	resp = env.do(t, http.MethodPost, "/api/machinery", tok,
		fmt.Sprintf(`{"name": "Dozer", "type": "dozer", "place_id": %d, "capacity": 120}`, place.ID))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	machine := decode[MachineryDTO](t, resp)
	assert.Equal(t, "Depot", machine.PlaceName)

	env.record(t, fuel.MachineryID(machine.ID), sept(2, 9), 10, fuel.EventRefill)

	// WHEN/THEN: Neither can be deleted while referenced
	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/machinery/%d", machine.ID), tok, nil)
	assert.Equal(t, http.StatusConflict, resp.Code)
	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/places/%d", place.ID), tok, nil)
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/places/%d/machinery", place.ID), tok, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[[]MachineryDTO](t, resp), 1)
}

func TestCatalog_MachineryValidation(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, 1, fuel.RoleAdmin)

	resp := env.do(t, http.MethodPost, "/api/machinery", tok, `{"name": "Dozer", "place_id": 42}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	body := decode[ErrorResponse](t, resp)
	require.NotEmpty(t, body.Errors)
	assert.Equal(t, "place_id", body.Errors[0].Field)

	resp = env.do(t, http.MethodGet, "/api/machinery/42", tok, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	resp = env.do(t, http.MethodGet, "/api/places/42", tok, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

// =============================================================================
// SUMMARIES & EXPORTS
// =============================================================================

func TestMonthlySummary(t *testing.T) {
	env := newTestEnv(t)
	m := env.seedMachine(t, "Excavator", 50)
	env.record(t, m.ID, sept(2, 8), 10, fuel.EventConsumption)
	env.record(t, m.ID, sept(2, 18), 6, fuel.EventConsumption)
	env.record(t, m.ID, sept(3, 8), 50, fuel.EventRefill)

	resp := env.do(t, http.MethodGet, "/api/data/monthly", env.token(t, 1, fuel.RoleUser), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	rows := decode[[]MonthlySummaryDTO](t, resp)

	require.Len(t, rows, 2)
	byType := map[string]MonthlySummaryDTO{}
	for _, r := range rows {
		assert.Equal(t, "2025-09", r.Month)
		byType[r.Type] = r
	}
	assert.InDelta(t, 16, byType["consumption"].TotalLitres, 0.001)
	assert.Equal(t, 2, byType["consumption"].RecordCount)
	assert.InDelta(t, 8, byType["consumption"].AvgDailyLitres, 0.001)

	resp = env.do(t, http.MethodGet, "/api/data/daily", env.token(t, 1, fuel.RoleUser), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[[]DailySummaryDTO](t, resp), 2)
}

func TestExports(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, 1, fuel.RoleUser)
	m := env.seedMachine(t, "Excavator", 50)
	env.record(t, m.ID, sept(1, 8), 50, fuel.EventRefill)
	env.record(t, m.ID, sept(2, 8), 20, fuel.EventConsumption)

	resp := env.do(t, http.MethodGet, "/api/data/export.csv", tok, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(resp.Body.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "ID,Date,Machinery,Type,Place,Event,Litres,Notes", lines[0])

	resp = env.do(t, http.MethodGet, "/api/data/export.xlsx", tok, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "spreadsheetml")
	assert.Equal(t, "PK", resp.Body.String()[:2])

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/data/tank-analysis/%d/report.pdf", m.ID), tok, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(resp.Body.String(), "%PDF"))

	// Exports are counted
	resp = env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `fuel_exports_total{format="csv"} 1`)
	assert.Contains(t, resp.Body.String(), `fuel_exports_total{format="pdf"} 1`)
}
