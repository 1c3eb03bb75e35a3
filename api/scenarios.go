/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built scenarios that populate the store with places,
  machinery and fuel events that demonstrate the tank analyses. Events are
  dated in the current month so every role can see them.

AVAILABLE SCENARIOS:
  single-machine:  One 50 L excavator, two refill cycles, under-consumption
  central-tank:    Two machines sharing one refill stream
  empty-machine:   A machine with no events

HOW SCENARIOS WORK:
  1. Reset the store (users are kept)
  2. Create a place and its machinery through the Ledger
  3. Record events through the Ledger

USAGE VIA API (superadmin only):
  POST /api/scenarios/load
  {"scenario_id": "central-tank"}

NOTE:
  Scenarios wipe all fuel data. Only use in development/demo environments.

SEE ALSO:
  - server.go: Route registration
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/warp/fuel-engine/fuel"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	load func(ctx context.Context, h *Handler, month time.Time) error
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "single-machine",
			Name:        "Single Machine",
			Description: "One 50 L excavator with two refill cycles consuming less than refilled",
		},
		load: loadSingleMachineScenario,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "central-tank",
			Name:        "Central Tank",
			Description: "Two machines drawing from one pooled tank with alternating refills",
		},
		load: loadCentralTankScenario,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "empty-machine",
			Name:        "Empty Machine",
			Description: "A registered machine with no fuel events",
		},
		load: loadEmptyMachineScenario,
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, or null.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	s, ok := findScenario(current)
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.ScenarioDTO)
}

// LoadScenario wipes fuel data and loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	h.currentScenario = ""
	if err := h.Store.Reset(ctx); err != nil {
		h.fail(w, r, err, "Failed to reset store")
		return
	}

	now := h.clock.Now().In(h.loc)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, h.loc)
	if err := s.load(ctx, h, month); err != nil {
		h.fail(w, r, err, "Failed to load scenario")
		return
	}
	h.currentScenario = s.ID

	hlog.FromRequest(r).Info().Str("scenario", s.ID).Msg("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Scenario loaded",
		"scenario": s.ScenarioDTO,
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

type scenarioEvent struct {
	machine int // index into the created machines
	day     int
	litres  int64
	typ     fuel.EventType
}

func seedScenario(ctx context.Context, h *Handler, month time.Time, machines []fuel.Machinery, events []scenarioEvent) error {
	place, err := h.Ledger.CreatePlace(ctx, fuel.Place{
		Name:        "Main Quarry",
		Location:    "North Site",
		Description: "Demo site",
	})
	if err != nil {
		return fmt.Errorf("create place: %w", err)
	}

	ids := make([]fuel.MachineryID, len(machines))
	for i, m := range machines {
		m.PlaceID = &place.ID
		created, err := h.Ledger.CreateMachinery(ctx, m)
		if err != nil {
			return fmt.Errorf("create machinery %q: %w", m.Name, err)
		}
		ids[i] = created.ID
	}

	for _, e := range events {
		_, err := h.Ledger.RecordEvent(ctx, fuel.NewEvent{
			MachineryID: ids[e.machine],
			OccurredAt:  month.AddDate(0, 0, e.day-1).Add(8 * time.Hour),
			Litres:      fuel.NewLitresFromInt(e.litres),
			Type:        e.typ,
		})
		if err != nil {
			return fmt.Errorf("record event: %w", err)
		}
	}
	return nil
}

func loadSingleMachineScenario(ctx context.Context, h *Handler, month time.Time) error {
	return seedScenario(ctx, h, month,
		[]fuel.Machinery{
			{Name: "Excavator M", Type: "excavator", Capacity: fuel.NewLitresFromInt(50)},
		},
		[]scenarioEvent{
			{0, 1, 50, fuel.EventRefill},
			{0, 2, 20, fuel.EventConsumption},
			{0, 3, 10, fuel.EventConsumption},
			{0, 4, 50, fuel.EventRefill},
			{0, 5, 15, fuel.EventConsumption},
		})
}

func loadCentralTankScenario(ctx context.Context, h *Handler, month time.Time) error {
	return seedScenario(ctx, h, month,
		[]fuel.Machinery{
			{Name: "Truck X", Type: "truck", Capacity: fuel.NewLitresFromInt(300)},
			{Name: "Loader Y", Type: "loader", Capacity: fuel.NewLitresFromInt(300)},
		},
		[]scenarioEvent{
			{0, 1, 200, fuel.EventRefill},
			{0, 2, 40, fuel.EventConsumption},
			{1, 3, 60, fuel.EventConsumption},
			{1, 4, 150, fuel.EventRefill},
			{0, 5, 30, fuel.EventConsumption},
			{1, 6, 20, fuel.EventConsumption},
		})
}

func loadEmptyMachineScenario(ctx context.Context, h *Handler, month time.Time) error {
	return seedScenario(ctx, h, month,
		[]fuel.Machinery{
			{Name: "Generator G", Type: "generator", Capacity: fuel.NewLitresFromInt(100)},
		},
		nil)
}
