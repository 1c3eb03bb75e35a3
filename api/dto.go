/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model in fuel/ from the external API contract, so the JSON
  field names the web client already uses can stay fixed while the domain
  evolves.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

FIELD NAMES:
  Rows (events, machinery, places, summaries) use snake_case. The tank
  analyses use camelCase (tankCycles, centralTank, machinerySummary), which
  is what the analysis views consume.

NUMBERS:
  Litres travel as decimal.Decimal inside the engine and are converted to
  float64 here, so JSON stays numeric. Requests accept litres either as a
  JSON number or a numeric string.

VALIDATION:
  Validation is done in handlers and fuel.Ledger, not in DTOs. DTOs are pure
  data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - fuel/analysis.go: Analysis result types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/fuel-engine/fuel"
)

// =============================================================================
// EVENTS
// =============================================================================

// EventDTO is one fuel event joined with its machine and place.
type EventDTO struct {
	ID            int64   `json:"id"`
	MachineryID   int64   `json:"machinery_id"`
	Date          string  `json:"date"`
	Litres        float64 `json:"litres"`
	Type          string  `json:"type"`
	Notes         string  `json:"notes,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
	MachineryName string  `json:"machinery_name,omitempty"`
	MachineryType string  `json:"machinery_type,omitempty"`
	PlaceName     string  `json:"place_name,omitempty"`
	PlaceLocation string  `json:"place_location,omitempty"`
}

// CreateEventRequest is the request to record an event.
type CreateEventRequest struct {
	MachineryID int64            `json:"machinery_id"`
	Date        string           `json:"date"`
	Litres      *decimal.Decimal `json:"litres"`
	Type        string           `json:"type"`
	Notes       string           `json:"notes"`
}

// UpdateEventRequest changes only the fields present in the body.
type UpdateEventRequest struct {
	MachineryID *int64           `json:"machinery_id"`
	Date        *string          `json:"date"`
	Litres      *decimal.Decimal `json:"litres"`
	Type        *string          `json:"type"`
	Notes       *string          `json:"notes"`
}

// PaginationDTO describes one page of a listing.
type PaginationDTO struct {
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
	TotalRecords int `json:"total_records"`
	PerPage      int `json:"per_page"`
}

// EventListResponse wraps a page of events.
type EventListResponse struct {
	Data       []EventDTO    `json:"data"`
	Pagination PaginationDTO `json:"pagination"`
}

// DailySummaryDTO is one (day, machine, type) aggregate.
type DailySummaryDTO struct {
	Date          string  `json:"date"`
	MachineryID   int64   `json:"machinery_id"`
	MachineryName string  `json:"machinery_name"`
	MachineryType string  `json:"machinery_type"`
	PlaceName     string  `json:"place_name"`
	Type          string  `json:"type"`
	TotalLitres   float64 `json:"total_litres"`
	RecordCount   int     `json:"record_count"`
}

// MonthlySummaryDTO is one (month, machine, type) aggregate.
type MonthlySummaryDTO struct {
	Month          string  `json:"month"`
	MachineryID    int64   `json:"machinery_id"`
	MachineryName  string  `json:"machinery_name"`
	MachineryType  string  `json:"machinery_type"`
	PlaceName      string  `json:"place_name"`
	Type           string  `json:"type"`
	TotalLitres    float64 `json:"total_litres"`
	RecordCount    int     `json:"record_count"`
	AvgDailyLitres float64 `json:"avg_daily_litres"`
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// MachineryDTO represents a machine in API responses.
type MachineryDTO struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	PlaceID       *int64  `json:"place_id"`
	Capacity      float64 `json:"capacity"`
	Description   string  `json:"description,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
	PlaceName     string  `json:"place_name,omitempty"`
	PlaceLocation string  `json:"place_location,omitempty"`
}

// MachineryRequest creates or replaces a machine.
type MachineryRequest struct {
	Name        string           `json:"name"`
	Type        string           `json:"type"`
	PlaceID     *int64           `json:"place_id"`
	Capacity    *decimal.Decimal `json:"capacity"`
	Description string           `json:"description"`
}

// PlaceDTO represents a place in API responses.
type PlaceDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// PlaceRequest creates or replaces a place.
type PlaceRequest struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// =============================================================================
// TANK ANALYSIS
// =============================================================================

// StatisticsDTO summarizes all cycles of an analysis.
type StatisticsDTO struct {
	TotalRefills                 int     `json:"totalRefills"`
	TotalConsumption             float64 `json:"totalConsumption"`
	TotalRefillAmount            float64 `json:"totalRefillAmount"`
	OverallDiscrepancy           float64 `json:"overallDiscrepancy"`
	OverallDiscrepancyPercentage float64 `json:"overallDiscrepancyPercentage"`
	AverageDiscrepancy           float64 `json:"averageDiscrepancy"`
	AverageDiscrepancyPercentage float64 `json:"averageDiscrepancyPercentage"`
}

// TankCycleDTO is one refill-to-refill cycle.
type TankCycleDTO struct {
	StartDate             string     `json:"startDate"`
	EndDate               *string    `json:"endDate"`
	RefillAmount          float64    `json:"refillAmount"`
	ConsumptionAmount     float64    `json:"consumptionAmount"`
	ExpectedConsumption   float64    `json:"expectedConsumption"`
	ActualConsumption     float64    `json:"actualConsumption"`
	Discrepancy           float64    `json:"discrepancy"`
	DiscrepancyPercentage float64    `json:"discrepancyPercentage"`
	Entries               []EventDTO `json:"entries"`
}

// TankMachineryDTO is the machine header of a tank analysis.
type TankMachineryDTO struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Capacity  float64 `json:"capacity"`
	PlaceName string  `json:"place_name"`
}

// TankAnalysisDTO is the per-machine analysis.
type TankAnalysisDTO struct {
	Machinery                  TankMachineryDTO `json:"machinery"`
	TankCapacity               float64          `json:"tankCapacity"`
	CurrentTankLevel           float64          `json:"currentTankLevel"`
	LastRefillDate             *string          `json:"lastRefillDate"`
	LastRefillAmount           float64          `json:"lastRefillAmount"`
	ConsumptionSinceLastRefill float64          `json:"consumptionSinceLastRefill"`
	RemainingCapacity          float64          `json:"remainingCapacity"`
	TankCycles                 []TankCycleDTO   `json:"tankCycles"`
	Statistics                 StatisticsDTO    `json:"statistics"`
}

// CentralTankStatusDTO is the pooled tank status.
type CentralTankStatusDTO struct {
	LastRefillDate             *string `json:"lastRefillDate"`
	LastRefillAmount           float64 `json:"lastRefillAmount"`
	CurrentTankLevel           float64 `json:"currentTankLevel"`
	ConsumptionSinceLastRefill float64 `json:"consumptionSinceLastRefill"`
	RemainingCapacity          float64 `json:"remainingCapacity"`
}

// MachineryShareDTO is one machine's consumption within a central cycle.
type MachineryShareDTO struct {
	MachineryName string  `json:"machinery_name"`
	MachineryType string  `json:"machinery_type"`
	PlaceName     string  `json:"place_name"`
	Consumption   float64 `json:"consumption"`
}

// CentralTankCycleDTO is a pooled cycle with its per-machine breakdown.
type CentralTankCycleDTO struct {
	TankCycleDTO
	TotalConsumption     float64                     `json:"totalConsumption"`
	MachineryConsumption map[int64]MachineryShareDTO `json:"machineryConsumption"`
}

// MachinerySummaryDTO is one machine's totals over the analyzed range.
type MachinerySummaryDTO struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	PlaceName        string  `json:"place_name"`
	Capacity         float64 `json:"capacity"`
	TotalConsumption float64 `json:"totalConsumption"`
	RefillCount      int     `json:"refillCount"`
	CurrentLevel     float64 `json:"currentLevel"`
}

// CentralTankAnalysisDTO is the pooled analysis across all machines.
type CentralTankAnalysisDTO struct {
	CentralTank       CentralTankStatusDTO  `json:"centralTank"`
	CentralTankCycles []CentralTankCycleDTO `json:"centralTankCycles"`
	MachinerySummary  []MachinerySummaryDTO `json:"machinerySummary"`
	Statistics        StatisticsDTO         `json:"statistics"`
}

// =============================================================================
// AUTH
// =============================================================================

// RegisterRequest creates an account.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest authenticates by email or username.
type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserDTO is the public view of an account.
type UserDTO struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Message string  `json:"message"`
	Token   string  `json:"token"`
	User    UserDTO `json:"user"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// FieldErrorDTO is one failed field of a validation error.
type FieldErrorDTO struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Details any             `json:"details,omitempty"`
	Errors  []FieldErrorDTO `json:"errors,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func f64(d decimal.Decimal) float64 { return d.InexactFloat64() }

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(time.RFC3339)
}

func formatTimePtr(t *time.Time, loc *time.Location) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t, loc)
	return &s
}

func toEventDTO(e fuel.EventDetail, loc *time.Location) EventDTO {
	return EventDTO{
		ID:            int64(e.ID),
		MachineryID:   int64(e.MachineryID),
		Date:          formatTime(e.OccurredAt, loc),
		Litres:        e.Litres.Float64(),
		Type:          string(e.Type),
		Notes:         e.Notes,
		CreatedAt:     formatTime(e.CreatedAt, loc),
		MachineryName: e.MachineryName,
		MachineryType: e.MachineryType,
		PlaceName:     e.PlaceName,
		PlaceLocation: e.PlaceLocation,
	}
}

func toEventDTOs(events []fuel.EventDetail, loc *time.Location) []EventDTO {
	dtos := make([]EventDTO, len(events))
	for i, e := range events {
		dtos[i] = toEventDTO(e, loc)
	}
	return dtos
}

func toMachineryDTO(m fuel.Machinery, loc *time.Location) MachineryDTO {
	dto := MachineryDTO{
		ID:            int64(m.ID),
		Name:          m.Name,
		Type:          m.Type,
		Capacity:      m.Capacity.Float64(),
		Description:   m.Description,
		CreatedAt:     formatTime(m.CreatedAt, loc),
		PlaceName:     m.PlaceName,
		PlaceLocation: m.PlaceLocation,
	}
	if m.PlaceID != nil {
		id := int64(*m.PlaceID)
		dto.PlaceID = &id
	}
	return dto
}

func toPlaceDTO(p fuel.Place, loc *time.Location) PlaceDTO {
	return PlaceDTO{
		ID:          int64(p.ID),
		Name:        p.Name,
		Location:    p.Location,
		Description: p.Description,
		CreatedAt:   formatTime(p.CreatedAt, loc),
	}
}

func toUserDTO(u fuel.User) UserDTO {
	return UserDTO{ID: int64(u.ID), Username: u.Username, Email: u.Email, Role: string(u.Role)}
}

func toStatisticsDTO(s fuel.Statistics) StatisticsDTO {
	return StatisticsDTO{
		TotalRefills:                 s.TotalRefills,
		TotalConsumption:             s.TotalConsumption.Float64(),
		TotalRefillAmount:            s.TotalRefillAmount.Float64(),
		OverallDiscrepancy:           s.OverallDiscrepancy.Float64(),
		OverallDiscrepancyPercentage: f64(s.OverallDiscrepancyPercentage),
		AverageDiscrepancy:           f64(s.AverageDiscrepancy),
		AverageDiscrepancyPercentage: f64(s.AverageDiscrepancyPercentage),
	}
}

func toTankCycleDTO(c fuel.TankCycle, loc *time.Location) TankCycleDTO {
	return TankCycleDTO{
		StartDate:             formatTime(c.StartDate, loc),
		EndDate:               formatTimePtr(c.EndDate, loc),
		RefillAmount:          c.RefillAmount.Float64(),
		ConsumptionAmount:     c.ConsumptionAmount.Float64(),
		ExpectedConsumption:   c.ExpectedConsumption.Float64(),
		ActualConsumption:     c.ActualConsumption().Float64(),
		Discrepancy:           c.Discrepancy.Float64(),
		DiscrepancyPercentage: f64(c.DiscrepancyPercentage),
		Entries:               toEventDTOs(c.Entries, loc),
	}
}

func toTankAnalysisDTO(a *fuel.MachineTankAnalysis, loc *time.Location) TankAnalysisDTO {
	cycles := make([]TankCycleDTO, len(a.Cycles))
	for i, c := range a.Cycles {
		cycles[i] = toTankCycleDTO(c, loc)
	}
	return TankAnalysisDTO{
		Machinery: TankMachineryDTO{
			ID:        int64(a.Machinery.ID),
			Name:      a.Machinery.Name,
			Type:      a.Machinery.Type,
			Capacity:  a.Machinery.Capacity.Float64(),
			PlaceName: a.Machinery.PlaceName,
		},
		TankCapacity:               a.TankCapacity.Float64(),
		CurrentTankLevel:           a.Status.CurrentTankLevel.Float64(),
		LastRefillDate:             formatTimePtr(a.Status.LastRefillDate, loc),
		LastRefillAmount:           a.Status.LastRefillAmount.Float64(),
		ConsumptionSinceLastRefill: a.Status.ConsumptionSinceLastRefill.Float64(),
		RemainingCapacity:          a.RemainingCapacity.Float64(),
		TankCycles:                 cycles,
		Statistics:                 toStatisticsDTO(a.Statistics),
	}
}

func toCentralTankAnalysisDTO(a *fuel.CentralTankAnalysis, loc *time.Location) CentralTankAnalysisDTO {
	cycles := make([]CentralTankCycleDTO, len(a.Cycles))
	for i, c := range a.Cycles {
		shares := make(map[int64]MachineryShareDTO, len(c.MachineryConsumption))
		for id, s := range c.MachineryConsumption {
			shares[int64(id)] = MachineryShareDTO{
				MachineryName: s.MachineryName,
				MachineryType: s.MachineryType,
				PlaceName:     s.PlaceName,
				Consumption:   s.Consumption.Float64(),
			}
		}
		cycles[i] = CentralTankCycleDTO{
			TankCycleDTO:         toTankCycleDTO(c.TankCycle, loc),
			TotalConsumption:     c.ConsumptionAmount.Float64(),
			MachineryConsumption: shares,
		}
	}

	summary := make([]MachinerySummaryDTO, len(a.MachinerySummary))
	for i, m := range a.MachinerySummary {
		summary[i] = MachinerySummaryDTO{
			ID:               int64(m.ID),
			Name:             m.Name,
			Type:             m.Type,
			PlaceName:        m.PlaceName,
			Capacity:         m.Capacity.Float64(),
			TotalConsumption: m.TotalConsumption.Float64(),
			RefillCount:      m.RefillCount,
			CurrentLevel:     m.CurrentLevel.Float64(),
		}
	}

	return CentralTankAnalysisDTO{
		CentralTank: CentralTankStatusDTO{
			LastRefillDate:             formatTimePtr(a.Status.LastRefillDate, loc),
			LastRefillAmount:           a.Status.LastRefillAmount.Float64(),
			CurrentTankLevel:           a.Status.CurrentTankLevel.Float64(),
			ConsumptionSinceLastRefill: a.Status.ConsumptionSinceLastRefill.Float64(),
			RemainingCapacity:          a.RemainingCapacity.Float64(),
		},
		CentralTankCycles: cycles,
		MachinerySummary:  summary,
		Statistics:        toStatisticsDTO(a.Statistics),
	}
}

func toDailyDTOs(rows []fuel.DailySummaryRow) []DailySummaryDTO {
	dtos := make([]DailySummaryDTO, len(rows))
	for i, r := range rows {
		dtos[i] = DailySummaryDTO{
			Date:          r.Date,
			MachineryID:   int64(r.MachineryID),
			MachineryName: r.MachineryName,
			MachineryType: r.MachineryType,
			PlaceName:     r.PlaceName,
			Type:          string(r.Type),
			TotalLitres:   r.TotalLitres.Float64(),
			RecordCount:   r.RecordCount,
		}
	}
	return dtos
}

func toMonthlyDTOs(rows []fuel.MonthlySummaryRow) []MonthlySummaryDTO {
	dtos := make([]MonthlySummaryDTO, len(rows))
	for i, r := range rows {
		dtos[i] = MonthlySummaryDTO{
			Month:          r.Month,
			MachineryID:    int64(r.MachineryID),
			MachineryName:  r.MachineryName,
			MachineryType:  r.MachineryType,
			PlaceName:      r.PlaceName,
			Type:           string(r.Type),
			TotalLitres:    r.TotalLitres.Float64(),
			RecordCount:    r.RecordCount,
			AvgDailyLitres: f64(r.AvgDailyLitres),
		}
	}
	return dtos
}

func toFieldErrors(v fuel.ValidationErrors) []FieldErrorDTO {
	out := make([]FieldErrorDTO, len(v))
	for i, e := range v {
		out[i] = FieldErrorDTO{Field: e.Field, Message: e.Message}
	}
	return out
}
