/*
handlers.go - HTTP API handlers for the fuel engine

PURPOSE:
  Exposes the fuel engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to fuel.Ledger (writes) and
  fuel.Reporter (reads).

ENDPOINTS:
  Fuel events:
    GET    /api/data                      Paged list (date-scoped by role)
    POST   /api/data                      Record an event
    PUT    /api/data/{id}                 Correct an event (partial)
    DELETE /api/data/{id}                 Delete an event
    GET    /api/data/daily                Daily summary (date-scoped)
    GET    /api/data/monthly              Monthly summary (date-scoped)
    GET    /api/data/export.csv           Scoped events as CSV
    GET    /api/data/export.xlsx          Scoped events as XLSX

  Analyses:
    GET    /api/data/tank-analysis/{machineryID}             Per-machine tank
    GET    /api/data/tank-analysis/{machineryID}/report.pdf  Same, as PDF
    GET    /api/data/central-tank-analysis                   Pooled tank

  Places and machinery: see catalog.go
  Auth: see auth.go
  Scenarios: see scenarios.go

QUERY PARAMETERS:
  page, limit, machinery_id, type, start_date, end_date, date, year, month.
  Dates accept YYYY-MM-DD, YYYY-MM-DDTHH:MM (both in the server timezone)
  or RFC 3339.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Missing token, bad credentials
  - 403: Invalid token, insufficient role
  - 404: Resource not found
  - 409: Delete of a referenced place or machine
  - 503: Store unavailable during an analysis
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/warp/fuel-engine/auth"
	"github.com/warp/fuel-engine/fuel"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Options configures a Handler.
type Options struct {
	// Secret signs login tokens.
	Secret []byte

	// TokenTTL is the lifetime of issued tokens. Defaults to 24h.
	TokenTTL time.Duration

	// Clock drives the date scope and scenario dates. Defaults to the
	// system clock. Tokens always use wall time.
	Clock fuel.Clock

	// Location is the server timezone for dates in and out. Defaults to UTC.
	Location *time.Location

	// Metrics may be nil.
	Metrics *Metrics
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    fuel.Store
	Ledger   *fuel.Ledger
	Reporter *fuel.Reporter
	Metrics  *Metrics

	secret   []byte
	tokenTTL time.Duration
	clock    fuel.Clock
	loc      *time.Location

	// Track currently loaded scenario
	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store fuel.Store, opts Options) *Handler {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := opts.Clock
	if clock == nil {
		clock = fuel.SystemClock{Location: loc}
	}
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Handler{
		Store:    store,
		Ledger:   fuel.NewLedger(store),
		Reporter: fuel.NewReporter(store, store, clock, loc),
		Metrics:  opts.Metrics,
		secret:   opts.Secret,
		tokenTTL: ttl,
		clock:    clock,
		loc:      loc,
	}
}

// pinger is implemented by stores backed by a database connection.
type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports liveness and, when the store supports it, database reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   h.clock.Now().In(h.loc).Format(time.RFC3339),
	})
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

// ListEvents returns one page of events visible to the caller.
// GET /api/data
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	filter, err := h.parseFilter(r)
	if err != nil {
		h.fail(w, r, err, "Invalid query")
		return
	}
	page, err := parsePage(r)
	if err != nil {
		h.fail(w, r, err, "Invalid query")
		return
	}

	result, err := h.Reporter.ListEvents(r.Context(), callerOf(r), filter, page)
	h.Metrics.ObserveAnalysis("list", started, err)
	if err != nil {
		h.fail(w, r, err, "Failed to list fuel events")
		return
	}

	writeJSON(w, http.StatusOK, EventListResponse{
		Data: toEventDTOs(result.Events, h.loc),
		Pagination: PaginationDTO{
			CurrentPage:  result.CurrentPage,
			TotalPages:   result.TotalPages,
			TotalRecords: result.TotalRecords,
			PerPage:      result.PerPage,
		},
	})
}

// CreateEvent records a consumption, refill or maintenance event.
// POST /api/data
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var errs fuel.ValidationErrors
	occurred, err := parseTimestamp(req.Date, h.loc)
	if err != nil {
		errs = append(errs, &fuel.ValidationError{Field: "date", Message: "valid date is required"})
	}
	if req.Litres == nil {
		errs = append(errs, &fuel.ValidationError{Field: "litres", Message: "litres must be a positive number"})
	}
	if err := errs.OrNil(); err != nil {
		h.fail(w, r, err, "Validation failed")
		return
	}

	e, err := h.Ledger.RecordEvent(r.Context(), fuel.NewEvent{
		MachineryID: fuel.MachineryID(req.MachineryID),
		OccurredAt:  occurred,
		Litres:      fuel.Litres{Value: *req.Litres},
		Type:        fuel.EventType(strings.TrimSpace(req.Type)),
		Notes:       req.Notes,
	})
	h.Metrics.ObserveWrite("create", err)
	if err != nil {
		h.fail(w, r, err, "Failed to create fuel event")
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(*e, h.loc))
}

// UpdateEvent applies the fields present in the body.
// PUT /api/data/{id}
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event ID", err)
		return
	}

	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var patch fuel.EventPatch
	if req.MachineryID != nil {
		m := fuel.MachineryID(*req.MachineryID)
		patch.MachineryID = &m
	}
	if req.Date != nil {
		t, err := parseTimestamp(*req.Date, h.loc)
		if err != nil {
			h.fail(w, r, &fuel.ValidationError{Field: "date", Message: "valid date is required"}, "Validation failed")
			return
		}
		patch.OccurredAt = &t
	}
	if req.Litres != nil {
		l := fuel.Litres{Value: *req.Litres}
		patch.Litres = &l
	}
	if req.Type != nil {
		t := fuel.EventType(strings.TrimSpace(*req.Type))
		patch.Type = &t
	}
	patch.Notes = req.Notes

	e, err := h.Ledger.UpdateEvent(r.Context(), fuel.EventID(id), patch)
	h.Metrics.ObserveWrite("update", err)
	if err != nil {
		h.fail(w, r, err, "Failed to update fuel event")
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(*e, h.loc))
}

// DeleteEvent removes an event.
// DELETE /api/data/{id}
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event ID", err)
		return
	}

	err = h.Ledger.DeleteEvent(r.Context(), fuel.EventID(id))
	h.Metrics.ObserveWrite("delete", err)
	if err != nil {
		h.fail(w, r, err, "Failed to delete fuel event")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Fuel event deleted successfully"})
}

// =============================================================================
// SUMMARY HANDLERS
// =============================================================================

// DailySummary groups scoped events by day, machine and type.
// GET /api/data/daily
func (h *Handler) DailySummary(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	filter, err := h.parseFilter(r)
	if err != nil {
		h.fail(w, r, err, "Invalid query")
		return
	}
	rows, err := h.Reporter.DailySummary(r.Context(), callerOf(r), filter)
	h.Metrics.ObserveAnalysis("daily", started, err)
	if err != nil {
		h.fail(w, r, err, "Failed to build daily summary")
		return
	}
	writeJSON(w, http.StatusOK, toDailyDTOs(rows))
}

// MonthlySummary groups scoped events by month, machine and type.
// GET /api/data/monthly
func (h *Handler) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	filter, err := h.parseFilter(r)
	if err != nil {
		h.fail(w, r, err, "Invalid query")
		return
	}
	rows, err := h.Reporter.MonthlySummary(r.Context(), callerOf(r), filter)
	h.Metrics.ObserveAnalysis("monthly", started, err)
	if err != nil {
		h.fail(w, r, err, "Failed to build monthly summary")
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyDTOs(rows))
}

// =============================================================================
// ANALYSIS HANDLERS
// =============================================================================

func (h *Handler) machineAnalysis(w http.ResponseWriter, r *http.Request, kind string) (*fuel.MachineTankAnalysis, bool) {
	started := time.Now()
	id, err := pathID(r, "machineryID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid machinery ID", err)
		return nil, false
	}
	rng, err := h.parseRange(r)
	if err != nil {
		h.fail(w, r, err, "Invalid query")
		return nil, false
	}

	a, err := h.Reporter.MachineTankAnalysis(r.Context(), fuel.MachineryID(id), rng)
	h.Metrics.ObserveAnalysis(kind, started, err)
	if err != nil {
		h.fail(w, r, err, "Failed to analyze tank")
		return nil, false
	}
	return a, true
}

// TankAnalysis reconstructs one machine's tank cycles.
// GET /api/data/tank-analysis/{machineryID}
func (h *Handler) TankAnalysis(w http.ResponseWriter, r *http.Request) {
	a, ok := h.machineAnalysis(w, r, "tank")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toTankAnalysisDTO(a, h.loc))
}

// TankReportPDF renders the tank analysis as a PDF download.
// GET /api/data/tank-analysis/{machineryID}/report.pdf
func (h *Handler) TankReportPDF(w http.ResponseWriter, r *http.Request) {
	a, ok := h.machineAnalysis(w, r, "tank_pdf")
	if !ok {
		return
	}
	body, err := BuildTankReportPDF(a, h.loc, h.clock.Now())
	if err != nil {
		h.fail(w, r, err, "Failed to render report")
		return
	}
	h.Metrics.ObserveExport("pdf")
	writeFile(w, "application/pdf", "tank-analysis-"+chi.URLParam(r, "machineryID")+".pdf", body)
}

// CentralTankAnalysis pools all machines into one virtual tank.
// GET /api/data/central-tank-analysis
func (h *Handler) CentralTankAnalysis(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	rng, err := h.parseRange(r)
	if err != nil {
		h.fail(w, r, err, "Invalid query")
		return
	}
	a, err := h.Reporter.CentralTankAnalysis(r.Context(), rng)
	h.Metrics.ObserveAnalysis("central", started, err)
	if err != nil {
		h.fail(w, r, err, "Failed to analyze central tank")
		return
	}
	writeJSON(w, http.StatusOK, toCentralTankAnalysisDTO(a, h.loc))
}

// =============================================================================
// EXPORT HANDLERS
// =============================================================================

func (h *Handler) scopedEvents(w http.ResponseWriter, r *http.Request) ([]fuel.EventDetail, bool) {
	started := time.Now()
	filter, err := h.parseFilter(r)
	if err != nil {
		h.fail(w, r, err, "Invalid query")
		return nil, false
	}
	events, err := h.Reporter.ScopedEvents(r.Context(), callerOf(r), filter)
	h.Metrics.ObserveAnalysis("export", started, err)
	if err != nil {
		h.fail(w, r, err, "Failed to export fuel events")
		return nil, false
	}
	return events, true
}

// ExportCSV downloads the scoped event list as CSV.
// GET /api/data/export.csv
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	events, ok := h.scopedEvents(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="fuel-events.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := WriteEventsCSV(w, events, h.loc); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("csv export interrupted")
		return
	}
	h.Metrics.ObserveExport("csv")
}

// ExportXLSX downloads the scoped event list as a spreadsheet.
// GET /api/data/export.xlsx
func (h *Handler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	events, ok := h.scopedEvents(w, r)
	if !ok {
		return
	}
	body, err := BuildEventsXLSX(events, h.loc)
	if err != nil {
		h.fail(w, r, err, "Failed to render spreadsheet")
		return
	}
	h.Metrics.ObserveExport("xlsx")
	writeFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "fuel-events.xlsx", body)
}

// =============================================================================
// REQUEST PARSING
// =============================================================================

func callerOf(r *http.Request) fuel.Caller {
	c, _ := auth.CallerFromContext(r.Context())
	return c
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

var timestampLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTimestamp reads RFC 3339, or a local date/datetime in loc.
func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date " + strconv.Quote(s))
}

// parseRange reads start_date and end_date.
func (h *Handler) parseRange(r *http.Request) (fuel.DateRange, error) {
	var errs fuel.ValidationErrors
	rng := h.rangeFrom(r.URL.Query(), &errs)
	return rng, errs.OrNil()
}

func (h *Handler) rangeFrom(q url.Values, errs *fuel.ValidationErrors) fuel.DateRange {
	var rng fuel.DateRange
	if s := q.Get("start_date"); s != "" {
		t, err := parseTimestamp(s, h.loc)
		if err != nil {
			*errs = append(*errs, &fuel.ValidationError{Field: "start_date", Message: err.Error()})
		} else {
			rng.From = &t
		}
	}
	if s := q.Get("end_date"); s != "" {
		t, err := parseTimestamp(s, h.loc)
		if err != nil {
			*errs = append(*errs, &fuel.ValidationError{Field: "end_date", Message: err.Error()})
		} else {
			rng.To = &t
		}
	}
	if rng.From != nil && rng.To != nil && rng.To.Before(*rng.From) {
		*errs = append(*errs, &fuel.ValidationError{Field: "end_date", Message: "end_date is before start_date"})
	}
	return rng
}

// parseFilter reads every event filter parameter.
func (h *Handler) parseFilter(r *http.Request) (fuel.EventFilter, error) {
	q := r.URL.Query()
	var errs fuel.ValidationErrors
	rng := h.rangeFrom(q, &errs)

	f := fuel.EventFilter{Range: rng, Location: h.loc}

	if s := q.Get("machinery_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id < 1 {
			errs = append(errs, &fuel.ValidationError{Field: "machinery_id", Message: "valid machinery ID is required"})
		} else {
			m := fuel.MachineryID(id)
			f.MachineryID = &m
		}
	}
	if s := q.Get("type"); s != "" {
		t, ok := fuel.ParseEventType(s)
		if !ok {
			errs = append(errs, &fuel.ValidationError{Field: "type", Message: "type must be consumption, refill, or maintenance"})
		} else {
			f.Type = &t
		}
	}
	if s := q.Get("date"); s != "" {
		t, err := parseTimestamp(s, h.loc)
		if err != nil {
			errs = append(errs, &fuel.ValidationError{Field: "date", Message: err.Error()})
		} else {
			f.Day = &t
		}
	}
	if s := q.Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1 || y > 9999 {
			errs = append(errs, &fuel.ValidationError{Field: "year", Message: "year must be between 1 and 9999"})
		} else {
			f.Year = y
		}
	}
	if s := q.Get("month"); s != "" {
		m, err := strconv.Atoi(s)
		if err != nil || m < 1 || m > 12 {
			errs = append(errs, &fuel.ValidationError{Field: "month", Message: "month must be between 1 and 12"})
		} else {
			f.Month = time.Month(m)
		}
	}
	return f, errs.OrNil()
}

func parsePage(r *http.Request) (fuel.Page, error) {
	q := r.URL.Query()
	var p fuel.Page
	var errs fuel.ValidationErrors
	if s := q.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			errs = append(errs, &fuel.ValidationError{Field: "page", Message: "page must be a positive integer"})
		}
		p.Number = n
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > fuel.MaxPageSize {
			errs = append(errs, &fuel.ValidationError{Field: "limit", Message: "limit must be between 1 and " + strconv.Itoa(fuel.MaxPageSize)})
		}
		p.Size = n
	}
	return p, errs.OrNil()
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeFile(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, fuel.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case fuel.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, fuel.ErrInUse):
		return http.StatusConflict
	case fuel.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, fuel.ErrAnalysisUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status it maps to. Server-side causes are logged
// and not echoed to the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Int("status", status).Msg(message)
		writeError(w, status, message, nil)
		return
	}

	var verrs fuel.ValidationErrors
	var verr *fuel.ValidationError
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, status, ErrorResponse{Error: message, Errors: toFieldErrors(verrs)})
	case errors.As(err, &verr):
		writeJSON(w, status, ErrorResponse{Error: message, Errors: toFieldErrors(fuel.ValidationErrors{verr})})
	default:
		writeError(w, status, message, err)
	}
}
