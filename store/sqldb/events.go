package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/warp/fuel-engine/fuel"
)

// =============================================================================
// EVENT STORE (fuel.EventStore interface)
// =============================================================================

const selectEvents = `
	SELECT e.id, e.machinery_id, e.occurred_at, e.litres, e.type, e.notes, e.created_at,
	       m.name AS machinery_name, m.type AS machinery_type,
	       p.name AS place_name, p.location AS place_location
	FROM fuel_events e
	JOIN machinery m ON m.id = e.machinery_id
	LEFT JOIN places p ON p.id = m.place_id
`

type eventRow struct {
	ID            int64          `db:"id"`
	MachineryID   int64          `db:"machinery_id"`
	OccurredAt    string         `db:"occurred_at"`
	Litres        sql.NullString `db:"litres"`
	Type          string         `db:"type"`
	Notes         sql.NullString `db:"notes"`
	CreatedAt     string         `db:"created_at"`
	MachineryName string         `db:"machinery_name"`
	MachineryType sql.NullString `db:"machinery_type"`
	PlaceName     sql.NullString `db:"place_name"`
	PlaceLocation sql.NullString `db:"place_location"`
}

func (r eventRow) toDetail() fuel.EventDetail {
	return fuel.EventDetail{
		Event: fuel.Event{
			ID:          fuel.EventID(r.ID),
			MachineryID: fuel.MachineryID(r.MachineryID),
			OccurredAt:  parseTime(r.OccurredAt),
			Litres:      fuel.ParseLitres(r.Litres.String),
			Type:        fuel.EventType(r.Type),
			Notes:       r.Notes.String,
			CreatedAt:   parseTime(r.CreatedAt),
		},
		MachineryName: r.MachineryName,
		MachineryType: r.MachineryType.String,
		PlaceName:     r.PlaceName.String,
		PlaceLocation: r.PlaceLocation.String,
	}
}

// buildWhere translates a filter into a WHERE clause with "?" placeholders.
// ListEvents and CountEvents both go through it, so a list page and its
// total always describe the same rows.
func (s *Store) buildWhere(f fuel.EventFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.MachineryID != nil {
		clauses = append(clauses, "e.machinery_id = ?")
		args = append(args, int64(*f.MachineryID))
	}
	if f.Type != nil {
		clauses = append(clauses, "e.type = ?")
		args = append(args, string(*f.Type))
	}
	from, to := f.Bounds()
	if from != nil {
		clauses = append(clauses, "e.occurred_at >= ?")
		args = append(args, s.dialect.timeArg(*from))
	}
	if to != nil {
		clauses = append(clauses, "e.occurred_at < ?")
		args = append(args, s.dialect.timeArg(*to))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) ListEvents(ctx context.Context, q fuel.EventQuery) ([]fuel.EventDetail, error) {
	where, args := s.buildWhere(q.Filter)

	order := " ORDER BY e.occurred_at ASC, e.created_at ASC, e.id ASC"
	if q.Descending {
		order = " ORDER BY e.occurred_at DESC, e.created_at DESC, e.id DESC"
	}
	query := selectEvents + where + order
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []eventRow
	if err := sqlscan.Select(ctx, s.db, &rows, s.dialect.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]fuel.EventDetail, len(rows))
	for i, r := range rows {
		events[i] = r.toDetail()
	}
	return events, nil
}

func (s *Store) CountEvents(ctx context.Context, f fuel.EventFilter) (int, error) {
	where, args := s.buildWhere(f)
	query := "SELECT COUNT(*) FROM fuel_events e" + where

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var n int
	if err := s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

func (s *Store) GetEvent(ctx context.Context, id fuel.EventID) (*fuel.EventDetail, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []eventRow
	query := selectEvents + " WHERE e.id = ?"
	if err := sqlscan.Select(ctx, s.db, &rows, s.dialect.rebind(query), int64(id)); err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	d := rows[0].toDetail()
	return &d, nil
}

func (s *Store) InsertEvent(ctx context.Context, e fuel.NewEvent) (fuel.EventID, error) {
	id, err := s.insert(ctx, `
		INSERT INTO fuel_events (machinery_id, occurred_at, litres, type, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		int64(e.MachineryID),
		s.dialect.timeArg(e.OccurredAt),
		e.Litres.String(),
		string(e.Type),
		nullString(e.Notes),
		s.dialect.timeArg(s.now()),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fuel.ErrMachineryNotFound
		}
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	return fuel.EventID(id), nil
}

func (s *Store) UpdateEvent(ctx context.Context, id fuel.EventID, p fuel.EventPatch) (int64, error) {
	var sets []string
	var args []any
	if p.MachineryID != nil {
		sets = append(sets, "machinery_id = ?")
		args = append(args, int64(*p.MachineryID))
	}
	if p.OccurredAt != nil {
		sets = append(sets, "occurred_at = ?")
		args = append(args, s.dialect.timeArg(*p.OccurredAt))
	}
	if p.Litres != nil {
		sets = append(sets, "litres = ?")
		args = append(args, p.Litres.String())
	}
	if p.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, string(*p.Type))
	}
	if p.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, nullString(*p.Notes))
	}

	if len(sets) == 0 {
		// Nothing to change; still report whether the row exists.
		existing, err := s.GetEvent(ctx, id)
		if err != nil || existing == nil {
			return 0, err
		}
		return 1, nil
	}

	args = append(args, int64(id))
	n, err := s.exec(ctx, "UPDATE fuel_events SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fuel.ErrMachineryNotFound
		}
		return 0, fmt.Errorf("failed to update event: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteEvent(ctx context.Context, id fuel.EventID) (int64, error) {
	n, err := s.exec(ctx, "DELETE FROM fuel_events WHERE id = ?", int64(id))
	if err != nil {
		return 0, fmt.Errorf("failed to delete event: %w", err)
	}
	return n, nil
}
