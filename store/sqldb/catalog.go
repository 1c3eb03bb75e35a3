package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/warp/fuel-engine/fuel"
)

// =============================================================================
// MACHINERY STORE (fuel.MachineryStore interface)
// =============================================================================

const selectMachinery = `
	SELECT m.id, m.name, m.type, m.place_id, m.capacity, m.description, m.created_at,
	       p.name AS place_name, p.location AS place_location
	FROM machinery m
	LEFT JOIN places p ON p.id = m.place_id
`

type machineryRow struct {
	ID            int64          `db:"id"`
	Name          string         `db:"name"`
	Type          sql.NullString `db:"type"`
	PlaceID       sql.NullInt64  `db:"place_id"`
	Capacity      sql.NullString `db:"capacity"`
	Description   sql.NullString `db:"description"`
	CreatedAt     string         `db:"created_at"`
	PlaceName     sql.NullString `db:"place_name"`
	PlaceLocation sql.NullString `db:"place_location"`
}

func (r machineryRow) toMachinery() fuel.Machinery {
	m := fuel.Machinery{
		ID:            fuel.MachineryID(r.ID),
		Name:          r.Name,
		Type:          r.Type.String,
		Capacity:      fuel.ParseLitres(r.Capacity.String),
		Description:   r.Description.String,
		CreatedAt:     parseTime(r.CreatedAt),
		PlaceName:     r.PlaceName.String,
		PlaceLocation: r.PlaceLocation.String,
	}
	if r.PlaceID.Valid {
		id := fuel.PlaceID(r.PlaceID.Int64)
		m.PlaceID = &id
	}
	return m
}

func placeArg(id *fuel.PlaceID) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

func (s *Store) selectMachinery(ctx context.Context, where string, args ...any) ([]fuel.Machinery, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []machineryRow
	query := selectMachinery + where + " ORDER BY m.created_at DESC, m.id DESC"
	if err := sqlscan.Select(ctx, s.db, &rows, s.dialect.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list machinery: %w", err)
	}
	result := make([]fuel.Machinery, len(rows))
	for i, r := range rows {
		result[i] = r.toMachinery()
	}
	return result, nil
}

func (s *Store) GetMachinery(ctx context.Context, id fuel.MachineryID) (*fuel.Machinery, error) {
	ms, err := s.selectMachinery(ctx, " WHERE m.id = ?", int64(id))
	if err != nil || len(ms) == 0 {
		return nil, err
	}
	return &ms[0], nil
}

func (s *Store) ListMachinery(ctx context.Context) ([]fuel.Machinery, error) {
	return s.selectMachinery(ctx, "")
}

func (s *Store) ListMachineryByPlace(ctx context.Context, placeID fuel.PlaceID) ([]fuel.Machinery, error) {
	return s.selectMachinery(ctx, " WHERE m.place_id = ?", int64(placeID))
}

func (s *Store) InsertMachinery(ctx context.Context, m fuel.Machinery) (fuel.MachineryID, error) {
	id, err := s.insert(ctx, `
		INSERT INTO machinery (name, type, place_id, capacity, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.Name,
		nullString(m.Type),
		placeArg(m.PlaceID),
		nullLitres(m.Capacity),
		nullString(m.Description),
		s.dialect.timeArg(s.now()),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fuel.ErrPlaceNotFound
		}
		return 0, fmt.Errorf("failed to insert machinery: %w", err)
	}
	return fuel.MachineryID(id), nil
}

func (s *Store) UpdateMachinery(ctx context.Context, m fuel.Machinery) (int64, error) {
	n, err := s.exec(ctx, `
		UPDATE machinery SET name = ?, type = ?, place_id = ?, capacity = ?, description = ?
		WHERE id = ?`,
		m.Name,
		nullString(m.Type),
		placeArg(m.PlaceID),
		nullLitres(m.Capacity),
		nullString(m.Description),
		int64(m.ID),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fuel.ErrPlaceNotFound
		}
		return 0, fmt.Errorf("failed to update machinery: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteMachinery(ctx context.Context, id fuel.MachineryID) (int64, error) {
	n, err := s.exec(ctx, "DELETE FROM machinery WHERE id = ?", int64(id))
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fuel.ErrInUse
		}
		return 0, fmt.Errorf("failed to delete machinery: %w", err)
	}
	return n, nil
}

// =============================================================================
// PLACE STORE (fuel.PlaceStore interface)
// =============================================================================

type placeRow struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Location    sql.NullString `db:"location"`
	Description sql.NullString `db:"description"`
	CreatedAt   string         `db:"created_at"`
}

func (r placeRow) toPlace() fuel.Place {
	return fuel.Place{
		ID:          fuel.PlaceID(r.ID),
		Name:        r.Name,
		Location:    r.Location.String,
		Description: r.Description.String,
		CreatedAt:   parseTime(r.CreatedAt),
	}
}

func (s *Store) selectPlaces(ctx context.Context, where string, args ...any) ([]fuel.Place, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []placeRow
	query := "SELECT id, name, location, description, created_at FROM places" + where + " ORDER BY created_at DESC, id DESC"
	if err := sqlscan.Select(ctx, s.db, &rows, s.dialect.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	result := make([]fuel.Place, len(rows))
	for i, r := range rows {
		result[i] = r.toPlace()
	}
	return result, nil
}

func (s *Store) GetPlace(ctx context.Context, id fuel.PlaceID) (*fuel.Place, error) {
	ps, err := s.selectPlaces(ctx, " WHERE id = ?", int64(id))
	if err != nil || len(ps) == 0 {
		return nil, err
	}
	return &ps[0], nil
}

func (s *Store) ListPlaces(ctx context.Context) ([]fuel.Place, error) {
	return s.selectPlaces(ctx, "")
}

func (s *Store) InsertPlace(ctx context.Context, p fuel.Place) (fuel.PlaceID, error) {
	id, err := s.insert(ctx, `
		INSERT INTO places (name, location, description, created_at)
		VALUES (?, ?, ?, ?)`,
		p.Name,
		nullString(p.Location),
		nullString(p.Description),
		s.dialect.timeArg(s.now()),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert place: %w", err)
	}
	return fuel.PlaceID(id), nil
}

func (s *Store) UpdatePlace(ctx context.Context, p fuel.Place) (int64, error) {
	n, err := s.exec(ctx, "UPDATE places SET name = ?, location = ?, description = ? WHERE id = ?",
		p.Name, nullString(p.Location), nullString(p.Description), int64(p.ID))
	if err != nil {
		return 0, fmt.Errorf("failed to update place: %w", err)
	}
	return n, nil
}

func (s *Store) DeletePlace(ctx context.Context, id fuel.PlaceID) (int64, error) {
	n, err := s.exec(ctx, "DELETE FROM places WHERE id = ?", int64(id))
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fuel.ErrInUse
		}
		return 0, fmt.Errorf("failed to delete place: %w", err)
	}
	return n, nil
}
