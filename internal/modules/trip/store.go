// README: Trip store backed by PostgreSQL.
package trip

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nest/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) CreateTrip(ctx context.Context, d *TripDetail) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t := d.Trip
	if _, err := tx.Exec(ctx, `
		INSERT INTO trips (
			id, user_id, title, destination, start_date, end_date,
			cover_image, video_url, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.UserID, t.Title, t.Destination, t.StartDate, t.EndDate,
		t.CoverImage, t.VideoURL, string(t.Status), t.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}

	for _, day := range d.Days {
		if _, err := tx.Exec(ctx, `
			INSERT INTO days (id, trip_id, date, day_number, notes)
			VALUES ($1, $2, $3, $4, $5)`,
			day.ID, day.TripID, day.Date, day.DayNumber, day.Notes,
		); err != nil {
			return fmt.Errorf("insert day %d: %w", day.DayNumber, err)
		}
		for _, a := range day.Activities {
			if err := insertActivity(ctx, tx, &a); err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

func insertActivity(ctx context.Context, tx pgx.Tx, a *Activity) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO activities (
			id, day_id, trip_id, title, time, location,
			cost, category, notes, is_booked, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.DayID, a.TripID, a.Title, a.Time, a.Location,
		a.Cost, string(a.Category), a.Notes, a.IsBooked, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

const tripColumns = `id, user_id, title, destination, start_date, end_date,
	cover_image, video_url, status, created_at`

func scanTrip(row pgx.Row) (*Trip, error) {
	var t Trip
	var status string
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Destination, &t.StartDate, &t.EndDate,
		&t.CoverImage, &t.VideoURL, &status, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Status = Status(status)
	return &t, nil
}

// validID keeps malformed ids from reaching the uuid columns as SQL errors.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *Store) GetTrip(ctx context.Context, id string) (*Trip, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	return scanTrip(s.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id))
}

func (s *Store) ListTrips(ctx context.Context, userID string) ([]Trip, error) {
	rows, err := s.db.Query(ctx, `SELECT `+tripColumns+` FROM trips WHERE user_id = $1 ORDER BY start_date`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trips := []Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *t)
	}
	return trips, rows.Err()
}

func (s *Store) ListDays(ctx context.Context, tripID string) ([]Day, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, trip_id, date, day_number, notes
		FROM days WHERE trip_id = $1 ORDER BY date, day_number`, tripID)
	if err != nil {
		return nil, err
	}
	var days []Day
	index := map[string]int{}
	for rows.Next() {
		var d Day
		if err := rows.Scan(&d.ID, &d.TripID, &d.Date, &d.DayNumber, &d.Notes); err != nil {
			rows.Close()
			return nil, err
		}
		d.Activities = []Activity{}
		index[d.ID] = len(days)
		days = append(days, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	arows, err := s.db.Query(ctx, `
		SELECT `+activityColumns+`
		FROM activities WHERE trip_id = $1 ORDER BY time, created_at`, tripID)
	if err != nil {
		return nil, err
	}
	defer arows.Close()
	for arows.Next() {
		a, err := scanActivity(arows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[a.DayID]; ok {
			days[i].Activities = append(days[i].Activities, *a)
		}
	}
	if err := arows.Err(); err != nil {
		return nil, err
	}
	sortDays(days)
	return days, nil
}

const activityColumns = `id, day_id, trip_id, title, time, location,
	cost::float8, category, notes, is_booked, created_at`

func scanActivity(row pgx.Row) (*Activity, error) {
	var a Activity
	var category string
	err := row.Scan(&a.ID, &a.DayID, &a.TripID, &a.Title, &a.Time, &a.Location,
		&a.Cost, &category, &a.Notes, &a.IsBooked, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Category = types.Category(category)
	return &a, nil
}

func (s *Store) CreateActivity(ctx context.Context, a *Activity) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := insertActivity(ctx, tx, a); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) GetActivity(ctx context.Context, id string) (*Activity, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	return scanActivity(s.db.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id))
}

func (s *Store) DeleteActivity(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetBooked(ctx context.Context, id string, booked bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE activities SET is_booked = $1 WHERE id = $2`, booked, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdateCover(ctx context.Context, tripID, cover string) error {
	tag, err := s.db.Exec(ctx, `UPDATE trips SET cover_image = $1 WHERE id = $2`, cover, tripID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, tripID string, status Status) error {
	tag, err := s.db.Exec(ctx, `UPDATE trips SET status = $1 WHERE id = $2`, string(status), tripID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
