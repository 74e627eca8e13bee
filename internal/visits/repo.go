package visits

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"animehub/pkg/models"
)

const dateLayout = "2006-01-02"

type Repo struct {
	DB *sql.DB
	// Loc decides where midnight falls. Nil means UTC.
	Loc *time.Location
}

func NewRepo(db *sql.DB, loc *time.Location) *Repo {
	return &Repo{DB: db, Loc: loc}
}

// Day returns the bucket key for t.
func (r *Repo) Day(t time.Time) string {
	loc := r.Loc
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dateLayout)
}

// Increment adds one visit to the bucket of now in a single statement, so
// concurrent callers never lose an update.
func (r *Repo) Increment(ctx context.Context, now time.Time) (models.DailyVisit, error) {
	var v models.DailyVisit
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO daily_visits (date, count)
		VALUES (?, 1)
		ON CONFLICT(date) DO UPDATE SET count = count + 1
		RETURNING date, count
	`, r.Day(now)).Scan(&v.Date, &v.Count)
	if err != nil {
		return models.DailyVisit{}, fmt.Errorf("increment daily visit: %w", err)
	}
	return v, nil
}

// List returns every bucket, oldest first.
func (r *Repo) List(ctx context.Context) ([]models.DailyVisit, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT date, count FROM daily_visits ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("list daily visits: %w", err)
	}
	defer rows.Close()

	out := make([]models.DailyVisit, 0)
	for rows.Next() {
		var v models.DailyVisit
		if err := rows.Scan(&v.Date, &v.Count); err != nil {
			return nil, fmt.Errorf("scan daily visit: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Range returns the buckets between from and to inclusive, oldest first.
func (r *Repo) Range(ctx context.Context, from, to string) ([]models.DailyVisit, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT date, count FROM daily_visits
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("range daily visits: %w", err)
	}
	defer rows.Close()

	out := make([]models.DailyVisit, 0)
	for rows.Next() {
		var v models.DailyVisit
		if err := rows.Scan(&v.Date, &v.Count); err != nil {
			return nil, fmt.Errorf("scan daily visit: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
