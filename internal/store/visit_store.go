package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/segmentio/ksuid"
)

const maxPathLen = 512

// Visit is one public page view.
type Visit struct {
	VisitorID string
	Path      string
	VisitedAt time.Time // zero means now
}

// MonthCount is the number of visits in one calendar month (UTC).
type MonthCount struct {
	Month time.Time
	Count int64
}

// Label returns the short month name, e.g. "Jan".
func (m MonthCount) Label() string { return m.Month.Format("Jan") }

// VisitStore is the sqlx-backed store for page visits.
type VisitStore struct {
	db *sqlx.DB
}

// NewVisitStore creates a new VisitStore.
func NewVisitStore(db *sqlx.DB) *VisitStore {
	return &VisitStore{db: db}
}

// q rebinds ? placeholders to the driver's native format.
func (s *VisitStore) q(query string) string { return s.db.Rebind(query) }

// RecordVisit inserts a visit row.
func (s *VisitStore) RecordVisit(ctx context.Context, v Visit) error {
	at := v.VisitedAt
	if at.IsZero() {
		at = time.Now()
	}
	path := v.Path
	if len(path) > maxPathLen {
		path = path[:maxPathLen]
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO visits (id, visitor_id, path, visited_at)
		VALUES (?, ?, ?, ?)
	`), ksuid.New().String(), v.VisitorID, path, at.UTC())
	return err
}

// CountTotal returns the number of recorded visits.
func (s *VisitStore) CountTotal(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM visits`)
	return n, err
}

// CountVisitors returns the number of distinct visitor cookies seen.
func (s *VisitStore) CountVisitors(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(DISTINCT visitor_id) FROM visits`)
	return n, err
}

// MonthlyCounts returns visit counts for the given number of calendar months
// ending with the month containing now, oldest first. Months without visits
// are included with a zero count.
func (s *VisitStore) MonthlyCounts(ctx context.Context, now time.Time, months int) ([]MonthCount, error) {
	if months <= 0 {
		return nil, nil
	}
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	var stamps []time.Time
	err := s.db.SelectContext(ctx, &stamps,
		s.q(`SELECT visited_at FROM visits WHERE visited_at >= ?`), first)
	if err != nil {
		return nil, err
	}

	out := make([]MonthCount, months)
	for i := range out {
		out[i].Month = first.AddDate(0, i, 0)
	}
	for _, ts := range stamps {
		ts = ts.UTC()
		idx := (ts.Year()-first.Year())*12 + int(ts.Month()) - int(first.Month())
		if idx >= 0 && idx < months {
			out[idx].Count++
		}
	}
	return out, nil
}
