package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")
)

// VisitStoreIface exposes the page visit operations used by the site and
// dashboard handlers.
type VisitStoreIface interface {
	RecordVisit(ctx context.Context, v Visit) error
	CountTotal(ctx context.Context) (int64, error)
	CountVisitors(ctx context.Context) (int64, error)
	MonthlyCounts(ctx context.Context, now time.Time, months int) ([]MonthCount, error)
}
