package health

import (
	"context"
	"time"

	"logistics-backend/internal/shared/storage/object"
)

// healthKey is looked up to confirm the store answers; it is never written.
const healthKey = ".healthz"

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	DB      Pinger
	Stores  map[string]object.ObjectStore
	Timeout time.Duration
}

// Report is the health payload. A check is "ok", "disabled" or an error message.
type Report struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks"`
}

// NewService constructs a new health service. db may be nil when running on memory repositories.
func NewService(db Pinger, stores map[string]object.ObjectStore, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{DB: db, Stores: stores, Timeout: timeout}
}

// Status runs every check and reports overall health.
func (s *Service) Status(ctx context.Context) Report {
	report := Report{OK: true, Checks: map[string]string{}}

	if s.DB == nil {
		report.Checks["database"] = "disabled"
	} else {
		cctx, cancel := context.WithTimeout(ctx, s.Timeout)
		err := s.DB.PingContext(cctx)
		cancel()
		report.record("database", err)
	}

	for name, store := range s.Stores {
		if store == nil {
			report.Checks["store."+name] = "disabled"
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, s.Timeout)
		_, err := store.Exists(cctx, healthKey)
		cancel()
		report.record("store."+name, err)
	}
	return report
}

func (r *Report) record(name string, err error) {
	if err != nil {
		r.OK = false
		r.Checks[name] = err.Error()
		return
	}
	r.Checks[name] = "ok"
}
