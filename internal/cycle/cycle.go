// Package cycle holds the result types monitors return for one pass over their units of work.
package cycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"inventory-bot-backend/internal/store"
)

// Kind classifies why a unit of work failed.
type Kind string

const (
	KindTransport   Kind = "transport"
	KindPersistence Kind = "persistence"
	KindData        Kind = "data"
	KindPanic       Kind = "panic"
)

// DataError marks a failure caused by inconsistent or malformed records.
type DataError struct {
	Err error
}

func (e *DataError) Error() string { return e.Err.Error() }
func (e *DataError) Unwrap() error { return e.Err }

// Data wraps err as a data error.
func Data(err error) error {
	if err == nil {
		return nil
	}
	return &DataError{Err: err}
}

// Dataf formats a data error.
func Dataf(format string, args ...any) error {
	return &DataError{Err: fmt.Errorf(format, args...)}
}

// Classify maps an error onto a Kind. Anything that is not a data error is a
// persistence failure, since the store is the only other fallible dependency.
func Classify(err error) Kind {
	var de *DataError
	switch {
	case errors.As(err, &de), errors.Is(err, store.ErrNotFound):
		return KindData
	default:
		return KindPersistence
	}
}

// UnitError records one failed unit of work.
type UnitError struct {
	Unit string `json:"unit"`
	Kind Kind   `json:"kind"`
	Err  error  `json:"-"`
}

func (e UnitError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Unit, e.Kind, e.Err)
}

// Report summarizes one monitor pass.
type Report struct {
	Monitor   string        `json:"monitor"`
	CycleID   string        `json:"cycle_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Scanned   int           `json:"scanned"`
	Actions   int           `json:"actions"`
	Notified  int           `json:"notified"`
	Failures  []UnitError   `json:"failures,omitempty"`
}

// New starts a report for monitor.
func New(monitor string, now time.Time) *Report {
	return &Report{Monitor: monitor, StartedAt: now}
}

// Fail records a failed unit, classifying err.
func (r *Report) Fail(unit string, err error) {
	r.Failures = append(r.Failures, UnitError{Unit: unit, Kind: Classify(err), Err: err})
}

// FailKind records a failed unit with an explicit kind.
func (r *Report) FailKind(unit string, kind Kind, err error) {
	r.Failures = append(r.Failures, UnitError{Unit: unit, Kind: kind, Err: err})
}

// Notify counts a notification attempt, recording a transport failure when it was not delivered.
func (r *Report) Notify(unit string, delivered bool) {
	if delivered {
		r.Notified++
		return
	}
	r.FailKind(unit, KindTransport, errors.New("notification not delivered"))
}

// OK reports whether every unit succeeded.
func (r *Report) OK() bool { return len(r.Failures) == 0 }

// Log writes the report summary and one entry per failure.
func (r *Report) Log(log logrus.FieldLogger) {
	entry := log.WithFields(logrus.Fields{
		"monitor":  r.Monitor,
		"cycle_id": r.CycleID,
		"scanned":  r.Scanned,
		"actions":  r.Actions,
		"notified": r.Notified,
		"failures": len(r.Failures),
		"duration": r.Duration.String(),
	})
	for _, f := range r.Failures {
		fe := entry.WithFields(logrus.Fields{"unit": f.Unit, "kind": f.Kind})
		if f.Kind == KindTransport {
			fe.Warn(f.Err.Error())
		} else {
			fe.Error(f.Err.Error())
		}
	}
	entry.Info("monitor pass finished")
}

// Run executes one unit of work and records its error or panic on the report.
func (r *Report) Run(unit string, fn func() error) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			r.FailKind(unit, KindPanic, fmt.Errorf("panic: %v", p))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		r.Fail(unit, err)
		return false
	}
	return true
}

// Finish stamps the report duration.
func (r *Report) Finish(now time.Time) *Report {
	r.Duration = now.Sub(r.StartedAt)
	return r
}
