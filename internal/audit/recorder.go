package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/banking/kyc-service/internal/domain"
)

// Sink persists or forwards an audit record
type Sink interface {
	LogAccess(ctx context.Context, rec *domain.AccessRecord) error
}

// NamedSink labels a sink for error messages
type NamedSink struct {
	Name string
	Sink Sink
}

// Recorder writes every record to all sinks. One failing sink does not stop
// the others; the joined error names each failed sink.
type Recorder struct {
	sinks []NamedSink
}

// NewRecorder creates a recorder over sinks. Nil sinks are skipped.
func NewRecorder(sinks ...NamedSink) *Recorder {
	r := &Recorder{}
	for _, s := range sinks {
		if s.Sink != nil {
			r.sinks = append(r.sinks, s)
		}
	}
	return r
}

// LogAccess fans the record out to every sink
func (r *Recorder) LogAccess(ctx context.Context, rec *domain.AccessRecord) error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Sink.LogAccess(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of configured sinks
func (r *Recorder) Len() int {
	return len(r.sinks)
}
