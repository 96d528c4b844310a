package recovery

import (
	"fmt"

	"github.com/wudi/pdfcore/observability"
)

// StrictStrategy implements a fail-fast recovery strategy.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy {
	return &StrictStrategy{}
}

func (s *StrictStrategy) OnError(err error, location Location) Action {
	return ActionFail
}

// LenientStrategy records every error and tells the caller to skip the
// damaged object and keep going.
type LenientStrategy struct {
	Errors []error
	Logger observability.Logger
}

func NewLenientStrategy() *LenientStrategy {
	return &LenientStrategy{Logger: observability.NopLogger{}}
}

func (s *LenientStrategy) OnError(err error, location Location) Action {
	wrapped := fmt.Errorf("[%s] object %d offset %d: %w", location.Component, location.ObjectNum, location.ByteOffset, err)
	s.Errors = append(s.Errors, wrapped)
	if s.Logger != nil {
		s.Logger.Warn("recovered malformed input",
			observability.String(observability.KeyComponent, location.Component),
			observability.Int(observability.KeyObject, location.ObjectNum),
			observability.Int64(observability.KeyOffset, location.ByteOffset),
			observability.Error("error", err),
		)
	}
	return ActionSkip
}
