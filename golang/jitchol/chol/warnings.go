package chol

import (
	"fmt"
	"log"
	"sync"
)

//StabilityWarning is emitted every time the factorization adds jitter to the diagonal.
type StabilityWarning struct {
	Attempt  int
	MaxTries int
	Jitter   float64
	Dim      int
}

func (w StabilityWarning) String() string {
	return fmt.Sprintf("cholesky: added jitter %g on attempt %d/%d (dim %d)", w.Jitter, w.Attempt, w.MaxTries, w.Dim)
}

//WarningSink receives stability warnings. Implementations must be safe for concurrent use.
type WarningSink interface {
	Warn(StabilityWarning)
}

//LogSink prints warnings with a standard logger. A nil Logger means the package level logger of log.
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) Warn(w StabilityWarning) {
	if s.Logger == nil {
		log.Print(w)
		return
	}
	s.Logger.Print(w)
}

//SinkFunc adapts a function to the WarningSink interface.
type SinkFunc func(StabilityWarning)

func (f SinkFunc) Warn(w StabilityWarning) {
	f(w)
}

//Recorder keeps every warning it receives.
type Recorder struct {
	mu       sync.Mutex
	warnings []StabilityWarning
}

func (r *Recorder) Warn(w StabilityWarning) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, w)
}

//Warnings returns a copy of the recorded warnings in arrival order.
func (r *Recorder) Warnings() []StabilityWarning {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StabilityWarning(nil), r.warnings...)
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.warnings)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = nil
}
