// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package roda

import (
	"code.hybscloud.com/atomix"
)

// StepResult reports whether a Stage's step consumed an item.
type StepResult int

const (
	// Idle means the step found no input available.
	Idle StepResult = iota
	// Worked means the step advanced its input reader by one item.
	Worked
)

// StageState is a stage's lifecycle state.
type StageState int32

const (
	// Running is the normal operating state.
	Running StageState = iota
	// Draining means a shutdown has been requested; the stage keeps
	// stepping until its input reader reports no further items for a
	// bounded grace period.
	Draining
	// Stopped means the stage's worker loop has exited.
	Stopped
)

// String implements fmt.Stringer for log and test output.
func (s StageState) String() string {
	switch s {
	case Running:
		return "Running"
	case Draining:
		return "Draining"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Stage binds an input JournalReader, a pipe, and an output Journal
// handle. Its step function is the unit of work the Engine's
// worker loop repeats.
type Stage[In, Out any] struct {
	name   string
	reader *JournalReader[In]
	pipe   *Pipe[In, Out]
	out    *Journal[Out]
	state  atomix.Uint64

	e2eLatency *EndToEndLatency
	e2eSink    LatencySink
}

// NewStage constructs a Stage reading from reader, running every item
// through pipe, and appending emitted outputs to out. The stage starts
// in the Running state.
func NewStage[In, Out any](name string, reader *JournalReader[In], pipe *Pipe[In, Out], out *Journal[Out]) *Stage[In, Out] {
	s := &Stage[In, Out]{
		name:   name,
		reader: reader,
		pipe:   pipe,
		out:    out,
	}
	s.state.StoreRelease(uint64(Running))
	return s
}

// Name returns the stage's configured name.
func (s *Stage[In, Out]) Name() string {
	return s.name
}

// State returns the stage's current lifecycle state.
func (s *Stage[In, Out]) State() StageState {
	return StageState(s.state.LoadAcquire())
}

// setState transitions the stage's lifecycle state.
func (s *Stage[In, Out]) setState(st StageState) {
	s.state.StoreRelease(uint64(st))
}

// ObserveEndToEndLatency makes this stage observe l's marked timestamps
// against sink whenever it appends to its output journal, treating the
// output cursor it just published as the ingress cursor l.Mark recorded.
// That correspondence holds across any chain of order-preserving,
// one-input-one-output stages upstream of this one; see
// [EndToEndLatency] for what breaks it.
func (s *Stage[In, Out]) ObserveEndToEndLatency(l *EndToEndLatency, sink LatencySink) {
	s.e2eLatency = l
	s.e2eSink = sink
}

// Step implements the stage's four-step algorithm: advance the input reader,
// obtain the current item, run the pipe, and append any emitted output.
// An error is only returned if appending to the output journal fails
// (ErrCapacityExceeded), which is a sizing bug the caller is expected to
// have prevented by sizing the journal.
func (s *Stage[In, Out]) Step() (StepResult, error) {
	if !s.reader.TryAdvance() {
		return Idle, nil
	}
	item, ok := s.reader.Get()
	if !ok {
		return Idle, nil
	}
	out, emit := s.pipe.Run(*item)
	if emit {
		if err := s.out.Append(&out); err != nil {
			return Worked, err
		}
		if s.e2eLatency != nil {
			s.e2eLatency.Observe(s.out.Len()-1, s.e2eSink)
		}
	}
	return Worked, nil
}

// Flush appends whatever the stage's pipe is still holding back (see
// [GroupBoundary]) to the output journal, if anything. The Engine calls
// this once, when a draining stage's input reader has gone idle for the
// full grace period and the stage is about to stop.
func (s *Stage[In, Out]) Flush() error {
	out, ok := s.pipe.Flush()
	if !ok {
		return nil
	}
	return s.out.Append(&out)
}

// stageRunner erases Stage[In, Out]'s type parameters so the Engine can
// hold a worker loop per stage without knowing its element types.
type stageRunner interface {
	Name() string
	State() StageState
	setState(StageState)
	Step() (StepResult, error)
	Flush() error
}
