package events

import "github.com/JadeSamLee/cosmos-swap/core/types"

// Emitter broadcasts engine events to downstream subscribers (indexers,
// relayer tails).
type Emitter interface {
	Emit(*types.Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default for engines whose caller does not care about events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(*types.Event) {}

// Recorder collects events in order, primarily for tests.
type Recorder struct {
	Events []*types.Event
}

func (r *Recorder) Emit(evt *types.Event) {
	if evt == nil {
		return
	}
	r.Events = append(r.Events, evt)
}
