package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/core"
)

const (
	defaultRecorderBuffer = 256
	recordTimeout         = 5 * time.Second
)

// Recorder feeds hub events into a Journal. HandleEvent never blocks: events
// are queued on a buffered channel and dropped when it is full.
type Recorder struct {
	journal Journal
	events  chan core.Event
	log     *zerolog.Logger
}

var _ core.EventSink = (*Recorder)(nil)

// NewRecorder creates a recorder with room for buffer queued events.
func NewRecorder(journal Journal, buffer int, logger *zerolog.Logger) *Recorder {
	if buffer <= 0 {
		buffer = defaultRecorderBuffer
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Recorder{
		journal: journal,
		events:  make(chan core.Event, buffer),
		log:     logger,
	}
}

// HandleEvent queues the lifecycle events the journal keeps.
func (r *Recorder) HandleEvent(ev core.Event) {
	switch ev.Kind {
	case core.EventJoined, core.EventLeft, core.EventRenamed:
	default:
		return
	}
	select {
	case r.events <- ev:
	default:
		r.log.Warn().Str("event", ev.Kind.String()).Str("session_id", ev.SessionID).Msg("journal queue full, event dropped")
	}
}

// Run writes queued events until ctx is done, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-r.events:
			r.record(ev)
		case <-ctx.Done():
			r.drain()
			return nil
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case ev := <-r.events:
			r.record(ev)
		default:
			return
		}
	}
}

func (r *Recorder) record(ev core.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	var err error
	switch ev.Kind {
	case core.EventJoined:
		err = r.journal.OpenSession(ctx, Session{
			SessionID:   ev.SessionID,
			ClientID:    ev.ClientID,
			Name:        ev.Name,
			Addr:        ev.Addr,
			ConnectedAt: ev.At,
		})
	case core.EventLeft:
		err = r.journal.CloseSession(ctx, ev.SessionID, ev.Name, ev.At, string(ev.Reason))
	case core.EventRenamed:
		err = r.journal.RecordRename(ctx, Rename{
			SessionID: ev.SessionID,
			OldName:   ev.PrevName,
			NewName:   ev.Name,
			At:        ev.At,
		})
	}
	if err != nil {
		r.log.Error().Err(err).Str("event", ev.Kind.String()).Str("session_id", ev.SessionID).Msg("journal write failed")
	}
}
