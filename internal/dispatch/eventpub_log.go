package dispatch

import "github.com/rs/zerolog"

// LogPublisher writes events to a zerolog logger at debug level; stale and
// abandoned runs are logged at warn.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(l zerolog.Logger) LogPublisher {
	return LogPublisher{logger: l.With().Str("component", "dispatch.events").Logger()}
}

func (p LogPublisher) Publish(e Event) {
	ev := p.logger.Debug()
	if e.Name == EventResultStale || e.Name == EventRunAbandoned {
		ev = p.logger.Warn()
	}
	ev = ev.Str("event", e.Name).Str("handle", e.HandleID).Str("mode", e.Mode)
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("dispatch event")
}
