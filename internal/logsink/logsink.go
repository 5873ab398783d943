// Package logsink forwards daemon log events to a zerolog logger.
package logsink

import (
	"github.com/rs/zerolog"

	"vici-telegraf-plugin/internal/vici"
)

// Sink writes normalized daemon events as structured log entries.
type Sink struct {
	log zerolog.Logger
}

// New returns a sink writing to l.
func New(l zerolog.Logger) *Sink {
	return &Sink{log: l}
}

// Level maps the daemon's verbosity onto a zerolog level. Lower daemon levels
// are more important; everything above raw is trace.
func Level(l vici.LogLevel) zerolog.Level {
	switch {
	case l == vici.LevelUnknown:
		return zerolog.NoLevel
	case l <= vici.LevelSilent:
		return zerolog.Disabled
	case l <= vici.LevelControl:
		return zerolog.InfoLevel
	case l == vici.LevelControlMore:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// ControlLog emits a control-log event.
func (s *Sink) ControlLog(ev vici.ControlLogEvent) {
	s.event(ev).Msg(ev.Message)
}

// Log emits a log event, tagged with its thread.
func (s *Sink) Log(ev vici.LogEvent) {
	e := s.event(ev.ControlLogEvent)
	if !ev.Thread.IsNaN() {
		e = e.Int64("thread", int64(ev.Thread))
	}
	e.Msg(ev.Message)
}

func (s *Sink) event(ev vici.ControlLogEvent) *zerolog.Event {
	e := s.log.WithLevel(Level(ev.Level)).
		Str("group", ev.Group).
		Str("daemon_level", ev.Level.String())
	if ev.IkeSa != nil {
		e = e.Str("ikesa_name", ev.IkeSa.Name).Str("ikesa_id", ev.IkeSa.ID)
	}
	return e
}
