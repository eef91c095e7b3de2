package logger

import (
	"strings"

	"github.com/rs/zerolog"
)

// alertHook forwards error and fatal events to an AlertSink. Fields added
// through the event are not visible to hooks, so only the message travels.
type alertHook struct {
	sink AlertSink
}

func (h alertHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if level < zerolog.ErrorLevel || level == zerolog.NoLevel {
		return
	}
	name := strings.ToUpper(level.String())
	if level >= zerolog.FatalLevel {
		// The process exits right after a fatal event.
		_ = h.sink.SendLogMessage(name, msg, nil)
		return
	}
	go func() {
		_ = h.sink.SendLogMessage(name, msg, nil)
	}()
}
