package observ

import (
	"os"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// SetLevel adjusts the process-wide log level ("debug", "info", "warn", ...).
func SetLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

// Log emits one structured JSON line for an event with arbitrary fields.
func Log(event string, kv map[string]any) {
	emit(logger.Info(), event, kv)
}

func Warn(event string, kv map[string]any) {
	emit(logger.Warn(), event, kv)
}

func Error(event string, err error, kv map[string]any) {
	emit(logger.Error().Err(err), event, kv)
}

func emit(ev *zerolog.Event, event string, kv map[string]any) {
	for k, v := range kv {
		ev = ev.Interface(k, v)
	}
	ev.Msg(event)
}
