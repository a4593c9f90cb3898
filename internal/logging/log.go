package logging

// Printf-style helpers over the root logger. Messages follow the
// "pkg.Type.method key=value" convention used across the module.

func Tracef(format string, args ...any) {
	l := Logger()
	l.Trace().Msgf(format, args...)
}

func Debugf(format string, args ...any) {
	l := Logger()
	l.Debug().Msgf(format, args...)
}

func Infof(format string, args ...any) {
	l := Logger()
	l.Info().Msgf(format, args...)
}

func Warnf(format string, args ...any) {
	l := Logger()
	l.Warn().Msgf(format, args...)
}

func Errf(format string, args ...any) {
	l := Logger()
	l.Error().Msgf(format, args...)
}

// Logf writes without a level so it is never filtered.
func Logf(format string, args ...any) {
	l := Logger()
	l.Log().Msgf(format, args...)
}
