package observability

import (
	"github.com/danmuck/espblink/internal/logging"
	"github.com/rs/zerolog"
)

// ComponentLogger tags the configured root logger with an app name.
func ComponentLogger(app string) zerolog.Logger {
	return logging.Logger().With().Str("app", app).Logger()
}
