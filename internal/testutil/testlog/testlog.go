package testlog

import (
	"testing"

	"github.com/danmuck/espblink/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	logging.Logf("test=%s", t.Name())
}
