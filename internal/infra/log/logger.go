package log

import (
"os"
"time"

"github.com/rs/zerolog"
)

// NewLogger создаёт настроенный zerolog для указанного сервиса.
func NewLogger(appEnv, service string) zerolog.Logger {
level := zerolog.InfoLevel
if appEnv == "dev" {
level = zerolog.DebugLevel
}
logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", service).Logger().Level(level)
zerolog.TimeFieldFormat = time.RFC3339
return logger
}
