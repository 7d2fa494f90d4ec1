package logger

import (
	"go.uber.org/zap"
)

// New builds the process-wide structured logger. JSON output on stdout so
// log aggregation tools can consume it directly.
func New() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	return cfg.Build()
}
