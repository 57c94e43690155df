package logger

import (
	"os"

	"go.uber.org/zap"
)

// NewLogger builds the process logger. APP_ENV=development switches to the
// human-readable console encoder.
func NewLogger() *zap.Logger {
	var l *zap.Logger
	var err error

	if os.Getenv("APP_ENV") == "development" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return l
}
