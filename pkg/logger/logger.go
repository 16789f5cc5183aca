package logger

import (
	"go.uber.org/zap"
)

// New returns a new logger. Pass debug=true for human-readable
// development output.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
