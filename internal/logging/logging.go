// Package logging builds the process-wide structured logger.
// Weathermap's datasource fan-out and background scheduler need
// fields (node, datasource, duration) attached per call site, so zap
// is the logger every other package takes by constructor injection.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.SugaredLogger. debug switches the encoder to
// console output with debug level; production mode is JSON at info
// level, matching how a deployed weathermap instance would be scraped
// by a log shipper.
func New(debug bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
