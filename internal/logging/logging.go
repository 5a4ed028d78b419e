// Package logging builds the zap logger shared by the crew binaries.
package logging

// #region imports
import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// #endregion

// ErrUnknownLevel is returned for a level name zap does not recognize.
var ErrUnknownLevel = errors.New("unknown log level")

// Config selects the level and encoding.
type Config struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	// JSON switches from console to JSON encoding.
	JSON bool `yaml:"json"`
}

// ParseLevel maps a level name to a zapcore.Level. An empty name is info.
func ParseLevel(name string) (zapcore.Level, error) {
	if strings.TrimSpace(name) == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(name)))); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
	return lvl, nil
}

// New builds a logger writing to stderr.
func New(cfg Config) (*zap.Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if cfg.JSON {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.Development = false
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
