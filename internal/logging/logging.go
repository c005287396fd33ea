package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// BuildDevelopmentLogger logs to stderr, with colored levels when stderr is
// a terminal.
func BuildDevelopmentLogger() (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return config.Build()
}

func BuildProductionLogger(outputFilePath string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.OutputPaths = []string{outputFilePath}
	return cfg.Build()
}

// BuildLogger writes JSON to outputFilePath when set, and human readable
// lines to stderr otherwise. verbose enables debug output on stderr.
func BuildLogger(outputFilePath string, verbose bool) (*zap.Logger, error) {
	if outputFilePath != "" {
		return BuildProductionLogger(outputFilePath)
	}

	logger, err := BuildDevelopmentLogger()
	if err != nil {
		return nil, err
	}

	if !verbose {
		logger = logger.WithOptions(zap.IncreaseLevel(zapcore.InfoLevel))
	}

	return logger, nil
}
