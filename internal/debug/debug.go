package debug

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultLogPath = "/tmp/companion-debug.log"

var (
	once   sync.Once
	mu     sync.Mutex
	logger *zap.Logger
)

// Opts configures the process logger.
type Opts struct {
	Path  string
	Level string
}

// Init builds the process logger. Only the first call has any effect;
// GetLogger falls back to defaults if Init was never called.
func Init(opts *Opts) error {
	var err error
	once.Do(func() {
		var l *zap.Logger
		l, err = newLogger(opts)
		if err != nil {
			return
		}
		mu.Lock()
		logger = l
		mu.Unlock()
	})
	return err
}

// GetLogger returns the singleton logger instance.
func GetLogger() *zap.Logger {
	if err := Init(&Opts{}); err != nil {
		return zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// Sync flushes buffered log entries.
func Sync() {
	_ = GetLogger().Sync()
}

func newLogger(opts *Opts) (*zap.Logger, error) {
	path := opts.Path
	if path == "" {
		path = defaultLogPath
	}
	level := zapcore.DebugLevel
	if opts.Level != "" {
		if err := level.Set(opts.Level); err != nil {
			return nil, err
		}
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{path}
	config.ErrorOutputPaths = []string{path}
	config.Sampling = nil
	return config.Build(zap.AddCaller())
}
