package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"betpro/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	writer io.Writer = os.Stdout
)

// Init configures the global zerolog logger. With LOG_FILE set, output goes
// to stdout and to a file rotated at MaxMB keeping MaxBackups old files.
func Init(cfg config.LogConfig) {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	out := newWriter(cfg)
	mu.Lock()
	writer = out
	mu.Unlock()

	console := out
	if cfg.Pretty {
		console = zerolog.ConsoleWriter{Out: out, NoColor: cfg.File != ""}
	}

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(console).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
}

// Writer returns the sink chosen by Init so other loggers (the HTTP access
// log) write to the same place.
func Writer() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return writer
}

func newWriter(cfg config.LogConfig) io.Writer {
	path := strings.TrimSpace(cfg.File)
	if path == "" {
		return os.Stdout
	}
	maxMB := cfg.MaxMB
	if maxMB <= 0 {
		maxMB = 10
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxMB,
		MaxBackups: cfg.MaxBackups,
	}
	return io.MultiWriter(os.Stdout, file)
}
