package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

const (
	// queueSize bounds the handoff queue between callers and the writer
	// goroutine. A full queue drops the record rather than blocking.
	queueSize = 1024

	defaultDateFmt = "2006-01-02 15:04:05"
)

const defaultLevel = LevelWarning

type wireConfig struct {
	Logging struct {
		Level   string `yaml:"level"`
		DateFmt string `yaml:"datefmt"`
	} `yaml:"logging"`
}

type fileConfig struct {
	Level   Level
	DateFmt string
}

// loadConfig reads the logger config file. Any failure — missing file, bad
// YAML, unknown level — falls back to the defaults for the affected field.
func loadConfig(path string) fileConfig {
	cfg := fileConfig{Level: defaultLevel, DateFmt: defaultDateFmt}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	var wc wireConfig
	if err := yaml.Unmarshal(data, &wc); err != nil {
		return cfg
	}

	if wc.Logging.Level != "" {
		if lv, err := ParseLevel(wc.Logging.Level); err == nil {
			cfg.Level = lv
		}
	}
	if wc.Logging.DateFmt != "" {
		cfg.DateFmt = wc.Logging.DateFmt
	}
	return cfg
}

type record struct {
	time  time.Time
	level Level
	msg   string
}

// FileLogger appends leveled records to a file. Records are queued to a
// single writer goroutine; when the queue is full the record is dropped and
// counted instead of stalling the caller.
type FileLogger struct {
	level   atomic.Int32
	dateFmt string // fixed at construction, like the handler format
	queue   chan record
	dropped atomic.Uint64
	now     func() time.Time

	file    *os.File
	cfgPath string
	watcher *fsnotify.Watcher

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewFileLogger opens (creating or appending) the log file at path. If
// cfgPath is non-empty the level is read from it now and re-read whenever
// the file changes, so the level can be adjusted without restart. A missing
// or malformed config means WARNING and the default timestamp layout.
func NewFileLogger(path, cfgPath string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	cfg := loadConfig(cfgPath)
	l := &FileLogger{
		dateFmt: cfg.DateFmt,
		queue:   make(chan record, queueSize),
		now:     time.Now,
		file:    f,
		cfgPath: cfgPath,
		done:    make(chan struct{}),
	}
	l.level.Store(int32(cfg.Level))

	// Hot reload is best effort: if the watcher cannot be set up, the
	// logger still works with the level fixed at construction.
	if cfgPath != "" {
		if w, err := fsnotify.NewWatcher(); err == nil {
			// Watch the directory; editors often replace the file.
			if err := w.Add(filepath.Dir(cfgPath)); err == nil {
				l.watcher = w
				go l.watchConfig()
			} else {
				w.Close()
			}
		}
	}

	go l.write()
	return l, nil
}

// Debugf logs at DEBUG level.
func (l *FileLogger) Debugf(format string, args ...any) { l.log(LevelDebug, format, args...) }

// Infof logs at INFO level.
func (l *FileLogger) Infof(format string, args ...any) { l.log(LevelInfo, format, args...) }

// Warnf logs at WARNING level.
func (l *FileLogger) Warnf(format string, args ...any) { l.log(LevelWarning, format, args...) }

// Errorf logs at ERROR level.
func (l *FileLogger) Errorf(format string, args ...any) { l.log(LevelError, format, args...) }

func (l *FileLogger) log(level Level, format string, args ...any) {
	if level < Level(l.level.Load()) {
		return
	}

	rec := record{time: l.now(), level: level, msg: fmt.Sprintf(format, args...)}
	select {
	case l.queue <- rec:
	default:
		l.dropped.Add(1)
	}
}

// Level returns the current minimum level.
func (l *FileLogger) Level() Level {
	return Level(l.level.Load())
}

// SetLevel adjusts the minimum level. Normal operation drives this through
// the config watcher; exposed for tests and callers without a config file.
func (l *FileLogger) SetLevel(lv Level) {
	l.level.Store(int32(lv))
}

// Dropped returns how many records were discarded because the queue was full.
func (l *FileLogger) Dropped() uint64 {
	return l.dropped.Load()
}

// watchConfig re-reads the level whenever the config file changes. Only the
// level is hot-reloadable; the timestamp layout stays as constructed.
func (l *FileLogger) watchConfig() {
	base := filepath.Base(l.cfgPath)
	for {
		select {
		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			cfg := loadConfig(l.cfgPath)
			l.level.Store(int32(cfg.Level))
		case _, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (l *FileLogger) write() {
	for rec := range l.queue {
		fmt.Fprintf(l.file, "%s %s %s\n", rec.time.Format(l.dateFmt), rec.level, rec.msg)
	}
	close(l.done)
}

// Close stops the config watcher, flushes queued records and closes the
// file. The drop count, if any, is written as the final line.
func (l *FileLogger) Close() error {
	l.closeOnce.Do(func() {
		if l.watcher != nil {
			l.watcher.Close()
		}
		close(l.queue)
		<-l.done
		if n := l.dropped.Load(); n > 0 {
			fmt.Fprintf(l.file, "%s WARNING logging: dropped %d records (queue full)\n",
				l.now().Format(l.dateFmt), n)
		}
		l.closeErr = l.file.Close()
	})
	return l.closeErr
}
