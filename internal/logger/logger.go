package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"aerodetect/internal/config"
)

// Level names a log stream; each level is mirrored to its own file.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Levels lists every level in severity order.
var Levels = []Level{LevelInfo, LevelWarning, LevelError}

// FileName returns the log file backing the level.
func (l Level) FileName() string {
	return string(l) + ".log"
}

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	loggers map[Level]*log.Logger
	logDir  string
	mu      sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) *Logger {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logger := &Logger{
		loggers: make(map[Level]*log.Logger, len(Levels)),
		logDir:  config.LogDirectory,
	}

	logger.setupLoggers()
	return logger
}

func (l *Logger) setupLoggers() {
	prefixes := map[Level]string{
		LevelInfo:    "INFO    ",
		LevelWarning: "WARNING ",
		LevelError:   "ERROR   ",
	}

	for _, level := range Levels {
		var console io.Writer = os.Stdout
		if level == LevelError {
			console = os.Stderr
		}
		file := l.openLogFile(filepath.Join(l.logDir, level.FileName()))
		l.loggers[level] = log.New(io.MultiWriter(console, file), prefixes[level], log.Ldate|log.Ltime|log.Lshortfile)
	}
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(filename string) *os.File {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file %s: %v", filename, err)
	}
	return file
}

func (l *Logger) write(level Level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	// Depth 3: write -> Info/Warning/Error -> caller.
	l.loggers[level].Output(3, fmt.Sprintf(format, v...))
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.write(LevelInfo, format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.write(LevelWarning, format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.write(LevelError, format, v...)
}

// Dir returns the directory holding the log files.
func (l *Logger) Dir() string {
	return l.logDir
}

// CleanLogs truncates the log file of the given level.
func (l *Logger) CleanLogs(level Level) error {
	filePath := filepath.Join(l.logDir, level.FileName())

	l.mu.Lock()
	err := os.Truncate(filePath, 0)
	l.mu.Unlock()

	if err != nil {
		l.Error("Error truncating %s: %v", filePath, err)
		return err
	}
	l.Info("Log file %s has been cleared.", level.FileName())
	return nil
}
