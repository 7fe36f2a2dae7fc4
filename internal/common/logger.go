package common

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

// GetLogger returns the global logger instance
func GetLogger() arbor.ILogger {
	loggerMutex.RLock()
	if globalLogger != nil {
		loggerMutex.RUnlock()
		return globalLogger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(models.WriterConfiguration{
			Type:             models.LogWriterTypeConsole,
			TimeFormat:       "15:04:05",
			TextOutput:       true,
			DisableTimestamp: false,
		})
	}
	return globalLogger
}

// InitLogger initializes the arbor logger with configuration
func InitLogger(config *Config) arbor.ILogger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	logger := arbor.NewLogger()

	hasFileOutput := false
	hasStdoutOutput := false
	for _, output := range config.Logging.Output {
		if output == "file" {
			hasFileOutput = true
		}
		if output == "stdout" || output == "console" {
			hasStdoutOutput = true
		}
	}

	if hasFileOutput {
		execPath, err := os.Executable()
		if err != nil {
			fmt.Printf("Warning: Failed to get executable path: %v\n", err)
		} else {
			logsDir := filepath.Join(filepath.Dir(execPath), "logs")
			if err := os.MkdirAll(logsDir, 0755); err != nil {
				fmt.Printf("Warning: Failed to create logs directory: %v\n", err)
			} else {
				logger = logger.WithFileWriter(models.WriterConfiguration{
					Type:             models.LogWriterTypeFile,
					FileName:         filepath.Join(logsDir, "vigil.log"),
					TimeFormat:       "15:04:05",
					MaxSize:          100 * 1024 * 1024, // 100 MB
					MaxBackups:       3,
					TextOutput:       true,
					DisableTimestamp: false,
				})
			}
		}
	}

	if hasStdoutOutput || !hasFileOutput {
		logger = logger.WithConsoleWriter(models.WriterConfiguration{
			Type:             models.LogWriterTypeConsole,
			TimeFormat:       "15:04:05",
			TextOutput:       true,
			DisableTimestamp: false,
		})
	}

	logger = logger.WithLevelFromString(config.Logging.Level)

	globalLogger = logger
	return logger
}
