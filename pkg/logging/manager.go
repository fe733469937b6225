package logging

import "sync"

var (
	serviceMu     sync.Mutex
	serviceLogger *ZapLogger
)

// InitServiceLogger builds the process-wide logger. Later calls return the
// logger built by the first successful one.
func InitServiceLogger(config LoggerConfig) (Logger, error) {
	serviceMu.Lock()
	defer serviceMu.Unlock()
	if serviceLogger != nil {
		return serviceLogger, nil
	}
	l, err := NewZapLogger(config)
	if err != nil {
		return nil, err
	}
	serviceLogger = l
	return l, nil
}

// GetServiceLogger falls back to a no-op logger before initialisation.
func GetServiceLogger() Logger {
	serviceMu.Lock()
	defer serviceMu.Unlock()
	if serviceLogger == nil {
		return NewNoOpLogger()
	}
	return serviceLogger
}

// Shutdown flushes the process-wide logger and forgets it.
func Shutdown() {
	serviceMu.Lock()
	defer serviceMu.Unlock()
	if serviceLogger != nil {
		// stdout sync errors are expected on some platforms
		_ = serviceLogger.Sync()
		serviceLogger = nil
	}
}
