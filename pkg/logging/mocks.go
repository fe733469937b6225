package logging

import (
	"github.com/stretchr/testify/mock"
)

// MockLogger is a mock implementation of the Logger interface
type MockLogger struct {
	mock.Mock
}

var _ Logger = (*MockLogger)(nil)

// SetupDefaultExpectations lets every logger method be called with any
// arguments, for tests that do not assert on logging.
func (m *MockLogger) SetupDefaultExpectations() {
	for _, method := range []string{"Debug", "Info", "Warn", "Error", "Fatal"} {
		m.On(method, mock.Anything, mock.Anything).Maybe().Return()
	}
	for _, method := range []string{"Debugf", "Infof", "Warnf", "Errorf", "Fatalf"} {
		m.On(method, mock.Anything, mock.Anything).Maybe().Return()
	}
	m.On("With", mock.Anything).Maybe().Return(m)
}

func (m *MockLogger) Debug(msg string, tags ...any) { m.Called(msg, tags) }
func (m *MockLogger) Info(msg string, tags ...any)  { m.Called(msg, tags) }
func (m *MockLogger) Warn(msg string, tags ...any)  { m.Called(msg, tags) }
func (m *MockLogger) Error(msg string, tags ...any) { m.Called(msg, tags) }
func (m *MockLogger) Fatal(msg string, tags ...any) { m.Called(msg, tags) }

func (m *MockLogger) Debugf(template string, args ...interface{}) { m.Called(template, args) }
func (m *MockLogger) Infof(template string, args ...interface{})  { m.Called(template, args) }
func (m *MockLogger) Warnf(template string, args ...interface{})  { m.Called(template, args) }
func (m *MockLogger) Errorf(template string, args ...interface{}) { m.Called(template, args) }
func (m *MockLogger) Fatalf(template string, args ...interface{}) { m.Called(template, args) }

func (m *MockLogger) With(tags ...any) Logger {
	args := m.Called(tags)
	if l, ok := args.Get(0).(Logger); ok {
		return l
	}
	return m
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

var _ Logger = (*NoOpLogger)(nil)

func NewNoOpLogger() Logger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) Debug(msg string, tags ...any)               {}
func (n *NoOpLogger) Info(msg string, tags ...any)                {}
func (n *NoOpLogger) Warn(msg string, tags ...any)                {}
func (n *NoOpLogger) Error(msg string, tags ...any)               {}
func (n *NoOpLogger) Fatal(msg string, tags ...any)               {}
func (n *NoOpLogger) Debugf(template string, args ...interface{}) {}
func (n *NoOpLogger) Infof(template string, args ...interface{})  {}
func (n *NoOpLogger) Warnf(template string, args ...interface{})  {}
func (n *NoOpLogger) Errorf(template string, args ...interface{}) {}
func (n *NoOpLogger) Fatalf(template string, args ...interface{}) {}
func (n *NoOpLogger) With(tags ...any) Logger                     { return n }
