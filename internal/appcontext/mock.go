package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/nebulaops/vnetctl"
)

// Mock provides a mock implementation of Interface for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
type Mock struct {
	ManagerFunc            func() (vnetctl.Manager, error)
	ManagerWithOptionsFunc func(...vnetctl.Option) (vnetctl.Manager, error)
	LoggerFunc             func() *zerolog.Logger
	OutputFormatFunc       func() string
	VersionFunc            func() string
	CommitFunc             func() string
	DateFunc               func() string
	BuiltByFunc            func() string
}

// Manager returns a manager using the mock function or nil.
func (m *Mock) Manager() (vnetctl.Manager, error) {
	if m.ManagerFunc != nil {
		return m.ManagerFunc()
	}
	return nil, nil
}

// ManagerWithOptions returns a manager using the mock function or nil.
func (m *Mock) ManagerWithOptions(opts ...vnetctl.Option) (vnetctl.Manager, error) {
	if m.ManagerWithOptionsFunc != nil {
		return m.ManagerWithOptionsFunc(opts...)
	}
	return nil, nil
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns a format using the mock function or "json".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "json"
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns commit using the mock function or "unknown".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "unknown"
}

// Date returns date using the mock function or "unknown".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// BuiltBy returns builtBy using the mock function or "test".
func (m *Mock) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "test"
}

// Ensure Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
