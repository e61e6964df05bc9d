package library

// Logger receives SQL timing at debug level and storage failures at error
// level. The core never writes to the console itself; callers plug in any
// backend (log/slog, testing.T, ...) through WithLogger. The default discards
// everything.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Option configures a Store during Open.
type Option func(*Store)

// WithLogger sets the logger the Store reports to.
func WithLogger(l Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
