package core

// Logger is any service that can log messages at the usual levels.
// Extra args are attached to the logged event; implementations may
// give some arg types a special meaning (eg. the acting user).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
