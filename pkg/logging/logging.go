package logging

type Logger interface {
	Debugf(msg string, args ...interface{})
	Infof(msg string, args ...interface{})
	Warnf(msg string, args ...interface{})
	Errorf(msg string, args ...interface{})
}

type LogFunc func(format string, args ...interface{})

// LogFuncs lets callers plug any backend (zap, std log, test recorders)
// into the Logger interface without importing the backend here.
type LogFuncs struct {
	Debugf LogFunc
	Infof  LogFunc
	Warnf  LogFunc
	Errorf LogFunc
}

type logger struct {
	prefix string
	funcs  LogFuncs
}

func NewLogger(prefix string, funcs LogFuncs) Logger {
	return &logger{
		prefix: prefix,
		funcs:  funcs,
	}
}

func (l *logger) logf(fn LogFunc, msg string, args ...interface{}) {
	if fn == nil {
		return
	}
	if l.prefix != "" {
		msg = l.prefix + msg
	}
	fn(msg, args...)
}

func (l *logger) Debugf(msg string, args ...interface{}) {
	l.logf(l.funcs.Debugf, msg, args...)
}

func (l *logger) Infof(msg string, args ...interface{}) {
	l.logf(l.funcs.Infof, msg, args...)
}

func (l *logger) Warnf(msg string, args ...interface{}) {
	l.logf(l.funcs.Warnf, msg, args...)
}

func (l *logger) Errorf(msg string, args ...interface{}) {
	l.logf(l.funcs.Errorf, msg, args...)
}
