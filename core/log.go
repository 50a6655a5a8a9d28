package core

import log "github.com/sirupsen/logrus"

// logger is the package-level structured logger. Every subsystem logs through
// it with a "component" field so a single transaction's trace can be
// filtered out of a busy log stream.
var logger = log.New()

// SetLogger overrides the package logger, e.g. to redirect engine logs into
// an embedder's own logrus instance.
func SetLogger(l *log.Logger) {
	if l != nil {
		logger = l
	}
}

func componentLog(component string) *log.Entry {
	return logger.WithField("component", component)
}
