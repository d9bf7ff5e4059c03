package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
)

// log carries diagnostics on stderr; operator-facing progress goes to stdout.
var log = logrus.New()

func configureLogging(level string, debug bool) {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.WarnLevel
		log.WithField("log_level", level).Warn("unknown log level, using warn")
	}
	if debug {
		lvl = logrus.DebugLevel
	}
	log.SetLevel(lvl)
}
