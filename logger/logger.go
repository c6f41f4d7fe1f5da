// file: logger/logger.go

package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the application-wide structured logger.
var Log = logrus.New()

// Init configures Log with the default text formatter at Info level.
// It is safe to call more than once; tests call it from TestMain.
func Init() {
	Configure("info", "text")
}

// Configure sets the level and output format of Log. Unknown levels fall back
// to Info; format is either "json" or "text".
func Configure(level, format string) {
	Log.SetOutput(os.Stdout)

	if format == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
}
