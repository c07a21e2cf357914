package logging

import (
	"fmt"
	"os"
)

// Fatal logs v at Error level, then exits the process -- used by cmd/rtspd
// for errors discovered before the RTSP server starts serving (bad
// config, a port already in use).
func (log *Logger) Fatal(v ...interface{}) {
	log.Log(Error, 1, fmt.Sprint(v...))
	os.Exit(1)
}
