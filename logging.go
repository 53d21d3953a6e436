package main

import (
	"log"

	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging points the global logger at a rotating file when one is
// configured; otherwise logs stay on stderr for journald to collect.
func setupLogging(s *settings) {
	logFile := s.GetString("logFile")
	if logFile == "" {
		return
	}
	log.SetOutput(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
	})
}
