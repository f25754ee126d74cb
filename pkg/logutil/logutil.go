// Package logutil provides logging utilities.
package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	out     io.Writer = io.Discard
	outFile *os.File
	loggers []*log.Logger
)

// GetLogger gets a logger with the given prefix, writing to the output set by
// SetOutput or SetOutputFile. The default output discards all messages.
func GetLogger(prefix string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	logger := log.New(out, prefix, log.LstdFlags)
	loggers = append(loggers, logger)
	return logger
}

// SetOutput redirects the output of all loggers, current and future, to the
// given writer.
func SetOutput(newOut io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	closeOutFile()
	out = newOut
	for _, logger := range loggers {
		logger.SetOutput(out)
	}
}

// SetOutputFile redirects the output of all loggers, current and future, to
// the named file. An empty name reverts the output to io.Discard.
func SetOutputFile(fname string) error {
	mu.Lock()
	defer mu.Unlock()
	closeOutFile()
	if fname == "" {
		out = io.Discard
	} else {
		file, err := os.OpenFile(fname, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %v: %v", fname, err)
		}
		outFile = file
		out = file
	}
	for _, logger := range loggers {
		logger.SetOutput(out)
	}
	return nil
}

func closeOutFile() {
	if outFile != nil {
		outFile.Close()
		outFile = nil
	}
}
