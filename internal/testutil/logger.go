// Package testutil holds helpers shared by package tests.
package testutil

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/dtroode/taskhub-server/internal/logger"
)

// MakeNoopLogger returns a logger that drops every record.
func MakeNoopLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, 0)
}

// LogBuffer collects log output. It is safe for concurrent writers, which
// background goroutines under test often are.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Contains reports whether any record so far contains s.
func (b *LogBuffer) Contains(s string) bool {
	return strings.Contains(b.String(), s)
}

// MakeCaptureLogger returns a debug-level logger writing into a LogBuffer.
func MakeCaptureLogger() (*logger.Logger, *LogBuffer) {
	buf := &LogBuffer{}
	return logger.NewWithWriter(buf, -4), buf
}
