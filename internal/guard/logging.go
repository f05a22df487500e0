// Package guard provides logging hooks.
package guard

import (
	"encoding/json"
	"io"
	"log"

	"github.com/rs/zerolog"
)

// Logger provides structured logging hooks.
type Logger interface {
	Info(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// StdLogger logs JSON lines to an io.Writer.
type StdLogger struct {
	l *log.Logger
}

// NewStdLogger constructs a StdLogger.
func NewStdLogger(w io.Writer) *StdLogger {
	return &StdLogger{l: log.New(w, "", log.LstdFlags)}
}

// Info logs an info message.
func (s *StdLogger) Info(msg string, fields map[string]any) {
	s.log("info", msg, fields)
}

// Error logs an error message.
func (s *StdLogger) Error(msg string, fields map[string]any) {
	s.log("error", msg, fields)
}

func (s *StdLogger) log(level string, msg string, fields map[string]any) {
	if s == nil || s.l == nil {
		return
	}
	payload := map[string]any{
		"level": level,
		"msg":   msg,
	}
	for key, value := range fields {
		payload[key] = value
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.l.Println(msg)
		return
	}
	s.l.Println(string(data))
}

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	l zerolog.Logger
}

// NewZerologLogger constructs a ZerologLogger writing to w.
func NewZerologLogger(w io.Writer) *ZerologLogger {
	if w == nil {
		w = io.Discard
	}
	return &ZerologLogger{l: zerolog.New(w).With().Timestamp().Logger()}
}

// Info logs an info message.
func (z *ZerologLogger) Info(msg string, fields map[string]any) {
	if z == nil {
		return
	}
	z.l.Info().Fields(fields).Msg(msg)
}

// Error logs an error message.
func (z *ZerologLogger) Error(msg string, fields map[string]any) {
	if z == nil {
		return
	}
	z.l.Error().Fields(fields).Msg(msg)
}
