/*
 * MIT License
 *
 * Copyright (c) 2024 ctrlplane contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package logger is the structured-log external collaborator:
// Log(level, target, message, fields), nothing more. No component in
// this repository assumes any particular formatting.
package logger

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ctrlplane/devicetransport/logger/level"
)

const (
	TraceLevel = level.TraceLevel
	DebugLevel = level.DebugLevel
	InfoLevel  = level.InfoLevel
	WarnLevel  = level.WarnLevel
	ErrorLevel = level.ErrorLevel
	FatalLevel = level.FatalLevel
)

// Fields carries structured key/value context alongside a log message.
type Fields map[string]any

// Logger is the exact interface every consumer needs. Every transport,
// the reconnect task, and the hot-plug monitor take one via constructor
// injection, never a package global.
type Logger interface {
	Log(lvl level.Level, target, message string, fields Fields)
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New returns a Logger that formats through logrus (see
// logger/level/model.go's Logrus() conversion).
func New(out io.Writer) Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.TraceLevel)
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) Log(lvl level.Level, target, message string, fields Fields) {
	f := make(logrus.Fields, len(fields)+1)
	for k, v := range fields {
		f[k] = v
	}
	f["target"] = target

	entry := l.entry.WithFields(f)
	if lvl == level.TraceLevel {
		entry.Trace(message)
		return
	}
	entry.Log(lvl.Logrus(), message)
}

type discard struct{}

// Discard returns a Logger that drops every call, for tests that don't
// care about log output.
func Discard() Logger { return discard{} }

func (discard) Log(level.Level, string, string, Fields) {}
