/*
 * Copyright 2021-present by Nedim Sabic Sabic
 * https://www.fibratus.io
 * All Rights Reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package rotate

import (
	"fmt"
	"path"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// maxFrames bounds the stack walk done to find the logging call site.
const maxFrames = 24

// Config is the configuration for the rotate file hook.
type Config struct {
	Filename   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Level      logrus.Level
	Formatter  logrus.Formatter
}

// Hook writes log entries to the size-rotated file. Each entry is
// annotated with the source location of the logging call.
type Hook struct {
	levels    []logrus.Level
	formatter logrus.Formatter
	w         *lumberjack.Logger
}

// NewHook builds a new rotate file hook.
func NewHook(config Config) (*Hook, error) {
	if config.Filename == "" {
		return nil, fmt.Errorf("rotate hook requires the file name")
	}
	formatter := config.Formatter
	if formatter == nil {
		formatter = &logrus.TextFormatter{DisableColors: true}
	}
	return &Hook{
		levels:    logrus.AllLevels[:config.Level+1],
		formatter: formatter,
		w: &lumberjack.Logger{
			Filename:   config.Filename,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
		},
	}, nil
}

// Levels returns the levels written to the file. These are all levels
// up to and including the configured one.
func (h *Hook) Levels() []logrus.Level { return h.levels }

// Fire formats the entry with the call site and appends it to the file.
func (h *Hook) Fire(entry *logrus.Entry) error {
	e := entry.WithField("source", callSite())
	e.Time, e.Level, e.Message = entry.Time, entry.Level, entry.Message
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.w.Write(b)
	return err
}

// Close closes the current log file.
func (h *Hook) Close() error { return h.w.Close() }

// callSite returns the dir/file.go:line of the first frame outside logrus.
func callSite() string {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !isLoggingFrame(frame.Function) {
			return fmt.Sprintf("%s/%s:%d", path.Base(path.Dir(frame.File)), path.Base(frame.File), frame.Line)
		}
		if !more {
			return ""
		}
	}
}

func isLoggingFrame(function string) bool {
	return strings.HasPrefix(function, "github.com/sirupsen/logrus")
}
