/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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
 *
 *
 */

// Package logger wraps sirupsen/logrus with the structured Entry/Fields
// shape used across this module, so every subsystem logs through the same
// small surface instead of reaching for log.Printf or fmt.Println directly.
package logger

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Entry(lvl Level, msg string, args ...interface{}) *Entry
	Debug(msg string, fields Fields, args ...interface{})
	Info(msg string, fields Fields, args ...interface{})
	Warn(msg string, fields Fields, args ...interface{})
	Error(msg string, fields Fields, args ...interface{})
	SetLevel(lvl Level)
}

type logger struct {
	mu  sync.RWMutex
	log *logrus.Logger
}

func New(component string) Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &logger{log: l}
}

var (
	defaultOnce sync.Once
	defaultInst Logger
)

// GetDefault returns the process-wide default logger, created lazily.
func GetDefault() Logger {
	defaultOnce.Do(func() {
		defaultInst = New("wdproxy")
	})
	return defaultInst
}

func (o *logger) SetLevel(lvl Level) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.log.SetLevel(lvl.logrus())
}

type Entry struct {
	log    *logrus.Logger
	level  Level
	msg    string
	fields Fields
	errs   []error
}

func (o *logger) Entry(lvl Level, msg string, args ...interface{}) *Entry {
	return &Entry{log: o.log, level: lvl, msg: fmt.Sprintf(msg, args...)}
}

func (e *Entry) FieldSet(f Fields) *Entry {
	e.fields = f
	return e
}

func (e *Entry) FieldAdd(key string, val interface{}) *Entry {
	e.fields = e.fields.Add(key, val)
	return e
}

func (e *Entry) ErrorAdd(cond bool, err error) *Entry {
	if cond && err != nil {
		e.errs = append(e.errs, err)
	}
	return e
}

// Log emits the entry unconditionally.
func (e *Entry) Log() {
	if e == nil || e.log == nil {
		return
	}
	fields := make(logrus.Fields, len(e.fields))
	for k, v := range e.fields {
		fields[k] = v
	}
	if len(e.errs) > 0 {
		fields["errors"] = e.errs
	}
	e.log.WithFields(fields).Log(e.level.logrus(), e.msg)
}

// Check logs the entry only if its level is above the given floor; NilLevel
// disables the check entirely, gating expensive log construction behind a
// configured verbosity.
func (e *Entry) Check(floor Level) {
	if floor == NilLevel {
		return
	}
	if e.level > floor {
		return
	}
	e.Log()
}

func (o *logger) Debug(msg string, fields Fields, args ...interface{}) {
	o.Entry(DebugLevel, msg, args...).FieldSet(fields).Log()
}

func (o *logger) Info(msg string, fields Fields, args ...interface{}) {
	o.Entry(InfoLevel, msg, args...).FieldSet(fields).Log()
}

func (o *logger) Warn(msg string, fields Fields, args ...interface{}) {
	o.Entry(WarnLevel, msg, args...).FieldSet(fields).Log()
}

func (o *logger) Error(msg string, fields Fields, args ...interface{}) {
	o.Entry(ErrorLevel, msg, args...).FieldSet(fields).Log()
}
