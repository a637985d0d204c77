/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package errors provides numeric error codes (similar in spirit to HTTP
// status codes), a parent/child error hierarchy, and a per-package message
// registry. Every package in this module reserves a range of CodeError
// values via the MinPkgXxx constants below and registers its own message
// function in its init().
package errors

import (
	"fmt"
	"runtime"
)

// CodeError is a numeric error classification, analogous to an HTTP status code.
type CodeError uint16

const (
	UnknownError CodeError = 0
	UnknownMessage         = "unknown error"
)

// Package-reserved code ranges. Each package using this error model owns a
// contiguous block of 100 codes so that a naked integer value can be mapped
// back to its owning package.
const (
	MinPkgRateLimiter CodeError = iota*100 + 100
	MinPkgStats
	MinPkgManagedVec
	MinPkgTarget
	MinPkgPort
	MinPkgNetmon
	MinPkgWorker
	MinPkgProxyServer
	MinPkgAdmin
	MinPkgConfig
	MinPkgHttpCli
	MinPkgMetrics
)

// Message builds the human-readable text for a registered CodeError.
type Message func(code CodeError) string

var registry = make(map[CodeError]Message)

// RegisterMessages installs the message function for every code a package
// owns. Called once from each package's init().
func RegisterMessages(fct Message, codes ...CodeError) {
	for _, c := range codes {
		registry[c] = fct
	}
}

func messageFor(code CodeError) string {
	if fct, ok := registry[code]; ok {
		if msg := fct(code); msg != "" {
			return msg
		}
	}
	return UnknownMessage
}

// Error is the error type returned throughout this module. It carries a
// CodeError, an optional chain of parent errors, and the call site that
// created it.
type Error interface {
	error

	Code() CodeError
	IsCode(code CodeError) bool
	HasCode(code CodeError) bool

	Add(parents ...error) Error
	HasParent() bool
	Parents() []error

	Unwrap() error
}

type wdErr struct {
	code    CodeError
	parents []error
	file    string
	line    int
}

// Error builds a new Error of this code, optionally wrapping a parent error.
func (c CodeError) Error(parent error) Error {
	e := &wdErr{code: c}
	_, e.file, e.line, _ = runtime.Caller(1)
	if parent != nil {
		e.parents = append(e.parents, parent)
	}
	return e
}

// ErrorParent is an alias of Error kept for readability at call sites that
// wrap an existing error.
func (c CodeError) ErrorParent(parent error) Error {
	return c.Error(parent)
}

func (e *wdErr) Error() string {
	msg := messageFor(e.code)
	if e.file != "" {
		msg = fmt.Sprintf("%s (code %d at %s:%d)", msg, e.code, e.file, e.line)
	}
	if len(e.parents) == 0 {
		return msg
	}
	s := msg
	for _, p := range e.parents {
		s += ": " + p.Error()
	}
	return s
}

func (e *wdErr) Code() CodeError {
	return e.code
}

func (e *wdErr) IsCode(code CodeError) bool {
	return e.code == code
}

func (e *wdErr) HasCode(code CodeError) bool {
	if e.code == code {
		return true
	}
	for _, p := range e.parents {
		if we, ok := p.(Error); ok && we.HasCode(code) {
			return true
		}
	}
	return false
}

func (e *wdErr) Add(parents ...error) Error {
	for _, p := range parents {
		if p != nil {
			e.parents = append(e.parents, p)
		}
	}
	return e
}

func (e *wdErr) HasParent() bool {
	return len(e.parents) > 0
}

func (e *wdErr) Parents() []error {
	return e.parents
}

func (e *wdErr) Unwrap() error {
	if len(e.parents) == 0 {
		return nil
	}
	return e.parents[0]
}

// IsCode reports whether err was built from the given CodeError.
func IsCode(err error, code CodeError) bool {
	if err == nil {
		return false
	}
	if we, ok := err.(Error); ok {
		return we.IsCode(code)
	}
	return false
}
