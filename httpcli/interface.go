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

// Package httpcli is a small fluent wrapper around net/http used to forward
// requests to upstream targets and to issue active health-check probes. It
// deliberately does not own DNS resolution or TLS material: callers hand it
// a ready *http.Client (or rely on the package default).
package httpcli

import (
	"io"
	"net/http"
	"time"
)

// FctHttpClient builds the *http.Client used to issue a Request. Passing nil
// to New falls back to DefaultClient.
type FctHttpClient func() *http.Client

// RequestError wraps a failed round trip with the request context that
// produced it, so callers can log the target without re-threading the URL.
type RequestError interface {
	error
	URL() string
	Method() string
	Unwrap() error
}

type reqErr struct {
	method string
	url    string
	err    error
}

func (e *reqErr) Error() string {
	return e.method + " " + e.url + ": " + e.err.Error()
}

func (e *reqErr) URL() string     { return e.url }
func (e *reqErr) Method() string  { return e.method }
func (e *reqErr) Unwrap() error   { return e.err }

// Request is a fluent builder for a single outbound HTTP call.
type Request interface {
	Clone() Request

	SetClient(cli *http.Client) Request
	UseClientPackage() Request

	SetUrl(u string) Request
	GetUrl() string
	AddPath(elem ...string) Request
	AddParams(key, val string) Request

	Method(m string) Request
	Header(key, val string) Request
	ContentType(ct string) Request
	AuthBearer(token string) Request
	AuthBasic(user, pass string) Request
	Timeout(d time.Duration) Request

	RequestJson(body interface{}) Request
	RequestReader(body io.Reader, contentLength int64) Request

	Do() (*http.Response, error)
	DoParse(out interface{}) (*http.Response, error)
}

// New returns an empty Request. If fct is nil the package default client
// (DefaultClient) is used.
func New(fct FctHttpClient) Request {
	r := &request{
		method:  http.MethodGet,
		header:  make(http.Header),
		query:   make(map[string][]string),
	}
	if fct != nil {
		r.client = fct()
	} else {
		r.client = DefaultClient()
	}
	return r
}
