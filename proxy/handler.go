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

// Package proxy implements the per-InputPort reverse-proxy request path:
// select a target, enforce its rate limit, forward, fail over on error, and
// emit telemetry for every attempt. One Server fronts exactly one InputPort.
package proxy

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/nabbar/wdproxy/httpcli"
	"github.com/nabbar/wdproxy/managedvec"
	"github.com/nabbar/wdproxy/ratelimiter"
	"github.com/nabbar/wdproxy/target"
)

// forwardingDeadline bounds the total wall-clock time spent across all
// failover attempts for one inbound request.
const forwardingDeadline = 10 * time.Second

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := s.globals.Get(s.portNumber)
	if p == nil {
		http.Error(w, "no such port", http.StatusBadGateway)
		return
	}

	if p.IsDeactivated() {
		s.countResult("deactivated")
		http.Error(w, "port deactivated", http.StatusServiceUnavailable)
		return
	}

	idx, t := p.BestTarget()
	if t == nil {
		s.countResult("no_target")
		http.Error(w, "no upstream target available", http.StatusBadGateway)
		return
	}

	if err := t.Limiter().TryAcquireToken(); err != nil {
		window := ratelimiter.WindowSecond
		if exc, ok := err.(*ratelimiter.ExceededError); ok {
			window = exc.Window
		}
		s.countRateLimit(string(window))
		w.Header().Set(headerRateLimit, string(window))
		http.Error(w, err.Error(), http.StatusTooManyRequests)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "unable to read request body", http.StatusBadGateway)
		return
	}
	_ = r.Body.Close()

	deadline := time.Now().Add(forwardingDeadline)
	tried := map[managedvec.Idx]struct{}{}
	n := p.TargetCount()

	var lastStatus string
	var lastBody []byte
	var lastCode int

	for attempt := 0; attempt < n; attempt++ {
		if time.Now().After(deadline) {
			break
		}

		tried[idx] = struct{}{}

		respBody, status, respCT, latencyMs, forwardErr := s.forward(r, t, idx, body)
		if forwardErr == nil && status >= 200 && status < 300 {
			s.reportOK(idx, latencyMs)
			s.countResult("ok")
			if respCT != "" {
				w.Header().Set("Content-Type", respCT)
			}
			w.WriteHeader(status)
			_, _ = w.Write(respBody)
			return
		}

		reason := uint16(1)
		if forwardErr != nil {
			reason = 1 // transport error
		} else {
			reason = 2 // protocol error (non-2xx)
			lastCode = status
			lastBody = respBody
			lastStatus = http.StatusText(status)
		}
		s.reportFail(idx, reason)
		s.countResult("fail")

		var next *target.TargetServer
		idx, next = p.BestTargetExcluding(tried)
		if next == nil {
			t = nil
			break
		}
		t = next
	}

	s.countResult("exhausted")
	if lastCode != 0 {
		http.Error(w, "all upstream targets failed, last: "+lastStatus+" "+string(lastBody), http.StatusBadGateway)
		return
	}
	http.Error(w, "all upstream targets failed", http.StatusBadGateway)
}

// forward sends body to t's URI with the standard outbound header set and
// returns the upstream response body, status code, content type, and
// measured latency.
func (s *Server) forward(r *http.Request, t *target.TargetServer, idx managedvec.Idx, body []byte) ([]byte, int, string, uint16, error) {
	start := time.Now()

	req := httpcli.New(s.clientFct).
		SetUrl(t.URI()).
		Method(http.MethodPost).
		Timeout(forwardingDeadline).
		RequestReader(bytes.NewReader(body), int64(len(body)))

	// Preserve whatever headers the client sent, then overlay the mandatory
	// outbound set so they always win regardless of client input.
	for k, vals := range r.Header {
		if len(vals) == 0 || k == "Content-Length" {
			continue
		}
		req = req.Header(k, vals[0])
	}
	req = req.
		Header("Content-Type", "application/json").
		Header("User-Agent", outboundUserAgent).
		Header("Accept", "*/*").
		Header(headerServerIdx, strconv.Itoa(int(idx))).
		Header(headerServerHC, "0")

	resp, err := req.Do()
	latency := uint16(time.Since(start).Milliseconds())
	if err != nil {
		return nil, 0, "", latency, err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, "", latency, err
	}
	return out, resp.StatusCode, resp.Header.Get("Content-Type"), latency, nil
}
