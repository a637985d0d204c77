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

package admin

import (
	"strconv"

	"github.com/google/uuid"
)

// StatusHeader identifies one admin status reply: the method that produced
// it, a fresh per-call uuid, a uuid for the data snapshot, and the workdir
// key the caller asked about.
type StatusHeader struct {
	Method     string `json:"method"`
	MethodUUID string `json:"methodUuid"`
	DataUUID   string `json:"dataUuid"`
	Key        string `json:"key"`
}

// ServiceStatus describes one service (the proxy listener or one of its
// upstream targets) within a workdir.
type ServiceStatus struct {
	Label   string `json:"label"`
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// Status is the payload behind the admin API's getStatus result. The
// JSON-RPC envelope around it belongs to the admin API collaborator; this
// package only produces the payload.
type Status struct {
	Status   string          `json:"status"`
	Header   StatusHeader    `json:"header"`
	Services []ServiceStatus `json:"services"`
}

// StatusSource is the one interface surface the admin API collaborator
// needs from the core.
type StatusSource interface {
	GetStatus(key string) Status
}

// GetStatus builds the status snapshot for the workdir named key. It reads
// the last applied configuration and the live port state; it never mutates.
func (c *AdminController) GetStatus(key string) Status {
	st := Status{
		Status: "DOWN",
		Header: StatusHeader{
			Method:     "getStatus",
			MethodUUID: uuid.NewString(),
			DataUUID:   uuid.NewString(),
			Key:        key,
		},
	}

	c.mu.Lock()
	doc := c.lastDoc
	c.mu.Unlock()

	pc, known := doc[key]
	if !known {
		st.Services = []ServiceStatus{}
		return st
	}

	p := c.globals.Get(pc.Port)
	if p == nil || p.IsDeactivated() {
		st.Services = []ServiceStatus{{Label: "multi-link RPC", Status: "DOWN"}}
		return st
	}

	proxyStatus := "DOWN"
	if p.IsProxyServerRunning() {
		proxyStatus = "OK"
	}
	st.Services = append(st.Services, ServiceStatus{
		Label:   "multi-link RPC",
		Status:  proxyStatus,
		Details: "port " + strconv.Itoa(int(p.Port())),
	})

	for _, e := range p.Targets() {
		ts := "DOWN"
		if e.Value.Stats().IsHealthy() {
			ts = "OK"
		}
		st.Services = append(st.Services, ServiceStatus{
			Label:   e.Value.URI(),
			Status:  ts,
			Details: "score " + strconv.Itoa(int(e.Value.RelativeHealthScore())),
		})
	}

	if proxyStatus == "OK" && p.IsHealthy() {
		st.Status = "OK"
	}
	return st
}
