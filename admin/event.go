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

// Package admin implements AdminController: the single-threaded
// reconciler that turns a config.Document into the live InputPort set, and
// the supervisor that keeps one ProxyServer subsystem running per active
// port, auto-restarting on panic or error.
package admin

import "github.com/nabbar/wdproxy/config"

// Kind is one of the three coarse event kinds the generic control channel
// carries, mirroring EVENT_AUDIT/EVENT_UPDATE/EVENT_EXEC.
type Kind uint8

const (
	// KindAudit is a read-only global scan; it may self-enqueue a
	// KindUpdate if it detects configuration drift.
	KindAudit Kind = iota + 1
	// KindUpdate applies a new config.Document to the live port set.
	KindUpdate
	// KindExec executes an explicit action (publish, restart, ...).
	KindExec
)

// ExecAction names what a KindExec event asks the controller to do.
type ExecAction string

const (
	ExecRestartPort ExecAction = "restart-port"
)

// Event is one message on AdminController's generic control queue.
type Event struct {
	Kind Kind

	// Doc carries the new configuration for KindUpdate.
	Doc config.Document

	// Action and Port carry the parameters of a KindExec event.
	Action ExecAction
	Port   uint16

	// Resp, if non-nil, receives exactly one reply before the event is
	// considered handled: a one-shot response channel for synchronous
	// admin calls.
	Resp chan string
}
