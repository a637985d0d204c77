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

package port

import "sync"

// Globals is the process-wide concurrent map from TCP port number to
// InputPort. Created once at process start and never destroyed until exit.
// Many concurrent readers (the request path); AdminController and
// NetworkMonitor are the only writers, and they never write concurrently
// with each other (see the admin package's single message queue).
type Globals struct {
	mu    sync.RWMutex
	ports map[uint16]*InputPort
}

// NewGlobals returns an empty Globals.
func NewGlobals() *Globals {
	return &Globals{ports: make(map[uint16]*InputPort)}
}

// Get returns the InputPort bound to portNumber, or nil.
func (g *Globals) Get(portNumber uint16) *InputPort {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ports[portNumber]
}

// Put inserts or replaces the InputPort for its own Port() number.
func (g *Globals) Put(p *InputPort) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ports[p.Port()] = p
}

// Delete evicts the entry for portNumber. AdminController only calls this
// after the corresponding ProxyServer subsystem has confirmed exit.
func (g *Globals) Delete(portNumber uint16) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.ports, portNumber)
}

// Snapshot returns every currently registered port number, for
// reconciliation against a desired configuration set.
func (g *Globals) Snapshot() []uint16 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]uint16, 0, len(g.ports))
	for k := range g.ports {
		out = append(out, k)
	}
	return out
}

// Len reports how many ports are currently registered.
func (g *Globals) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.ports)
}
