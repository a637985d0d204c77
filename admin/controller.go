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
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nabbar/wdproxy/config"
	"github.com/nabbar/wdproxy/httpcli"
	"github.com/nabbar/wdproxy/logger"
	"github.com/nabbar/wdproxy/metrics"
	"github.com/nabbar/wdproxy/netmon"
	"github.com/nabbar/wdproxy/port"
	"github.com/nabbar/wdproxy/proxy"
	"github.com/nabbar/wdproxy/target"
	"github.com/nabbar/wdproxy/worker"
)

// auditInterval is how often the controller re-enqueues its own KindAudit
// event, giving reconciliation a chance to self-heal from drift even if no
// config change ever arrives.
const auditInterval = 30 * time.Second

// eventQueueLen sizes the generic control channel other goroutines (the
// config loader, an eventual admin API) submit events onto.
const eventQueueLen = 64

// portSupervision tracks the cancellation and joinability of the two
// subsystems (ProxyServer, RequestWorker) AdminController runs for one
// active port.
type portSupervision struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// AdminController is the single-threaded reconciler and supervisor: every
// configuration change and every exec command passes through Run's event
// loop, so no two reconciliations and no reconciliation-versus-restart race
// can ever interleave.
type AdminController struct {
	globals   *port.Globals
	monitor   *netmon.Monitor
	collector *metrics.Collector
	clientFct httpcli.FctHttpClient
	log       logger.Logger

	eventCh chan Event

	mu      sync.Mutex
	sup     map[uint16]portSupervision
	lastDoc config.Document
}

// NewController builds an AdminController bound to globals, monitor and
// collector. monitor must already be running its own Run loop (typically
// supervised the same way ProxyServer and RequestWorker are, one level up).
func NewController(globals *port.Globals, monitor *netmon.Monitor, collector *metrics.Collector, log logger.Logger) *AdminController {
	if log == nil {
		log = logger.GetDefault()
	}
	return &AdminController{
		globals:   globals,
		monitor:   monitor,
		collector: collector,
		log:       log,
		eventCh:   make(chan Event, eventQueueLen),
		sup:       make(map[uint16]portSupervision),
	}
}

// Submit enqueues ev, blocking until it is accepted or ctx is cancelled.
func (c *AdminController) Submit(ctx context.Context, ev Event) error {
	select {
	case c.eventCh <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the event loop until ctx is cancelled: each batch of pending
// events is drained and deduplicated before being handled, so a burst of
// identical updates collapses to the latest one. On shutdown it cancels and
// joins every subsystem it started.
func (c *AdminController) Run(ctx context.Context) error {
	c.log.Info("admin controller started", nil)

	ticker := time.NewTicker(auditInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdownAll()
			c.log.Info("admin controller shutting down", nil)
			return nil

		case ev := <-c.eventCh:
			batch := append([]Event{ev}, DrainPending(c.eventCh)...)
			for _, e := range RemoveGenericEventDups(batch) {
				c.handle(ctx, e)
			}

		case <-ticker.C:
			c.handle(ctx, Event{Kind: KindAudit})
		}
	}
}

func (c *AdminController) handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case KindUpdate:
		c.reconcile(ctx, ev.Doc)
		c.mu.Lock()
		c.lastDoc = ev.Doc
		c.mu.Unlock()

	case KindAudit:
		c.mu.Lock()
		doc := c.lastDoc
		c.mu.Unlock()
		if doc != nil && c.detectDrift(doc) {
			// Audit itself is read-only: repair happens through a
			// self-directed update so every write stays on the one path.
			select {
			case c.eventCh <- Event{Kind: KindUpdate, Doc: doc}:
			default:
			}
		}

	case KindExec:
		switch ev.Action {
		case ExecRestartPort:
			c.restartPort(ctx, ev.Port)
		}
	}

	if ev.Resp != nil {
		select {
		case ev.Resp <- "ok":
		default:
		}
	}
}

// detectDrift reports whether the live state no longer matches doc: a
// desired port missing from Globals, a withdrawn port still present, a
// target-count mismatch, or an active port whose subsystems are not
// running. It takes no locks beyond short reads and never mutates.
func (c *AdminController) detectDrift(doc config.Document) bool {
	desired := doc.ByPort()

	for _, pn := range c.globals.Snapshot() {
		if _, wanted := desired[pn]; !wanted {
			return true
		}
	}
	for pn, pc := range desired {
		p := c.globals.Get(pn)
		if p == nil {
			return true
		}
		if p.TargetCount() != len(pc.Targets) {
			return true
		}
		c.mu.Lock()
		_, running := c.sup[pn]
		c.mu.Unlock()
		if running == pc.Deactivate {
			return true
		}
	}
	return false
}

// reconcile brings the live Globals set to match doc: ports absent from doc
// are deactivated, stopped and evicted; ports present are created if new,
// have their target list replaced, and are (re)started unless marked
// Deactivate.
func (c *AdminController) reconcile(ctx context.Context, doc config.Document) {
	desired := doc.ByPort()

	for _, pn := range c.globals.Snapshot() {
		if _, wanted := desired[pn]; !wanted {
			if p := c.globals.Get(pn); p != nil {
				p.Deactivate()
			}
			c.stopPort(pn)
			c.globals.Delete(pn)
			c.log.Info("port withdrawn", logger.Fields{"port": pn})
		}
	}

	for pn, pc := range desired {
		p := c.globals.Get(pn)
		if p != nil && p.IsDeactivated() && !pc.Deactivate {
			// A deactivated InputPort is terminal: reactivating the port
			// number takes a fresh InputPort.
			c.stopPort(pn)
			p = nil
		}
		if p == nil {
			p = port.New(pn)
			c.globals.Put(p)
			c.log.Info("port registered", logger.Fields{"port": pn})
		}

		c.syncTargets(p, pc.Targets)

		if pc.Deactivate {
			p.Deactivate()
			c.stopPort(pn)
			continue
		}

		c.mu.Lock()
		_, running := c.sup[pn]
		c.mu.Unlock()
		if !running {
			c.startPort(ctx, pn)
		}
	}
}

// syncTargets replaces p's target set with fresh TargetServer instances
// built from cfg. reconcile calls it for every port in the document on
// every applied update, whether or not that port's targets changed, so
// each update resets the health scores of all targets; no field-by-field
// diff is attempted.
func (c *AdminController) syncTargets(p *port.InputPort, cfg []config.TargetConfig) {
	for _, e := range p.Targets() {
		p.RemoveTarget(e.Index)
	}
	for _, tc := range cfg {
		t, err := target.New(tc.URI, tc.RPS, tc.RPM)
		if err != nil {
			c.log.Error("skipping invalid target", logger.Fields{"port": p.Port(), "uri": tc.URI, "error": err})
			continue
		}
		p.PushTarget(t)
	}
}

// startPort launches the supervised ProxyServer and RequestWorker for pn,
// each auto-restarting independently on panic or error.
func (c *AdminController) startPort(parent context.Context, pn uint16) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	c.mu.Lock()
	c.sup[pn] = portSupervision{cancel: cancel, done: done}
	c.mu.Unlock()

	go func() {
		defer close(done)

		var g errgroup.Group
		g.Go(func() error {
			AutoThread(ctx, fmt.Sprintf("proxy:%d", pn), func() Runnable {
				return proxy.New(pn, c.globals, c.monitor, c.collector, c.log)
			}, c.log)
			return nil
		})
		g.Go(func() error {
			AutoThread(ctx, fmt.Sprintf("worker:%d", pn), func() Runnable {
				return worker.New(c.globals, c.monitor, c.log)
			}, c.log)
			return nil
		})
		_ = g.Wait()
	}()
}

// stopPort cancels and joins the subsystems for pn, if any are running. It
// blocks until both have returned, so the caller can safely rebind the same
// port number afterward.
func (c *AdminController) stopPort(pn uint16) {
	c.mu.Lock()
	sup, ok := c.sup[pn]
	if ok {
		delete(c.sup, pn)
	}
	c.mu.Unlock()

	if !ok {
		return
	}
	sup.cancel()
	<-sup.done
}

// restartPort stops and relaunches the subsystems for pn, leaving the
// InputPort's target set and counters untouched. Used by KindExec's
// ExecRestartPort action.
func (c *AdminController) restartPort(ctx context.Context, pn uint16) {
	p := c.globals.Get(pn)
	if p == nil || p.IsDeactivated() {
		return
	}
	c.stopPort(pn)
	c.startPort(ctx, pn)
	c.log.Info("port restarted", logger.Fields{"port": pn})
}

func (c *AdminController) shutdownAll() {
	c.mu.Lock()
	pns := make([]uint16, 0, len(c.sup))
	for pn := range c.sup {
		pns = append(pns, pn)
	}
	c.mu.Unlock()

	for _, pn := range pns {
		c.stopPort(pn)
	}
}
