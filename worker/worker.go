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

// Package worker implements the active health-check loop (RequestWorker):
// it drains HealthProbe events from netmon.Monitor and issues a fixed
// JSON-RPC probe directly against the upstream URI, reporting the outcome
// back through the same telemetry channel ProxyServer uses. Probing the
// upstream directly keeps health-check traffic off the port's own
// rate-limit budget (see DESIGN.md).
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nabbar/wdproxy/httpcli"
	"github.com/nabbar/wdproxy/logger"
	"github.com/nabbar/wdproxy/netmon"
	"github.com/nabbar/wdproxy/port"
)

// probeBody is the fixed JSON-RPC liveness call every active health check
// sends.
const probeBody = `{"jsonrpc":"2.0","method":"suix_getLatestSuiSystemState","id":1,"params":[""]}`

// maxConcurrentProbes bounds how many probe dials run at once so one slow
// or hanging upstream cannot stall probing of the rest.
const maxConcurrentProbes = 16

const probeTimeout = 5 * time.Second

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.Number     `json:"id"`
	Error   json.RawMessage `json:"error"`
	Result  json.RawMessage `json:"result"`
}

// Worker issues active probes for every HealthProbe message it receives
// from a netmon.Monitor.
type Worker struct {
	globals   *port.Globals
	monitor   *netmon.Monitor
	clientFct httpcli.FctHttpClient
	log       logger.Logger
	sem       *semaphore.Weighted
}

// New builds a Worker bound to monitor's probe channel.
func New(globals *port.Globals, monitor *netmon.Monitor, log logger.Logger) *Worker {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Worker{
		globals: globals,
		monitor: monitor,
		log:     log,
		sem:     semaphore.NewWeighted(maxConcurrentProbes),
	}
}

// Run drains probe messages until ctx is cancelled. Each probe is dispatched
// onto its own goroutine, bounded by the semaphore, so a slow upstream does
// not delay probing the rest.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("request worker started", nil)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("request worker shutting down", nil)
			return nil
		case msg, ok := <-w.monitor.Probes():
			if !ok {
				return nil
			}
			if err := w.sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			go func(m netmon.Msg) {
				defer w.sem.Release(1)
				w.probe(ctx, m)
			}(msg)
		}
	}
}

func (w *Worker) probe(ctx context.Context, msg netmon.Msg) {
	p := w.globals.Get(msg.PortIdx)
	if p == nil {
		return
	}
	t := p.Target(msg.ServerIdx)
	if t == nil {
		return
	}

	start := time.Now()
	req := httpcli.New(w.clientFct).
		SetUrl(t.URI()).
		Method(http.MethodPost).
		Header("Content-Type", "application/json").
		Header("User-Agent", "curl/7.68.0").
		Header("Accept", "*/*").
		Header("X-SBSD-SERVER-IDX", strconv.Itoa(int(msg.ServerIdx))).
		Header("X-SBSD-SERVER-HC", "1").
		Timeout(probeTimeout).
		RequestReader(bytes.NewReader([]byte(probeBody)), int64(len(probeBody)))

	resp, err := req.Do()
	latency := uint16(time.Since(start).Milliseconds())

	if err != nil {
		w.report(ctx, msg, false, latency)
		return
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		w.report(ctx, msg, false, latency)
		return
	}

	var env rpcEnvelope
	if err := json.Unmarshal(buf, &env); err != nil {
		w.report(ctx, msg, false, latency)
		return
	}
	if env.JSONRPC != "2.0" || env.ID.String() != "1" || len(env.Error) > 0 {
		w.report(ctx, msg, false, latency)
		return
	}

	w.report(ctx, msg, true, latency)
}

func (w *Worker) report(ctx context.Context, msg netmon.Msg, ok bool, latencyMs uint16) {
	reportCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if ok {
		_ = w.monitor.ReportOK(reportCtx, msg.PortIdx, uint16(msg.ServerIdx), latencyMs)
	} else {
		_ = w.monitor.ReportFail(reportCtx, msg.PortIdx, uint16(msg.ServerIdx), 1)
	}
}
