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

package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nabbar/wdproxy/httpcli"
	"github.com/nabbar/wdproxy/logger"
	"github.com/nabbar/wdproxy/managedvec"
	"github.com/nabbar/wdproxy/metrics"
	"github.com/nabbar/wdproxy/netmon"
	"github.com/nabbar/wdproxy/port"
)

// stopTimeout bounds how long Run waits for the HTTP listener to drain in
// flight requests once its context is cancelled.
const stopTimeout = 1000 * time.Millisecond

// Server fronts exactly one InputPort: it owns the net/http listener and
// delegates every inbound request to the selection/forward/failover
// pipeline in ServeHTTP.
type Server struct {
	portNumber uint16
	globals    *port.Globals
	monitor    *netmon.Monitor
	collector  *metrics.Collector
	log        logger.Logger
	clientFct  httpcli.FctHttpClient

	mu  sync.Mutex
	srv *http.Server
}

// New builds a Server for portNumber. monitor and collector may be nil in
// tests that only exercise the selection/forwarding logic.
func New(portNumber uint16, globals *port.Globals, monitor *netmon.Monitor, collector *metrics.Collector, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Server{
		portNumber: portNumber,
		globals:    globals,
		monitor:    monitor,
		collector:  collector,
		log:        log,
	}
}

// Port reports the TCP port this Server listens on.
func (s *Server) Port() uint16 {
	return s.portNumber
}

// Run binds 0.0.0.0:<port> and serves until ctx is cancelled, at which
// point it shuts down gracefully within stopTimeout. It satisfies the
// admin package's Runnable contract so AdminController can supervise it
// with auto-restart.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort("0.0.0.0", strconv.Itoa(int(s.portNumber)))

	s.mu.Lock()
	s.srv = &http.Server{Addr: addr, Handler: s}
	srv := s.srv
	s.mu.Unlock()

	if p := s.globals.Get(s.portNumber); p != nil {
		p.SetProxyServerRunning(true)
		defer p.SetProxyServerRunning(false)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("proxy server starting", logger.Fields{"port": s.portNumber})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := srv.Shutdown(stopCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("proxy server shutdown error", logger.Fields{"port": s.portNumber}, err)
			return err
		}
		<-errCh
		s.log.Info("proxy server stopped", logger.Fields{"port": s.portNumber})
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("proxy server on port %d: %w", s.portNumber, err)
	}
}

func (s *Server) countResult(result string) {
	if s.collector == nil {
		return
	}
	s.collector.RequestsTotal.WithLabelValues(strconv.Itoa(int(s.portNumber)), result).Inc()
}

func (s *Server) countRateLimit(window string) {
	if s.collector == nil {
		return
	}
	s.collector.RateLimitRejections.WithLabelValues(strconv.Itoa(int(s.portNumber)), window).Inc()
}

func (s *Server) reportOK(idx managedvec.Idx, latencyMs uint16) {
	if s.monitor == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.monitor.ReportOK(ctx, s.portNumber, uint16(idx), latencyMs)
}

func (s *Server) reportFail(idx managedvec.Idx, reasonCode uint16) {
	if s.monitor == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.monitor.ReportFail(ctx, s.portNumber, uint16(idx), reasonCode)
}
