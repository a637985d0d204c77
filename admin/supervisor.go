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
	"time"

	"github.com/nabbar/wdproxy/logger"
)

// Runnable is anything AutoThread can supervise: ProxyServer, NetworkMonitor
// and RequestWorker all implement it with a blocking Run that returns when
// ctx is cancelled.
type Runnable interface {
	Run(ctx context.Context) error
}

// Restart backoff is four 500ms checks (2s total) between attempts, each
// observing shutdown so a cancellation during backoff exits immediately
// instead of waiting out the full window.
const (
	restartBackoffCheck = 500 * time.Millisecond
	restartBackoffTries = 4
)

// AutoThread runs factory() in a loop: on panic or returned error it logs
// and restarts after a backoff, checking for shutdown between tries. It
// returns once ctx is cancelled. Panics inside Run are recovered by
// runOnce; factory() itself is called outside that recover, so a panic
// while building the Runnable is not caught.
func AutoThread(ctx context.Context, name string, factory func() Runnable, log logger.Logger) {
	if log == nil {
		log = logger.GetDefault()
	}
	log.Info("subsystem started", logger.Fields{"name": name})

	for {
		if ctx.Err() != nil {
			log.Info("subsystem shutting down - normal exit", logger.Fields{"name": name})
			return
		}

		err := runOnce(ctx, factory())
		if err != nil {
			log.Error("subsystem fault, restarting", logger.Fields{"name": name, "error": err})
		}

		if ctx.Err() != nil {
			log.Info("subsystem shutting down - normal exit", logger.Fields{"name": name})
			return
		}

		for i := 0; i < restartBackoffTries; i++ {
			if ctx.Err() != nil {
				break
			}
			select {
			case <-ctx.Done():
			case <-time.After(restartBackoffCheck):
			}
		}

		if ctx.Err() != nil {
			log.Info("subsystem shutting down - normal exit", logger.Fields{"name": name})
			return
		}
		log.Info("subsystem restarting", logger.Fields{"name": name})
	}
}

// runOnce invokes r.Run, converting a panic into a SubsystemFault error so
// AutoThread's restart loop handles both uniformly.
func runOnce(ctx context.Context, r Runnable) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("subsystem panic: %v", rec)
		}
	}()
	return r.Run(ctx)
}
