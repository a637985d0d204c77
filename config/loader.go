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

package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/nabbar/wdproxy/logger"
)

// debounceWindow absorbs the burst of fsnotify events a single editor save
// typically produces (write + chmod + rename-into-place) into one reload.
const debounceWindow = 200 * time.Millisecond

// OnChange is invoked with the freshly decoded Document after a debounced
// file-change, or with a non-nil error if the reload failed to decode,
// in which case the previous Document remains in effect and the error is
// the caller's ConfigError to surface to the admin API.
type OnChange func(Document, error)

// Loader owns the viper instance that reads one workdir configuration file
// and watches it for changes.
type Loader struct {
	v   *viper.Viper
	log logger.Logger

	mu       sync.Mutex
	timer    *time.Timer
	onChange OnChange
}

// NewLoader reads path once (format inferred from its extension; YAML) and
// returns a Loader ready to Watch. The initial Document is
// returned so callers can reconcile before the first hot-reload fires.
func NewLoader(path string, log logger.Logger) (*Loader, Document, error) {
	if log == nil {
		log = logger.GetDefault()
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, nil, CodeDecode.Error(err)
	}

	l := &Loader{v: v, log: log}

	doc, err := l.decode()
	if err != nil {
		return nil, nil, err
	}
	return l, doc, nil
}

func (l *Loader) decode() (Document, error) {
	doc := Document{}
	if err := l.v.Unmarshal(&doc); err != nil {
		return nil, CodeDecode.Error(err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Watch installs a debounced fsnotify-backed reload: every write settles
// for debounceWindow before onChange fires, so a multi-step save (as most
// editors perform) triggers exactly one reconciliation instead of several.
func (l *Loader) Watch(onChange OnChange) {
	l.mu.Lock()
	l.onChange = onChange
	l.mu.Unlock()

	l.v.OnConfigChange(func(_ fsnotify.Event) {
		l.scheduleReload()
	})
	l.v.WatchConfig()
}

func (l *Loader) scheduleReload() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(debounceWindow, func() {
		doc, err := l.decode()
		l.log.Info("workdir configuration reloaded", logger.Fields{"error": err != nil})
		if l.onChange != nil {
			l.onChange(doc, err)
		}
	})
}
