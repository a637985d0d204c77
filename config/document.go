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

// Package config loads the workdir configuration surface: one
// InputPort per workdir, its upstream target list with per-upstream rate
// limits, and a deactivate flag. It is read through spf13/viper and
// hot-reloaded via viper's fsnotify-backed watch, debounced into a single
// Document snapshot per change so AdminController always reconciles a
// complete, consistent view rather than a half-written file.
package config

import (
	"fmt"

	"github.com/nabbar/wdproxy/errors"
)

func init() {
	errors.RegisterMessages(func(code errors.CodeError) string {
		switch code {
		case CodeInvalidPort:
			return "config: port number must be non-zero"
		case CodeMissingTargets:
			return "config: workdir has no upstream targets"
		case CodeDecode:
			return "config: unable to decode document"
		}
		return ""
	}, CodeInvalidPort, CodeMissingTargets, CodeDecode)
}

const (
	CodeInvalidPort = errors.MinPkgConfig + iota
	CodeMissingTargets
	CodeDecode
)

// TargetConfig is one upstream URI and its per-upstream rate limits.
type TargetConfig struct {
	URI string `mapstructure:"uri" yaml:"uri"`
	RPS uint32 `mapstructure:"rps" yaml:"rps"`
	RPM uint32 `mapstructure:"rpm" yaml:"rpm"`
}

// PortConfig is the configuration surface for one workdir: its listening
// port, upstream targets, and deactivate flag.
type PortConfig struct {
	Port       uint16         `mapstructure:"port" yaml:"port"`
	Targets    []TargetConfig `mapstructure:"targets" yaml:"targets"`
	Deactivate bool           `mapstructure:"deactivate" yaml:"deactivate"`
}

// Document maps workdir name (localnet, devnet, testnet, mainnet, ...) to
// its PortConfig.
type Document map[string]PortConfig

// Validate checks every PortConfig for a non-zero port and at least one
// target, unless it is being deactivated (a deactivated port with no
// targets is valid: it is being torn down).
func (d Document) Validate() error {
	for workdir, pc := range d {
		if pc.Port == 0 {
			return CodeInvalidPort.Error(fmt.Errorf("workdir %q", workdir))
		}
		if len(pc.Targets) == 0 && !pc.Deactivate {
			return CodeMissingTargets.Error(fmt.Errorf("workdir %q", workdir))
		}
	}
	return nil
}

// ByPort re-keys the document by port number, the shape AdminController
// actually reconciles against.
func (d Document) ByPort() map[uint16]PortConfig {
	out := make(map[uint16]PortConfig, len(d))
	for _, pc := range d {
		out[pc.Port] = pc
	}
	return out
}
