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

package httpcli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nabbar/wdproxy/errors"
)

func init() {
	errors.RegisterMessages(func(code errors.CodeError) string {
		switch code {
		case codeBuildRequest:
			return "unable to build http request"
		case codeDoRequest:
			return "http request failed"
		case codeDecodeBody:
			return "unable to decode response body"
		}
		return ""
	}, codeBuildRequest, codeDoRequest, codeDecodeBody)
}

const (
	codeBuildRequest = errors.MinPkgHttpCli + iota
	codeDoRequest
	codeDecodeBody
)

type request struct {
	client  *http.Client
	method  string
	rawUrl  string
	path    []string
	query   map[string][]string
	header  http.Header
	body    io.Reader
	bodyLen int64
	timeout time.Duration
}

func (r *request) Clone() Request {
	c := &request{
		client:  r.client,
		method:  r.method,
		rawUrl:  r.rawUrl,
		path:    append([]string(nil), r.path...),
		query:   make(map[string][]string, len(r.query)),
		header:  r.header.Clone(),
		timeout: r.timeout,
	}
	for k, v := range r.query {
		c.query[k] = append([]string(nil), v...)
	}
	return c
}

func (r *request) SetClient(cli *http.Client) Request {
	r.client = cli
	return r
}

func (r *request) SetUrl(u string) Request {
	r.rawUrl = u
	return r
}

func (r *request) GetUrl() string {
	u := r.rawUrl
	if len(r.path) > 0 {
		u = strings.TrimRight(u, "/") + "/" + strings.Join(r.path, "/")
	}
	return u
}

func (r *request) AddPath(elem ...string) Request {
	r.path = append(r.path, elem...)
	return r
}

func (r *request) AddParams(key, val string) Request {
	r.query[key] = append(r.query[key], val)
	return r
}

func (r *request) Method(m string) Request {
	r.method = m
	return r
}

func (r *request) Header(key, val string) Request {
	r.header.Set(key, val)
	return r
}

func (r *request) ContentType(ct string) Request {
	return r.Header("Content-Type", ct)
}

func (r *request) AuthBearer(token string) Request {
	return r.Header("Authorization", "Bearer "+token)
}

func (r *request) AuthBasic(user, pass string) Request {
	req := &http.Request{Header: make(http.Header)}
	req.SetBasicAuth(user, pass)
	r.header.Set("Authorization", req.Header.Get("Authorization"))
	return r
}

func (r *request) Timeout(d time.Duration) Request {
	r.timeout = d
	return r
}

func (r *request) RequestJson(body interface{}) Request {
	buf, err := json.Marshal(body)
	if err != nil {
		r.body = bytes.NewReader(nil)
		return r
	}
	r.bodyLen = int64(len(buf))
	r.body = bytes.NewReader(buf)
	return r.ContentType("application/json")
}

func (r *request) RequestReader(body io.Reader, contentLength int64) Request {
	r.body = body
	r.bodyLen = contentLength
	return r
}

func (r *request) buildURL() (string, error) {
	u, err := url.Parse(r.GetUrl())
	if err != nil {
		return "", err
	}
	if len(r.query) > 0 {
		q := u.Query()
		for k, vals := range r.query {
			for _, v := range vals {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (r *request) Do() (*http.Response, error) {
	u, err := r.buildURL()
	if err != nil {
		return nil, codeBuildRequest.Error(err)
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	}

	method := r.method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r.body)
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, codeBuildRequest.Error(err)
	}
	if r.bodyLen > 0 {
		req.ContentLength = r.bodyLen
	}
	for k, vals := range r.header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	cli := r.client
	if cli == nil {
		cli = DefaultClient()
	}

	resp, err := cli.Do(req)
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, &reqErr{method: method, url: u, err: codeDoRequest.Error(err)}
	}
	// cancel must outlive the headers-received point: it is only invoked
	// once the caller closes the response body, not when Do returns.
	if cancel != nil {
		resp.Body = &cancelOnCloseBody{ReadCloser: resp.Body, cancel: cancel}
	}
	return resp, nil
}

// cancelOnCloseBody defers releasing a Do-scoped timeout context until the
// caller has finished reading the response, so the body read is not aborted
// the instant Do returns with headers.
type cancelOnCloseBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnCloseBody) Close() error {
	defer b.cancel()
	return b.ReadCloser.Close()
}

func (r *request) DoParse(out interface{}) (*http.Response, error) {
	resp, err := r.Do()
	if err != nil {
		return resp, err
	}
	defer resp.Body.Close()

	if out == nil {
		return resp, nil
	}

	dec := json.NewDecoder(resp.Body)
	if err = dec.Decode(out); err != nil && err != io.EOF {
		return resp, codeDecodeBody.Error(err)
	}
	return resp, nil
}
