package proxy_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/wdproxy/port"
	"github.com/nabbar/wdproxy/proxy"
	"github.com/nabbar/wdproxy/target"
)

func TestServeHTTP_UnknownPort_Returns502(t *testing.T) {
	s := proxy.New(9999, port.NewGlobals(), nil, nil, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServeHTTP_DeactivatedPort_Returns503(t *testing.T) {
	globals := port.NewGlobals()
	p := port.New(9000)
	p.Deactivate()
	globals.Put(p)
	s := proxy.New(9000, globals, nil, nil, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServeHTTP_NoTargets_Returns502(t *testing.T) {
	globals := port.NewGlobals()
	globals.Put(port.New(9001))
	s := proxy.New(9001, globals, nil, nil, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServeHTTP_ForwardsToUpstreamAndPassesBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.Equal(t, "0", r.Header.Get("X-SBSD-SERVER-HC"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}))
	defer upstream.Close()

	globals := port.NewGlobals()
	p := port.New(9002)
	ts, err := target.New(upstream.URL, 0, 0)
	require.NoError(t, err)
	p.PushTarget(ts)
	globals.Put(p)

	s := proxy.New(9002, globals, nil, nil, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"jsonrpc":"2.0"}`))
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `{"jsonrpc":"2.0"}`, rec.Body.String())
}

func TestServeHTTP_RateLimited_Returns429(t *testing.T) {
	globals := port.NewGlobals()
	p := port.New(9003)
	ts, err := target.New("http://127.0.0.1:1", 1, 1)
	require.NoError(t, err)
	p.PushTarget(ts)
	globals.Put(p)

	s := proxy.New(9003, globals, nil, nil, nil)

	req := func() *http.Request { return httptest.NewRequest(http.MethodPost, "/", nil) }

	rec1 := httptest.NewRecorder()
	s.ServeHTTP(rec1, req())

	rec2 := httptest.NewRecorder()
	s.ServeHTTP(rec2, req())
	require.Equal(t, http.StatusTooManyRequests, rec2.Code)
	require.NotEmpty(t, rec2.Header().Get("X-SBSD-RATE-LIMIT-WINDOW"))
}

func TestServeHTTP_FailsOverToSecondTarget(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	globals := port.NewGlobals()
	p := port.New(9004)
	// Both targets start with an equal, neutral health score: BestTarget's
	// tie-break keeps the lowest index, so the unreachable one is tried
	// first and the handler must fail over to the second on its own.
	bad, err := target.New("http://127.0.0.1:1", 0, 0)
	require.NoError(t, err)
	good, err := target.New(upstream.URL, 0, 0)
	require.NoError(t, err)
	p.PushTarget(bad)
	p.PushTarget(good)
	globals.Put(p)

	s := proxy.New(9004, globals, nil, nil, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
