package httpcli_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/wdproxy/httpcli"
)

func TestRequest_GetUrl_JoinsPath(t *testing.T) {
	r := httpcli.New(nil).SetUrl("http://example.test").AddPath("a", "b")
	require.Equal(t, "http://example.test/a/b", r.GetUrl())
}

func TestRequest_Do_SendsHeadersAndBody(t *testing.T) {
	var gotMethod, gotUA, gotBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotMethod = req.Method
		gotUA = req.Header.Get("User-Agent")
		buf := make([]byte, 64)
		n, _ := req.Body.Read(buf)
		gotBody = string(buf[:n])
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}

	resp, err := httpcli.New(nil).
		SetUrl(srv.URL).
		Method(http.MethodPost).
		Header("User-Agent", "curl/7.68.0").
		RequestJson(map[string]string{"hello": "world"}).
		DoParse(&out)

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "curl/7.68.0", gotUA)
	require.Contains(t, gotBody, "hello")
	require.True(t, out.OK)
}

func TestRequest_Do_InvalidURL(t *testing.T) {
	_, err := httpcli.New(nil).SetUrl("http://[::1]:badport").Do()
	require.Error(t, err)
}
