package httpclient_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/mailcheck/internal/httpclient"
)

func clearProxyEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{"HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy", "ALL_PROXY", "all_proxy"} {
		t.Setenv(env, "")
	}
}

func TestNew_ProxyValidation(t *testing.T) {
	for _, proxy := range []string{"", "http://proxy.internal:3128", "https://proxy.internal:3128", "socks5://127.0.0.1:9050"} {
		_, err := httpclient.New(proxy, "", nil, false)
		assert.NoError(t, err, proxy)
	}

	_, err := httpclient.New("ftp://proxy.internal:21", "", nil, false)
	assert.ErrorContains(t, err, "proxy scheme")
}

func TestNew_SendsUserAgent(t *testing.T) {
	clearProxyEnv(t)
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.UserAgent()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	tests := map[string]string{
		"":                   httpclient.DefaultUserAgent,
		"mx-audit/2.1 (ops)": "mx-audit/2.1 (ops)",
	}
	for configured, want := range tests {
		client, err := httpclient.New("", configured, nil, false)
		require.NoError(t, err)
		resp, err := client.R().SetContext(context.Background()).Get(srv.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, want, got)
	}
}

func TestNew_DebugLogsErrorBody(t *testing.T) {
	clearProxyEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream resolver refused", http.StatusBadGateway)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client, err := httpclient.New("", "", logger, true)
	require.NoError(t, err)

	_, err = client.R().Get(srv.URL)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "status=502")
	assert.Contains(t, buf.String(), "upstream resolver refused")
}

func TestNew_BrowserPresets(t *testing.T) {
	assert.Equal(t, []string{"chrome", "firefox", "safari"}, httpclient.PresetNames())
	for _, name := range httpclient.PresetNames() {
		_, err := httpclient.New("", name, nil, false)
		assert.NoError(t, err, name)
	}
}

func TestResolveProxy(t *testing.T) {
	clearProxyEnv(t)
	assert.Empty(t, httpclient.ResolveProxy(""))
	assert.Equal(t, "socks5://127.0.0.1:9050", httpclient.ResolveProxy("socks5://127.0.0.1:9050"))

	t.Setenv("all_proxy", "socks5://10.0.0.1:1080")
	assert.Equal(t, "<from environment>", httpclient.ResolveProxy(""))
	assert.Equal(t, "http://explicit:8080", httpclient.ResolveProxy("http://explicit:8080"))
}

func TestResolveUserAgent(t *testing.T) {
	assert.Equal(t, httpclient.DefaultUserAgent, httpclient.ResolveUserAgent(""))
	assert.Equal(t, "firefox", httpclient.ResolveUserAgent("firefox"))
	assert.Contains(t, httpclient.DefaultUserAgent, "mailcheck/")
}
