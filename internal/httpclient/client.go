// Package httpclient builds the outbound HTTP client used by the DoH backend.
package httpclient

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/imroc/req/v3"

	"github.com/tbckr/mailcheck/internal/version"
)

// DefaultUserAgent is the User-Agent sent when no explicit value is configured.
// var (not const) because version.Version is a link-time variable.
var DefaultUserAgent = "mailcheck/" + version.Version + " (+https://github.com/tbckr/mailcheck)"

// impersonatePresets are user_agent values that switch req into full browser
// impersonation (TLS fingerprint, HTTP/2 settings, header order, User-Agent).
var impersonatePresets = map[string]func(*req.Client) *req.Client{
	"chrome":  (*req.Client).ImpersonateChrome,
	"firefox": (*req.Client).ImpersonateFirefox,
	"safari":  (*req.Client).ImpersonateSafari,
}

// PresetNames returns the sorted browser preset names accepted as user_agent.
func PresetNames() []string {
	names := make([]string, 0, len(impersonatePresets))
	for name := range impersonatePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveUserAgent returns the User-Agent value for display in config show.
func ResolveUserAgent(userAgent string) string {
	if userAgent == "" {
		return DefaultUserAgent
	}
	return userAgent
}

// ResolveProxy returns the proxy value that will actually be used.
// An explicit proxy is returned as-is; otherwise "<from environment>" is
// returned when a standard proxy env var is set, and "" when none is.
func ResolveProxy(proxy string) string {
	if proxy != "" {
		return proxy
	}
	for _, env := range []string{"HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy", "ALL_PROXY", "all_proxy"} {
		if os.Getenv(env) != "" {
			return "<from environment>"
		}
	}
	return ""
}

// New builds a *req.Client with optional proxy and user-agent configuration.
// userAgent may be a browser preset (see PresetNames), a custom string, or
// empty for DefaultUserAgent. proxy supports http://, https:// and socks5://;
// when empty the standard proxy environment variables are honoured.
// With debug set and a non-nil logger, every response is logged at DEBUG.
func New(proxy, userAgent string, logger *slog.Logger, debug bool) (*req.Client, error) {
	client := req.NewClient()

	if impersonate, ok := impersonatePresets[userAgent]; ok {
		impersonate(client)
	} else {
		client.SetUserAgent(ResolveUserAgent(userAgent))
	}

	if proxy != "" {
		if err := validateProxy(proxy); err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", proxy, err)
		}
		client.SetProxyURL(proxy)
	} else {
		client.SetProxy(http.ProxyFromEnvironment)
	}

	if debug && logger != nil {
		attachDebugHook(client, logger)
	}
	return client, nil
}

// attachDebugHook logs method, URL and status of every response, plus a
// body snippet for non-2xx responses.
func attachDebugHook(client *req.Client, logger *slog.Logger) {
	client.OnAfterResponse(func(_ *req.Client, resp *req.Response) error {
		if resp.Request == nil || resp.Request.RawRequest == nil {
			return nil
		}
		logger.Debug("http response",
			"method", resp.Request.RawRequest.Method,
			"url", resp.Request.RawRequest.URL.String(),
			"status", resp.StatusCode,
		)
		if resp.Response != nil && !resp.IsSuccessState() {
			body := resp.String()
			if len(body) > 512 {
				body = body[:512]
			}
			logger.Debug("http error body", "status", resp.StatusCode, "body", body)
		}
		return nil
	})
}

func validateProxy(proxy string) error {
	for _, scheme := range []string{"http://", "https://", "socks5://"} {
		if strings.HasPrefix(proxy, scheme) {
			return nil
		}
	}
	return fmt.Errorf("proxy scheme must be http://, https://, or socks5://")
}
