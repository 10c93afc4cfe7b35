package httpclient_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/mailcheck/internal/httpclient"
	"github.com/tbckr/mailcheck/internal/ratelimit"
)

const dohURL = "https://dns.example.net/dns-query"

// mockedClient returns a paced client whose transport is served by httpmock.
// Each request is answered by the next entry of script; the last entry
// repeats once the script runs out.
func mockedClient(t *testing.T, script ...httpmock.Responder) (*int, func() (int, error)) {
	t.Helper()
	client, err := httpclient.New("", "", nil, false)
	require.NoError(t, err)
	httpclient.AttachRateLimit(client, ratelimit.New(1000, 1000), nil)

	httpmock.ActivateNonDefault(client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	calls := 0
	httpmock.RegisterResponder(http.MethodGet, dohURL, func(r *http.Request) (*http.Response, error) {
		step := script[min(calls, len(script)-1)]
		calls++
		return step(r)
	})

	do := func() (int, error) {
		resp, err := client.R().SetContext(context.Background()).Get(dohURL)
		if err != nil {
			return 0, err
		}
		return resp.StatusCode, nil
	}
	return &calls, do
}

func TestAttachRateLimit_Retries(t *testing.T) {
	reset := httpmock.NewErrorResponder(errors.New("read: connection reset by peer"))
	ok := httpmock.NewStringResponder(http.StatusOK, "")
	throttled := func(*http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(http.StatusTooManyRequests, "")
		resp.Header.Set("Retry-After", "0")
		return resp, nil
	}
	canceled := httpmock.NewErrorResponder(context.Canceled)

	tests := []struct {
		name      string
		script    []httpmock.Responder
		wantCalls int
		wantCode  int
		wantErr   bool
	}{
		{name: "transport error then success", script: []httpmock.Responder{reset, reset, ok}, wantCalls: 3, wantCode: http.StatusOK},
		{name: "throttled then success", script: []httpmock.Responder{throttled, ok}, wantCalls: 2, wantCode: http.StatusOK},
		{name: "persistent transport error", script: []httpmock.Responder{reset}, wantCalls: 4, wantErr: true},
		{name: "cancellation not retried", script: []httpmock.Responder{canceled}, wantCalls: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, do := mockedClient(t, tt.script...)
			code, err := do()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantCode, code)
			}
			assert.Equal(t, tt.wantCalls, *calls)
		})
	}
}
