package cmd

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"klaviyo-sync/core/klaviyo"
	"klaviyo-sync/core/reconcile"
	"klaviyo-sync/core/singer"
)

type fakeProcessor struct {
	mu      sync.Mutex
	streams []string
	result  func(rec reconcile.Record) reconcile.Result
}

func (f *fakeProcessor) Process(_ context.Context, stream string, rec reconcile.Record) (reconcile.Result, error) {
	f.mu.Lock()
	f.streams = append(f.streams, stream)
	f.mu.Unlock()
	return f.result(rec), nil
}

const singerInput = `{"type":"SCHEMA","stream":"contacts","schema":{}}
{"type":"RECORD","stream":"contacts","record":{"email":"a@x.com"}}
{"type":"RECORD","stream":"orders","record":{"id":1}}
{"type":"RECORD","stream":"orders","record":{"id":2}}
{"type":"RECORD","stream":"customers","record":{"email":"b@x.com"}}
{"type":"STATE","value":{}}
`

func TestProcessStream(t *testing.T) {
	proc := &fakeProcessor{result: func(rec reconcile.Record) reconcile.Result {
		if rec.String("email") == "b@x.com" {
			return reconcile.Result{RecordKey: "b@x.com", Err: errors.New("bad"), State: reconcile.StateFailed}
		}
		return reconcile.Result{RecordKey: rec.Key(), Action: reconcile.ActionCreate, Success: true}
	}}

	summary := &syncSummary{}
	err := processStream(context.Background(), singer.NewReader(strings.NewReader(singerInput)), proc, 2, summary, zap.NewNop())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"contacts", "customers"}, proc.streams)
	assert.Equal(t, int64(2), summary.Processed.Load())
	assert.Equal(t, int64(1), summary.Created.Load())
	assert.Equal(t, int64(1), summary.Failed.Load())
	assert.Equal(t, int64(2), summary.Skipped.Load())
}

func TestProcessStream_StopsOnFatal(t *testing.T) {
	var lines strings.Builder
	for i := 0; i < 50; i++ {
		lines.WriteString(`{"type":"RECORD","stream":"contacts","record":{"email":"a@x.com"}}` + "\n")
	}

	var calls atomic.Int32
	proc := &fakeProcessor{result: func(rec reconcile.Record) reconcile.Result {
		calls.Add(1)
		return reconcile.Result{Err: &klaviyo.AuthError{StatusCode: 400}, State: reconcile.StateFailed}
	}}

	err := processStream(context.Background(), singer.NewReader(strings.NewReader(lines.String())), proc, 1, &syncSummary{}, zap.NewNop())
	var authErr *klaviyo.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Less(t, calls.Load(), int32(50))
}

func TestProcessStream_BadInput(t *testing.T) {
	proc := &fakeProcessor{result: func(reconcile.Record) reconcile.Result { return reconcile.Result{Success: true} }}
	err := processStream(context.Background(), singer.NewReader(strings.NewReader("not json\n")), proc, 1, &syncSummary{}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read input")
}

func newKlaviyoStub(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Klaviyo-API-Key pk_test", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodGet:
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"data":[]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/profiles":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"data":{"type":"profile","id":"new-id"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func useConfig(t *testing.T, baseURL string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{"api_private_key":"pk_test","klaviyo":{"base_url":"` + baseURL + `"},"server":{"api_key":"secret"},"log":{"level":"error"}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	prev := configFile
	configFile = path
	t.Cleanup(func() { configFile = prev })
}

func TestRunCheck(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		useConfig(t, newKlaviyoStub(t, http.StatusOK).URL)
		assert.NoError(t, runCheck(checkCmd, nil))
	})

	t.Run("rejected key", func(t *testing.T) {
		useConfig(t, newKlaviyoStub(t, http.StatusUnauthorized).URL)
		err := runCheck(checkCmd, nil)
		var upstreamErr *klaviyo.UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		assert.Equal(t, http.StatusUnauthorized, upstreamErr.StatusCode)
	})
}

func TestNewServer(t *testing.T) {
	useConfig(t, newKlaviyoStub(t, http.StatusOK).URL)
	rt, err := bootstrap(context.Background(), bootstrapOptions{})
	require.NoError(t, err)
	app := newServer(rt)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Ray-ID"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/contacts/state", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/contacts/records", strings.NewReader(`{"email":"a@x.com","name":"Ann Lee"}`))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/contacts/records", strings.NewReader(`{"email":"a@x.com","name":"Ann Lee"}`))
	req.Header.Set("X-API-Key", "secret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
