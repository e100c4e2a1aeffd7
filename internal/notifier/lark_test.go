package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func larkServer(t *testing.T, status int, body string, got *larkMessage) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSendToLark(t *testing.T) {
	var got larkMessage
	srv := larkServer(t, http.StatusOK, `{"code":0,"msg":"success"}`, &got)

	require.NoError(t, SendToLark(context.Background(), "买入成交", srv.URL))
	assert.Equal(t, "text", got.MsgType)
	assert.Equal(t, "买入成交", got.Content.Text)
}

func TestSendToLarkErrors(t *testing.T) {
	ctx := context.Background()

	assert.Error(t, SendToLark(ctx, "x", ""))
	assert.NoError(t, SendToLark(ctx, "", "http://127.0.0.1:1"))

	srv := larkServer(t, http.StatusOK, `{"code":19001,"msg":"param invalid"}`, nil)
	err := SendToLark(ctx, "x", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "19001")

	srv = larkServer(t, http.StatusBadRequest, `oops`, nil)
	err = SendToLark(ctx, "x", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
