package logx

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "203.0.113.42:5000", want: "203.0.113.0"},
		{in: "203.0.113.42", want: "203.0.113.0"},
		{in: "127.0.0.1:80", want: "127.0.0.1"},
		{in: "[2001:db8:1:2:3:4:5:6]:443", want: "2001:db8:1:2::"},
		{in: "not-an-ip", want: "unknown_ip"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, anonymizeIP(tt.in), tt.in)
	}
}

func TestRequestLogger_InjectsContextLogger(t *testing.T) {
	var fromCtx *zerolog.Logger
	h := RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = zerolog.Ctx(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/user", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	if assert.NotNil(t, fromCtx) {
		assert.NotEqual(t, zerolog.Disabled, fromCtx.GetLevel())
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestNew_TagsService(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Config{Level: "warn", ServiceName: "livechat"})

	logger.Info().Msg("dropped")
	logger.Warn().Msg("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"service":"livechat"`)
	assert.Contains(t, out, "kept")
}
