package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "u1", Username: "ann"}, "secret", time.Hour)
	require.NoError(t, err)

	payload, err := ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", payload.ID)
	assert.Equal(t, "ann", payload.Username)
	assert.Equal(t, TokenIssuer, payload.Issuer)

	_, err = ParseToken(token, "other")
	assert.Error(t, err)

	expired, err := GenerateToken(&Payload{ID: "u1"}, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, "secret")
	assert.Error(t, err)

	anonymous, err := GenerateToken(&Payload{}, "secret", time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(anonymous, "secret")
	assert.Error(t, err, "a token must name a user")
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  string
	}{
		{name: "none", setup: func(*http.Request) {}, want: ""},
		{name: "bearer header", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") }, want: "abc"},
		{name: "other scheme ignored", setup: func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, want: ""},
		{name: "cookie", setup: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "c"}) }, want: "c"},
		{name: "query", setup: func(r *http.Request) { r.URL.RawQuery = "token=q" }, want: "q"},
		{name: "header wins", setup: func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer h")
			r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "c"})
		}, want: "h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(r)
			assert.Equal(t, tt.want, TokenFromRequest(r))
		})
	}
}

func TestMiddleware(t *testing.T) {
	var seen *Payload
	h := IdentityExtractorMiddleware("secret")(RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetPayloadFromContext(r)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)

	token, err := GenerateToken(&Payload{ID: "u1"}, "secret", time.Hour)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.ID)
}
