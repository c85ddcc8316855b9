package http

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/orbisauth/adapters/codec"
	"github.com/layer-3/orbisauth/adapters/store"
	"github.com/layer-3/orbisauth/adapters/tokenizer"
	"github.com/layer-3/orbisauth/adapters/wallet"
	"github.com/layer-3/orbisauth/core"
	"github.com/layer-3/orbisauth/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	svc := service.NewAuthService(
		tokenizer.NewJWTTokenizer(key),
		store.NewMemoryStore(),
		codec.NewBase64Codec(),
		nil,
	)
	return SetupRouter(svc, nil)
}

func encodedSession(t *testing.T, w *wallet.KeyWallet, exp time.Time) string {
	t.Helper()
	now := time.Now()
	s := core.Session{Cacao: core.Cacao{
		H: core.CacaoHeader{T: core.HeaderTypeEIP4361},
		P: core.CacaoPayload{
			Domain:  "app.example",
			Iss:     core.NewIssuer(w.ChainID(), w.Address()),
			Aud:     "https://app.example",
			Version: "1",
			Nonce:   "abc123",
			Iat:     core.FormatTime(now.Add(-time.Hour)),
			Exp:     core.FormatTime(exp),
		},
	}}
	msg, err := s.Cacao.P.Message()
	require.NoError(t, err)
	sig, err := w.SignMessage(context.Background(), []byte(msg))
	require.NoError(t, err)
	s.Cacao.S = &core.CacaoSignature{T: core.SignatureTypeEIP191, S: hexutil.Encode(sig)}

	raw, err := codec.NewBase64Codec().Encode(s)
	require.NoError(t, err)
	return raw
}

func serve(router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func connect(t *testing.T, router *gin.Engine, w *wallet.KeyWallet) ConnectResponse {
	t.Helper()
	rec := serve(router, http.MethodPost, "/auth/connect", "", ConnectRequest{
		Session: encodedSession(t, w, time.Now().Add(time.Hour)),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ConnectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestConnectAndMe(t *testing.T) {
	router := newTestRouter(t)
	w, err := wallet.GenerateKeyWallet("137")
	require.NoError(t, err)

	resp := connect(t, router, w)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Greater(t, resp.ExpiresIn, int64(0))
	require.NotNil(t, resp.User)
	assert.Equal(t, "137", resp.User.ChainID)

	rec := serve(router, http.MethodGet, "/api/me", resp.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var user core.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, w.Address(), user.Address)
	assert.Equal(t, core.NewIssuer("137", w.Address()), user.DID)

	rec = serve(router, http.MethodGet, "/api/authorize", resp.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authorized":true`)
}

func TestConnectErrors(t *testing.T) {
	router := newTestRouter(t)
	w, err := wallet.GenerateKeyWallet("1")
	require.NoError(t, err)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"missing session", map[string]string{}, http.StatusBadRequest},
		{"garbage session", ConnectRequest{Session: "%%%"}, http.StatusBadRequest},
		{"expired session", ConnectRequest{Session: encodedSession(t, w, time.Now().Add(-time.Minute))}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, http.MethodPost, "/auth/connect", "", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	for _, token := range []string{"", "not-a-jwt"} {
		rec := serve(router, http.MethodGet, "/api/me", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestLogout(t *testing.T) {
	router := newTestRouter(t)
	w, err := wallet.GenerateKeyWallet("1")
	require.NoError(t, err)

	resp := connect(t, router, w)

	rec := serve(router, http.MethodPost, "/auth/logout", resp.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/api/me", resp.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalidated")

	// the same session cannot mint a new grant
	rec = serve(router, http.MethodPost, "/auth/connect", "", ConnectRequest{
		Session: encodedSession(t, w, time.Now().Add(time.Hour)),
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(router, http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(router, http.MethodPost, "/auth/logout", "garbage", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
