package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessiond/internal/session/domain"
	sessionhttp "github.com/aussiebroadwan/sessiond/internal/session/http"
	"github.com/aussiebroadwan/sessiond/internal/session/metrics"
	"github.com/aussiebroadwan/sessiond/internal/session/service"
	"github.com/aussiebroadwan/sessiond/internal/session/store/drivers/memory"
	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
	"github.com/aussiebroadwan/sessiond/pkg/slogx"
	"github.com/aussiebroadwan/sessiond/pkg/snowflake"
	"github.com/aussiebroadwan/sessiond/pkg/tokenx"
	"github.com/aussiebroadwan/sessiond/pkg/totpx"
)

const testServiceKey = "router-test-service-key"

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

type testServer struct {
	URL       string
	Client    *authsdk.Client
	Authority *service.Authority
	Metrics   *metrics.Metrics
	secret    []byte
}

func newTestServer(t *testing.T, mutate ...func(*sessionhttp.Router)) *testServer {
	t.Helper()

	gen, err := snowflake.New(3)
	require.NoError(t, err)

	totpSecret, err := totpx.NewSecret()
	require.NoError(t, err)

	st := memory.NewStore()
	m := metrics.New(true)
	authority := &service.Authority{
		Store:   st,
		IDs:     gen,
		Tokens:  tokenx.NewCodec([]byte("router-test-secret")),
		Config:  service.DefaultConfig(),
		Metrics: m,
		Logger:  slogx.Discard(),
	}

	r := sessionhttp.NewRouter("test", slogx.Discard())
	r.Authority = authority
	r.MFA = &service.MFAService{Secret: totpSecret, Issuer: "sessiond"}
	r.IDs = gen
	r.Store = st
	r.Metrics = m
	r.Limits = sessionhttp.Limits{} // unlimited
	r.ServiceKey = testServiceKey
	for _, fn := range mutate {
		fn(r)
	}
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testServer{
		URL:       srv.URL,
		Client:    authsdk.NewClient(srv.URL, authsdk.WithUserAgent(chromeUA), authsdk.WithServiceKey(testServiceKey)),
		Authority: authority,
		Metrics:   m,
		secret:    totpSecret,
	}
}

func (ts *testServer) login(t *testing.T, userID string, roles ...string) *authsdk.Session {
	t.Helper()
	s, err := ts.Client.Login(context.Background(), authsdk.CreateSessionRequest{
		UserID: userID,
		Roles:  roles,
		IP:     "10.1.2.3",
	})
	require.NoError(t, err)
	return s
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func postCreate(t *testing.T, ts *testServer, body, key string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/sessions", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(httpx.ServiceKeyHeader, key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) authsdk.APIError {
	t.Helper()
	var e authsdk.APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}

func TestCreateValidateRefresh(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	tokens, err := ts.Client.CreateSession(ctx, authsdk.CreateSessionRequest{
		UserID:      "u1",
		Roles:       []string{"member"},
		Permissions: []string{"chat:write"},
	})
	require.NoError(t, err)
	require.Equal(t, "Bearer", tokens.TokenType)
	require.EqualValues(t, 900, tokens.ExpiresIn)
	require.NotEmpty(t, tokens.SessionID)

	info, err := ts.Client.Validate(ctx, tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "u1", info.UserID)
	require.Equal(t, tokens.SessionID, info.SessionID)
	require.Equal(t, "desktop", info.DeviceInfo.DeviceType)
	require.Equal(t, chromeUA, info.DeviceInfo.UserAgent)
	require.Equal(t, "127.0.0.1", info.DeviceInfo.IP)

	refreshed, err := ts.Client.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, tokens.SessionID, refreshed.SessionID)

	// Rotation makes the first refresh token single use.
	_, err = ts.Client.Refresh(ctx, tokens.RefreshToken)
	require.ErrorIs(t, err, authsdk.ErrSessionNotFound)

	_, err = ts.Client.Validate(ctx, tokens.AccessToken)
	require.ErrorIs(t, err, authsdk.ErrSessionNotFound)
}

func TestValidate_BearerFallback(t *testing.T) {
	ts := newTestServer(t)
	s := ts.login(t, "u1")

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/sessions/validate", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+s.AccessToken())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestValidate_RejectsTamperedToken(t *testing.T) {
	ts := newTestServer(t)
	s := ts.login(t, "u1")

	tampered := s.AccessToken() + "x"
	_, err := ts.Client.Validate(context.Background(), tampered)
	require.ErrorIs(t, err, authsdk.ErrInvalidToken)

	_, err = ts.Client.Validate(context.Background(), "not-a-token")
	require.ErrorIs(t, err, authsdk.ErrInvalidToken)
}

func TestValidate_RefreshTokenRejected(t *testing.T) {
	ts := newTestServer(t)
	s := ts.login(t, "u1")

	_, err := ts.Client.Validate(context.Background(), s.RefreshToken())
	require.ErrorIs(t, err, authsdk.ErrInvalidToken)
}

func TestCreate_Validation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing user", `{"roles":["a"]}`, "user_id"},
		{"bad ip", `{"user_id":"u1","ip":"nope"}`, "ip"},
		{"empty role", `{"user_id":"u1","roles":[""]}`, "roles[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postCreate(t, ts, tt.body, testServiceKey)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)

			e := decodeError(t, resp)
			require.Equal(t, authsdk.ErrorCodeInvalidRequest, e.Code)
			require.Contains(t, e.Details, tt.field)
		})
	}

	resp := postCreate(t, ts, `{"user_id":"u1","unknown":true}`, testServiceKey)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreate_ServiceKeyRequired(t *testing.T) {
	ts := newTestServer(t)

	for _, key := range []string{"", "wrong"} {
		resp := postCreate(t, ts, `{"user_id":"mallory","roles":["admin"]}`, key)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, authsdk.ErrorCodeInvalidClient, decodeError(t, resp).Code)
	}

	anon := authsdk.NewClient(ts.URL)
	_, err := anon.CreateSession(context.Background(), authsdk.CreateSessionRequest{UserID: "mallory"})
	require.ErrorIs(t, err, authsdk.ErrInvalidClient)

	resp := postCreate(t, ts, `{"user_id":"root","roles":["admin"]}`, testServiceKey)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreate_OpenModeRefusesRoles(t *testing.T) {
	ts := newTestServer(t, func(r *sessionhttp.Router) { r.ServiceKey = "" })
	ctx := context.Background()

	victim := ts.login(t, "victim")

	resp := postCreate(t, ts, `{"user_id":"mallory","roles":["admin"]}`, "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, authsdk.ErrorCodeInsufficientScope, decodeError(t, resp).Code)

	resp = postCreate(t, ts, `{"user_id":"mallory","permissions":["sessions:admin"]}`, "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// A key sent to a server without one earns no trust either.
	resp = postCreate(t, ts, `{"user_id":"mallory","roles":["admin"]}`, testServiceKey)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	mallory, err := authsdk.NewClient(ts.URL).Login(ctx, authsdk.CreateSessionRequest{UserID: "mallory"})
	require.NoError(t, err)

	_, err = mallory.RevokeUserSessions(ctx, "victim")
	require.ErrorIs(t, err, authsdk.ErrInsufficientScope)

	_, err = victim.Info(ctx)
	require.NoError(t, err, "victim keeps their session")
}

func TestSessionEndpoints_RequireBearer(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/users/u1/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "invalid_token")
}

func TestListAndRevoke_Self(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	first := ts.login(t, "u1")
	second := ts.login(t, "u1")

	list, err := second.ListMySessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	var current int
	for _, s := range list {
		if s.Current {
			current++
			require.Equal(t, second.ID(), s.ID)
		}
	}
	require.Equal(t, 1, current)

	got, err := second.GetSession(ctx, first.ID())
	require.NoError(t, err)
	require.Equal(t, "u1", got.UserID)

	require.NoError(t, second.RevokeSession(ctx, first.ID(), ""))
	require.NoError(t, second.RevokeSession(ctx, first.ID(), ""), "revoking twice succeeds")

	_, err = first.Info(ctx)
	require.ErrorIs(t, err, authsdk.ErrSessionNotFound)

	err = second.RevokeSession(ctx, second.ID(), "bogus")
	require.ErrorIs(t, err, authsdk.ErrInvalidRequest)

	require.NoError(t, second.Logout(ctx))
}

func TestOtherUsersSessions_Forbidden(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	alice := ts.login(t, "alice")
	bob := ts.login(t, "bob")

	_, err := bob.ListUserSessions(ctx, "alice")
	require.ErrorIs(t, err, authsdk.ErrInsufficientScope)

	_, err = bob.RevokeUserSessions(ctx, "alice")
	require.ErrorIs(t, err, authsdk.ErrInsufficientScope)

	_, err = bob.GetSession(ctx, alice.ID())
	require.ErrorIs(t, err, authsdk.ErrNotFound)

	err = bob.RevokeSession(ctx, alice.ID(), "")
	require.ErrorIs(t, err, authsdk.ErrNotFound)

	_, err = alice.Info(ctx)
	require.NoError(t, err, "alice is untouched")
}

func TestAdmin(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	ts.login(t, "alice")
	ts.login(t, "alice")
	admin := ts.login(t, "root", sessionhttp.AdminRole)
	member := ts.login(t, "bob", "member")

	list, err := admin.ListUserSessions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)

	_, err = member.Cleanup(ctx)
	require.ErrorIs(t, err, authsdk.ErrInsufficientScope)

	n, err := admin.Cleanup(ctx)
	require.NoError(t, err)
	require.Zero(t, n, "nothing is idle yet")

	n, err = admin.RevokeUserSessions(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestMFA(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	code, err := totpx.GenerateCode(ts.secret, time.Now())
	require.NoError(t, err)

	ok, err := ts.Client.VerifyTOTP(ctx, code)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = ts.Client.VerifyTOTP(ctx, "12ab56")
	require.ErrorIs(t, err, authsdk.ErrInvalidRequest)

	codes, err := ts.Client.GenerateBackupCodes(ctx, 0)
	require.NoError(t, err)
	require.Len(t, codes, totpx.DefaultBackupCode)

	ok, err = ts.Client.VerifyBackupCode(ctx, codes[0])
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = ts.Client.VerifyBackupCode(ctx, "abc")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = ts.Client.GenerateBackupCodes(ctx, 33)
	require.ErrorIs(t, err, authsdk.ErrInvalidRequest)
}

func TestTOTPEnrollment(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	admin := ts.login(t, "root", sessionhttp.AdminRole)
	member := ts.login(t, "bob", "member")

	got, err := admin.TOTPEnrollment(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "sessiond", got.Issuer)
	require.Equal(t, "alice@example.com", got.Account)
	require.True(t, strings.HasPrefix(got.URL, "otpauth://totp/"), got.URL)
	require.Contains(t, got.URL, "issuer=sessiond")

	_, err = admin.TOTPEnrollment(ctx, "")
	require.ErrorIs(t, err, authsdk.ErrInvalidRequest)

	_, err = member.TOTPEnrollment(ctx, "alice@example.com")
	require.ErrorIs(t, err, authsdk.ErrInsufficientScope)

	resp, err := http.Get(ts.URL + "/v1/mfa/totp/enrollment?account=x")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIDs(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	minted, err := ts.Client.NewID(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, minted.WorkerID)

	decoded, err := ts.Client.DecodeID(ctx, minted.ID)
	require.NoError(t, err)
	require.Equal(t, minted.ID, decoded.ID)
	require.True(t, minted.Timestamp.Equal(decoded.Timestamp))

	_, err = ts.Client.DecodeID(ctx, "-1")
	require.ErrorIs(t, err, authsdk.ErrInvalidRequest)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	live, err := ts.Client.Livez(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := ts.Client.Readyz(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Checks["store"])

	ts.login(t, "u1")

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "sessiond_sessions_created_total 1")
}

func TestReadyz_NoSecret(t *testing.T) {
	ts := newTestServer(t, func(r *sessionhttp.Router) {
		r.Authority.Tokens = tokenx.NewCodec(nil)
	})

	_, err := ts.Client.Readyz(context.Background())
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)

	_, err = ts.Client.CreateSession(context.Background(), authsdk.CreateSessionRequest{UserID: "u1"})
	require.ErrorIs(t, err, authsdk.ErrTokenSecretNotConfigured)
}

func TestRateLimit_Strict(t *testing.T) {
	ts := newTestServer(t, func(r *sessionhttp.Router) {
		r.Limits.Strict.RequestsPerWindow = 2
		r.Limits.Strict.Window = time.Minute
		r.Limits.Strict.Burst = 2
	})

	for range 2 {
		resp := postJSON(t, ts.URL+"/v1/sessions/refresh", `{"refresh_token":"x"}`)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp := postJSON(t, ts.URL+"/v1/sessions/refresh", `{"refresh_token":"x"}`)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestSwaggerMounted(t *testing.T) {
	ts := newTestServer(t, func(r *sessionhttp.Router) { r.Swagger = true })

	resp, err := http.Get(ts.URL + "/swagger/doc.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// Error codes surfaced over HTTP line up with the authority's codes.
func TestErrorCodesMatchDomain(t *testing.T) {
	sdk := map[string]bool{
		authsdk.ErrorCodeWorkerIDOutOfRange:       true,
		authsdk.ErrorCodeClockRegression:          true,
		authsdk.ErrorCodeTokenSecretNotConfigured: true,
		authsdk.ErrorCodeInvalidTokenFormat:       true,
		authsdk.ErrorCodeInvalidTokenSignature:    true,
		authsdk.ErrorCodeTokenPayloadCorrupt:      true,
		authsdk.ErrorCodeInvalidToken:             true,
		authsdk.ErrorCodeTokenExpired:             true,
		authsdk.ErrorCodeRefreshTokenExpired:      true,
		authsdk.ErrorCodeSessionNotFound:          true,
	}
	for _, code := range domain.Codes {
		require.True(t, sdk[string(code)], code)
	}
}
