package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessiond/internal/session/domain"
	"github.com/aussiebroadwan/sessiond/internal/session/service"
	"github.com/aussiebroadwan/sessiond/internal/session/store/drivers/memory"
	"github.com/aussiebroadwan/sessiond/pkg/snowflake"
	"github.com/aussiebroadwan/sessiond/pkg/tokenx"
)

const iPhoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubGeo struct{ calls int }

func (g *stubGeo) Lookup(_ context.Context, ip string) domain.IPGeolocation {
	g.calls++
	return domain.IPGeolocation{IP: ip, Country: "United States", City: "Mountain View", Timezone: "America/Los_Angeles"}
}

type fixture struct {
	authority *service.Authority
	store     *memory.Store
	clock     *clock
	geo       *stubGeo
}

func newFixture(t *testing.T, mutate ...func(*service.Config)) *fixture {
	t.Helper()

	clk := &clock{now: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	gen, err := snowflake.New(1, snowflake.WithClock(clk.Now))
	require.NoError(t, err)

	cfg := service.DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	st := memory.NewStore()
	geo := &stubGeo{}
	return &fixture{
		authority: &service.Authority{
			Store:  st,
			IDs:    gen,
			Tokens: tokenx.NewCodec([]byte("test-secret")),
			Config: cfg,
			Geo:    geo,
			Now:    clk.Now,
		},
		store: st,
		clock: clk,
		geo:   geo,
	}
}

func (f *fixture) login(t *testing.T, userID string, rememberMe bool) domain.TokenPair {
	t.Helper()
	pair, err := f.authority.CreateSession(context.Background(), domain.LoginRequest{
		UserID:       userID,
		Roles:        []string{"member"},
		Permissions:  []string{"read:profile"},
		IsRememberMe: rememberMe,
		UserAgent:    iPhoneUA,
		IP:           "8.8.8.8",
	})
	require.NoError(t, err)
	return pair
}

func TestCreateSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair := f.login(t, "u1", false)
	require.EqualValues(t, 900, pair.ExpiresIn)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	data, err := f.authority.ValidateAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "u1", data.UserID)
	require.Equal(t, pair.SessionID, data.SessionID)
	require.Equal(t, domain.TokenAccess, data.Type)
	require.Equal(t, f.clock.Now().Unix(), data.Iat)
	require.Equal(t, f.clock.Now().Add(15*time.Minute).Unix(), data.Exp)

	sess, err := f.authority.GetSession(ctx, data.SessionID)
	require.NoError(t, err)
	require.Equal(t, "u1", sess.UserID)
	require.Equal(t, domain.DeviceMobile, sess.DeviceInfo.DeviceType)
	require.NotNil(t, sess.DeviceInfo.Location)
	require.Equal(t, "Mountain View", sess.DeviceInfo.Location.City)
	require.Equal(t, "8.8.8.8", sess.DeviceInfo.IP)
	require.Equal(t, 1, f.geo.calls)

	_, err = snowflake.ParseID(sess.ID)
	require.NoError(t, err)
}

func TestCreateSession_RememberMe(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t, "u1", true)
	require.EqualValues(t, 30*24*60*60, pair.ExpiresIn)
}

func TestCreateSession_WithoutSecret(t *testing.T) {
	f := newFixture(t)
	f.authority.Tokens = tokenx.NewCodec(nil)

	_, err := f.authority.CreateSession(context.Background(), domain.LoginRequest{UserID: "u1"})
	require.ErrorIs(t, err, domain.ErrTokenSecretNotConfigured)

	n, err := f.store.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

type regressingIDs struct{}

func (regressingIDs) Generate() (snowflake.ID, error) { return 0, snowflake.ErrClockRegression }

func TestCreateSession_ClockRegression(t *testing.T) {
	f := newFixture(t)
	f.authority.IDs = regressingIDs{}

	_, err := f.authority.CreateSession(context.Background(), domain.LoginRequest{UserID: "u1"})
	require.ErrorIs(t, err, domain.ErrClockRegression)
	require.ErrorIs(t, err, snowflake.ErrClockRegression)
}

func TestValidateAccessToken_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pair := f.login(t, "u1", false)

	t.Run("garbage", func(t *testing.T) {
		_, err := f.authority.ValidateAccessToken(ctx, "not-a-token")
		require.ErrorIs(t, err, domain.ErrInvalidToken)
		require.ErrorIs(t, err, domain.ErrInvalidTokenFormat)
	})

	t.Run("tampered signature", func(t *testing.T) {
		tampered := pair.AccessToken[:len(pair.AccessToken)-1] + flip(pair.AccessToken[len(pair.AccessToken)-1])
		_, err := f.authority.ValidateAccessToken(ctx, tampered)
		require.ErrorIs(t, err, domain.ErrInvalidToken)
		require.ErrorIs(t, err, domain.ErrInvalidTokenSignature)
	})

	t.Run("other secret", func(t *testing.T) {
		forged, err := tokenx.GenerateToken([]byte("other"), domain.TokenData{SessionID: pair.SessionID, UserID: "u1"})
		require.NoError(t, err)
		_, err = f.authority.ValidateAccessToken(ctx, forged)
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := f.authority.ValidateAccessToken(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("unknown session", func(t *testing.T) {
		orphan, err := f.authority.Tokens.Encode(domain.TokenData{
			SessionID: "12345",
			UserID:    "u1",
			Type:      domain.TokenAccess,
			Exp:       f.clock.Now().Add(time.Minute).Unix(),
		})
		require.NoError(t, err)
		_, err = f.authority.ValidateAccessToken(ctx, orphan)
		require.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestValidateAccessToken_Expired(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t, "u1", false)

	f.clock.Advance(15*time.Minute + time.Second)
	_, err := f.authority.ValidateAccessToken(context.Background(), pair.AccessToken)
	require.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestValidateAccessToken_AfterRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pair := f.login(t, "u1", false)

	require.NoError(t, f.authority.RevokeSession(ctx, pair.SessionID, domain.ReasonLogout))
	require.NoError(t, f.authority.RevokeSession(ctx, pair.SessionID, domain.ReasonLogout))

	_, err := f.authority.ValidateAccessToken(ctx, pair.AccessToken)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestValidateAccessToken_TouchesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pair := f.login(t, "u1", false)

	f.clock.Advance(5 * time.Minute)
	_, err := f.authority.ValidateAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)

	sess, err := f.authority.GetSession(ctx, pair.SessionID)
	require.NoError(t, err)
	require.Equal(t, f.clock.Now(), sess.LastActivity)
}

func TestRefreshAccessToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pair := f.login(t, "u1", false)

	f.clock.Advance(time.Minute)
	next, err := f.authority.RefreshAccessToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.SessionID, next.SessionID)
	require.EqualValues(t, 900, next.ExpiresIn)

	data, err := f.authority.ValidateAccessToken(ctx, next.AccessToken)
	require.NoError(t, err)
	require.Equal(t, []string{"member"}, data.Roles)
	require.Equal(t, "Mountain View", data.DeviceInfo.Location.City)
	require.Equal(t, 1, f.geo.calls, "refresh reuses stored device info")

	t.Run("old session is rotated out", func(t *testing.T) {
		_, err := f.authority.ValidateAccessToken(ctx, pair.AccessToken)
		require.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("refresh token is single use", func(t *testing.T) {
		_, err := f.authority.RefreshAccessToken(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("access token cannot refresh", func(t *testing.T) {
		_, err := f.authority.RefreshAccessToken(ctx, next.AccessToken)
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})
}

func TestRefreshAccessToken_WithoutRotation(t *testing.T) {
	f := newFixture(t, func(c *service.Config) { c.RotateRefreshSessions = false })
	ctx := context.Background()
	pair := f.login(t, "u1", false)

	f.clock.Advance(time.Millisecond)
	_, err := f.authority.RefreshAccessToken(ctx, pair.RefreshToken)
	require.NoError(t, err)

	// The source session survives, so the refresh token can be replayed.
	f.clock.Advance(time.Millisecond)
	_, err = f.authority.RefreshAccessToken(ctx, pair.RefreshToken)
	require.NoError(t, err)

	_, err = f.authority.ValidateAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
}

func TestRefreshAccessToken_Expired(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t, "u1", false)

	f.clock.Advance(7*24*time.Hour + time.Second)
	_, err := f.authority.RefreshAccessToken(context.Background(), pair.RefreshToken)
	require.ErrorIs(t, err, domain.ErrRefreshTokenExpired)
}

func TestRefreshAccessToken_Invalid(t *testing.T) {
	f := newFixture(t)
	_, err := f.authority.RefreshAccessToken(context.Background(), "a.b.c")
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

// failingIDs fails the failOn'th call to Generate.
type failingIDs struct {
	service.IDGenerator
	calls  atomic.Int32
	failOn int32
}

func (g *failingIDs) Generate() (snowflake.ID, error) {
	if g.calls.Add(1) == g.failOn {
		return 0, snowflake.ErrClockRegression
	}
	return g.IDGenerator.Generate()
}

func TestRefreshAccessToken_MintFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.authority.IDs = &failingIDs{IDGenerator: f.authority.IDs, failOn: 2}

	pair := f.login(t, "u1", false)

	_, err := f.authority.RefreshAccessToken(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, domain.ErrClockRegression)

	_, err = f.authority.ValidateAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err, "failed refresh must not log the user out")

	sessions, err := f.store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, pair.SessionID, sessions[0].ID)

	// Retrying once the generator recovers rotates as usual.
	f.clock.Advance(time.Millisecond)
	next, err := f.authority.RefreshAccessToken(ctx, pair.RefreshToken)
	require.NoError(t, err)

	sessions, err = f.store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, next.SessionID, sessions[0].ID)
}

func TestRefreshAccessToken_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pair := f.login(t, "u1", false)

	const n = 8
	var (
		wg      sync.WaitGroup
		won     atomic.Int32
		lost    atomic.Int32
		winners = make(chan string, n)
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next, err := f.authority.RefreshAccessToken(ctx, pair.RefreshToken)
			switch {
			case err == nil:
				won.Add(1)
				winners <- next.SessionID
			case errors.Is(err, domain.ErrSessionNotFound):
				lost.Add(1)
			}
		}()
	}
	wg.Wait()
	close(winners)

	require.EqualValues(t, 1, won.Load())
	require.EqualValues(t, n-1, lost.Load())

	sessions, err := f.store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1, "losing refreshes leave nothing behind")
	require.Equal(t, <-winners, sessions[0].ID)
}

func TestRevokeUserSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a1 := f.login(t, "alice", false)
	f.clock.Advance(time.Millisecond)
	a2 := f.login(t, "alice", false)
	f.clock.Advance(time.Millisecond)
	b1 := f.login(t, "bob", false)

	n, err := f.authority.RevokeUserSessions(ctx, "alice", domain.ReasonUserRevoked)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	for _, p := range []domain.TokenPair{a1, a2} {
		_, err := f.authority.ValidateAccessToken(ctx, p.AccessToken)
		require.ErrorIs(t, err, domain.ErrSessionNotFound)
	}
	_, err = f.authority.ValidateAccessToken(ctx, b1.AccessToken)
	require.NoError(t, err)

	n, err = f.authority.RevokeUserSessions(ctx, "alice", domain.ReasonUserRevoked)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCleanupSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := f.clock.Now()

	stale := f.login(t, "u1", true)
	f.clock.Advance(2 * 24 * time.Hour)
	fresh := f.login(t, "u2", true)

	// 31 days after the first login, 29 after the second.
	f.clock.now = start.Add(31 * 24 * time.Hour)

	n, err := f.authority.CleanupSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = f.authority.GetSession(ctx, stale.SessionID)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = f.authority.GetSession(ctx, fresh.SessionID)
	require.NoError(t, err)
}

func TestMaxSessionsPerUser(t *testing.T) {
	f := newFixture(t, func(c *service.Config) { c.MaxSessionsPerUser = 2 })
	ctx := context.Background()

	first := f.login(t, "u1", false)
	f.clock.Advance(time.Second)
	second := f.login(t, "u1", false)
	f.clock.Advance(time.Second)

	// Using the first session makes the second the least recently active.
	_, err := f.authority.ValidateAccessToken(ctx, first.AccessToken)
	require.NoError(t, err)
	f.clock.Advance(time.Second)

	third := f.login(t, "u1", false)

	sessions, err := f.authority.ListUserSessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, third.SessionID, sessions[0].ID)
	require.Equal(t, first.SessionID, sessions[1].ID)

	_, err = f.authority.ValidateAccessToken(ctx, second.AccessToken)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestCreateSession_Concurrent(t *testing.T) {
	f := newFixture(t, func(c *service.Config) { c.MaxSessionsPerUser = 0 })
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan string, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pair, err := f.authority.CreateSession(ctx, domain.LoginRequest{UserID: "u1", UserAgent: "curl/8"})
			if err == nil {
				ids <- pair.SessionID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		require.False(t, seen[id], "duplicate session id %s", id)
		seen[id] = true
	}
	require.Len(t, seen, 200)
}

func flip(c byte) string {
	if c == 'A' {
		return "B"
	}
	return "A"
}
