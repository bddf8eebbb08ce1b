// Package storetest holds the behaviour every store.Sessions driver must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessiond/internal/session/domain"
	"github.com/aussiebroadwan/sessiond/internal/session/store"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func session(id, userID string, lastActivity time.Time) domain.Session {
	return domain.Session{
		ID:          id,
		UserID:      userID,
		Roles:       []string{"member"},
		Permissions: []string{"read:profile"},
		DeviceInfo: domain.DeviceInfo{
			UserAgent:  "test-agent",
			IP:         "8.8.8.8",
			DeviceType: domain.DeviceDesktop,
			Location: &domain.IPGeolocation{
				IP: "8.8.8.8", Country: "United States", City: "Mountain View", Timezone: "America/Los_Angeles",
			},
		},
		IsRememberMe: true,
		CreatedAt:    lastActivity,
		LastActivity: lastActivity,
	}
}

// Run exercises a fresh store returned by newStore for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) store.Sessions) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "nope")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		want := session("1", "alice", base)
		require.NoError(t, s.Set(ctx, want))

		got, err := s.Get(ctx, "1")
		require.NoError(t, err)
		require.Equal(t, want.UserID, got.UserID)
		require.Equal(t, want.Roles, got.Roles)
		require.Equal(t, want.Permissions, got.Permissions)
		require.Equal(t, want.DeviceInfo, got.DeviceInfo)
		require.True(t, got.IsRememberMe)
		require.True(t, want.LastActivity.Equal(got.LastActivity))
		require.True(t, want.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("set replaces", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, session("1", "alice", base)))
		replaced := session("1", "alice", base)
		replaced.Roles = []string{"admin"}
		require.NoError(t, s.Set(ctx, replaced))

		got, err := s.Get(ctx, "1")
		require.NoError(t, err)
		require.Equal(t, []string{"admin"}, got.Roles)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	t.Run("touch", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, session("1", "alice", base)))

		later := base.Add(time.Hour)
		require.NoError(t, s.Touch(ctx, "1", later))

		got, err := s.Get(ctx, "1")
		require.NoError(t, err)
		require.True(t, later.Equal(got.LastActivity))

		require.ErrorIs(t, s.Touch(ctx, "missing", later), store.ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, session("1", "alice", base)))

		existed, err := s.Delete(ctx, "1")
		require.NoError(t, err)
		require.True(t, existed)

		existed, err = s.Delete(ctx, "1")
		require.NoError(t, err)
		require.False(t, existed)
	})

	t.Run("delete by user", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, session("1", "alice", base)))
		require.NoError(t, s.Set(ctx, session("2", "alice", base)))
		require.NoError(t, s.Set(ctx, session("3", "bob", base)))

		removed, err := s.DeleteByUser(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, removed, 2)

		_, err = s.Get(ctx, "3")
		require.NoError(t, err)
		n, err := s.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	t.Run("delete idle", func(t *testing.T) {
		s := newStore(t)
		now := base.Add(60 * 24 * time.Hour)
		require.NoError(t, s.Set(ctx, session("old", "alice", now.Add(-31*24*time.Hour))))
		require.NoError(t, s.Set(ctx, session("recent", "alice", now.Add(-29*24*time.Hour))))

		removed, err := s.DeleteIdle(ctx, now.Add(-30*24*time.Hour))
		require.NoError(t, err)
		require.Len(t, removed, 1)
		require.Equal(t, "old", removed[0].ID)

		_, err = s.Get(ctx, "recent")
		require.NoError(t, err)
	})

	t.Run("list by user newest first", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, session("1", "alice", base)))
		require.NoError(t, s.Set(ctx, session("2", "alice", base.Add(2*time.Minute))))
		require.NoError(t, s.Set(ctx, session("3", "alice", base.Add(time.Minute))))
		require.NoError(t, s.Set(ctx, session("4", "bob", base)))

		list, err := s.ListByUser(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, list, 3)
		require.Equal(t, []string{"2", "3", "1"}, []string{list[0].ID, list[1].ID, list[2].ID})

		empty, err := s.ListByUser(ctx, "carol")
		require.NoError(t, err)
		require.Empty(t, empty)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Ping(ctx))
	})
}
