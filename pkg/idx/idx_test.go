package idx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessiond/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewAndParse(t *testing.T) {
	id := idx.New()
	require.False(t, id.IsZero())

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestNew_Monotonic(t *testing.T) {
	prev := idx.New()
	for range 1000 {
		next := idx.New()
		require.Less(t, prev.String(), next.String())
		prev = next
	}
}

func TestTimeExtraction(t *testing.T) {
	tm := time.Unix(1700000000, 0).UTC()
	id := idx.NewAt(tm)
	require.WithinDuration(t, tm, id.Time(), time.Millisecond)

	require.True(t, idx.ID("req-123").Time().IsZero())
}

func TestParse_Invalid(t *testing.T) {
	for _, s := range []string{"", "   ", "not-a-ulid", "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3Z"} {
		_, err := idx.Parse(s)
		require.ErrorIs(t, err, idx.ErrInvalid, s)
	}
}

func TestFromHeader(t *testing.T) {
	require.Equal(t, idx.ID("trace-abc"), idx.FromHeader(" trace-abc "))

	for _, bad := range []string{"", "has space", "line\nbreak", strings.Repeat("x", 129)} {
		id := idx.FromHeader(bad)
		_, err := idx.Parse(id.String())
		require.NoError(t, err, "expected a fresh ULID for %q", bad)
	}
}
