package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCurrentStatusAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("pending past expiry reads as expired", func(t *testing.T) {
		inv := Invitation{
			Status:    StatusPending,
			CreatedAt: now.Add(-10 * 24 * time.Hour),
			ExpiresAt: now.Add(-3 * 24 * time.Hour),
		}
		require.Equal(t, StatusExpired, inv.CurrentStatusAt(now))
		// Stored status is untouched by the read.
		require.Equal(t, StatusPending, inv.Status)
	})

	t.Run("pending before expiry stays pending", func(t *testing.T) {
		inv := Invitation{Status: StatusPending, ExpiresAt: now.Add(time.Hour)}
		require.Equal(t, StatusPending, inv.CurrentStatusAt(now))
	})

	t.Run("non-pending statuses pass through", func(t *testing.T) {
		for _, s := range []Status{StatusAccepted, StatusExpired, StatusRevoked} {
			inv := Invitation{Status: s, ExpiresAt: now.Add(-time.Hour)}
			require.Equal(t, s, inv.CurrentStatusAt(now))
		}
	})
}

func TestActionable(t *testing.T) {
	require.True(t, Actionable(StatusPending, StatusPending))
	require.True(t, Actionable(StatusExpired, StatusExpired))
	require.True(t, Actionable(StatusAccepted, Status(StatusActive)))
	require.False(t, Actionable(StatusAccepted, StatusAccepted))
	require.False(t, Actionable(StatusRevoked, StatusRevoked))
}

func TestRoleValidation(t *testing.T) {
	for _, r := range Roles() {
		require.True(t, r.Valid())
	}
	require.False(t, Role("manager").Valid())
	require.False(t, Role("").Valid())
}
