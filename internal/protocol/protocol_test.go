package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClampTimeout(t *testing.T) {
	cases := []struct {
		name string
		in   float64
		want time.Duration
	}{
		{"zero falls back to default", 0, DefaultCommandTimeout},
		{"negative falls back to default", -50, DefaultCommandTimeout},
		{"below floor clamps up", 10, minCommandTimeout},
		{"above ceiling clamps down", 120_000, maxCommandTimeout},
		{"within range passes through", 5_000, 5 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ClampTimeout(tc.in))
		})
	}
}

func TestBrokerDeadlineInvariant(t *testing.T) {
	for _, ms := range []float64{0, 1, 100, 30_000, 60_000, 1_000_000} {
		d := BrokerDeadline(ms)
		require.GreaterOrEqual(t, d, minCommandTimeout)
		require.LessOrEqual(t, d, maxCommandTimeout+BrokerDeadlineBuffer)
	}
}

func TestActionNeedsTuning(t *testing.T) {
	require.True(t, ActionDOMClick.NeedsTuning())
	require.True(t, ActionHumanType.NeedsTuning())
	require.False(t, ActionTabsList.NeedsTuning())
	require.False(t, ActionCookiesGetAll.NeedsTuning())
}

func TestActionNeedsAvoidMerge(t *testing.T) {
	require.True(t, ActionHumanClick.NeedsAvoidMerge())
	require.False(t, ActionDOMClick.NeedsAvoidMerge())
}

func TestIsHandshake(t *testing.T) {
	require.True(t, IsHandshake([]byte(`{"type":"handshake","extensionId":"abc","version":"1.0"}`)))
	require.False(t, IsHandshake([]byte(`{"type":"ping"}`)))
	require.False(t, IsHandshake([]byte(`not json`)))
}
