package pacing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/common"
)

func newTestService(fast bool) *Service {
	return NewService(common.PacingConfig{
		Fast:           fast,
		InterTargetMin: 2 * time.Minute,
		InterTargetMax: 5 * time.Minute,
		ScanJitterMin:  4 * time.Minute,
		ScanJitterMax:  7 * time.Minute,
	}, arbor.NewLogger())
}

func TestBetweenStaysInRange(t *testing.T) {
	svc := newTestService(false)

	for i := 0; i < 100; i++ {
		d := svc.Between(50*time.Millisecond, 150*time.Millisecond)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestBetweenDegenerateRange(t *testing.T) {
	svc := newTestService(false)
	assert.Equal(t, time.Second, svc.Between(time.Second, time.Second))
}

func TestFastModeCollapsesDelays(t *testing.T) {
	svc := newTestService(true)

	assert.Zero(t, svc.Between(time.Minute, 2*time.Minute))
	assert.Zero(t, svc.InterTargetDelay())

	start := time.Now()
	require.NoError(t, svc.Sleep(context.Background(), time.Minute, 2*time.Minute))
	assert.Less(t, time.Since(start), time.Second)
}

func TestInterTargetDelayIsMinutesScale(t *testing.T) {
	svc := newTestService(false)

	for i := 0; i < 20; i++ {
		d := svc.InterTargetDelay()
		assert.GreaterOrEqual(t, d, 2*time.Minute)
		assert.LessOrEqual(t, d, 5*time.Minute)
	}
}

func TestScanIntervalIsJittered(t *testing.T) {
	svc := newTestService(false)

	for i := 0; i < 20; i++ {
		d := svc.ScanInterval()
		assert.GreaterOrEqual(t, d, 4*time.Minute)
		assert.LessOrEqual(t, d, 7*time.Minute)
	}
}

func TestSleepHonoursCancellation(t *testing.T) {
	svc := newTestService(false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Sleep(ctx, time.Minute, 2*time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRandomUserAgentFromPool(t *testing.T) {
	for i := 0; i < 20; i++ {
		ua := RandomUserAgent()
		assert.True(t, strings.HasPrefix(ua, "Mozilla/5.0"))
	}
}
