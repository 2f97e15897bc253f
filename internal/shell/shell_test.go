package shell

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/audit"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/capture"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/clock"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/config"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/ports/mocks"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/tokenstore"
)

type harness struct {
	gateway     *capture.SimulatedGateway
	poster      *mocks.MockAuditPoster
	clock       *clock.Fake
	invalidated atomic.Int32
	shell       *Shell
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	tokens := tokenstore.NewMemoryStore()
	require.NoError(t, tokens.Set(context.Background(), tokenstore.AuthTokenKey, "tok"))

	h := &harness{
		gateway: capture.NewSimulatedGateway(capture.Capabilities{
			Platform:                    capture.PlatformIOS,
			HasNativeScreenshotListener: true,
			HasRecordingStateListener:   true,
		}),
		poster: mocks.NewMockAuditPoster(ctrl),
		clock:  clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
	}
	s, err := New(cfg, Deps{
		Gateway:   h.gateway,
		Lifecycle: h.gateway,
		Poster:    h.poster,
		Tokens:    tokens,
	},
		WithClock(h.clock),
		WithAuditLogsInvalidator(func() { h.invalidated.Add(1) }),
	)
	require.NoError(t, err)
	h.shell = s
	return h
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(config.Default(), Deps{})
	assert.Error(t, err)
}

func TestStartWiresComponents(t *testing.T) {
	h := newHarness(t, config.Default())
	h.poster.EXPECT().Post(gomock.Any(), "tok", gomock.Any()).Return(nil).Times(2)

	h.shell.Start(context.Background())
	assert.True(t, h.shell.Detector().IsActive())

	h.shell.TrackScreen(context.Background(), "Dashboard")
	h.shell.Audit().Wait()
	assert.EqualValues(t, 1, h.invalidated.Load())

	h.gateway.SetRecording(true)
	assert.True(t, h.shell.CoverVisible(), "recording raises the cover")
	h.gateway.SetRecording(false)
	assert.False(t, h.shell.CoverVisible())

	h.shell.Stop(context.Background())
}

func TestStopKeepsProtectionByDefault(t *testing.T) {
	h := newHarness(t, config.Default())
	h.shell.Start(context.Background())

	h.shell.Stop(context.Background())

	assert.True(t, h.gateway.Prevented())
	shots, recs, life := h.gateway.Listeners()
	assert.Zero(t, shots+recs+life)
}

func TestStopUnregistersInvalidator(t *testing.T) {
	h := newHarness(t, config.Default())
	h.poster.EXPECT().Post(gomock.Any(), "tok", gomock.Any()).Return(nil).Times(1)
	h.shell.Start(context.Background())
	h.shell.Stop(context.Background())

	h.shell.LogAction(context.Background(), "expense_created", audit.Options{})
	h.shell.Audit().Wait()

	assert.Zero(t, h.invalidated.Load())
}

func TestStopDisablesWhenConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Capture.DisableOnStop = true
	h := newHarness(t, cfg)
	h.shell.Start(context.Background())

	h.shell.Stop(context.Background())

	assert.False(t, h.gateway.Prevented())
	assert.False(t, h.shell.Detector().IsActive())
}
