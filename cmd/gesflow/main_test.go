package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/auditsink"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/logger"
)

const (
	testSigningKey = "test-signing-key"
	testIssuer     = "gesflow-test"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GESFLOW_ENVIRONMENT", "production")
	t.Setenv("GESFLOW_SINK_JWT_SIGNING_KEY", testSigningKey)
	t.Setenv("GESFLOW_SINK_ISSUER", testIssuer)
	t.Setenv("GESFLOW_TOKEN_STORE_SECURE_FILE", filepath.Join(t.TempDir(), "tokens.bin"))
	t.Setenv("GESFLOW_TOKEN_STORE_PASSPHRASE", "correct horse")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return strings.TrimSpace(out.String()), err
}

func TestTokenMint(t *testing.T) {
	setupEnv(t)

	token, err := run(t, "token", "mint", "--subject", "alice")
	require.NoError(t, err)

	svc, err := auditsink.NewTokenService(testSigningKey, testIssuer)
	require.NoError(t, err)
	subject, err := svc.Subject(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestTokenSetGetDelete(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "token", "set", "stored-token")
	require.NoError(t, err)

	got, err := run(t, "token", "get")
	require.NoError(t, err)
	assert.Equal(t, "stored-token", got)

	_, err = run(t, "token", "delete")
	require.NoError(t, err)

	_, err = run(t, "token", "get")
	assert.Error(t, err)
}

func TestSimulateAgainstSink(t *testing.T) {
	setupEnv(t)

	tokens, err := auditsink.NewTokenService(testSigningKey, testIssuer)
	require.NoError(t, err)
	store := auditsink.NewMemoryStore(0)
	srv := httptest.NewServer(auditsink.NewRouter(auditsink.New(store, tokens, logger.Discard(), nil), nil, logger.Discard()))
	t.Cleanup(srv.Close)
	t.Setenv("GESFLOW_API_BASE_URL", srv.URL)

	token, err := run(t, "token", "mint", "--subject", "simulator")
	require.NoError(t, err)

	_, err = run(t, "simulate", "--token", token, "--steps", "screen:Dashboard,background,active,screenshot")
	require.NoError(t, err)

	entries, err := store.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	byAction := map[string]auditsink.Entry{}
	for _, e := range entries {
		byAction[e.Record.Action] = e
	}
	require.Contains(t, byAction, "screenshot_detected")
	require.Contains(t, byAction, "mobile_screen_view")
	assert.True(t, byAction["screenshot_detected"].Record.IsScreenshot)
	assert.Equal(t, "Dashboard", byAction["mobile_screen_view"].Record.ResourceID)
	assert.Equal(t, "simulator", byAction["mobile_screen_view"].Subject)
}

func TestSimulateRejectsUnknownStep(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "simulate", "--steps", "dance")
	assert.ErrorContains(t, err, "unknown step")
}
