package log_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/CZERTAINLY/blastweb/internal/log"
	"github.com/stretchr/testify/require"
)

func TestContextAttrs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := log.New(&buf, false)

	ctx := log.ContextAttrs(t.Context(), slog.String("session", "s1"))
	child := log.ContextAttrs(ctx, slog.String("job", "j1"))
	logger.InfoContext(child, "hello")
	logger.DebugContext(child, "not printed")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "hello", rec["msg"])
	require.Equal(t, "s1", rec["session"])
	require.Equal(t, "j1", rec["job"])

	// parent context is not affected by the child
	buf.Reset()
	logger.InfoContext(ctx, "parent")
	rec = nil
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.NotContains(t, rec, "job")
}

func TestOpen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "blastweb.log")
	w, err := log.Open(path)
	require.NoError(t, err)
	logger := log.New(w, true)
	logger.Debug("debug line")
	require.NoError(t, w.Close())
	require.FileExists(t, path)

	for _, dest := range []string{"stderr", "stdout", "discard"} {
		w, err := log.Open(dest)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}
}
