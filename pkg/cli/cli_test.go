package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"note-drop/pkg/logger"
	"note-drop/pkg/store"
)

func useTempStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pages.json")
	t.Setenv("STORE_DRIVER", "file")
	t.Setenv("DATA_FILE", path)
	t.Setenv("LOG_LEVEL", "error")
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPutAndGetCommands(t *testing.T) {
	useTempStore(t)

	_, err := run(t, "# From stdin", "put", "cli-note")
	require.NoError(t, err)

	out, err := run(t, "", "get", "cli-note")
	require.NoError(t, err)
	assert.Equal(t, "# From stdin", out)

	out, err = run(t, "", "get", "missing")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestPutFromFile(t *testing.T) {
	useTempStore(t)
	src := filepath.Join(t.TempDir(), "note.md")
	require.NoError(t, os.WriteFile(src, []byte("file body"), 0644))

	_, err := run(t, "", "put", "from-file", src)
	require.NoError(t, err)

	out, err := run(t, "", "get", "from-file")
	require.NoError(t, err)
	assert.Equal(t, "file body", out)
}

func TestExportImportCommands(t *testing.T) {
	useTempStore(t)
	_, err := run(t, "alpha", "put", "a")
	require.NoError(t, err)
	_, err = run(t, "beta", "put", "b")
	require.NoError(t, err)

	dump := filepath.Join(t.TempDir(), "dump.yaml")
	_, err = run(t, "", "export", "--out", dump)
	require.NoError(t, err)

	raw, err := os.ReadFile(dump)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "a: alpha")

	// import into a fresh store
	fresh := useTempStore(t)
	_, err = run(t, "", "import", dump)
	require.NoError(t, err)

	s := store.NewFileStore(fresh)
	got, err := s.Get(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "beta", got)
}

func TestExportToStdoutAsTOML(t *testing.T) {
	useTempStore(t)
	_, err := run(t, "text", "put", "note")
	require.NoError(t, err)

	out, err := run(t, "", "export", "--format", "toml")
	require.NoError(t, err)
	assert.Contains(t, out, "note = ")
}

func TestUnknownCommandFails(t *testing.T) {
	_, err := run(t, "", "frobnicate")
	require.Error(t, err)
}

func TestWatchFileSavesChanges(t *testing.T) {
	st := store.NewFileStore(filepath.Join(t.TempDir(), "pages.json"))
	require.NoError(t, st.Put(context.Background(), "watched", "server copy"))
	path := filepath.Join(t.TempDir(), "watched.md")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, st, "watched", path, 20*time.Millisecond, logger.Nop())
	}()

	// the missing file is seeded from the server copy
	require.Eventually(t, func() bool {
		raw, err := os.ReadFile(path)
		return err == nil && string(raw) == "server copy"
	}, time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("local edit"), 0644))

	require.Eventually(t, func() bool {
		got, err := st.Get(context.Background(), "watched")
		return err == nil && got == "local edit"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
