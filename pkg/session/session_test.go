package session_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atomicobject/moxide/pkg/session"
	"github.com/stretchr/testify/require"
)

func TestOpen_BufferOverridesDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.md"), []byte("# On disk\n"), 0o644))

	s := session.New(dir, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	s.Open("A.md", "# In editor\n")
	pf, ok := s.Vault.File("A.md")
	require.True(t, ok)
	require.Equal(t, "# In editor\n", pf.Text)
	require.True(t, pf.Open)
	require.True(t, s.IsOpen("A.md"))
}

func TestClose_RevertsToDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.md"), []byte("# On disk\n"), 0o644))

	s := session.New(dir, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	s.Open("A.md", "# In editor\n")
	s.Close("A.md")

	pf, ok := s.Vault.File("A.md")
	require.True(t, ok)
	require.Equal(t, "# On disk\n", pf.Text)
	require.False(t, pf.Open)
	require.False(t, s.IsOpen("A.md"))
}

func TestClose_RemovesFileDeletedWhileOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.md")
	require.NoError(t, os.WriteFile(path, []byte("# On disk\n"), 0o644))

	s := session.New(dir, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	s.Open("A.md", "# In editor\n")
	require.NoError(t, os.Remove(path))
	s.Close("A.md")

	_, ok := s.Vault.File("A.md")
	require.False(t, ok)
}

func TestWatcher_PicksUpExternalEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.md")
	require.NoError(t, os.WriteFile(path, []byte("# Original\n"), 0o644))

	s := session.New(dir, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	require.NoError(t, os.WriteFile(path, []byte("# Edited externally\n"), 0o644))

	require.Eventually(t, func() bool {
		pf, ok := s.Vault.File("A.md")
		return ok && pf.Text == "# Edited externally\n"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatcher_IgnoresOpenBuffer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.md")
	require.NoError(t, os.WriteFile(path, []byte("# Original\n"), 0o644))

	s := session.New(dir, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	s.Open("A.md", "# Unsaved edits\n")
	require.NoError(t, os.WriteFile(path, []byte("# External write while open\n"), 0o644))

	time.Sleep(500 * time.Millisecond)
	pf, ok := s.Vault.File("A.md")
	require.True(t, ok)
	require.Equal(t, "# Unsaved edits\n", pf.Text)
}
