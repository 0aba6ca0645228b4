package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func gitInit(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	cmd := exec.Command("git", "init", "-q")
	cmd.Dir = dir
	require.NoError(t, cmd.Run())
	return dir
}

func TestCheckDataDirOutsideRepo(t *testing.T) {
	status, err := CheckDataDir(t.TempDir(), ".lockvault")
	require.NoError(t, err)
	require.False(t, status.IsRepo)
	require.Empty(t, FormatGitStatus(status))
}

func TestCheckDataDirNotIgnored(t *testing.T) {
	dir := gitInit(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".lockvault"), 0700))

	status, err := CheckDataDir(dir, filepath.Join(dir, ".lockvault"))
	require.NoError(t, err)
	require.True(t, status.IsRepo)
	require.Equal(t, ".lockvault", status.DataDir)
	require.False(t, status.DataDirIgnored)
	require.Empty(t, status.TrackedFiles)
	require.Contains(t, FormatGitStatus(status), "warning: .lockvault not in .gitignore")
}

func TestCheckDataDirIgnored(t *testing.T) {
	dir := gitInit(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".lockvault"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(".lockvault/\n"), 0644))

	status, err := CheckDataDir(dir, filepath.Join(dir, ".lockvault"))
	require.NoError(t, err)
	require.True(t, status.DataDirIgnored)
	require.Contains(t, FormatGitStatus(status), "ok: .lockvault is in .gitignore")
}
