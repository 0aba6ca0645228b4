package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/illarion/lockvault/internal/ledger"
	"github.com/illarion/lockvault/internal/storage"
	"github.com/illarion/lockvault/internal/timelock"
)

type cli struct {
	dir string
	now atomic.Int64
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	c := &cli{dir: t.TempDir()}
	c.now.Store(1_700_000_000)

	t.Setenv("LOCKVAULT_PASSWORD", "correct horse battery staple")
	t.Setenv("LOCKVAULT_KEYRING", "false")
	t.Setenv("LOCKVAULT_KEY", "default")
	t.Setenv("LOCKVAULT_BACKEND", "bolt")
	t.Setenv("LOCKVAULT_LOG_LEVEL", "error")
	t.Setenv("LOCKVAULT_LOG_FORMAT", "json")
	t.Setenv("LOCKVAULT_RENT_LAMPORTS_PER_BYTE_YEAR", "3480")
	t.Setenv("LOCKVAULT_RENT_EXEMPTION_YEARS", "2")
	return c
}

func (c *cli) advance(d time.Duration) {
	c.now.Add(int64(d / time.Second))
}

func (c *cli) run(args ...string) (string, error) {
	clock := ledger.ClockFunc(func() time.Time { return time.Unix(c.now.Load(), 0) })
	root := NewRootCommand(WithClock(clock))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--data-dir", c.dir}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) must(t *testing.T, args ...string) string {
	t.Helper()
	out, err := c.run(args...)
	require.NoError(t, err, "lockvault %s", strings.Join(args, " "))
	return out
}

func TestCommandsRequireInit(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("ls")
	require.ErrorIs(t, err, storage.ErrNotInitialized)
	require.Contains(t, FormatError(err), "lockvault init")
}

func TestCorruptLedger(t *testing.T) {
	c := newCLI(t)
	garbage := bytes.Repeat([]byte("not a ledger "), 1024)
	require.NoError(t, os.WriteFile(filepath.Join(c.dir, "ledger.db"), garbage, 0600))

	require.NotPanics(t, func() {
		_, err := c.run("ls")
		require.ErrorContains(t, err, "failed to open ledger")
	})
}

func TestInitTwice(t *testing.T) {
	c := newCLI(t)

	out := c.must(t, "init")
	require.Contains(t, out, "Initialized ledger")
	require.Contains(t, out, `Generated key "default"`)

	_, err := c.run("init")
	require.ErrorIs(t, err, storage.ErrAlreadyInitialized)
}

func TestNativeLockFlow(t *testing.T) {
	c := newCLI(t)
	c.must(t, "init")
	c.must(t, "airdrop", "10")

	out := c.must(t, "lock", "1.5", "--until", "+1h")
	require.Contains(t, out, `Locked 1.5 SOL in vault "1"`)

	require.Contains(t, c.must(t, "ls"), "1h 0m 0s")

	_, err := c.run("unlock", "1")
	require.ErrorIs(t, err, timelock.ErrVaultNotUnlocked)
	require.Contains(t, FormatError(err), "lockvault show")

	c.advance(time.Hour)
	require.Contains(t, c.must(t, "show", "1"), "unlocked")

	out = c.must(t, "unlock", "1")
	require.Contains(t, out, `Released 1.5 SOL from vault "1"`)
	require.Equal(t, "10 SOL\n", c.must(t, "balance"))
	require.Equal(t, "No vaults\n", c.must(t, "ls"))

	_, err = c.run("unlock", "1")
	require.ErrorIs(t, err, timelock.ErrVaultDoesNotExist)
}

func TestLockWithoutFunds(t *testing.T) {
	c := newCLI(t)
	c.must(t, "init")

	_, err := c.run("lock", "1", "--until", "+1h")
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	require.Equal(t, "No vaults\n", c.must(t, "ls"))
}

func TestTokenLockFlow(t *testing.T) {
	c := newCLI(t)
	c.must(t, "init")
	c.must(t, "airdrop", "5")

	out := c.must(t, "mint", "create", "--decimals", "6")
	fields := strings.Fields(out)
	require.GreaterOrEqual(t, len(fields), 4)
	mint := fields[3]

	c.must(t, "mint", "to", mint, "100")
	require.Equal(t, "100\n", c.must(t, "balance", "--mint", mint))

	out = c.must(t, "lock", "25.5", "--mint", mint, "--until", "+1d", "--id", "tokens")
	require.Contains(t, out, `Locked 25.5 tokens in vault "tokens"`)
	require.Equal(t, "74.5\n", c.must(t, "balance", "--mint", mint))
	require.Contains(t, c.must(t, "show", "tokens"), mint)

	c.advance(24 * time.Hour)
	out = c.must(t, "unlock", "tokens")
	require.Contains(t, out, `Released 25.5 tokens from vault "tokens"`)
	require.Equal(t, "100\n", c.must(t, "balance", "--mint", mint))
}

func TestSQLiteBackend(t *testing.T) {
	c := newCLI(t)
	t.Setenv("LOCKVAULT_BACKEND", "sqlite")

	c.must(t, "init")
	c.must(t, "airdrop", "2")
	c.must(t, "lock", "1", "--until", "+10m", "--id", "a")

	out := c.must(t, "status")
	require.Contains(t, out, "sqlite")
	require.Contains(t, out, "Total:    1")
	require.Contains(t, c.must(t, "compact"), "Compacted:")
}

func TestKeysAndAddress(t *testing.T) {
	c := newCLI(t)
	c.must(t, "init")
	c.must(t, "keygen", "second")

	addr := strings.TrimSpace(c.must(t, "address"))
	out := c.must(t, "keys")
	require.Contains(t, out, "* default")
	require.Contains(t, out, addr)
	require.Contains(t, out, "second")

	other := strings.TrimSpace(c.must(t, "--key", "second", "address"))
	require.NotEqual(t, addr, other)
}

func TestWrongPassword(t *testing.T) {
	c := newCLI(t)
	c.must(t, "init")
	c.must(t, "airdrop", "1")

	t.Setenv("LOCKVAULT_PASSWORD", "wrong")
	_, err := c.run("lock", "0.5", "--until", "+1h")
	require.Error(t, err)
	require.Equal(t, "Error: wrong password\n", FormatError(err))
}
