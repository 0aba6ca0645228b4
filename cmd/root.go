package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/illarion/lockvault/internal/config"
	"github.com/illarion/lockvault/internal/keystore"
	"github.com/illarion/lockvault/internal/ledger"
	"github.com/illarion/lockvault/internal/logger"
	"github.com/illarion/lockvault/internal/pubkey"
	"github.com/illarion/lockvault/internal/security"
	"github.com/illarion/lockvault/internal/storage"
	"github.com/illarion/lockvault/internal/storage/sqlite"
	"github.com/illarion/lockvault/internal/timelock"
)

// app carries what every command needs once the data directory is open
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	clock ledger.Clock

	root    *security.Root
	backend storage.Backend
	ledger  *ledger.Ledger
	program *timelock.Program
	keys    *keystore.Store
}

// Option configures the root command
type Option func(*app)

// WithClock replaces the wall clock the ledger reads
func WithClock(c ledger.Clock) Option {
	return func(a *app) { a.clock = c }
}

// NewRootCommand builds the lockvault command tree
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{clock: ledger.SystemClock{}}
	for _, opt := range opts {
		opt(a)
	}

	var dataDir, key, backend string
	root := &cobra.Command{
		Use:   "lockvault",
		Short: "Time-locked vaults for lamports and tokens on a local ledger",
		Long: `lockvault locks lamports or tokens until a point in time. Only the
key that locked a vault can unlock it, and only once the unlock time has
passed.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("data-dir") {
				cfg.DataDir = dataDir
			}
			if flags.Changed("key") {
				cfg.Key = key
			}
			if flags.Changed("backend") {
				cfg.Backend = backend
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.New("lockvault", cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVarP(&dataDir, "data-dir", "d", "", "data directory (default $LOCKVAULT_DATA_DIR or .lockvault)")
	pf.StringVarP(&key, "key", "k", "", "key name (default $LOCKVAULT_KEY or default)")
	pf.StringVar(&backend, "backend", "", "storage backend: bolt or sqlite (default $LOCKVAULT_BACKEND or bolt)")

	root.AddCommand(
		newInitCommand(a),
		newKeygenCommand(a),
		newAddressCommand(a),
		newKeysCommand(a),
		newPasswdCommand(a),
		newAirdropCommand(a),
		newBalanceCommand(a),
		newMintCommand(a),
		newLockCommand(a),
		newUnlockCommand(a),
		newShowCommand(a),
		newLsCommand(a),
		newStatusCommand(a),
		newKeyringCommand(a),
		newCompactCommand(a),
		newCompletionCommand(root),
	)
	return root
}

// Execute runs the CLI and exits on error
func Execute(ctx context.Context) {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		HandleError(err)
	}
}

// open opens the data directory and ledger. Unless creating, a missing
// or uninitialized ledger is storage.ErrNotInitialized.
func (a *app) open(ctx context.Context, create bool) error {
	if !create {
		if _, err := os.Stat(a.cfg.LedgerPath()); errors.Is(err, fs.ErrNotExist) {
			return storage.ErrNotInitialized
		}
	}

	root, err := security.Open(a.cfg.DataDir)
	if err != nil {
		return err
	}
	a.root = root
	a.keys = keystore.New(root)

	backend, err := openBackend(a.cfg)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	a.backend = backend

	if !create {
		initialized, err := storage.IsInitialized(ctx, a.backend)
		if err != nil {
			return err
		}
		if !initialized {
			return storage.ErrNotInitialized
		}
	}

	a.ledger = ledger.New(a.backend,
		ledger.WithClock(a.clock),
		ledger.WithRent(a.cfg.Rent()),
		ledger.WithLogger(a.log),
	)
	a.program = timelock.New(a.ledger, timelock.WithLogger(a.log))
	a.log.Debug().Str("data_dir", root.Path()).Str("backend", a.cfg.Backend).Msg("ledger opened")
	return nil
}

// openBackend returns a nil interface on failure, never a typed nil
func openBackend(cfg *config.Config) (storage.Backend, error) {
	if cfg.Backend == config.BackendSQLite {
		s, err := sqlite.Open(cfg.LedgerPath())
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := storage.Open(cfg.LedgerPath())
	if err != nil {
		return nil, err
	}
	return s, nil
}

// withLedger runs fn with the ledger open and closes it afterwards
func (a *app) withLedger(ctx context.Context, create bool, fn func() error) (err error) {
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()
	if err := a.open(ctx, create); err != nil {
		return err
	}
	return fn()
}

func (a *app) close() error {
	var errs []error
	if a.backend != nil {
		errs = append(errs, a.backend.Close())
		a.backend = nil
	}
	if a.root != nil {
		errs = append(errs, a.root.Close())
		a.root = nil
	}
	return errors.Join(errs...)
}

func (a *app) passwords() keystore.PasswordSource {
	return keystore.PasswordSource{
		Env:     a.cfg.Password,
		Keyring: a.cfg.Keyring,
		Log:     a.log,
	}
}

// address returns the address of the selected key without decrypting it
func (a *app) address() (pubkey.PublicKey, error) {
	return a.keys.Address(a.cfg.Key)
}

// signer decrypts the selected key. The caller must Destroy the key.
func (a *app) signer() (*keystore.Key, ledger.Authority, error) {
	addr, err := a.address()
	if err != nil {
		return nil, ledger.Authority{}, err
	}
	password, err := a.passwords().ForKey(addr.String())
	if err != nil {
		return nil, ledger.Authority{}, err
	}
	defer clearPassword(password)

	key, err := a.keys.Open(a.cfg.Key, password)
	if err != nil {
		return nil, ledger.Authority{}, err
	}
	auth, err := key.Authority()
	if err != nil {
		key.Destroy()
		return nil, ledger.Authority{}, err
	}
	return key, auth, nil
}

// resolveAddress parses an address argument, defaulting to the selected key
func (a *app) resolveAddress(args []string, i int) (pubkey.PublicKey, error) {
	if len(args) > i {
		return pubkey.Parse(args[i])
	}
	return a.address()
}
