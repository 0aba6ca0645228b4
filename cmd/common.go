package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/illarion/lockvault/internal/crypto"
	"github.com/illarion/lockvault/internal/keystore"
	"github.com/illarion/lockvault/internal/ledger"
	"github.com/illarion/lockvault/internal/storage"
	"github.com/illarion/lockvault/internal/timelock"
)

// FormatError renders an error with a hint for the common cases
func FormatError(err error) string {
	code, _ := timelock.Code(err)
	switch {
	case errors.Is(err, storage.ErrNotInitialized):
		return "Error: lockvault not initialized\nRun 'lockvault init' first\n"
	case errors.Is(err, storage.ErrAlreadyInitialized):
		return "Error: ledger already exists in this data directory\nUse 'lockvault status' to see current state\n"
	case errors.Is(err, keystore.ErrWrongPassword):
		return "Error: wrong password\n"
	case errors.Is(err, keystore.ErrPasswordRequired):
		return "Error: password required\nSet LOCKVAULT_PASSWORD or run in a terminal\n"
	case errors.Is(err, keystore.ErrKeyNotFound):
		return fmt.Sprintf("Error: %s\nRun 'lockvault keygen' to create one\n", err)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fmt.Sprintf("Error: %s\nUse 'lockvault airdrop' to fund the key\n", err)
	case code == timelock.ErrVaultNotUnlocked:
		return fmt.Sprintf("Error: %s\nUse 'lockvault show' to see the time left\n", err)
	case code == timelock.ErrVaultDoesNotExist:
		return "Error: vault does not exist\nUse 'lockvault ls' to see your vaults\n"
	default:
		return fmt.Sprintf("Error: %s\n", err)
	}
}

// HandleError prints err and exits
func HandleError(err error) {
	fmt.Fprint(os.Stderr, FormatError(err))
	os.Exit(1)
}

func clearPassword(password []byte) {
	crypto.ClearBytes(password)
}

// parseAmount converts a decimal string into base units
func parseAmount(s string, decimals uint8) (uint64, error) {
	whole, frac, _ := strings.Cut(strings.TrimSpace(s), ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > int(decimals) {
		return 0, fmt.Errorf("invalid amount %q: at most %d decimal places", s, decimals)
	}
	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

// formatAmount renders base units as a decimal string
func formatAmount(n uint64, decimals uint8) string {
	s := strconv.FormatUint(n, 10)
	if decimals == 0 {
		return s
	}
	d := int(decimals)
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}
	whole, frac := s[:len(s)-d], strings.TrimRight(s[len(s)-d:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// parseUnlockTime accepts unix seconds, RFC 3339, a date, or an offset from
// now such as +90m or +7d
func parseUnlockTime(s string, now time.Time) (int64, error) {
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		if days, ok := strings.CutSuffix(rest, "d"); ok {
			n, err := strconv.ParseInt(days, 10, 64)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("invalid unlock time %q", s)
			}
			return now.Add(time.Duration(n) * 24 * time.Hour).Unix(), nil
		}
		d, err := time.ParseDuration(rest)
		if err != nil || d < 0 {
			return 0, fmt.Errorf("invalid unlock time %q", s)
		}
		return now.Add(d).Unix(), nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("invalid unlock time %q (use unix seconds, RFC 3339, YYYY-MM-DD or +duration)", s)
}

// formatCountdown renders the time left until unlock
func formatCountdown(unlock, now int64) string {
	left := unlock - now
	if left <= 0 {
		return "unlocked"
	}
	days := left / 86400
	hours := left % 86400 / 3600
	minutes := left % 3600 / 60
	seconds := left % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}

func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
