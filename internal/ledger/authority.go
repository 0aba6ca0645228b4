package ledger

import (
	"errors"
	"fmt"

	"github.com/illarion/lockvault/internal/pubkey"
)

var ErrMissingSignature = errors.New("missing required signature")

// Authority proves control over an address, either because the host verified
// a signature for it or because a program presents the seeds (bump included)
// that derive it.
type Authority struct {
	Key       pubkey.PublicKey
	Signed    bool
	ProgramID pubkey.PublicKey
	Seeds     [][]byte
}

// Signer returns an authority for an identity the caller has authenticated
func Signer(key pubkey.PublicKey) Authority {
	return Authority{Key: key, Signed: true}
}

// ProgramSigner returns an authority for a program-derived address
func ProgramSigner(programID, key pubkey.PublicKey, seeds ...[]byte) Authority {
	return Authority{Key: key, ProgramID: programID, Seeds: seeds}
}

// Verify checks the signature flag or re-derives the address from the seeds
func (a Authority) Verify() error {
	if a.Signed {
		return nil
	}
	if len(a.Seeds) == 0 {
		return fmt.Errorf("%w: %s", ErrMissingSignature, a.Key)
	}
	derived, err := pubkey.CreateProgramAddress(a.Seeds, a.ProgramID)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMissingSignature, a.Key, err)
	}
	if derived != a.Key {
		return fmt.Errorf("%w: seeds derive %s, not %s", ErrMissingSignature, derived, a.Key)
	}
	return nil
}
