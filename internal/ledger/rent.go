package ledger

// AccountStorageOverhead is charged on top of the data length of every account
const AccountStorageOverhead = 128

// Rent prices account storage. A deposit of MinimumBalance lamports makes an
// account rent exempt; the deposit is returned when the account is closed.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionYears      uint64
}

// DefaultRent returns mainnet-equivalent rent parameters
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: 3480,
		ExemptionYears:      2,
	}
}

// MinimumBalance returns the deposit required for space bytes of data
func (r Rent) MinimumBalance(space int) uint64 {
	return (AccountStorageOverhead + uint64(space)) * r.LamportsPerByteYear * r.ExemptionYears
}
