/*
Package timelock implements time-locked vaults on the local ledger.

A vault holds a fixed amount of native lamports or of one token under an
(owner, id) pair. Its address is derived from the seeds "vault", owner and
id under the program id, so there is no index: a vault is found by
re-deriving its address. The derivation bump is stored in the record and is
what lets the program sign for the vault's token account.

Four transitions change state, each in one ledger transaction:

	CreateNative   allocate record, move lamports in
	CreateToken    allocate record and vault token account, move tokens in
	ReleaseNative  close record, every lamport to the owner
	ReleaseToken   move tokens out, close vault token account, close record

A vault can be released only by its owner and only once the ledger clock
reaches its unlock time. A released vault is simply gone; the same (owner,
id) may be used again afterwards.
*/
package timelock
