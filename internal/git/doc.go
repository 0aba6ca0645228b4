// Package git checks that the lockvault data directory is kept out of git.
//
// The data directory holds the local ledger and sealed private keys. Neither
// belongs in a repository, so status warns when the directory is tracked or
// not covered by .gitignore.
package git
