// Package crypto seals keystore secrets under a password.
//
// Seal derives a 32-byte key with PBKDF2-HMAC-SHA256 over a fresh random
// salt and encrypts with AES-256-GCM. The resulting Sealed value carries the
// salt and iteration count next to the ciphertext, so Open needs only the
// password. A wrong password fails GCM authentication and surfaces as
// ErrAuthFailed. Parameters read back from disk below MinIters are refused.
//
// Callers zero passwords and decrypted seeds with ClearBytes.
package crypto
