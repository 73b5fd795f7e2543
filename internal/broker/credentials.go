package broker

// KeyRecord is one stored credential entry as returned by the key store.
// Field values may be protected (encrypted at rest) or legacy plaintext;
// resolveSecret handles both.
type KeyRecord struct {
	APIKey     string
	Secret     string
	Passphrase string
}

// CredentialStore is the key-storage contract the live broker consumes. The
// store owns persistence and protection; the broker only ever sees resolved
// records and the Unprotect primitive.
type CredentialStore interface {
	// ActiveKeyID returns the globally active key-entry id for a venue, or
	// "" when none is selected.
	ActiveKeyID(service string) string
	// GetKey returns the record for a key-entry id.
	GetKey(id string) (KeyRecord, bool)
	// Unprotect decrypts a stored value, returning "" when the value cannot
	// be recovered.
	Unprotect(value string) string
}

// AccountDirectory resolves a trade plan's account to its key entry.
type AccountDirectory interface {
	// KeyIDForAccount returns the key-entry id bound to an account, or ""
	// when the account has no binding.
	KeyIDForAccount(accountID string) string
}

// resolveSecret returns the first non-empty of {decrypted, raw}. Decrypt
// failure is not fatal: legacy unprotected values are stored verbatim and
// must keep working.
func resolveSecret(store CredentialStore, value string) string {
	if plain := store.Unprotect(value); plain != "" {
		return plain
	}

	return value
}
