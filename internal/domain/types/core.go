package types

// IdentityHash is the routing key derived from a PublicKey.
type IdentityHash string

// String returns the string form of the identity hash.
func (h IdentityHash) String() string { return string(h) }

// Short returns a log-friendly prefix of the hash.
func (h IdentityHash) Short() string {
	if len(h) <= 10 {
		return string(h)
	}
	return string(h[:10])
}

// Alias is a local nickname for a contact's public key.
type Alias string

// String returns the string form of the alias.
func (a Alias) String() string { return string(a) }

// HubAddress is the public websocket URL a hub is reachable at.
type HubAddress string

// String returns the string form of the hub address.
func (a HubAddress) String() string { return string(a) }
