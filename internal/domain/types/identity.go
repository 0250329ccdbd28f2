package types

// Identity holds your long-term X25519 and Ed25519 keys.
type Identity struct {
	XPub   X25519Public   `json:"xpub"`
	XPriv  X25519Private  `json:"xpriv"`
	EdPub  Ed25519Public  `json:"edpub"`
	EdPriv Ed25519Private `json:"edpriv"`
}

// Public returns the transmissible half of the identity.
func (id Identity) Public() PublicKey {
	return PublicKey{Sign: id.EdPub, Box: id.XPub}
}
