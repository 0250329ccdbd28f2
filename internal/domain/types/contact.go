package types

// Contact binds a local alias to a peer's public key.
type Contact struct {
	Alias     Alias     `json:"alias"`
	PublicKey PublicKey `json:"public_key"`
}
