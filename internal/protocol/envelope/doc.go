// Package envelope implements the secure channel codec.
//
// EncryptAndSign serialises {from, data}, seals it to the recipient's box
// key and signs the resulting ciphertext bytes with the sender's Ed25519
// key. VerifyAndDecrypt checks the signature before decrypting, then checks
// that the embedded identity hash matches the outer signer.
//
// # Errors
//
// ErrSignatureDoesNotMatch is returned when the signature over the cipher is
// invalid; the cipher is never opened in that case. ErrMessageNotFromSigner
// is returned when the decrypted identity claim disagrees with the signer.
// Other errors wrap crypto or JSON failures.
package envelope
