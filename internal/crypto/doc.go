// Package crypto exposes the primitives used by blindrelay.
//
// Contents
//
//   - X25519 key generation, clamping and Diffie–Hellman (GenerateX25519, DH)
//   - Ed25519 key generation, signing and verification (GenerateEd25519,
//     SignEd25519, VerifyEd25519)
//   - Identity creation and content-addressed identity hashes (NewIdentity,
//     HashPublicKey)
//   - Public-key sealing for a recipient's X25519 key: a direct, fixed-size
//     short form (SealShort) and a hybrid long form (SealLong) that wraps a
//     one-time symmetric key with the short form. Seal and Open pick the
//     form transparently.
//   - Random strings for challenges and correlation ids (RandomString)
//
// # Notes
//
// Short seals always pad the plaintext to the same block, so an observer
// learns nothing about short payload lengths. Plaintexts longer than
// MaxShortPlaintext are rejected by SealShort with ErrPlaintextTooLong and
// must go through SealLong (or Seal).
package crypto
