// Package crypto implements the packet cipher and key schedule for callwire.
//
// Every packet on the wire is tag(16) || AES-256-CTR(plaintext). The tag is
// derived from the plaintext and a slice of a 256-byte shared call secret;
// the same tag seeds the per-packet key and IV:
//
//	km, _ := crypto.NewKeyMaterial(secret, isOutgoing)
//	pc := crypto.NewPacketCipher(km)
//
//	x := crypto.SendOffset(km.IsOutgoing(), signaling)
//	tag := pc.ComputeTag(x, plaintext)
//	key, iv := pc.DeriveKeyIV(x, tag)
//	ciphertext := pc.EncryptCTR(key, iv, plaintext)
//
// The receiver derives the key with ReceiveOffset, decrypts, recomputes the
// tag over the recovered plaintext and compares with TagEqual, which runs in
// constant time. The offsets give each traffic direction its own keys even
// though both peers hold the same secret.
//
// # Key exchange helpers
//
// The secret itself is produced by the caller's key exchange. For tools and
// tests the package offers X25519 (DeriveSharedSecret) and HKDF-SHA256
// expansion into a full secret (ExpandKeyMaterial, KeyMaterialFromKeyPairs).
//
// Sensitive buffers are cleared with SecureWipe / ZeroBytes.
package crypto
