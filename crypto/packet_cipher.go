package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"
)

const (
	// TagSize is the length of the per-packet message key.
	TagSize = 16
	// AESKeySize is the length of the derived AES-256 key.
	AESKeySize = 32
	// IVSize is the length of the derived CTR initial counter block.
	IVSize = aes.BlockSize
)

// PacketCipher derives per-packet keys from a KeyMaterial and runs AES-CTR.
//
// There is no separate MAC: the tag is a truncated SHA-256 over a slice of
// the secret and the plaintext. The receiver recomputes it after decryption
// and compares in constant time.
type PacketCipher struct {
	key *KeyMaterial
}

// NewPacketCipher returns a cipher bound to key.
func NewPacketCipher(key *KeyMaterial) *PacketCipher {
	return &PacketCipher{key: key}
}

// ComputeTag returns SHA256(secret[88+x:120+x] || plaintext)[8:24].
func (c *PacketCipher) ComputeTag(x int, plaintext []byte) [TagSize]byte {
	h := sha256.New()
	h.Write(c.key.slice(88+x, 32))
	h.Write(plaintext)

	var large [sha256.Size]byte
	h.Sum(large[:0])

	var tag [TagSize]byte
	copy(tag[:], large[8:24])
	return tag
}

// DeriveKeyIV derives the AES key and IV for one packet.
//
//	a   = SHA256(tag || secret[x:x+36])
//	b   = SHA256(secret[40+x:76+x] || tag)
//	key = a[0:8] || b[8:24] || a[24:32]
//	iv  = b[0:4] || a[8:16] || b[24:28]
func (c *PacketCipher) DeriveKeyIV(x int, tag [TagSize]byte) (key [AESKeySize]byte, iv [IVSize]byte) {
	ha := sha256.New()
	ha.Write(tag[:])
	ha.Write(c.key.slice(x, 36))
	var a [sha256.Size]byte
	ha.Sum(a[:0])

	hb := sha256.New()
	hb.Write(c.key.slice(40+x, 36))
	hb.Write(tag[:])
	var b [sha256.Size]byte
	hb.Sum(b[:0])

	copy(key[0:8], a[0:8])
	copy(key[8:24], b[8:24])
	copy(key[24:32], a[24:32])

	copy(iv[0:4], b[0:4])
	copy(iv[4:12], a[8:16])
	copy(iv[12:16], b[24:28])

	ZeroBytes(a[:])
	ZeroBytes(b[:])
	return key, iv
}

// EncryptCTR runs AES-256-CTR over in and returns a new buffer.
func (c *PacketCipher) EncryptCTR(key [AESKeySize]byte, iv [IVSize]byte, in []byte) []byte {
	return processCTR(key, iv, in)
}

// DecryptCTR is the inverse of EncryptCTR; CTR mode is symmetric.
func (c *PacketCipher) DecryptCTR(key [AESKeySize]byte, iv [IVSize]byte, in []byte) []byte {
	return processCTR(key, iv, in)
}

func processCTR(key [AESKeySize]byte, iv [IVSize]byte, in []byte) []byte {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		// unreachable: the key length is fixed at 32 bytes
		panic(err)
	}
	out := make([]byte, len(in))
	cipher.NewCTR(block, iv[:]).XORKeyStream(out, in)
	return out
}

// TagEqual compares two tags in constant time.
func TagEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
