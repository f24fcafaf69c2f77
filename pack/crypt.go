package pack

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"fmt"

	"github.com/gdrec/gdrec/errs"
	"github.com/gdrec/gdrec/stream"
)

// EncryptedMagic marks an encrypted region: a GDEC container with the
// plaintext digest and length in the clear, followed by the AES-256
// ciphertext.
const EncryptedMagic = "GDEC"

// DecryptAfterMagic decrypts a GDEC container from a stream positioned
// just past the magic. The returned bytes are the verified plaintext.
// All failures, including a digest mismatch after decryption, are
// reported as errs.ErrEncryption so callers can prompt for a key.
func DecryptAfterMagic(r *stream.Reader, key [32]byte) ([]byte, error) {
	if _, err := r.GetU32(); err != nil { // mode word, reserved
		return nil, fmt.Errorf("pack: %w", errs.ErrEncryption)
	}
	sum, err := r.GetBuffer(16)
	if err != nil {
		return nil, fmt.Errorf("pack: %w", errs.ErrEncryption)
	}
	length, err := r.GetU64()
	if err != nil {
		return nil, fmt.Errorf("pack: %w", errs.ErrEncryption)
	}
	padded := (length + 15) &^ 15
	ciphertext, err := r.GetBuffer(int(padded))
	if err != nil {
		return nil, fmt.Errorf("pack: %w", errs.ErrEncryption)
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("pack: %w", errs.ErrEncryption)
	}
	plaintext := make([]byte, len(ciphertext))
	iv := make([]byte, aes.BlockSize)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	plaintext = plaintext[:length]

	digest := md5.Sum(plaintext)
	if !bytes.Equal(digest[:], sum) {
		return nil, fmt.Errorf("pack: digest mismatch after decryption: %w", errs.ErrEncryption)
	}
	return plaintext, nil
}

// Encrypt wraps plaintext in a GDEC container using key. Used by the
// round-trip tests and by tools that rebuild encrypted packs.
func Encrypt(w *stream.Writer, key [32]byte, plaintext []byte) error {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return fmt.Errorf("pack: %w", errs.ErrEncryption)
	}
	padded := make([]byte, (len(plaintext)+15)&^15)
	copy(padded, plaintext)
	ciphertext := make([]byte, len(padded))
	iv := make([]byte, aes.BlockSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	digest := md5.Sum(plaintext)
	w.StoreBuffer([]byte(EncryptedMagic))
	w.StoreU32(1) // mode
	w.StoreBuffer(digest[:])
	w.StoreU64(uint64(len(plaintext)))
	w.StoreBuffer(ciphertext)
	return nil
}
