package bytecode

import (
	"fmt"

	"github.com/gdrec/gdrec/cache"
	"github.com/gdrec/gdrec/errs"
	"github.com/gdrec/gdrec/pack"
	"github.com/gdrec/gdrec/stream"
)

// ReadVersion returns the bytecode format counter of a compiled script
// buffer, or -1.
func ReadVersion(buf []byte) int {
	if len(buf) < 8 || string(buf[:4]) != ScriptMagic {
		return -1
	}
	return int(uint32(buf[4]) | uint32(buf[5])<<8 | uint32(buf[6])<<16 | uint32(buf[7])<<24)
}

// DecryptScript unwraps an encrypted compiled script with an explicit
// key.
func DecryptScript(buf []byte, key [32]byte) ([]byte, error) {
	if len(buf) < 4 || string(buf[:4]) != pack.EncryptedMagic {
		return nil, fmt.Errorf("bytecode: not an encrypted script: %w", errs.ErrUnrecognized)
	}
	r := stream.NewReaderBytes(buf[4:])
	return pack.DecryptAfterMagic(r, key)
}

// DecompileEncrypted decrypts a script with the process script key and
// decompiles it.
func DecompileEncrypted(buf []byte, v *Version) (string, error) {
	key, ok := cache.ScriptKey()
	if !ok {
		return "", fmt.Errorf("bytecode: no script encryption key set: %w", errs.ErrEncryption)
	}
	plain, err := DecryptScript(buf, key)
	if err != nil {
		return "", err
	}
	return Decompile(plain, v)
}

// ReadVersionEncrypted returns the bytecode format counter of an
// encrypted script, decrypting with the process key.
func ReadVersionEncrypted(buf []byte) (int, error) {
	key, ok := cache.ScriptKey()
	if !ok {
		return -1, fmt.Errorf("bytecode: no script encryption key set: %w", errs.ErrEncryption)
	}
	plain, err := DecryptScript(buf, key)
	if err != nil {
		return -1, err
	}
	return ReadVersion(plain), nil
}
