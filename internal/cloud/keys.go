package cloud

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	pdKeyIterations = 10000
	pdKeyLength     = 32
)

// DerivePDKey derives the password derived key: SHA256(PBKDF2-SHA512(password, safleID)).
// Caller must zero the returned key after use.
func DerivePDKey(safleID string, password string) []byte {
	derived := pbkdf2.Key([]byte(password), []byte(safleID), pdKeyIterations, pdKeyLength, sha512.New)
	defer func() {
		for i := range derived {
			derived[i] = 0
		}
	}()

	sum := sha256.Sum256(derived)
	return sum[:]
}

// PDKeyHash is the hex SHA512 of the password derived key. It is the only credential sent to the cloud.
func PDKeyHash(pdKey []byte) string {
	sum := sha512.Sum512(pdKey)
	return hex.EncodeToString(sum[:])
}

// DecryptEncryptionKey decrypts the vault key with AES-256-CBC, zero IV and no padding.
func DecryptEncryptionKey(pdKey []byte, encrypted []byte) ([]byte, error) {
	mode, err := cbc(pdKey, encrypted, false)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(encrypted))
	mode.CryptBlocks(out, encrypted)

	return out, nil
}

// EncryptEncryptionKey is the inverse of DecryptEncryptionKey, used when provisioning a vault.
func EncryptEncryptionKey(pdKey []byte, key []byte) ([]byte, error) {
	mode, err := cbc(pdKey, key, true)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(key))
	mode.CryptBlocks(out, key)

	return out, nil
}

func cbc(pdKey []byte, data []byte, encrypt bool) (cipher.BlockMode, error) {
	block, err := aes.NewCipher(pdKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}

	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, errors.Errorf("encryption key length %d is not a multiple of %d", len(data), aes.BlockSize)
	}

	iv := make([]byte, aes.BlockSize)
	if encrypt {
		return cipher.NewCBCEncrypter(block, iv), nil
	}

	return cipher.NewCBCDecrypter(block, iv), nil
}
