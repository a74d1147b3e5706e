package session

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const envelopeVersion = 1

// KDFParams holds the Argon2id settings used to derive the envelope key from the session secret.
type KDFParams struct {
	ArgonTime    uint32 `json:"argon_time"`
	ArgonMemory  uint32 `json:"argon_memory_kib"`
	ArgonThreads uint8  `json:"argon_threads"`
	ArgonKeyLen  uint32 `json:"argon_key_len"`
}

var DefaultKDF = KDFParams{
	ArgonTime:    2,
	ArgonMemory:  64 * 1024,
	ArgonThreads: 1,
	ArgonKeyLen:  32,
}

type envelope struct {
	Version int `json:"version"`
	KDFParams
	SaltB64  string `json:"salt_b64"`
	NonceB64 string `json:"nonce_b64"`
	CTB64    string `json:"ct_b64"`
}

// sealSession encrypts the session JSON with XChaCha20-Poly1305 under an Argon2id derived key.
func sealSession(s *Session, secret []byte, kdf KDFParams, aad []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty session secret")
	}

	plain, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal session")
	}
	defer zeroBytes(plain)

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "failed to generate salt")
	}

	key := argon2.IDKey(secret, salt, kdf.ArgonTime, kdf.ArgonMemory, kdf.ArgonThreads, kdf.ArgonKeyLen)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create aead")
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "failed to generate nonce")
	}

	out := envelope{
		Version:   envelopeVersion,
		KDFParams: kdf,
		SaltB64:   base64.StdEncoding.EncodeToString(salt),
		NonceB64:  base64.StdEncoding.EncodeToString(nonce),
		CTB64:     base64.StdEncoding.EncodeToString(aead.Seal(nil, nonce, plain, aad)),
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal session envelope")
	}

	return b, nil
}

func openSession(raw []byte, secret []byte, aad []byte) (*Session, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty session secret")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(ErrCorrupt, err.Error())
	}
	if env.Version != envelopeVersion {
		return nil, errors.Wrapf(ErrCorrupt, "unsupported envelope version %d", env.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(env.SaltB64)
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, "decode salt")
	}
	nonce, err := base64.StdEncoding.DecodeString(env.NonceB64)
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, "decode nonce")
	}
	ct, err := base64.StdEncoding.DecodeString(env.CTB64)
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, "decode ciphertext")
	}

	key := argon2.IDKey(secret, salt, env.ArgonTime, env.ArgonMemory, env.ArgonThreads, env.ArgonKeyLen)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, err.Error())
	}

	plain, err := aead.Open(nil, nonce, ct, aad)
	if err != nil {
		return nil, ErrCorrupt
	}
	defer zeroBytes(plain)

	var s Session
	if err := json.Unmarshal(plain, &s); err != nil {
		return nil, errors.Wrap(ErrCorrupt, err.Error())
	}

	return &s, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
