package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	// ErrInconsistent is returned when a session carries a vault without a decryption key or vice versa.
	ErrInconsistent = errors.New("session vault and decryption key must be set together")
	// ErrCorrupt is returned when a persisted session cannot be decrypted or decoded.
	ErrCorrupt = errors.New("invalid secret or corrupted session")
)

// Store persists the process-wide session. Implementations must be safe for concurrent use.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}

// DecryptionKey is the vault decryption key. Its JSON form is the byte-indexed map
// {"0":12,"1":200,...}; an array of numbers is accepted on input as well.
type DecryptionKey []byte

func (k DecryptionKey) MarshalJSON() ([]byte, error) {
	if k == nil {
		return []byte("null"), nil
	}

	m := make(map[string]int, len(k))
	for i, b := range k {
		m[strconv.Itoa(i)] = int(b)
	}

	return json.Marshal(m)
}

func (k *DecryptionKey) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*k = nil
		return nil
	}

	var arr []int
	if err := json.Unmarshal(data, &arr); err == nil {
		out, err := bytesFromInts(arr)
		if err != nil {
			return err
		}
		*k = out
		return nil
	}

	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return errors.Wrap(err, "decryption key must be an array or an index keyed object")
	}

	type entry struct {
		idx int
		val int
	}

	entries := make([]entry, 0, len(m))
	for key, val := range m {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 {
			return errors.Errorf("invalid decryption key index %q", key)
		}
		entries = append(entries, entry{idx: idx, val: val})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })

	arr = make([]int, len(entries))
	for i, e := range entries {
		if e.idx != i {
			return errors.Errorf("decryption key index %d missing", i)
		}
		arr[i] = e.val
	}

	out, err := bytesFromInts(arr)
	if err != nil {
		return err
	}
	*k = out

	return nil
}

// Zero overwrites the key material in place.
func (k DecryptionKey) Zero() {
	for i := range k {
		k[i] = 0
	}
}

func bytesFromInts(arr []int) (DecryptionKey, error) {
	out := make(DecryptionKey, len(arr))
	for i, v := range arr {
		if v < 0 || v > 255 {
			return nil, errors.Errorf("decryption key byte %d out of range", i)
		}
		out[i] = byte(v)
	}

	return out, nil
}

// Session is the persisted login state.
type Session struct {
	Vault         string        `json:"vault,omitempty"`
	DecryptionKey DecryptionKey `json:"decriptionKey,omitempty"`
	SafleID       string        `json:"safleID,omitempty"`
	IsMobile      bool          `json:"isMobile"`
	ChainID       int64         `json:"chainId,omitempty"`
	ActiveWallet  int           `json:"activeWallet"`
	LastError     string        `json:"lastError,omitempty"`
}

// IsLoggedIn reports whether the session carries a vault.
func (s *Session) IsLoggedIn() bool {
	return s != nil && s.Vault != ""
}

// Validate checks that vault and decryption key are either both present or both absent.
func (s *Session) Validate() error {
	if (s.Vault == "") != (len(s.DecryptionKey) == 0) {
		return ErrInconsistent
	}

	return nil
}

// Clone returns a deep copy so callers may zero their copy of the key.
func (s *Session) Clone() *Session {
	if s == nil {
		return &Session{}
	}

	cp := *s
	if s.DecryptionKey != nil {
		cp.DecryptionKey = append(DecryptionKey(nil), s.DecryptionKey...)
	}

	return &cp
}

func (s *Session) String() string {
	return fmt.Sprintf("Session{safleID: %q, chainId: %d, activeWallet: %d, isMobile: %t, vault: %s, decryptionKey: %s}",
		s.SafleID, s.ChainID, s.ActiveWallet, s.IsMobile, redacted(s.Vault != ""), redacted(len(s.DecryptionKey) > 0))
}

func (s *Session) MarshalZerologObject(e *zerolog.Event) {
	e.Str("safleID", s.SafleID).
		Int64("chainId", s.ChainID).
		Int("activeWallet", s.ActiveWallet).
		Bool("isMobile", s.IsMobile).
		Bool("hasVault", s.Vault != "").
		Str("lastError", s.LastError)
}

func redacted(present bool) string {
	if present {
		return "[REDACTED]"
	}

	return "<empty>"
}
