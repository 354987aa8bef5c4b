// Package identity holds the 32-byte keys used both as record authorities and as
// record addresses, with their base58 text form and ed25519 signature checks.
package identity

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"

	"github.com/gogotex/docbase/internal/fault"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"
)

// KeySize is the byte length of an authority or address.
const KeySize = 32

// domain separator for derived addresses
const derivePrefix = "docbase:derived-address"

// Key is an ed25519 public key or a record address.
type Key [KeySize]byte

// Zero is the unset key.
var Zero Key

// Parse decodes a base58 key.
func Parse(s string) (Key, error) {
	var k Key
	if s == "" {
		return k, fault.ErrInvalidAddress
	}
	b, err := base58.Decode(s)
	if err != nil || len(b) != KeySize {
		return k, fault.ErrInvalidAddress
	}
	copy(k[:], b)
	return k, nil
}

// MustParse is Parse for constants in tests and fixtures.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic("identity: invalid key " + s)
	}
	return k
}

// FromBytes copies a 32-byte slice into a Key.
func FromBytes(b []byte) (Key, error) {
	var k Key
	if len(b) != KeySize {
		return k, fault.ErrInvalidAddress
	}
	copy(k[:], b)
	return k, nil
}

// domain separator for subjects issued by external identity providers
const subjectPrefix = "docbase:external-subject:"

// FromSubject maps a subject from an external identity provider onto a Key.
// The subject is always hashed, so an IdP subject that happens to spell a
// base58 key never acts as that key.
func FromSubject(sub string) Key {
	return Key(sha3.Sum256([]byte(subjectPrefix + sub)))
}

// NewAddress returns a random address for a fresh record.
func NewAddress() (Key, error) {
	var k Key
	if _, err := rand.Read(k[:]); err != nil {
		return k, err
	}
	return k, nil
}

// Derive computes a deterministic address from seeds. Each seed is length
// prefixed so ("ab","c") and ("a","bc") derive different addresses.
func Derive(seeds ...[]byte) Key {
	var buf bytes.Buffer
	buf.WriteString(derivePrefix)
	var n [binary.MaxVarintLen64]byte
	for _, s := range seeds {
		l := binary.PutUvarint(n[:], uint64(len(s)))
		buf.Write(n[:l])
		buf.Write(s)
	}
	return Key(sha3.Sum256(buf.Bytes()))
}

// DeriveCollection is the derived address of a named collection owned by authority.
func DeriveCollection(authority Key, name string) Key {
	return Derive([]byte("collection"), authority[:], []byte(name))
}

// Verify checks an ed25519 signature made by the private half of key.
func Verify(key Key, message, signature []byte) error {
	if len(signature) != ed25519.SignatureSize {
		return fault.ErrInvalidSignature
	}
	if !ed25519.Verify(ed25519.PublicKey(key[:]), message, signature) {
		return fault.ErrInvalidSignature
	}
	return nil
}

// LoginMessage is the byte string an authority signs to answer a login challenge.
func LoginMessage(nonce string) []byte {
	return []byte("docbase-login:" + nonce)
}

// GenerateKeypair creates a signing keypair; the public half is the authority.
func GenerateKeypair() (Key, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Zero, nil, err
	}
	k, err := FromBytes(pub)
	return k, priv, err
}

// IsZero reports whether the key is unset.
func (k Key) IsZero() bool {
	return k == Zero
}

// String returns the base58 form.
func (k Key) String() string {
	return base58.Encode(k[:])
}

// Bytes returns a copy of the key bytes.
func (k Key) Bytes() []byte {
	b := make([]byte, KeySize)
	copy(b, k[:])
	return b
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(s []byte) error {
	p, err := Parse(string(s))
	if err != nil {
		return err
	}
	*k = p
	return nil
}
