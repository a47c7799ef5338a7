// Copyright 2025 The Mongress Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scram

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// clientKeyLiteral is the string "Client Key" used in SCRAM.
	clientKeyLiteral = "Client Key"

	// serverKeyLiteral is the string "Server Key" used in SCRAM.
	serverKeyLiteral = "Server Key"
)

// Algorithm selects the hash underlying the SCRAM mechanism. All key
// derivations are polymorphic over it; nothing in the package hard-codes
// a digest length.
type Algorithm int

const (
	// SHA1 selects SCRAM-SHA-1.
	SHA1 Algorithm = iota + 1

	// SHA256 selects SCRAM-SHA-256.
	SHA256
)

// Mechanism returns the SASL mechanism name.
func (a Algorithm) Mechanism() string {
	switch a {
	case SHA1:
		return "SCRAM-SHA-1"
	case SHA256:
		return "SCRAM-SHA-256"
	default:
		return ""
	}
}

// Size returns the digest length in bytes: 20 for SHA-1, 32 for SHA-256.
func (a Algorithm) Size() int {
	switch a {
	case SHA1:
		return sha1.Size
	case SHA256:
		return sha256.Size
	default:
		return 0
	}
}

// New returns a constructor for the underlying hash.
func (a Algorithm) New() func() hash.Hash {
	switch a {
	case SHA1:
		return sha1.New
	case SHA256:
		return sha256.New
	default:
		return nil
	}
}

func (a Algorithm) valid() bool {
	return a == SHA1 || a == SHA256
}

// ParseMechanism returns the Algorithm for a SASL mechanism name.
func ParseMechanism(name string) (Algorithm, error) {
	switch name {
	case "SCRAM-SHA-1":
		return SHA1, nil
	case "SCRAM-SHA-256":
		return SHA256, nil
	default:
		return 0, newError(KindConfig, "unknown SASL mechanism %q", name)
	}
}

// SaltedPassword computes Hi(password, salt, iterations) as defined in
// RFC 5802: U1 = HMAC(password, salt || INT(1)), Uk = HMAC(password, Uk-1),
// output = U1 XOR ... XOR Ui. That is PBKDF2 limited to a single output
// block, with the big-endian 0x00000001 block index appended to the salt,
// which is why a SCRAM salt decodes to Size()-4 bytes.
func (a Algorithm) SaltedPassword(password, salt []byte, iterations int) []byte {
	return pbkdf2.Key(password, salt, iterations, a.Size(), a.New())
}

// ClientKey computes ClientKey = HMAC(SaltedPassword, "Client Key").
func (a Algorithm) ClientKey(saltedPassword []byte) []byte {
	return a.hmac(saltedPassword, []byte(clientKeyLiteral))
}

// StoredKey computes StoredKey = H(ClientKey).
func (a Algorithm) StoredKey(clientKey []byte) []byte {
	return a.hash(clientKey)
}

// ServerKey computes ServerKey = HMAC(SaltedPassword, "Server Key").
func (a Algorithm) ServerKey(saltedPassword []byte) []byte {
	return a.hmac(saltedPassword, []byte(serverKeyLiteral))
}

// hash computes the raw digest of data.
func (a Algorithm) hash(data []byte) []byte {
	h := a.New()()
	h.Write(data)
	return h.Sum(nil)
}

// hmac computes HMAC(key, message) with the algorithm's hash.
func (a Algorithm) hmac(key, message []byte) []byte {
	h := hmac.New(a.New(), key)
	h.Write(message)
	return h.Sum(nil)
}

// PasswordDigest returns the lowercase hex MD5 of
// "<username>:mongo:<password>". SCRAM-SHA-1 does not stretch the plaintext
// password directly: the MongoDB hashed variant is the presecret fed to Hi.
func PasswordDigest(username, password string) string {
	h := md5.New()
	h.Write([]byte(username))
	h.Write([]byte(":mongo:"))
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil))
}

// xorBytes returns a XOR b. Both inputs are digest-sized outputs of the
// same algorithm; lengths always match.
func xorBytes(a, b []byte) []byte {
	result := make([]byte, len(a))
	for i := range a {
		result[i] = a[i] ^ b[i]
	}
	return result
}

// wipe overwrites b with zeros. Every buffer holding a secret goes through
// wipe before it is released.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
