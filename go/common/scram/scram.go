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
	cryptorand "crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"io"
	"log/slog"
	"strconv"

	"github.com/mongress/mongress/go/common/saslprep"
)

const (
	// nonceLength is the number of random bytes behind the client nonce.
	// Servers use a 24 byte nonce, so the client does as well; base64
	// turns it into 32 ASCII characters on the wire.
	nonceLength = 24

	// minIterations is the smallest iteration count the client accepts.
	// A man-in-the-middle can rewrite i= to make the salted password
	// cheap to brute-force; counts below 4096 are rejected outright.
	minIterations = 4096

	// gs2Header is the channel binding prefix of the client-first-message:
	// no channel binding, no authorization identity.
	gs2Header = "n,,"

	// gs2HeaderB64 is base64(gs2Header), sent as the c= value of the
	// client-final-message.
	gs2HeaderB64 = "biws"
)

// Session is the client side of one SCRAM authentication conversation.
//
// A session is stepped by the enclosing SASL exchange: step 1 produces the
// client-first-message, step 2 consumes the server-first-message and
// produces the client-final-message, step 3 consumes the
// server-final-message and verifies the server signature. Any failure is
// terminal; the caller destroys the session and starts over.
//
// Sessions are single-owner and not safe for concurrent use. Destroy must
// be called when the session is abandoned or complete, whichever comes
// first, to zeroize the password and every derived secret.
type Session struct {
	algorithm Algorithm
	rand      io.Reader
	logger    *slog.Logger

	step          int
	failed        bool
	authenticated bool

	user []byte
	pass []byte

	// encodedNonce is the base64 client nonce sent in step 1 and required
	// back as a prefix of the server's combined nonce in step 2.
	encodedNonce []byte

	// authMessage accumulates the RFC 5802 AuthMessage:
	// client-first-message-bare "," server-first-message ","
	// client-final-message-without-proof. Its capacity is fixed at step 1.
	authMessage *fixedBuffer

	// Presecrets: the cache key. hashedPassword is the MD5 password
	// digest for SCRAM-SHA-1 and the SASLprep'd password for
	// SCRAM-SHA-256; it is password-equivalent and treated as a secret.
	hashedPassword []byte
	salt           []byte
	iterations     int

	// Secrets derived from the presecrets, each Size() bytes.
	saltedPassword []byte
	clientKey      []byte
	serverKey      []byte

	cache *Cache
}

// New returns a session that authenticates with the given algorithm. The
// session is configured with SetUser and SetPassword, optionally seeded
// with a cache entry, and then stepped by the enclosing SASL conversation.
func New(algorithm Algorithm) (*Session, error) {
	if !algorithm.valid() {
		return nil, newError(KindConfig, "unknown hash algorithm")
	}
	return &Session{
		algorithm: algorithm,
		rand:      cryptorand.Reader,
	}, nil
}

// SetUser sets the authentication username.
func (s *Session) SetUser(username string) {
	s.user = []byte(username)
}

// SetPassword sets the plaintext password, zeroizing any previous one.
func (s *Session) SetPassword(password string) {
	wipe(s.pass)
	s.pass = []byte(password)
}

// SetRand replaces the nonce source. Tests substitute a deterministic
// reader; production sessions keep crypto/rand.
func (s *Session) SetRand(r io.Reader) {
	s.rand = r
}

// SetLogger attaches a logger for step-level debug output. No secret
// material is ever logged.
func (s *Session) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Mechanism returns the SASL mechanism name for the session's algorithm.
func (s *Session) Mechanism() string {
	return s.algorithm.Mechanism()
}

// Done reports whether the conversation completed with the server
// signature verified.
func (s *Session) Done() bool {
	return s.authenticated
}

// Cache returns a deep copy of the session's cache entry, or nil if none
// is attached. The copy can be attached to a later session to skip key
// stretching against the same credentials.
func (s *Session) Cache() *Cache {
	return s.cache.clone()
}

// SetCache replaces the session's cache entry with a deep copy of c. A nil
// c detaches the current entry.
func (s *Session) SetCache(c *Cache) {
	s.cache.Destroy()
	s.cache = c.clone()
}

// Step advances the conversation: in carries the server's last message
// (ignored at step 1), and the client's reply is written into out. It
// returns the number of bytes written. Step 3 produces no output. Any
// error leaves the session terminal.
func (s *Session) Step(in, out []byte) (n int, err error) {
	if s.failed {
		return 0, newError(KindNotDone, "stepping a failed session")
	}

	s.step++
	defer func() {
		if err != nil {
			s.failed = true
		}
	}()

	switch s.step {
	case 1:
		return s.clientFirst(out)
	case 2:
		return s.clientFinal(in, out)
	case 3:
		return 0, s.verifyServerFinal(in)
	default:
		return 0, newError(KindNotDone, "maximum steps detected")
	}
}

// clientFirst generates the client-first-message:
//
//	n,,n=<escaped-username>,r=<client-nonce>
func (s *Session) clientFirst(out []byte) (int, error) {
	if len(s.user) == 0 {
		return 0, newError(KindConfig, "username is not set")
	}

	// The auth message is given the same capacity as the caller's output
	// buffer: every fragment it records is one that had to fit there.
	s.authMessage = newFixedBuffer(len(out))

	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return 0, wrapError(KindEntropy, err, "could not generate a cryptographically secure nonce")
	}
	s.encodedNonce = make([]byte, base64.StdEncoding.EncodedLen(len(nonce)))
	base64.StdEncoding.Encode(s.encodedNonce, nonce)
	wipe(nonce)

	buf := wrapBuffer(out)
	if !buf.writeString(gs2Header + "n=") {
		return 0, newError(KindBuffer, "could not buffer client-first-message")
	}
	for _, c := range s.user {
		// RFC 5802: ',' and '=' in the username are encoded as '=2C'
		// and '=3D'; nothing else is escaped.
		var ok bool
		switch c {
		case ',':
			ok = buf.writeString("=2C")
		case '=':
			ok = buf.writeString("=3D")
		default:
			ok = buf.writeByte(c)
		}
		if !ok {
			return 0, newError(KindBuffer, "could not buffer client-first-message")
		}
	}
	if !buf.writeString(",r=") || !buf.write(s.encodedNonce) {
		return 0, newError(KindBuffer, "could not buffer client-first-message")
	}

	// The proof later covers the conversation from the n= portion on:
	// the GS2 header is not part of the auth message.
	if !s.authMessage.write(buf.bytes()[len(gs2Header):]) || !s.authMessage.writeByte(',') {
		return 0, newError(KindBuffer, "could not buffer auth message in client-first-message")
	}

	s.debug("client-first-message ready")
	return buf.len(), nil
}

// clientFinal consumes the server-first-message
//
//	r=<combined-nonce>,s=<base64-salt>,i=<iterations>
//
// and generates the client-final-message
//
//	c=biws,r=<combined-nonce>,p=<base64-client-proof>
func (s *Session) clientFinal(in, out []byte) (int, error) {
	if err := s.computePresecret(); err != nil {
		return 0, err
	}

	// The entire server-first-message participates in the proof.
	if !s.authMessage.write(in) || !s.authMessage.writeByte(',') {
		return 0, newError(KindBuffer, "could not buffer auth message in client-final-message")
	}

	attrs, err := parseAttributes(in, "rsi", "server-first-message")
	if err != nil {
		return 0, err
	}
	combinedNonce, ok := attrs['r']
	if !ok {
		return 0, newError(KindProtocol, "no r param in server-first-message")
	}
	encodedSalt, ok := attrs['s']
	if !ok {
		return 0, newError(KindProtocol, "no s param in server-first-message")
	}
	rawIterations, ok := attrs['i']
	if !ok {
		return 0, newError(KindProtocol, "no i param in server-first-message")
	}

	// The combined nonce must extend the nonce we sent.
	if len(combinedNonce) < len(s.encodedNonce) ||
		subtle.ConstantTimeCompare(combinedNonce[:len(s.encodedNonce)], s.encodedNonce) != 1 {
		return 0, newError(KindProtocol, "client nonce not repeated in server-first-message")
	}

	buf := wrapBuffer(out)
	if !buf.writeString("c="+gs2HeaderB64+",r=") || !buf.write(combinedNonce) {
		return 0, newError(KindBuffer, "could not buffer client-final-message")
	}
	// The auth message ends at the channel-binding-and-nonce prefix; the
	// proof itself is not covered.
	if !s.authMessage.write(buf.bytes()) {
		return 0, newError(KindBuffer, "could not buffer auth message in client-final-message")
	}
	if !buf.writeString(",p=") {
		return 0, newError(KindBuffer, "could not buffer client-final-message")
	}

	salt, err := base64.StdEncoding.DecodeString(string(encodedSalt))
	if err != nil {
		return 0, wrapError(KindEncoding, err, "unable to decode salt in server-first-message")
	}
	// The four bytes the salt leaves free hold the 0x00000001 block index
	// of the initial Hi HMAC.
	if expected := s.algorithm.Size() - 4; len(salt) != expected {
		return 0, newError(KindProtocol, "invalid salt length of %d in server-first-message, expected %d", len(salt), expected)
	}

	iterations, err := strconv.Atoi(string(rawIterations))
	if err != nil {
		return 0, newError(KindProtocol, "unable to parse iterations in server-first-message")
	}
	if iterations < 0 {
		return 0, newError(KindProtocol, "iterations is negative in server-first-message")
	}
	if iterations < minIterations {
		return 0, newError(KindProtocol, "iterations must be at least %d", minIterations)
	}

	s.salt = salt
	s.iterations = iterations

	if s.cache != nil && s.cache.matches(s.hashedPassword, s.salt, s.iterations) {
		s.clientKey = cloneBytes(s.cache.clientKey)
		s.serverKey = cloneBytes(s.cache.serverKey)
		s.saltedPassword = cloneBytes(s.cache.saltedPassword)
		s.debug("cached secrets applied, skipping key stretching")
	}

	if s.saltedPassword == nil {
		s.saltedPassword = s.algorithm.SaltedPassword(s.hashedPassword, s.salt, s.iterations)
	}

	if err := s.appendClientProof(buf); err != nil {
		return 0, err
	}

	s.debug("client-final-message ready")
	return buf.len(), nil
}

// computePresecret fills in the password form that feeds key stretching:
// the MongoDB MD5 password digest for SCRAM-SHA-1, the SASLprep'd password
// for SCRAM-SHA-256.
func (s *Session) computePresecret() error {
	switch s.algorithm {
	case SHA1:
		s.hashedPassword = []byte(PasswordDigest(string(s.user), string(s.pass)))
	case SHA256:
		prepared, err := saslprep.Prepare(string(s.pass))
		if err != nil {
			return wrapError(KindEncoding, err, "could not prepare password")
		}
		s.hashedPassword = []byte(prepared)
	}
	return nil
}

// appendClientProof derives the client proof and appends its base64 form
// to the client-final-message.
func (s *Session) appendClientProof(buf *fixedBuffer) error {
	if s.clientKey == nil {
		s.clientKey = s.algorithm.ClientKey(s.saltedPassword)
	}

	storedKey := s.algorithm.StoredKey(s.clientKey)
	defer wipe(storedKey)

	// ClientSignature := HMAC(StoredKey, AuthMessage)
	clientSignature := s.algorithm.hmac(storedKey, s.authMessage.bytes())
	defer wipe(clientSignature)

	// ClientProof := ClientKey XOR ClientSignature
	proof := xorBytes(s.clientKey, clientSignature)
	defer wipe(proof)

	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(proof)))
	base64.StdEncoding.Encode(encoded, proof)
	if !buf.write(encoded) {
		return newError(KindBuffer, "could not buffer client proof")
	}
	return nil
}

// verifyServerFinal consumes the server-final-message, either
//
//	v=<base64-server-signature>  or  e=<error-text>
//
// and checks that the server's signature matches our own derivation,
// proving the server knows the credentials too.
func (s *Session) verifyServerFinal(in []byte) error {
	attrs, err := parseAttributes(in, "ev", "server-final-message")
	if err != nil {
		return err
	}

	if serverErr, ok := attrs['e']; ok {
		return newError(KindVerification, "authentication failure: %s", serverErr)
	}
	verifier, ok := attrs['v']
	if !ok {
		return newError(KindVerification, "no v param in server-final-message")
	}

	if s.serverKey == nil {
		s.serverKey = s.algorithm.ServerKey(s.saltedPassword)
	}

	// ServerSignature := HMAC(ServerKey, AuthMessage)
	signature := s.algorithm.hmac(s.serverKey, s.authMessage.bytes())
	defer wipe(signature)

	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(signature)))
	base64.StdEncoding.Encode(encoded, signature)
	defer wipe(encoded)

	if subtle.ConstantTimeCompare(encoded, verifier) != 1 {
		return newError(KindVerification, "could not verify server signature")
	}

	s.updateCache()
	s.authenticated = true
	s.debug("server signature verified")
	return nil
}

// updateCache replaces the attached entry with one built from the secrets
// the conversation just proved. Only a successful step 3 reaches here; a
// failed conversation leaves the cache untouched.
func (s *Session) updateCache() {
	s.cache.Destroy()
	s.cache = &Cache{
		hashedPassword: cloneBytes(s.hashedPassword),
		salt:           cloneBytes(s.salt),
		iterations:     s.iterations,
		clientKey:      cloneBytes(s.clientKey),
		serverKey:      cloneBytes(s.serverKey),
		saltedPassword: cloneBytes(s.saltedPassword),
	}
}

// Destroy zeroizes the password, the hashed password and every derived secret,
// regardless of which step the conversation reached. The session must not
// be stepped afterwards.
func (s *Session) Destroy() {
	wipe(s.pass)
	wipe(s.hashedPassword)
	wipe(s.saltedPassword)
	wipe(s.clientKey)
	wipe(s.serverKey)
	if s.authMessage != nil {
		s.authMessage.wipe()
	}
	s.cache.Destroy()

	s.pass = nil
	s.hashedPassword = nil
	s.saltedPassword = nil
	s.clientKey = nil
	s.serverKey = nil
	s.authMessage = nil
	s.cache = nil
	s.failed = true
}

func (s *Session) debug(msg string) {
	if s.logger != nil {
		s.logger.Debug(msg, "mechanism", s.algorithm.Mechanism(), "step", s.step)
	}
}
