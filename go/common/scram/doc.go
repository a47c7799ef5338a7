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

// Package scram implements the client side of SCRAM-SHA-1 and
// SCRAM-SHA-256 authentication for MongoDB-protocol connections.
//
// # Overview
//
// The package provides the SCRAM engine a driver or gateway steps while it
// shuttles SASL payloads over the wire, plus a per-credential secret cache
// so a connection pool pays the PBKDF2 key stretching once per credential
// rather than once per connection.
//
// # SCRAM Protocol
//
// SCRAM (Salted Challenge Response Authentication Mechanism) is defined in
// RFC 5802: https://datatracker.ietf.org/doc/html/rfc5802
//
// The SHA-256 variant is RFC 7677. The conversation is a four-message
// exchange, which the client drives in three steps:
//  1. Client → Server: client-first-message (username, nonce)
//  2. Server → Client: server-first-message (combined nonce, salt, iterations)
//  3. Client → Server: client-final-message (proof)
//  4. Server → Client: server-final-message (server signature for mutual auth)
//
// MongoDB layers two requirements on top of the RFCs. For SCRAM-SHA-1 the
// value fed to key stretching is not the plaintext password but the hex MD5
// of "<user>:mongo:<password>". For SCRAM-SHA-256 the password is prepared
// with SASLprep (RFC 4013) and stretched directly.
//
// # Why Not Use an Existing Library?
//
// xdg-go/scram is the most complete Go client, but it cannot express the
// MongoDB SHA-1 password digest, offers no reusable secret cache keyed on
// (hashed password, salt, iterations), and keeps derived keys alive in
// garbage-collected memory with no zeroization. This implementation adds:
//
//   - the MongoDB presecret rules for both mechanisms
//   - a detachable Cache that skips Hi() on repeat authentications
//   - fixed-capacity output and auth message buffers that fail instead of
//     reallocating, so secrets never linger in abandoned backing arrays
//   - explicit Destroy zeroization of passwords and derived keys
//
// # Architecture
//
//   - Session: the stepwise client state machine
//   - Cache: deep-copied secrets for one credential
//   - Algorithm: the hash capability set (digest size, H, HMAC, Hi)
//   - parseAttributes: strict "k=v" protocol parsing (unexported)
//
// # Usage Example
//
//	session, err := scram.New(scram.SHA256)
//	if err != nil { ... }
//	defer session.Destroy()
//	session.SetUser("app")
//	session.SetPassword("secret")
//
//	out := make([]byte, 4096)
//	n, err := session.Step(nil, out)        // client-first-message
//	// send out[:n], receive serverFirst...
//	n, err = session.Step(serverFirst, out) // client-final-message
//	// send out[:n], receive serverFinal...
//	_, err = session.Step(serverFinal, out) // verify server signature
//	cache := session.Cache()                // reuse for the next session
//
// # Security Properties
//
// Nonce prefix checks, server signature checks and cache key comparisons
// are constant-time. Iteration counts below 4096 are rejected to defeat
// downgrade attacks. All secret comparisons go through crypto/subtle, and
// Destroy zeroizes every secret buffer the session owns.
package scram
