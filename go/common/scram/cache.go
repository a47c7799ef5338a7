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

import "crypto/subtle"

// Cache holds the secrets derived for one credential: the presecrets
// (hashed password, decoded salt, iteration count) that key the entry, and
// the ClientKey, ServerKey and SaltedPassword derived from them. Attaching
// a matching cache to a session lets step 2 skip the Hi key stretching,
// which dominates the cost of authentication.
//
// The hashed password is password-equivalent under the server's salt
// parameters, so the entry is handled like the password itself: copies are
// always deep, comparisons constant-time, and Destroy zeroizes.
//
// A Cache is immutable after creation. It may outlive the session that
// produced it and be attached to any number of later sessions.
type Cache struct {
	hashedPassword []byte
	salt           []byte
	iterations     int

	clientKey      []byte
	serverKey      []byte
	saltedPassword []byte
}

// clone returns a deep copy, or nil for a nil cache.
func (c *Cache) clone() *Cache {
	if c == nil {
		return nil
	}
	return &Cache{
		hashedPassword: cloneBytes(c.hashedPassword),
		salt:           cloneBytes(c.salt),
		iterations:     c.iterations,
		clientKey:      cloneBytes(c.clientKey),
		serverKey:      cloneBytes(c.serverKey),
		saltedPassword: cloneBytes(c.saltedPassword),
	}
}

// matches reports whether the entry was derived from the same presecrets.
// The hashed password and salt comparisons are constant-time.
func (c *Cache) matches(hashedPassword, salt []byte, iterations int) bool {
	if len(c.hashedPassword) == 0 || len(hashedPassword) == 0 {
		return false
	}
	same := subtle.ConstantTimeCompare(c.hashedPassword, hashedPassword) == 1
	same = subtle.ConstantTimeCompare(c.salt, salt) == 1 && same
	return same && c.iterations == iterations
}

// Destroy zeroizes the secrets held by the entry. The entry must not be
// used afterwards.
func (c *Cache) Destroy() {
	if c == nil {
		return
	}
	wipe(c.hashedPassword)
	wipe(c.clientKey)
	wipe(c.serverKey)
	wipe(c.saltedPassword)
	c.hashedPassword = nil
	c.salt = nil
	c.iterations = 0
	c.clientKey = nil
	c.serverKey = nil
	c.saltedPassword = nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
