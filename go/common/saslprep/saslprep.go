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

// Package saslprep prepares passwords with the SASLprep profile of
// stringprep (RFC 4013), as required for SCRAM-SHA-256 key derivation.
//
// Preparation runs the RFC 3454 pipeline with the RFC 4013 tables:
//
//  1. Map: non-ASCII space characters become U+0020; commonly-mapped-to-
//     nothing characters are deleted.
//  2. Normalize: Unicode normalization form KC.
//  3. Prohibit: prohibited-output and unassigned codepoints fail.
//  4. Bidi: a string with RandALCat characters may not contain LCat
//     characters, and must start and end with a RandALCat character.
//
// A password of printable ASCII (codepoints 32..126) passes through every
// stage unchanged, so Prepare short-circuits it; Required exposes that
// predicate. Failures abort the current authentication only; they carry no
// process-wide consequence.
package saslprep

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/xdg-go/stringprep"
)

// ErrInvalidUTF8 reports a password that is not well-formed UTF-8. The
// stringprep tables are defined over codepoints; a byte sequence that does
// not decode cannot be prepared.
var ErrInvalidUTF8 = errors.New("saslprep: password is not valid UTF-8")

// Required reports whether s needs SASLprep preparation. Printable ASCII
// (codepoints 32..126) is unchanged by the RFC 4013 profile; anything else
// (control bytes, DEL, multibyte UTF-8) must run the full pipeline.
func Required(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 32 || s[i] >= 127 {
			return true
		}
	}
	return false
}

// Prepare applies the SASLprep profile to s and returns the prepared
// string. Printable-ASCII input is returned unchanged. Prohibited output,
// unassigned codepoints, bidi violations and invalid UTF-8 are errors.
func Prepare(s string) (string, error) {
	if !Required(s) {
		return s, nil
	}
	if !utf8.ValidString(s) {
		return "", ErrInvalidUTF8
	}
	out, err := stringprep.SASLprep.Prepare(s)
	if err != nil {
		return "", fmt.Errorf("saslprep: %w", err)
	}
	return out, nil
}
