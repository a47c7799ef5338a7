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

package saslprep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequired(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"empty", "", false},
		{"plain ascii", "pencil", false},
		{"ascii with space", "pen cil", false},
		{"full printable range", " !~}|{zyx", false},
		{"control character", "pen\tcil", true},
		{"DEL", "pencil\x7f", true},
		{"latin-1", "p\u00e4ncil", true},
		{"multibyte", "\u2168", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Required(tt.input))
		})
	}
}

func TestPrepare(t *testing.T) {
	t.Run("ascii passes through unchanged", func(t *testing.T) {
		for _, s := range []string{"", "user", "USER", "pencil", "p@ss w0rd!"} {
			out, err := Prepare(s)
			require.NoError(t, err)
			assert.Equal(t, s, out)
		}
	})

	// The examples of RFC 4013 section 3.
	t.Run("soft hyphen is mapped to nothing", func(t *testing.T) {
		out, err := Prepare("I\u00adX")
		require.NoError(t, err)
		assert.Equal(t, "IX", out)
	})

	t.Run("feminine ordinal normalizes under NFKC", func(t *testing.T) {
		out, err := Prepare("\u00aa")
		require.NoError(t, err)
		assert.Equal(t, "a", out)
	})

	t.Run("roman numeral normalizes under NFKC", func(t *testing.T) {
		out, err := Prepare("\u2168")
		require.NoError(t, err)
		assert.Equal(t, "IX", out)
	})

	t.Run("non-ascii space maps to space", func(t *testing.T) {
		out, err := Prepare("a\u00a0b")
		require.NoError(t, err)
		assert.Equal(t, "a b", out)
	})

	t.Run("prohibited control character fails", func(t *testing.T) {
		_, err := Prepare("bell\a")
		require.Error(t, err)
	})

	t.Run("replacement character fails", func(t *testing.T) {
		_, err := Prepare("bad\ufffdinput")
		require.Error(t, err)
	})

	t.Run("mixed bidi categories fail", func(t *testing.T) {
		// A RandALCat string must also end with a RandALCat character;
		// U+0627 U+0031 is the canonical invalid example.
		_, err := Prepare("\u06271")
		require.Error(t, err)
	})

	t.Run("all-RandALCat input is accepted", func(t *testing.T) {
		out, err := Prepare("\u0627\u0628")
		require.NoError(t, err)
		assert.Equal(t, "\u0627\u0628", out)
	})

	t.Run("invalid utf-8 fails", func(t *testing.T) {
		_, err := Prepare(string([]byte{0xff, 0xfe, 0xfd}))
		require.ErrorIs(t, err, ErrInvalidUTF8)
	})
}
