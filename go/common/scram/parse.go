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
	"bytes"
	"strings"
)

// parseAttributes splits a comma-separated "k=v" attribute list,
// restricted to the single-letter keys valid in the given message. An
// unknown key or a malformed pair is a protocol error. A repeated key
// keeps its last value. Values may be empty; absence of a required key is
// checked by the caller.
func parseAttributes(in []byte, allowed, message string) (map[byte][]byte, error) {
	attrs := make(map[byte][]byte, len(allowed))

	rest := in
	for len(rest) > 0 {
		key := rest[0]
		if !strings.ContainsRune(allowed, rune(key)) {
			return nil, newError(KindProtocol, "unknown key %q in %s", string(key), message)
		}
		if len(rest) < 2 || rest[1] != '=' {
			return nil, newError(KindProtocol, "malformed %c attribute in %s", key, message)
		}
		rest = rest[2:]

		if i := bytes.IndexByte(rest, ','); i >= 0 {
			attrs[key] = rest[:i]
			rest = rest[i+1:]
		} else {
			attrs[key] = rest
			rest = nil
		}
	}

	return attrs, nil
}
