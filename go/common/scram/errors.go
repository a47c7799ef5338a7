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

import "fmt"

// Kind classifies a SCRAM failure. Callers that need to distinguish a
// server-reported rejection from a local misconfiguration dispatch on it
// via errors.As.
type Kind int

const (
	// KindConfig means the session or its mechanism is misconfigured:
	// an unknown mechanism or hash algorithm, or no username was set.
	KindConfig Kind = iota + 1

	// KindEntropy means the random source did not deliver enough bytes
	// for the client nonce.
	KindEntropy

	// KindEncoding means base64 or UTF-8 handling failed, including
	// SASLprep rejection of the password.
	KindEncoding

	// KindProtocol means the server sent something the protocol does not
	// allow: unknown attributes, a missing attribute, a nonce that does
	// not extend ours, a bad salt length, or a downgraded iteration count.
	KindProtocol

	// KindVerification means the server-final-message did not prove the
	// server knows the credentials: it carried an e= value, omitted v=,
	// or its signature did not match.
	KindVerification

	// KindBuffer means the output buffer or the auth message buffer
	// would overflow.
	KindBuffer

	// KindNotDone means the session was stepped past the end of the
	// conversation, or after a terminal failure.
	KindNotDone
)

// String returns the kind's name for logs and error text.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindEntropy:
		return "entropy"
	case KindEncoding:
		return "encoding"
	case KindProtocol:
		return "protocol"
	case KindVerification:
		return "verification"
	case KindBuffer:
		return "buffer"
	case KindNotDone:
		return "not-done"
	default:
		return "unknown"
	}
}

// Error is a SCRAM authentication failure. Every failure the package
// reports is of this type; the Kind carries the taxonomy, the message the
// human-readable cause.
type Error struct {
	Kind    Kind
	Message string

	// Err is the underlying cause, if any (e.g. a base64 decode error).
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scram: %s: %v", e.Message, e.Err)
	}
	return "scram: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}
