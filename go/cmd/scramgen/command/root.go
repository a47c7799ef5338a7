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

package command

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mongress/mongress/go/common/saslprep"
	"github.com/mongress/mongress/go/common/scram"
)

// scramgenFlags holds the derivation inputs.
type scramgenFlags struct {
	mechanism  string
	username   string
	password   string
	salt       string
	iterations int
}

var flags scramgenFlags

// Root is the scramgen command. It derives the SCRAM secrets a server
// would store for a credential and prints them base64-encoded.
var Root = &cobra.Command{
	Use:   "scramgen",
	Short: "Derive SCRAM secrets for a credential",
	Long: `scramgen derives the SCRAM secrets for a username/password pair:
the salted password and the client, stored and server keys.

With SCRAM-SHA-1 the password is first reduced to the MongoDB password
digest (hex MD5 of "<user>:mongo:<password>"). With SCRAM-SHA-256 the
password is prepared with SASLprep and stretched directly.

When --salt is omitted a random salt of the mechanism's expected length
(digest size minus four bytes) is generated.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	registerFlags(Root.Flags())
}

func registerFlags(fs *pflag.FlagSet) {
	fs.StringVar(&flags.mechanism, "mechanism", scram.SHA256.Mechanism(), "SASL mechanism: SCRAM-SHA-1 or SCRAM-SHA-256")
	fs.StringVar(&flags.username, "username", "", "authentication username")
	fs.StringVar(&flags.password, "password", "", "plaintext password")
	fs.StringVar(&flags.salt, "salt", "", "base64 salt (random when empty)")
	fs.IntVar(&flags.iterations, "iterations", 15000, "PBKDF2 iteration count (minimum 4096)")
}

func run(cmd *cobra.Command, _ []string) error {
	algorithm, err := scram.ParseMechanism(flags.mechanism)
	if err != nil {
		return err
	}
	if flags.username == "" {
		return fmt.Errorf("--username is required")
	}
	if flags.iterations < 4096 {
		return fmt.Errorf("--iterations must be at least 4096")
	}

	salt, err := resolveSalt(algorithm)
	if err != nil {
		return err
	}

	presecret, err := presecretFor(algorithm)
	if err != nil {
		return err
	}

	saltedPassword := algorithm.SaltedPassword(presecret, salt, flags.iterations)
	clientKey := algorithm.ClientKey(saltedPassword)
	storedKey := algorithm.StoredKey(clientKey)
	serverKey := algorithm.ServerKey(saltedPassword)

	enc := base64.StdEncoding.EncodeToString
	cmd.Printf("mechanism:      %s\n", algorithm.Mechanism())
	cmd.Printf("iterations:     %d\n", flags.iterations)
	cmd.Printf("salt:           %s\n", enc(salt))
	cmd.Printf("saltedPassword: %s\n", enc(saltedPassword))
	cmd.Printf("clientKey:      %s\n", enc(clientKey))
	cmd.Printf("storedKey:      %s\n", enc(storedKey))
	cmd.Printf("serverKey:      %s\n", enc(serverKey))
	return nil
}

// resolveSalt decodes --salt, or generates a random salt of the length the
// mechanism expects on the wire.
func resolveSalt(algorithm scram.Algorithm) ([]byte, error) {
	if flags.salt != "" {
		salt, err := base64.StdEncoding.DecodeString(flags.salt)
		if err != nil {
			return nil, fmt.Errorf("invalid --salt: %w", err)
		}
		return salt, nil
	}
	salt := make([]byte, algorithm.Size()-4)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("could not generate salt: %w", err)
	}
	return salt, nil
}

// presecretFor applies the mechanism's password rule before key stretching.
func presecretFor(algorithm scram.Algorithm) ([]byte, error) {
	switch algorithm {
	case scram.SHA1:
		return []byte(scram.PasswordDigest(flags.username, flags.password)), nil
	default:
		prepared, err := saslprep.Prepare(flags.password)
		if err != nil {
			return nil, err
		}
		return []byte(prepared), nil
	}
}
