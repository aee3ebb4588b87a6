package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/opd-ai/callwire/crypto"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Profile is the YAML document written by keygen --out. Its keys match the
// config keys, so the file can be passed straight to --config.
type Profile struct {
	Secret    string `yaml:"secret"`
	StaticKey string `yaml:"static-key"`
	PublicKey string `yaml:"public-key"`
}

// generateProfile creates a fresh call secret and static key pair.
func generateProfile(random io.Reader) (*Profile, error) {
	secret := make([]byte, crypto.SharedSecretSize)
	defer crypto.ZeroBytes(secret)
	if _, err := io.ReadFull(random, secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate key pair: %w", err)
	}
	defer crypto.WipeKeyPair(kp)

	return &Profile{
		Secret:    hex.EncodeToString(secret),
		StaticKey: hex.EncodeToString(kp.Private[:]),
		PublicKey: hex.EncodeToString(kp.Public[:]),
	}, nil
}

func writeProfile(path string, p *Profile) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return &p, nil
}

func newKeygenCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a call secret and a static key pair",
		Long: `Generate a random 256-byte call secret and a Curve25519 static key pair.

Without --out the secret is printed as hex. With --out a YAML profile holding
the secret and both halves of the key pair is written, readable by --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := generateProfile(rand.Reader)
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), p.Secret)
				return nil
			}
			if err := writeProfile(out, p); err != nil {
				return fmt.Errorf("write profile: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (public key %s)\n", out, p.PublicKey)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write a YAML profile to this path")
	return cmd
}
