package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/opd-ai/callwire/crypto"
	"github.com/opd-ai/callwire/messaging"
	"github.com/spf13/viper"
)

// Config holds everything a listen or dial run needs. Values come from
// flags, CALLWIRE_* environment variables and an optional YAML file, in
// that order of precedence.
type Config struct {
	Log LogConfig `mapstructure:"log"`

	Listen string `mapstructure:"listen"`
	Peer   string `mapstructure:"peer"`
	Kind   string `mapstructure:"kind"`

	// Secret is the hex encoded 256-byte call secret used when Handshake is "none".
	Secret    string `mapstructure:"secret"`
	Handshake string `mapstructure:"handshake"`
	StaticKey string `mapstructure:"static-key"`
	PeerKey   string `mapstructure:"peer-key"`
}

// LogConfig selects log level, format and optional rotated file output.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

const (
	handshakeNone = "none"
	handshakeXX   = "xx"
	handshakeIK   = "ik"
)

var (
	errMissingSecret = errors.New("a call secret is required without a handshake")
	errMissingStatic = errors.New("a static key is required for a handshake")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.compress", false)

	v.SetDefault("listen", ":0")
	v.SetDefault("kind", "signaling")
	v.SetDefault("handshake", handshakeNone)
}

// newViper returns a viper instance reading CALLWIRE_* variables and, if
// path is set, the YAML file at path.
func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CALLWIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

func loadConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Handshake = strings.ToLower(cfg.Handshake)
	return &cfg, nil
}

// ChannelKind maps the kind setting onto a messaging channel kind.
func (c *Config) ChannelKind() (messaging.ChannelKind, error) {
	switch strings.ToLower(c.Kind) {
	case "transport":
		return messaging.Transport, nil
	case "signaling", "":
		return messaging.Signaling, nil
	default:
		return 0, fmt.Errorf("unknown channel kind %q (must be transport or signaling)", c.Kind)
	}
}

// Validate checks that the key settings match the chosen handshake.
func (c *Config) Validate(initiator bool) error {
	if _, err := c.ChannelKind(); err != nil {
		return err
	}

	switch c.Handshake {
	case handshakeNone:
		if c.Secret == "" {
			return errMissingSecret
		}
		if c.Peer == "" {
			return errors.New("a peer address is required without a handshake")
		}
	case handshakeXX, handshakeIK:
		if c.StaticKey == "" {
			return errMissingStatic
		}
		if initiator && c.Peer == "" {
			return errors.New("dial requires a peer address")
		}
		if c.Handshake == handshakeIK && initiator && c.PeerKey == "" {
			return errors.New("an IK handshake requires the peer's public key")
		}
	default:
		return fmt.Errorf("unknown handshake %q (must be none, xx or ik)", c.Handshake)
	}
	return nil
}

// decodeHexKey decodes a hex string of exactly size bytes.
func decodeHexKey(name, value string, size int) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("%s is not valid hex: %w", name, err)
	}
	if len(raw) != size {
		crypto.ZeroBytes(raw)
		return nil, fmt.Errorf("%s must be %d bytes, got %d", name, size, len(raw))
	}
	return raw, nil
}
