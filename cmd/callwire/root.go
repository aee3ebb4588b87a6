package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"log-file":   "log.file",
	"listen":     "listen",
	"peer":       "peer",
	"kind":       "kind",
	"secret":     "secret",
	"handshake":  "handshake",
	"static-key": "static-key",
	"peer-key":   "peer-key",
}

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "callwire",
		Short: "Encrypted, partially reliable call-signaling datagrams",
		Long: `callwire exchanges call-signaling messages between two peers over UDP.

Every packet is authenticated and encrypted with a shared 256-byte call
secret. Reliable messages are acknowledged and resent until acknowledged;
audio-style messages are fire and forget.

Settings are read from flags, CALLWIRE_* environment variables and an
optional YAML file given with --config.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	root.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "text", "log format (text or json)")
	root.PersistentFlags().String("log-file", "", "also write logs to this file, rotated by size")

	root.AddCommand(newKeygenCommand())
	root.AddCommand(newCallCommand("listen", false, &configFile))
	root.AddCommand(newCallCommand("dial", true, &configFile))
	return root
}

// bindFlags binds every known flag that is defined on cmd.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}
