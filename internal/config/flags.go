package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps global flag names to their viper keys.
var flagKeys = map[string]string{
	"config":    "config",
	"db":        "db.path",
	"log-level": "log.level",
}

// NewFlagSet declares the flags that affect configuration. It tolerates
// unknown flags so it can be parsed ahead of the command line proper.
func NewFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("ideaflow", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	fs.String("config", "", "YAML config file (env IDEAFLOW_CONFIG)")
	fs.String("db", "", "SQLite database path (env IDEAFLOW_DB_PATH)")
	fs.String("log-level", "", "Log level: debug, info, warn, error")
	return fs
}

// BindFlags makes flags that were set on the command line override the
// environment and the config file.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}
