package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL      string
	ChainID     uint64
	TokenIn     string
	TokenOut    string
	DecimalsIn  uint8
	DecimalsOut uint8
	SymbolIn    string
	SymbolOut   string
	Amount      string
	ExactOut    bool
	Timeout     time.Duration
	LogLevel    string
}

// loadConfig merges config file, environment variables, and flags.
func loadConfig(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("QUOTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("decimals-in", 18)
	v.SetDefault("decimals-out", 18)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("quoter")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return Config{
		RPCURL:      v.GetString("rpc"),
		ChainID:     v.GetUint64("chain-id"),
		TokenIn:     v.GetString("token-in"),
		TokenOut:    v.GetString("token-out"),
		DecimalsIn:  uint8(v.GetUint("decimals-in")),
		DecimalsOut: uint8(v.GetUint("decimals-out")),
		SymbolIn:    v.GetString("symbol-in"),
		SymbolOut:   v.GetString("symbol-out"),
		Amount:      v.GetString("amount"),
		ExactOut:    v.GetBool("exact-out"),
		Timeout:     v.GetDuration("timeout"),
		LogLevel:    v.GetString("log-level"),
	}, nil
}
