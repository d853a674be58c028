package dbgloc

import (
	"flag"
	"fmt"
)

type Config struct {
	ExclusionMarker       string `yaml:"exclusion_marker"`
	SubprogramCounterSeed uint64 `yaml:"subprogram_counter_seed" category:"advanced"`
	BlockAddressSeparator string `yaml:"block_address_separator" category:"advanced"`
}

func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&cfg.ExclusionMarker, "dbgloc.exclusion-marker", "_init", "Functions whose name contains this marker never receive a debug scope. Empty disables the check.")
	f.Uint64Var(&cfg.SubprogramCounterSeed, "dbgloc.subprogram-counter-seed", 4000, "Initial value of the per-subprogram counter.")
	f.StringVar(&cfg.BlockAddressSeparator, "dbgloc.block-address-separator", "_", "Separator between a block name and the hex address it starts at.")
}

func (cfg *Config) Validate() error {
	if cfg.BlockAddressSeparator == "" {
		return fmt.Errorf("invalid block-address-separator value, must not be empty")
	}
	return nil
}
