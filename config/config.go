// Package config resolves the run parameters from flags, environment, an
// optional config file and defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	fitenergy "github.com/lucasjlepore/fit-energy"
)

// EnvPrefix is prepended to every environment variable, e.g. FIT_ENERGY_OUT_DIR.
const EnvPrefix = "FIT_ENERGY"

// Viper keys.
const (
	KeyWallEnergyKWh       = "WALL_ENERGY_KWH"
	KeyWallToBatteryEffPct = "WALL2BATTERY_EFF_PCT"
	KeyMuscleEffPct        = "MUSCLE_EFF_PCT"
	KeyFormat              = "FORMAT"
	KeyOutDir              = "OUT_DIR"
)

// Output formats for the sample table.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

var (
	// ErrOutOfRange is returned by Validate for parameters outside their bounds.
	ErrOutOfRange = errors.New("parameter out of range")
	// ErrUnsupportedFormat is returned by Validate for an unknown table format.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Bounds is an inclusive valid range.
type Bounds struct {
	Min, Max float64
}

// Contains reports whether v lies within the bounds.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

var (
	WallEnergyBounds    = Bounds{Min: 0.01, Max: 5.0}
	WallToBatteryBounds = Bounds{Min: 10, Max: 100}
	MuscleEffBounds     = Bounds{Min: 5, Max: 40}
)

type Params struct {
	WallEnergyKWh       float64 `mapstructure:"WALL_ENERGY_KWH"`
	WallToBatteryEffPct float64 `mapstructure:"WALL2BATTERY_EFF_PCT"`
	MuscleEffPct        float64 `mapstructure:"MUSCLE_EFF_PCT"`
	Format              string  `mapstructure:"FORMAT"`
	OutDir              string  `mapstructure:"OUT_DIR"`
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault(KeyWallEnergyKWh, fitenergy.DefaultWallEnergyKWh)
	v.SetDefault(KeyWallToBatteryEffPct, fitenergy.DefaultWallToBatteryEffPct)
	v.SetDefault(KeyMuscleEffPct, fitenergy.DefaultMuscleEffPct)
	v.SetDefault(KeyFormat, FormatCSV)
	v.SetDefault(KeyOutDir, "")
	return v
}

// BindFlags maps command-line flags onto viper keys. Flags missing from fs
// are skipped.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range map[string]string{
		KeyWallEnergyKWh:       "wall-energy-kwh",
		KeyWallToBatteryEffPct: "wall2battery-eff-pct",
		KeyMuscleEffPct:        "muscle-eff-pct",
		KeyFormat:              "format",
		KeyOutDir:              "out-dir",
	} {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads configFile when given and unmarshals the resolved parameters.
func Load(v *viper.Viper, configFile string) (Params, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Params{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var p Params
	if err := v.Unmarshal(&p); err != nil {
		return Params{}, fmt.Errorf("decode config: %w", err)
	}
	p.Format = strings.ToLower(strings.TrimSpace(p.Format))
	if p.Format == "" {
		p.Format = FormatCSV
	}
	return p, nil
}

// Validate checks every numeric parameter against its bounds and the format
// against the supported set.
func (p Params) Validate() error {
	checks := []struct {
		name   string
		value  float64
		bounds Bounds
	}{
		{"wall energy (kWh)", p.WallEnergyKWh, WallEnergyBounds},
		{"wall-to-battery efficiency (%)", p.WallToBatteryEffPct, WallToBatteryBounds},
		{"muscle efficiency (%)", p.MuscleEffPct, MuscleEffBounds},
	}
	for _, c := range checks {
		if !c.bounds.Contains(c.value) {
			return fmt.Errorf("%w: %s = %g, allowed %g..%g", ErrOutOfRange, c.name, c.value, c.bounds.Min, c.bounds.Max)
		}
	}
	if p.Format != FormatCSV && p.Format != FormatParquet {
		return fmt.Errorf("%w %q (expected csv|parquet)", ErrUnsupportedFormat, p.Format)
	}
	return nil
}

// Inputs converts the parameters into metric inputs.
func (p Params) Inputs() fitenergy.Inputs {
	wall, eff, muscle := p.WallEnergyKWh, p.WallToBatteryEffPct, p.MuscleEffPct
	return fitenergy.Inputs{
		WallEnergyKWh:       &wall,
		WallToBatteryEffPct: &eff,
		MuscleEffPct:        &muscle,
	}
}
