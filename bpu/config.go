package bpu

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrInvalidConfig is wrapped by every error returned from Config.Validate.
var ErrInvalidConfig = errors.New("invalid branch prediction unit config")

// Direction predictor kinds accepted by Config.Direction.
const (
	DirectionRandom  = "random"
	DirectionBimodal = "bimodal"
)

// Config holds the geometry and policy parameters of the branch prediction
// unit. A Config is read once when the Engine is built and never changed
// afterwards.
type Config struct {
	// BTBEntries is the total number of BTB entries (sets * ways).
	// Default: 64.
	BTBEntries int `json:"btb_entries"`

	// Associativity is the number of ways per BTB set. BTBEntries /
	// Associativity must be a power of two. Default: 4.
	Associativity int `json:"associativity"`

	// RASEntries bounds the depth of the return address stack. Default: 16.
	RASEntries int `json:"ras_entries"`

	// TagBits is the width of the BTB tag, at most AddrWidth. Default: 48.
	TagBits int `json:"tag_bits"`

	// MispredictRate is the percentage of control-flow instructions whose
	// direction the random predictor gets wrong. Default: 20.
	MispredictRate int `json:"mispredict_rate"`

	// Direction selects the direction predictor, "random" or "bimodal".
	// Empty means "random".
	Direction string `json:"direction"`

	// BHTEntries is the number of 2-bit counters of the bimodal predictor.
	// Must be a power of 2. Default: 1024.
	BHTEntries int `json:"bht_entries"`
}

// DefaultConfig returns the configuration of a 64-entry, 4-way BTB with a
// 16-entry RAS and the random direction model at 20% misprediction.
func DefaultConfig() *Config {
	return &Config{
		BTBEntries:     64,
		Associativity:  4,
		RASEntries:     16,
		TagBits:        48,
		MispredictRate: 20,
		Direction:      DirectionRandom,
		BHTEntries:     1024,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read predictor config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse predictor config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize predictor config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write predictor config file: %w", err)
	}

	return nil
}

// Sets returns the number of BTB sets.
func (c *Config) Sets() int {
	if c.Associativity <= 0 {
		return 0
	}
	return c.BTBEntries / c.Associativity
}

// Validate checks that the configuration describes a buildable predictor.
// Nothing is clamped: any out-of-range value is an error.
func (c *Config) Validate() error {
	if c.Associativity <= 0 {
		return fmt.Errorf("%w: associativity must be > 0", ErrInvalidConfig)
	}
	if c.BTBEntries <= 0 {
		return fmt.Errorf("%w: btb_entries must be > 0", ErrInvalidConfig)
	}
	if c.BTBEntries%c.Associativity != 0 {
		return fmt.Errorf("%w: btb_entries (%d) must be divisible by associativity (%d)",
			ErrInvalidConfig, c.BTBEntries, c.Associativity)
	}
	if !isPowerOfTwo(c.Sets()) {
		return fmt.Errorf("%w: number of sets (%d) must be a power of 2",
			ErrInvalidConfig, c.Sets())
	}
	if c.RASEntries <= 0 {
		return fmt.Errorf("%w: ras_entries must be > 0", ErrInvalidConfig)
	}
	if c.TagBits < 1 || c.TagBits > AddrWidth {
		return fmt.Errorf("%w: tag_bits must be in [1, %d]", ErrInvalidConfig, AddrWidth)
	}
	if c.MispredictRate < 0 || c.MispredictRate > 100 {
		return fmt.Errorf("%w: mispredict_rate must be in [0, 100]", ErrInvalidConfig)
	}

	switch c.Direction {
	case DirectionRandom, "":
	case DirectionBimodal:
		if !isPowerOfTwo(c.BHTEntries) {
			return fmt.Errorf("%w: bht_entries (%d) must be a power of 2",
				ErrInvalidConfig, c.BHTEntries)
		}
	default:
		return fmt.Errorf("%w: unknown direction predictor %q",
			ErrInvalidConfig, c.Direction)
	}

	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
