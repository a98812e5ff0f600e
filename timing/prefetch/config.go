package prefetch

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the parameters of a stride prefetcher. A Config is copied
// into the prefetcher at construction and never changes afterwards.
type Config struct {
	// Sets is the number of rows in the prediction table of each context.
	// Default: 4.
	Sets int `json:"sets"`

	// Associativity is the number of ways in each row. Default: 8.
	Associativity int `json:"associativity"`

	// MinConfidence is the lowest value a confidence counter can hold.
	// Default: 0.
	MinConfidence int `json:"min_confidence"`

	// MaxConfidence is the highest value a confidence counter can hold.
	// Default: 7.
	MaxConfidence int `json:"max_confidence"`

	// TrainThreshold separates retraining from speculation. A stride is
	// replaced while confidence is below it, and prefetches are generated
	// only when confidence is above it. Default: 4.
	TrainThreshold int `json:"train_threshold"`

	// StartConfidence is the confidence given to a newly allocated entry.
	// Default: 4.
	StartConfidence int `json:"start_confidence"`

	// Degree is the number of strides generated per confident prediction.
	// Default: 1.
	Degree int `json:"degree"`

	// QueueCapacity is the maximum number of pending prefetch requests.
	// Default: 32.
	QueueCapacity int `json:"queue_capacity"`

	// QueueFilter drops candidates that are already queued. Default: true.
	QueueFilter bool `json:"queue_filter"`

	// CacheSnoop drops candidates that are resident in the owner cache or
	// already outstanding misses. Default: false.
	CacheSnoop bool `json:"cache_snoop"`

	// BlockSize is the cache line size in bytes. Strides shorter than one
	// block are rounded up to one block. Default: 128.
	BlockSize uint64 `json:"block_size"`

	// SamePageOnly stops generation at the first candidate that leaves the
	// page of the triggering access. Default: false.
	SamePageOnly bool `json:"same_page_only"`

	// PageSize is the page size in bytes used by SamePageOnly.
	// Default: 4096.
	PageSize uint64 `json:"page_size"`
}

// DefaultConfig returns the configuration of the GPU L1 stride prefetcher.
func DefaultConfig() Config {
	return Config{
		Sets:            4,
		Associativity:   8,
		MinConfidence:   0,
		MaxConfidence:   7,
		TrainThreshold:  4,
		StartConfidence: 4,
		Degree:          1,
		QueueCapacity:   32,
		QueueFilter:     true,
		CacheSnoop:      false,
		BlockSize:       128,
		SamePageOnly:    false,
		PageSize:        4096,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read prefetch config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse prefetch config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the Config to a JSON file.
func (c Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize prefetch config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write prefetch config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration describes a usable prefetcher.
func (c Config) Validate() error {
	if c.Sets <= 0 {
		return fmt.Errorf("sets must be > 0")
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("associativity must be > 0")
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue_capacity must be > 0")
	}
	if c.Degree < 1 {
		return fmt.Errorf("degree must be >= 1")
	}
	if c.BlockSize == 0 {
		return fmt.Errorf("block_size must be > 0")
	}
	if c.MinConfidence > c.MaxConfidence {
		return fmt.Errorf("min_confidence must be <= max_confidence")
	}
	if c.StartConfidence < c.MinConfidence || c.StartConfidence > c.MaxConfidence {
		return fmt.Errorf("start_confidence must be within [min_confidence, max_confidence]")
	}
	if c.TrainThreshold < c.MinConfidence || c.TrainThreshold > c.MaxConfidence {
		return fmt.Errorf("train_threshold must be within [min_confidence, max_confidence]")
	}
	if c.SamePageOnly && c.PageSize == 0 {
		return fmt.Errorf("page_size must be > 0 when same_page_only is set")
	}
	return nil
}
