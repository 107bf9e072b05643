package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical density defaults file.
const DefaultConfigPath = "config/density.defaults.json"

// Bandwidth rule names accepted by bandwidth_rule.
const (
	BandwidthRuleFixed = "fixed"
	BandwidthRuleScott = "scott"
)

// Gauss transform method names accepted by gauss_method.
const (
	GaussMethodAuto   = "auto"
	GaussMethodDirect = "direct"
	GaussMethodTree   = "tree"
	GaussMethodIFGT   = "ifgt"
)

// Defaults applied by the Get* accessors when a field is unset.
const (
	DefaultTargetCount      = 256
	DefaultIntensityCenter  = 128
	DefaultIntensityScale   = 128.0
	DefaultBandwidth        = 0.1
	DefaultEpsilon          = 1e-4
	DefaultMedianHalfWindow = 5
)

// DensityConfig holds the parameters of a channel density estimation.
// Every field is optional; unset fields fall back to the documented defaults
// through the Get* accessors, so partial JSON files are safe.
type DensityConfig struct {
	// Target grid and normalization
	TargetCount     *int     `json:"target_count,omitempty"`
	IntensityCenter *int     `json:"intensity_center,omitempty"`
	IntensityScale  *float64 `json:"intensity_scale,omitempty"`

	// Bandwidth, always in the exact-estimator convention
	Bandwidth     *float64 `json:"bandwidth,omitempty"`
	BandwidthRule *string  `json:"bandwidth_rule,omitempty"`

	// Fast estimator
	Epsilon     *float64 `json:"epsilon,omitempty"`
	GaussMethod *string  `json:"gauss_method,omitempty"`
	UseExact    *bool    `json:"use_exact,omitempty"`

	// Smoothing
	MedianFilter     *bool `json:"median_filter,omitempty"`
	MedianHalfWindow *int  `json:"median_half_window,omitempty"`
	MedianCentered   *bool `json:"median_centered,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyDensityConfig returns a DensityConfig with all fields set to nil.
func EmptyDensityConfig() *DensityConfig {
	return &DensityConfig{}
}

// DefaultDensityConfig returns a DensityConfig with every field populated
// from the package defaults.
func DefaultDensityConfig() *DensityConfig {
	return &DensityConfig{
		TargetCount:      ptrInt(DefaultTargetCount),
		IntensityCenter:  ptrInt(DefaultIntensityCenter),
		IntensityScale:   ptrFloat64(DefaultIntensityScale),
		Bandwidth:        ptrFloat64(DefaultBandwidth),
		BandwidthRule:    ptrString(BandwidthRuleFixed),
		Epsilon:          ptrFloat64(DefaultEpsilon),
		GaussMethod:      ptrString(GaussMethodAuto),
		UseExact:         ptrBool(false),
		MedianFilter:     ptrBool(false),
		MedianHalfWindow: ptrInt(DefaultMedianHalfWindow),
		MedianCentered:   ptrBool(false),
	}
}

// LoadDensityConfig loads a DensityConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadDensityConfig(path string) (*DensityConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyDensityConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *DensityConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/<tool>/ and deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadDensityConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *DensityConfig) Validate() error {
	if c.TargetCount != nil && *c.TargetCount < 1 {
		return fmt.Errorf("target_count must be positive, got %d", *c.TargetCount)
	}

	if c.IntensityScale != nil && *c.IntensityScale <= 0 {
		return fmt.Errorf("intensity_scale must be positive, got %f", *c.IntensityScale)
	}

	if c.Bandwidth != nil && *c.Bandwidth <= 0 {
		return fmt.Errorf("bandwidth must be positive, got %f", *c.Bandwidth)
	}

	if c.BandwidthRule != nil {
		switch *c.BandwidthRule {
		case BandwidthRuleFixed, BandwidthRuleScott:
		default:
			return fmt.Errorf("unknown bandwidth_rule %q", *c.BandwidthRule)
		}
	}

	if c.Epsilon != nil && (*c.Epsilon <= 0 || *c.Epsilon >= 1) {
		return fmt.Errorf("epsilon must be between 0 and 1 (exclusive), got %g", *c.Epsilon)
	}

	if c.GaussMethod != nil {
		switch *c.GaussMethod {
		case GaussMethodAuto, GaussMethodDirect, GaussMethodTree, GaussMethodIFGT:
		default:
			return fmt.Errorf("unknown gauss_method %q", *c.GaussMethod)
		}
	}

	if c.MedianHalfWindow != nil && *c.MedianHalfWindow < 0 {
		return fmt.Errorf("median_half_window must be non-negative, got %d", *c.MedianHalfWindow)
	}

	return nil
}

// GetTargetCount returns the target_count value or the default.
func (c *DensityConfig) GetTargetCount() int {
	if c.TargetCount == nil {
		return DefaultTargetCount
	}
	return *c.TargetCount
}

// GetIntensityCenter returns the intensity_center value or the default.
func (c *DensityConfig) GetIntensityCenter() int {
	if c.IntensityCenter == nil {
		return DefaultIntensityCenter
	}
	return *c.IntensityCenter
}

// GetIntensityScale returns the intensity_scale value or the default.
func (c *DensityConfig) GetIntensityScale() float64 {
	if c.IntensityScale == nil {
		return DefaultIntensityScale
	}
	return *c.IntensityScale
}

// GetBandwidth returns the bandwidth value or the default.
func (c *DensityConfig) GetBandwidth() float64 {
	if c.Bandwidth == nil {
		return DefaultBandwidth
	}
	return *c.Bandwidth
}

// GetBandwidthRule returns the bandwidth_rule value or the default.
func (c *DensityConfig) GetBandwidthRule() string {
	if c.BandwidthRule == nil || *c.BandwidthRule == "" {
		return BandwidthRuleFixed
	}
	return *c.BandwidthRule
}

// GetEpsilon returns the epsilon value or the default.
func (c *DensityConfig) GetEpsilon() float64 {
	if c.Epsilon == nil {
		return DefaultEpsilon
	}
	return *c.Epsilon
}

// GetGaussMethod returns the gauss_method value or the default.
func (c *DensityConfig) GetGaussMethod() string {
	if c.GaussMethod == nil || *c.GaussMethod == "" {
		return GaussMethodAuto
	}
	return *c.GaussMethod
}

// GetUseExact returns the use_exact value or the default.
func (c *DensityConfig) GetUseExact() bool {
	if c.UseExact == nil {
		return false
	}
	return *c.UseExact
}

// GetMedianFilter returns the median_filter value or the default.
func (c *DensityConfig) GetMedianFilter() bool {
	if c.MedianFilter == nil {
		return false // default: smoothing disabled
	}
	return *c.MedianFilter
}

// GetMedianHalfWindow returns the median_half_window value or the default.
func (c *DensityConfig) GetMedianHalfWindow() int {
	if c.MedianHalfWindow == nil {
		return DefaultMedianHalfWindow
	}
	return *c.MedianHalfWindow
}

// GetMedianCentered returns the median_centered value or the default.
func (c *DensityConfig) GetMedianCentered() bool {
	if c.MedianCentered == nil {
		return false
	}
	return *c.MedianCentered
}

// Resolved returns a copy of c with every field set to its effective value.
// Stored runs record this form so later default changes do not alter them.
func (c *DensityConfig) Resolved() *DensityConfig {
	return &DensityConfig{
		TargetCount:      ptrInt(c.GetTargetCount()),
		IntensityCenter:  ptrInt(c.GetIntensityCenter()),
		IntensityScale:   ptrFloat64(c.GetIntensityScale()),
		Bandwidth:        ptrFloat64(c.GetBandwidth()),
		BandwidthRule:    ptrString(c.GetBandwidthRule()),
		Epsilon:          ptrFloat64(c.GetEpsilon()),
		GaussMethod:      ptrString(c.GetGaussMethod()),
		UseExact:         ptrBool(c.GetUseExact()),
		MedianFilter:     ptrBool(c.GetMedianFilter()),
		MedianHalfWindow: ptrInt(c.GetMedianHalfWindow()),
		MedianCentered:   ptrBool(c.GetMedianCentered()),
	}
}

// SetMedianFilter overrides median_filter, used by command-line flags.
func (c *DensityConfig) SetMedianFilter(on bool) {
	c.MedianFilter = ptrBool(on)
}

// SetUseExact overrides use_exact, used by command-line flags.
func (c *DensityConfig) SetUseExact(on bool) {
	c.UseExact = ptrBool(on)
}
