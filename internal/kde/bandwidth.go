package kde

import (
	"fmt"
	"math"

	"github.com/banshee-data/channelkde/internal/config"
)

// BandwidthSelector chooses a bandwidth from the sample count n and the
// dimensionality d. Bandwidths are in the exact-estimator convention: the
// standard deviation of the kernel.
type BandwidthSelector interface {
	Bandwidth(n, d int) float64
}

// FixedBandwidth ignores its inputs and returns itself.
type FixedBandwidth float64

// Bandwidth implements BandwidthSelector.
func (b FixedBandwidth) Bandwidth(n, d int) float64 { return float64(b) }

// ScottBandwidth implements Scott's rule, h = n^(-1/(d+4)), for data already
// scaled to unit spread.
type ScottBandwidth struct{}

// Bandwidth implements BandwidthSelector.
func (ScottBandwidth) Bandwidth(n, d int) float64 {
	if n < 1 {
		n = 1
	}
	return math.Pow(float64(n), -1.0/float64(d+4))
}

// EstimateBandwidth returns the default bandwidth for n samples in d
// dimensions. A fixed 0.1 on the normalized intensity scale separates
// foreground from background better than Scott's rule does.
func EstimateBandwidth(n, d int) float64 {
	return FixedBandwidth(config.DefaultBandwidth).Bandwidth(n, d)
}

// selectorFromConfig builds the selector named by cfg.
func selectorFromConfig(cfg *config.DensityConfig) (BandwidthSelector, error) {
	switch rule := cfg.GetBandwidthRule(); rule {
	case config.BandwidthRuleFixed:
		return FixedBandwidth(cfg.GetBandwidth()), nil
	case config.BandwidthRuleScott:
		return ScottBandwidth{}, nil
	default:
		return nil, fmt.Errorf("unknown bandwidth rule %q", rule)
	}
}
