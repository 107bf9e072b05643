package kde

import (
	"context"
	"fmt"

	"github.com/banshee-data/channelkde/internal/config"
	"github.com/banshee-data/channelkde/internal/gausstransform"
	"github.com/banshee-data/channelkde/internal/monitoring"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ChannelEstimator turns channel samples into a density over the intensity
// grid. It holds no per-call state and may be shared between goroutines.
type ChannelEstimator struct {
	cfg     *config.DensityConfig
	est     Estimator
	targets []float64
}

// NewChannelEstimator builds an estimator from cfg. A nil cfg uses the
// defaults.
func NewChannelEstimator(cfg *config.DensityConfig) (*ChannelEstimator, error) {
	if cfg == nil {
		cfg = config.EmptyDensityConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid density config: %w", err)
	}

	selector, err := selectorFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	method, err := gausstransform.ParseMethod(cfg.GetGaussMethod())
	if err != nil {
		return nil, err
	}

	c := &ChannelEstimator{
		cfg: cfg,
		est: Estimator{
			Selector:  selector,
			Transform: gausstransform.Transform{Method: method},
		},
	}
	c.targets = make([]float64, cfg.GetTargetCount())
	for i := range c.targets {
		c.targets[i] = c.Normalize(float64(i))
	}
	return c, nil
}

// Normalize maps a raw intensity onto the estimator scale,
// (v - center) / scale, which is [-1, 1) for the default 128/128.
// Raw differences of up to 255 would drive the kernel exponent far past
// anything representable.
func (c *ChannelEstimator) Normalize(v float64) float64 {
	return (v - float64(c.cfg.GetIntensityCenter())) / c.cfg.GetIntensityScale()
}

// Targets returns a copy of the normalized target grid. Index i holds the
// normalized value of intensity i.
func (c *ChannelEstimator) Targets() []float64 {
	return append([]float64(nil), c.targets...)
}

// Config returns the configuration the estimator was built from.
func (c *ChannelEstimator) Config() *config.DensityConfig {
	return c.cfg
}

// Estimate extracts the samples of src and estimates their density.
func (c *ChannelEstimator) Estimate(src SampleSource) ([]float64, error) {
	xis, err := src.Samples()
	if err != nil {
		return nil, fmt.Errorf("extract samples: %w", err)
	}
	return c.EstimateSamples(xis)
}

// EstimateSamples estimates the density of raw intensities xis, each weighted
// 1/len(xis). The result has one value per target and is not normalized.
func (c *ChannelEstimator) EstimateSamples(xis []float64) ([]float64, error) {
	weights := make([]float64, len(xis))
	if len(xis) > 0 {
		floats.AddConst(1/float64(len(xis)), weights)
	}

	nx := make([]float64, len(xis))
	for i, x := range xis {
		nx[i] = c.Normalize(x)
	}

	var prob []float64
	if c.cfg.GetUseExact() {
		prob = c.est.Exact(nx, weights, c.targets)
	} else {
		var err error
		prob, err = c.est.Fast(nx, weights, c.targets, c.cfg.GetEpsilon())
		if err != nil {
			return nil, err
		}
	}

	if c.cfg.GetMedianFilter() {
		hw := c.cfg.GetMedianHalfWindow()
		if c.cfg.GetMedianCentered() {
			prob = CenteredMedianFilter(prob, hw)
		} else {
			prob = MedianFilter(prob, hw)
		}
	}
	return prob, nil
}

// Compare runs both estimators on xis, normalized and weighted as in
// EstimateSamples, without smoothing.
func (c *ChannelEstimator) Compare(xis []float64) (Comparison, error) {
	weights := make([]float64, len(xis))
	nx := make([]float64, len(xis))
	for i, x := range xis {
		weights[i] = 1 / float64(len(xis))
		nx[i] = c.Normalize(x)
	}
	return c.est.Compare(nx, weights, c.targets, c.cfg.GetEpsilon())
}

// ColorChannelKDE estimates the density of raw intensities xis with the
// default configuration, optionally median filtered.
func ColorChannelKDE(xis []float64, medianFilter bool) ([]float64, error) {
	cfg := config.EmptyDensityConfig()
	cfg.SetMedianFilter(medianFilter)
	c, err := NewChannelEstimator(cfg)
	if err != nil {
		return nil, err
	}
	return c.EstimateSamples(xis)
}

// ChannelJob names one density to estimate.
type ChannelJob struct {
	Channel string
	Label   string
	Source  SampleSource
}

// ChannelDensity is the result of one ChannelJob.
type ChannelDensity struct {
	Channel     string    `json:"channel"`
	Label       string    `json:"label"`
	SampleCount int       `json:"sample_count"`
	Mean        float64   `json:"mean"`
	StdDev      float64   `json:"std_dev"`
	Density     []float64 `json:"density"`
}

// EstimateChannels runs the jobs concurrently. Jobs share nothing, so the
// only coordination is collecting results and the first error. Results keep
// the order of jobs.
func (c *ChannelEstimator) EstimateChannels(ctx context.Context, jobs []ChannelJob) ([]ChannelDensity, error) {
	results := make([]ChannelDensity, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			xis, err := job.Source.Samples()
			if err != nil {
				return fmt.Errorf("%s/%s: extract samples: %w", job.Channel, job.Label, err)
			}
			prob, err := c.EstimateSamples(xis)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", job.Channel, job.Label, err)
			}

			res := ChannelDensity{
				Channel:     job.Channel,
				Label:       job.Label,
				SampleCount: len(xis),
				Density:     prob,
			}
			switch {
			case len(xis) > 1:
				res.Mean, res.StdDev = stat.MeanStdDev(xis, nil)
			case len(xis) == 1:
				res.Mean = xis[0]
			}
			monitoring.Tracef("%s/%s: %d samples, mean %.2f, density mass %.4f",
				job.Channel, job.Label, len(xis), res.Mean, floats.Sum(prob))
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
