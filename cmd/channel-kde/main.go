// Command channel-kde estimates per-channel intensity densities of an image
// from a foreground mask or from labelled scribbles.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/channelkde/internal/config"
	"github.com/banshee-data/channelkde/internal/db"
	"github.com/banshee-data/channelkde/internal/imageio"
	"github.com/banshee-data/channelkde/internal/kde"
	"github.com/banshee-data/channelkde/internal/monitoring"
	"github.com/banshee-data/channelkde/internal/report"
	"github.com/banshee-data/channelkde/internal/version"
)

// Config holds the command-line options.
type Config struct {
	ImagePath     string
	MaskPath      string
	ScribblesPath string
	ConfigPath    string
	Channels      string

	// Overrides applied on top of the config file when set on the command
	// line.
	Median    *bool
	Exact     *bool
	Compare   bool
	Verbose   bool
	DBPath    string
	PlotPath  string
	HTMLPath  string
	JSONPath  string
	AssetsURL string
}

func parseFlags(fs *flag.FlagSet, args []string) (*Config, bool, error) {
	cfg := &Config{}
	var median, exact, showVersion bool
	fs.StringVar(&cfg.ImagePath, "image", "", "input image (png, jpeg, gif, bmp, tiff, webp)")
	fs.StringVar(&cfg.MaskPath, "mask", "", "foreground mask image; non-black pixels are foreground")
	fs.StringVar(&cfg.ScribblesPath, "scribbles", "", "scribble annotations JSON")
	fs.StringVar(&cfg.ConfigPath, "config", "", "density config JSON (defaults apply when empty)")
	fs.StringVar(&cfg.Channels, "channels", "r,g,b", "comma separated channels to estimate")
	fs.BoolVar(&median, "median", false, "median filter the densities (overrides config)")
	fs.BoolVar(&exact, "exact", false, "use the exact estimator (overrides config)")
	fs.BoolVar(&cfg.Compare, "compare", false, "also compare exact and fast estimators per channel")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "log estimator traces")
	fs.StringVar(&cfg.DBPath, "db", "", "sqlite database to record the run in")
	fs.StringVar(&cfg.PlotPath, "plot", "", "write a density plot (png, svg or pdf by extension)")
	fs.StringVar(&cfg.HTMLPath, "html", "", "write an interactive HTML chart")
	fs.StringVar(&cfg.JSONPath, "json", "", "write the run as JSON (- for stdout)")
	fs.StringVar(&cfg.AssetsURL, "assets-url", "", "override the echarts assets host of -html output")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}
	if showVersion {
		return cfg, true, nil
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "median":
			cfg.Median = &median
		case "exact":
			cfg.Exact = &exact
		}
	})

	if cfg.ImagePath == "" {
		return nil, false, errors.New("-image is required")
	}
	if (cfg.MaskPath == "") == (cfg.ScribblesPath == "") {
		return nil, false, errors.New("exactly one of -mask or -scribbles is required")
	}
	return cfg, false, nil
}

func main() {
	fs := flag.NewFlagSet("channel-kde", flag.ExitOnError)
	cfg, showVersion, err := parseFlags(fs, os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}
	if showVersion {
		fmt.Println(version.String("channel-kde"))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		log.Fatalf("channel-kde: %v", err)
	}
}

func loadDensityConfig(cfg *Config) (*config.DensityConfig, error) {
	dc := config.EmptyDensityConfig()
	if cfg.ConfigPath != "" {
		var err error
		if dc, err = config.LoadDensityConfig(cfg.ConfigPath); err != nil {
			return nil, err
		}
	}
	if cfg.Median != nil {
		dc.SetMedianFilter(*cfg.Median)
	}
	if cfg.Exact != nil {
		dc.SetUseExact(*cfg.Exact)
	}
	return dc, nil
}

func parseChannels(s string) ([]string, error) {
	var out []string
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if !slices.Contains(imageio.ChannelNames, name) {
			return nil, fmt.Errorf("unknown channel %q (want one of %s)", name, strings.Join(imageio.ChannelNames, ","))
		}
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out, nil
}

// buildJobs returns a foreground and a background job per channel.
func buildJobs(cfg *Config, planes *imageio.Planes, channels []string) ([]kde.ChannelJob, string, error) {
	var jobs []kde.ChannelJob
	if cfg.MaskPath != "" {
		maskImg, _, err := imageio.LoadImage(cfg.MaskPath)
		if err != nil {
			return nil, "", err
		}
		mask, w, h := imageio.MaskFromImage(maskImg)
		if w != planes.Width || h != planes.Height {
			return nil, "", fmt.Errorf("mask is %dx%d, image is %dx%d", w, h, planes.Width, planes.Height)
		}
		for _, ch := range channels {
			for _, background := range []bool{false, true} {
				jobs = append(jobs, kde.ChannelJob{
					Channel: ch,
					Label:   kde.LabelName(background),
					Source: kde.MaskSource{
						Data:   planes.Channel(ch),
						Mask:   mask,
						Width:  planes.Width,
						Height: planes.Height,
						Invert: background,
					},
				})
			}
		}
		return jobs, db.ModeMask, nil
	}

	scribbles, err := imageio.LoadScribbles(cfg.ScribblesPath)
	if err != nil {
		return nil, "", err
	}
	for _, ch := range channels {
		for _, background := range []bool{false, true} {
			jobs = append(jobs, kde.ChannelJob{
				Channel: ch,
				Label:   kde.LabelName(background),
				Source: kde.ScribbleSource{
					Data:       planes.Channel(ch),
					Width:      planes.Width,
					Height:     planes.Height,
					Scribbles:  scribbles,
					Background: background,
				},
			})
		}
	}
	return jobs, db.ModeScribbles, nil
}

func run(ctx context.Context, cfg *Config, stdout io.Writer) error {
	monitoring.SetVerbose(cfg.Verbose)

	dc, err := loadDensityConfig(cfg)
	if err != nil {
		return err
	}
	estimator, err := kde.NewChannelEstimator(dc)
	if err != nil {
		return err
	}
	channels, err := parseChannels(cfg.Channels)
	if err != nil {
		return err
	}

	img, format, err := imageio.LoadImage(cfg.ImagePath)
	if err != nil {
		return err
	}
	planes := imageio.SplitChannels(img)
	log.Printf("loaded %s image %s (%dx%d)", format, cfg.ImagePath, planes.Width, planes.Height)

	jobs, mode, err := buildJobs(cfg, planes, channels)
	if err != nil {
		return err
	}

	densities, err := estimator.EstimateChannels(ctx, jobs)
	if err != nil {
		return err
	}

	cfgJSON, err := json.Marshal(dc.Resolved())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	result := &db.Run{
		Source: filepath.Base(cfg.ImagePath),
		Mode:   mode,
		Width:  planes.Width,
		Height: planes.Height,
		Config: cfgJSON,
	}
	for _, d := range densities {
		result.Channels = append(result.Channels, db.ChannelRecord{ChannelDensity: d})
	}

	if cfg.Compare {
		for i, job := range jobs {
			xis, err := job.Source.Samples()
			if err != nil {
				return err
			}
			c, err := estimator.Compare(xis)
			if err != nil {
				return fmt.Errorf("%s/%s: compare: %w", job.Channel, job.Label, err)
			}
			result.Channels[i].Comparison = &c
			log.Printf("%s/%s: exact vs fast max abs %.3g, max rel %.3g, tolerance %.3g, within=%v",
				job.Channel, job.Label, c.MaxAbsDiff, c.MaxRelDiff, c.Tolerance, c.Within)
		}
	}

	if cfg.DBPath != "" {
		store, err := db.NewDB(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer store.Close()
		if err := store.RecordRun(result); err != nil {
			return err
		}
		log.Printf("recorded run %s in %s", result.RunID, cfg.DBPath)
	}

	title := fmt.Sprintf("Channel densities: %s", result.Source)
	series := report.SeriesFromDensities(densities)
	if cfg.PlotPath != "" {
		if err := report.SavePNG(cfg.PlotPath, title, series); err != nil {
			return err
		}
		log.Printf("wrote plot %s", cfg.PlotPath)
	}
	if cfg.HTMLPath != "" {
		if err := writeHTML(cfg, title, result, series); err != nil {
			return err
		}
		log.Printf("wrote chart %s", cfg.HTMLPath)
	}

	switch cfg.JSONPath {
	case "":
		return printSummary(stdout, result)
	case "-":
		return writeJSON(stdout, result)
	default:
		f, err := os.Create(cfg.JSONPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", cfg.JSONPath, err)
		}
		if err := writeJSON(f, result); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
}

func writeHTML(cfg *Config, title string, run *db.Run, series []report.Series) error {
	f, err := os.Create(cfg.HTMLPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", cfg.HTMLPath, err)
	}
	err = report.RenderHTML(f, report.ChartOptions{
		Title:      title,
		Subtitle:   fmt.Sprintf("%s, %dx%d", run.Mode, run.Width, run.Height),
		AssetsHost: cfg.AssetsURL,
	}, series)
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(w io.Writer, run *db.Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

// printSummary writes one line per channel density with the intensity of
// its peak.
func printSummary(w io.Writer, run *db.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANNEL\tLABEL\tSAMPLES\tMEAN\tSTDDEV\tPEAK")
	for _, ch := range run.Channels {
		peak := "-"
		if len(ch.Density) > 0 {
			peak = fmt.Sprint(floats.MaxIdx(ch.Density))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.2f\t%s\n",
			ch.Channel, ch.Label, ch.SampleCount, ch.Mean, ch.StdDev, peak)
	}
	return tw.Flush()
}
