// Package main provides ladderctl, an offline companion to the ladder
// service. It loads the same sources and prints link reports, rankings,
// factor comparisons and an animation preview to the terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/okian/ladder/internal/adapters/loader"
	"github.com/okian/ladder/internal/config"
	"github.com/okian/ladder/internal/domain/aggregate"
	"github.com/okian/ladder/internal/domain/animation"
	"github.com/okian/ladder/internal/domain/colorscale"
	"github.com/okian/ladder/internal/domain/linker"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/selection"
	"github.com/okian/ladder/internal/domain/snapshot"
	"github.com/okian/ladder/internal/domain/timer"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// options holds the flags shared by every subcommand.
type options struct {
	snapshot  string
	series    string
	shapes    string
	threshold float64
	cfg       *config.Config
	loader    *loader.Loader
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:           "ladderctl",
		Short:         "Inspect World Happiness datasets offline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			if opts.snapshot == "" {
				opts.snapshot = cfg.SnapshotSource
			}
			if opts.series == "" {
				opts.series = cfg.SeriesSource
			}
			if opts.shapes == "" {
				opts.shapes = cfg.ShapesSource
			}
			if !cmd.Flags().Changed("threshold") {
				opts.threshold = cfg.FuzzyThreshold
			}
			opts.cfg = cfg
			opts.loader = loader.New(loader.WithNameProperty(cfg.ShapeNameProperty))
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.snapshot, "snapshot", "", "snapshot CSV (file or URL); defaults to snapshot_source")
	pf.StringVar(&opts.series, "series", "", "multi-year CSV (file or URL); defaults to series_source")
	pf.StringVar(&opts.shapes, "shapes", "", "GeoJSON shapes (file or URL); defaults to shapes_source")
	pf.Float64Var(&opts.threshold, "threshold", linker.DefaultThreshold, "fuzzy link threshold (0-1)")

	rootCmd.AddCommand(newLinkCmd(opts))
	rootCmd.AddCommand(newRankCmd(opts))
	rootCmd.AddCommand(newCompositeCmd(opts))
	rootCmd.AddCommand(newAveragesCmd(opts))
	rootCmd.AddCommand(newBubblesCmd(opts))
	rootCmd.AddCommand(newPlayCmd(opts))
	rootCmd.AddCommand(newLegendCmd(opts))
	return rootCmd
}

func (o *options) records(ctx context.Context) (*snapshot.Records, error) {
	if o.snapshot == "" {
		return nil, fmt.Errorf("%w: --snapshot is required", model.ErrConfiguration)
	}
	return o.loader.Records(ctx, o.snapshot)
}

func (o *options) snapshotScale() (*colorscale.Scale, error) {
	d, err := colorscale.Fixed(o.cfg.SnapshotDomainMin, o.cfg.SnapshotDomainMax)
	if err != nil {
		return nil, err
	}
	return colorscale.New(d, true, colorscale.WithRamp(colorscale.YlGnBu)), nil
}

func (o *options) seriesScale() (*colorscale.Scale, error) {
	d, err := colorscale.Fixed(o.cfg.SeriesDomainMin, o.cfg.SeriesDomainMax)
	if err != nil {
		return nil, err
	}
	return colorscale.New(d, true, colorscale.WithRamp(colorscale.YlGn)), nil
}

func swatch(hex string) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render("  ")
}

func newLinkCmd(opts *options) *cobra.Command {
	var unmatchedOnly bool
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link every shape against the snapshot and report the outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			recs, err := opts.records(ctx)
			if err != nil {
				return err
			}
			if opts.shapes == "" {
				return fmt.Errorf("%w: --shapes is required", model.ErrConfiguration)
			}
			shapes, err := opts.loader.Shapes(ctx, opts.shapes)
			if err != nil {
				return err
			}
			l, err := linker.New(recs, linker.WithThreshold(opts.threshold), linker.WithAliases(opts.cfg.CountryAliases))
			if err != nil {
				return err
			}
			results := l.LinkAll(ctx, shapes.All())
			return printLinks(cmd.OutOrStdout(), results, unmatchedOnly)
		},
	}
	cmd.Flags().BoolVar(&unmatchedOnly, "unmatched", false, "only list unmatched shapes")
	return cmd
}

func printLinks(w io.Writer, results []linker.Result, unmatchedOnly bool) error {
	sum := linker.Summarize(results)
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d shapes: %d exact, %d fuzzy, %d unmatched",
		len(results), sum.Exact, sum.Fuzzy, sum.Unmatched)))
	for _, r := range results {
		if unmatchedOnly && r.Matched() {
			continue
		}
		country := mutedStyle.Render("-")
		if r.Record != nil {
			country = r.Record.Country
		}
		if _, err := fmt.Fprintf(w, "%-10s %-36s %-9s %.3f  %s\n",
			r.Feature.ID, r.Feature.Name, r.Kind, r.Confidence, country); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newRankCmd(opts *options) *cobra.Command {
	var (
		limit    int
		selected string
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank the snapshot, optionally filtered by a selected country",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := opts.records(cmd.Context())
			if err != nil {
				return err
			}
			scale, err := opts.snapshotScale()
			if err != nil {
				return err
			}
			coord := selection.New()
			if selected != "" {
				if err := coord.SelectIn(recs, selected); err != nil {
					return err
				}
			}
			w := cmd.OutOrStdout()
			if st := coord.State(); st.HasSelection() {
				fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("at or above %s (%.3f)", st.Selected.Country, st.Threshold)))
			}
			for i, r := range coord.RankedSubset(recs.All(), limit) {
				fmt.Fprintf(w, "%3d %s %-28s %.3f\n", i+1, swatch(scale.Hex(r.LadderScore)), r.Country, r.LadderScore)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows (0 for all)")
	cmd.Flags().StringVar(&selected, "select", "", "country whose score filters the ranking")
	return cmd
}

func newCompositeCmd(opts *options) *cobra.Command {
	var (
		factors string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "composite",
		Short: "Rank by the sum of chosen factors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs, err := model.ParseFactors(factors)
			if err != nil {
				return err
			}
			recs, err := opts.records(cmd.Context())
			if err != nil {
				return err
			}
			out := aggregate.Composite(recs.All(), fs)
			if limit > 0 && len(out) > limit {
				out = out[:limit]
			}
			w := cmd.OutOrStdout()
			for i, e := range out {
				fmt.Fprintf(w, "%3d %-28s %.3f\n", i+1, e.Country, e.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&factors, "factors", "", "comma separated factors (default: all contributing factors)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows (0 for all)")
	return cmd
}

func newAveragesCmd(opts *options) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "averages",
		Short: "Compare factor averages of the top countries with everyone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := opts.records(cmd.Context())
			if err != nil {
				return err
			}
			if top <= 0 {
				top = opts.cfg.DefaultTopN
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-32s %8s %8s", "factor", fmt.Sprintf("top %d", top), "all")))
			for _, c := range aggregate.Compare(recs.All(), top, nil) {
				bar := strings.Repeat("█", int(c.Share*20+0.5))
				fmt.Fprintf(w, "%-32s %8.3f %8.3f %s\n", c.Label, c.Subset, c.Global, bar)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 0, "subset size (default: default_top_n)")
	return cmd
}

func newBubblesCmd(opts *options) *cobra.Command {
	var (
		factor string
		top    int
	)
	cmd := &cobra.Command{
		Use:   "bubbles",
		Short: "Size the top countries by a factor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := model.ParseFactor(factor)
			if err != nil {
				return err
			}
			recs, err := opts.records(cmd.Context())
			if err != nil {
				return err
			}
			if top <= 0 {
				top = opts.cfg.DefaultTopN
			}
			w := cmd.OutOrStdout()
			for _, b := range aggregate.Bubbles(recs.All(), top, f) {
				fmt.Fprintf(w, "%s %-28s %8.3f r=%5.1f\n", swatch(b.Color), b.Country, b.Value, b.Radius)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&factor, "factor", string(model.GDP), "factor key or label")
	cmd.Flags().IntVar(&top, "top", 0, "subset size (default: default_top_n)")
	return cmd
}

func newPlayCmd(opts *options) *cobra.Command {
	var (
		from, to  int
		reference string
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Step through the years and summarize each frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.series == "" {
				return fmt.Errorf("%w: --series is required", model.ErrConfiguration)
			}
			series, err := opts.loader.Series(cmd.Context(), opts.series)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("from") {
				from = opts.cfg.MinYear
			}
			if !cmd.Flags().Changed("to") {
				to = opts.cfg.MaxYear
			}
			if !cmd.Flags().Changed("reference") {
				reference = opts.cfg.ReferenceCountry
			}
			scale, err := opts.seriesScale()
			if err != nil {
				return err
			}
			return play(cmd.OutOrStdout(), series, scale, from, to, reference)
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "first year (default: min_year)")
	cmd.Flags().IntVar(&to, "to", 0, "last year (default: max_year)")
	cmd.Flags().StringVar(&reference, "reference", "", "only count countries at or above this country's score")
	return cmd
}

// play drives an animation controller with a manual clock and prints one
// line per frame.
func play(w io.Writer, series *snapshot.Series, scale *colorscale.Scale, from, to int, reference string) error {
	clock := timer.NewManual()
	var frames []int
	ctrl, err := animation.New(from, to,
		animation.WithScheduler(clock),
		animation.WithListener(func(st animation.State) {
			if n := len(frames); n == 0 || frames[n-1] != st.CurrentYear {
				frames = append(frames, st.CurrentYear)
			}
		}),
	)
	if err != nil {
		return err
	}
	defer ctrl.Dispose()

	if err := ctrl.Start(); err != nil {
		return err
	}
	for ctrl.State().IsPlaying {
		if clock.Fire() == 0 {
			break
		}
	}

	for _, year := range frames {
		slice, err := series.Slice(year)
		if err != nil {
			fmt.Fprintf(w, "%d %s\n", year, mutedStyle.Render("no data"))
			continue
		}
		filtered, err := aboveReference(slice, reference)
		if err != nil {
			return err
		}
		top := aggregate.TopN(slice.All(), 1, model.LadderScore)
		line := fmt.Sprintf("%d %4d countries", year, len(filtered))
		if len(top) == 1 {
			line += fmt.Sprintf("  %s %s %.3f", swatch(scale.Hex(top[0].LadderScore)), top[0].Country, top[0].LadderScore)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// aboveReference keeps the countries scoring at least the reference, which
// is linked like a shape name. An empty reference keeps everything; one
// without a row that year keeps nothing.
func aboveReference(slice *snapshot.Records, reference string) ([]model.CountryRecord, error) {
	if reference == "" {
		return slice.All(), nil
	}
	l, err := linker.New(slice)
	if err != nil {
		return nil, err
	}
	ref := l.Link(reference)
	if ref.Record == nil {
		return nil, nil
	}
	return selection.Ranked(slice.All(), ref.Record.LadderScore, 0), nil
}

func newLegendCmd(opts *options) *cobra.Command {
	var (
		view  string
		steps int
	)
	cmd := &cobra.Command{
		Use:   "legend",
		Short: "Print the legend of the snapshot or year scale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				scale *colorscale.Scale
				err   error
			)
			switch view {
			case "snapshot":
				scale, err = opts.snapshotScale()
			case "year":
				scale, err = opts.seriesScale()
			default:
				return fmt.Errorf("%w: unknown view %q", model.ErrConfiguration, view)
			}
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, s := range scale.Legend(steps) {
				fmt.Fprintf(w, "%s %.3f %s\n", swatch(s.Color), s.Value, s.Color)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&view, "view", "snapshot", "snapshot or year")
	cmd.Flags().IntVar(&steps, "steps", 5, "number of stops")
	return cmd
}
