// Command analyze prints quick, human-readable heuristics about the chapter
// files in a configs directory. It summarizes dimensions, mine density,
// content load against free cells, item requirements and patrol coverage,
// and highlights patrols that pass close to the spawn cell.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/misoria/frontier/validate"
)

// crowdedRatio is the share of free cells above which a chapter is reported as crowded
const crowdedRatio = 0.5

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "Print balance heuristics for every chapter",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "configs", Usage: "Directory containing chapter configurations", Sources: cli.EnvVars("CONFIG_DIR")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(cmd.Root().Writer, cmd.String("dir"))
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logrus.WithError(err).Fatal("Analysis failed")
	}
}

func run(w io.Writer, dir string) error {
	results, err := validate.Dir(dir)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", r.File)
		analyze(w, r)
	}
	return nil
}

func analyze(w io.Writer, r validate.Result) {
	if !r.Valid {
		for _, e := range r.Errors {
			fmt.Fprintf(w, "❌ %s\n", e)
		}
		return
	}

	cfg := r.Chapter
	s := validate.Analyze(cfg)

	fmt.Fprintf(w, "Name: %s\n", cfg.Name)
	fmt.Fprintf(w, "Grid Size: %d x %d\n", cfg.Cols, cfg.Rows)
	fmt.Fprintf(w, "Ruleset: %s\n", cfg.EffectiveRuleset())
	fmt.Fprintf(w, "Mines: %d (%.1f%%)\n", s.Mines, s.MineDensity*100)
	fmt.Fprintf(w, "Content: %d of %d free cells\n", s.ContentCells, s.FreeCells)
	fmt.Fprintf(w, "Items: %d placed, %d required\n", s.Items, s.RequiredItems)
	fmt.Fprintf(w, "Decoys: %d\n", cfg.MaxDecoy)

	if s.FreeCells > 0 && float64(s.ContentCells)/float64(s.FreeCells) > crowdedRatio {
		fmt.Fprintf(w, "⚠️  WARNING: more than %.0f%% of free cells carry content\n", crowdedRatio*100)
	}

	if s.Hostiles == 0 {
		fmt.Fprintln(w, "✅ No hostile patrols")
	} else {
		fmt.Fprintf(w, "Hostiles: %d covering %d cells (%.1f%%)\n", s.Hostiles, s.PatrolCells, s.PatrolCoverage*100)
		fmt.Fprintf(w, "Nearest patrol to spawn: %d\n", s.NearestPatrol)
	}

	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "⚠️  %s\n", warn)
	}
	if len(r.Warnings) == 0 {
		fmt.Fprintln(w, "✅ No balance warnings")
	}
}
