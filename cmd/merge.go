package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seismo-tools/quakemerge/internal/authority"
	"github.com/seismo-tools/quakemerge/internal/catalogue"
	"github.com/seismo-tools/quakemerge/internal/config"
	"github.com/seismo-tools/quakemerge/internal/merge"
	"github.com/seismo-tools/quakemerge/internal/model"
	"github.com/seismo-tools/quakemerge/internal/store"
)

// loadConcurrency bounds parallel catalogue file reads.
const loadConcurrency = 4

var (
	mergePreset   string
	mergeStrategy string
	mergeCommit   bool
	mergeOut      string
)

var mergeCmd = &cobra.Command{
	Use:   "merge [files...]",
	Short: "Deduplicate and merge catalogue files",
	Long:  "Loads the given catalogue files, previews the duplicate groups, and with --commit produces and persists the merged event list.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		catalogues, err := loadCatalogues(ctx, args)
		if err != nil {
			return err
		}

		runCfg, err := buildMergeConfig(mergePreset, mergeStrategy, cfg.Merge)
		if err != nil {
			return err
		}
		engine, err := newEngine(cfg.Authority)
		if err != nil {
			return err
		}

		if !mergeCommit {
			preview, err := engine.Preview(catalogues, runCfg)
			if err != nil {
				return eris.Wrap(err, "merge preview")
			}
			printStatistics(preview.Statistics, preview.Conflicts.Summary().Total)
			if mergeOut != "" {
				return writeReport(mergeOut, preview)
			}
			return nil
		}

		result, err := engine.Merge(catalogues, runCfg)
		if err != nil {
			return eris.Wrap(err, "merge commit")
		}
		printStatistics(result.Statistics, result.Conflicts.Summary().Total)

		if err := persistRun(ctx, result, runCfg); err != nil {
			return err
		}
		if mergeOut != "" {
			return writeReport(mergeOut, result)
		}
		return nil
	},
}

// loadCatalogues reads the given files concurrently, preserving argument
// order in the result.
func loadCatalogues(ctx context.Context, paths []string) ([][]model.Event, error) {
	catalogues := make([][]model.Event, len(paths))

	var mu sync.Mutex
	skipped := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			result, err := catalogue.ReadFile(gctx, path)
			if err != nil {
				return err
			}
			catalogues[i] = result.Events
			mu.Lock()
			skipped += len(result.Skipped)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if skipped > 0 {
		zap.L().Warn("some records were skipped", zap.Int("skipped", skipped))
	}
	return catalogues, nil
}

// buildMergeConfig resolves the run configuration: preset first, then any
// explicit threshold overrides from the config file, then flags.
func buildMergeConfig(preset, strategy string, base config.MergeConfig) (merge.Config, error) {
	name := preset
	if name == "" {
		name = base.Preset
	}
	runCfg, err := merge.PresetByName(name)
	if err != nil {
		return merge.Config{}, err
	}

	if base.TimeThresholdSeconds > 0 {
		runCfg.TimeThresholdSeconds = base.TimeThresholdSeconds
	}
	if base.DistanceThresholdKm > 0 {
		runCfg.DistanceThresholdKm = base.DistanceThresholdKm
	}
	if base.MinimumSimilarityScore > 0 {
		runCfg.MinimumSimilarityScore = base.MinimumSimilarityScore
	}

	if strategy != "" {
		runCfg.Strategy = merge.Strategy(strategy)
	} else if base.Strategy != "" {
		runCfg.Strategy = merge.Strategy(base.Strategy)
	}
	return runCfg, runCfg.Validate()
}

// newEngine builds the merge engine, loading a custom network hierarchy
// when one is configured.
func newEngine(authCfg config.AuthorityConfig) (*merge.Engine, error) {
	if authCfg.HierarchyFile == "" {
		return merge.NewEngine(), nil
	}
	networks, err := authority.LoadHierarchyYAML(authCfg.HierarchyFile)
	if err != nil {
		return nil, err
	}
	return merge.NewEngineWithHierarchies(networks, authority.DefaultMechanismHierarchy()), nil
}

func persistRun(ctx context.Context, result *merge.MergeResult, runCfg merge.Config) error {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	conflicts, err := result.Conflicts.ToJSON()
	if err != nil {
		return err
	}
	run := &model.MergeRun{
		ID:         uuid.New().String(),
		Preset:     mergePreset,
		Strategy:   string(runCfg.Strategy),
		Statistics: result.Statistics,
		Events:     result.Events,
		Conflicts:  conflicts,
		CreatedAt:  time.Now().UTC(),
	}
	if run.Preset == "" {
		run.Preset = cfg.Merge.Preset
	}
	if err := st.SaveRun(ctx, run); err != nil {
		return err
	}

	fmt.Printf("Saved run %s\n", run.ID)
	return nil
}

func printStatistics(stats model.MergeStatistics, conflicts int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Events before:\t%d\n", stats.TotalEventsBefore)
	fmt.Fprintf(w, "Events after:\t%d\n", stats.TotalEventsAfter)
	fmt.Fprintf(w, "Duplicate groups:\t%d\n", stats.DuplicateGroupsCount)
	fmt.Fprintf(w, "Duplicates removed:\t%d\n", stats.DuplicatesRemoved)
	fmt.Fprintf(w, "Suspicious groups:\t%d\n", stats.SuspiciousGroupsCount)
	fmt.Fprintf(w, "Conflicts logged:\t%d\n", conflicts)
	w.Flush()
}

func writeReport(path string, report any) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "write report %s", path)
	}
	return nil
}

func init() {
	mergeCmd.Flags().StringVar(&mergePreset, "preset", "", "matching preset: strict, moderate, or loose (default from config)")
	mergeCmd.Flags().StringVar(&mergeStrategy, "strategy", "", "merge strategy: quality, priority, average, newest, or complete")
	mergeCmd.Flags().BoolVar(&mergeCommit, "commit", false, "produce and persist the merged event list instead of previewing")
	mergeCmd.Flags().StringVar(&mergeOut, "out", "", "write the full JSON report to this file")
	rootCmd.AddCommand(mergeCmd)
}
