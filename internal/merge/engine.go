package merge

import (
	"go.uber.org/zap"

	"github.com/seismo-tools/quakemerge/internal/authority"
	"github.com/seismo-tools/quakemerge/internal/dedup"
	"github.com/seismo-tools/quakemerge/internal/matcher"
	"github.com/seismo-tools/quakemerge/internal/model"
)

// Engine runs deduplication and merging over one or more catalogues. It is
// stateless across runs; every run gets a fresh conflict log so concurrent
// runs cannot cross-contaminate.
type Engine struct {
	networks   *authority.Hierarchy
	mechanisms *authority.Hierarchy
}

// NewEngine creates an engine with the default authority hierarchies.
func NewEngine() *Engine {
	return NewEngineWithHierarchies(
		authority.DefaultNetworkHierarchy(),
		authority.DefaultMechanismHierarchy(),
	)
}

// NewEngineWithHierarchies creates an engine with custom hierarchies, as
// loaded from a YAML hierarchy file.
func NewEngineWithHierarchies(networks, mechanisms *authority.Hierarchy) *Engine {
	return &Engine{networks: networks, mechanisms: mechanisms}
}

// PreviewResult is the non-destructive view of a merge run.
type PreviewResult struct {
	DuplicateGroups []model.DuplicateGroup `json:"duplicate_groups"`
	Statistics      model.MergeStatistics  `json:"statistics"`
	CatalogueColors map[string]string      `json:"catalogue_colors"`
	Conflicts       *dedup.ConflictLog     `json:"-"`
}

// MergeResult is the committed output of a merge run.
type MergeResult struct {
	Events     []model.MergedEvent   `json:"events"`
	Statistics model.MergeStatistics `json:"statistics"`
	Conflicts  *dedup.ConflictLog    `json:"-"`
}

// run is the shared pipeline: flatten, detect, validate.
type run struct {
	events     []model.Event
	components [][]int
	groups     []model.DuplicateGroup
	log        *dedup.ConflictLog
}

func (e *Engine) run(catalogues [][]model.Event, cfg Config) (*run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	total := 0
	for _, c := range catalogues {
		total += len(c)
	}
	events := make([]model.Event, 0, total)
	for _, c := range catalogues {
		events = append(events, c...)
	}

	m := matcher.New(
		cfg.TimeThresholdSeconds,
		cfg.DistanceThresholdKm,
		cfg.MinimumSimilarityScore,
		cfg.UseMagnitudeDependentThreshold,
	)
	detector := dedup.NewDetector(m)
	components := detector.FindComponents(events)

	log := dedup.NewConflictLog()
	validator := dedup.NewValidator(log)

	groups := make([]model.DuplicateGroup, 0, len(components))
	for i, idxs := range components {
		group := dedup.GroupFromIndexes(events, idxs)
		validator.Validate(&group, i)
		groups = append(groups, group)
	}

	return &run{events: events, components: components, groups: groups, log: log}, nil
}

func (r *run) statistics() model.MergeStatistics {
	removed := 0
	suspicious := 0
	for i, idxs := range r.components {
		removed += len(idxs) - 1
		if r.groups[i].Suspicious {
			suspicious++
		}
	}
	return model.MergeStatistics{
		TotalEventsBefore:     len(r.events),
		TotalEventsAfter:      len(r.events) - removed,
		DuplicateGroupsCount:  len(r.groups),
		DuplicatesRemoved:     removed,
		SuspiciousGroupsCount: suspicious,
	}
}

// Preview detects and validates duplicate groups without merging. Input
// catalogues are never mutated.
func (e *Engine) Preview(catalogues [][]model.Event, cfg Config) (*PreviewResult, error) {
	r, err := e.run(catalogues, cfg)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(r.events))
	for i := range r.events {
		ids = append(ids, r.events[i].CatalogueID)
	}

	stats := r.statistics()
	zap.L().Info("merge: preview complete",
		zap.Int("events", stats.TotalEventsBefore),
		zap.Int("groups", stats.DuplicateGroupsCount),
		zap.Int("suspicious", stats.SuspiciousGroupsCount),
	)

	return &PreviewResult{
		DuplicateGroups: r.groups,
		Statistics:      stats,
		CatalogueColors: model.AssignCatalogueColors(ids),
		Conflicts:       r.log,
	}, nil
}

// Merge resolves each duplicate group into one merged event and passes
// ungrouped events through unchanged. Output order follows the position of
// each group's first member in the flattened input.
func (e *Engine) Merge(catalogues [][]model.Event, cfg Config) (*MergeResult, error) {
	r, err := e.run(catalogues, cfg)
	if err != nil {
		return nil, err
	}

	// groupAt maps an event index to its group; only first members emit.
	groupAt := make(map[int]int, len(r.events))
	first := make(map[int]bool, len(r.groups))
	for gi, idxs := range r.components {
		for pos, idx := range idxs {
			groupAt[idx] = gi
			if pos == 0 {
				first[idx] = true
			}
		}
	}

	merged := make([]model.MergedEvent, 0, len(r.events))
	for i := range r.events {
		gi, grouped := groupAt[i]
		if !grouped {
			merged = append(merged, model.MergedEvent{
				Event:          r.events[i],
				SourceEventIDs: []string{r.events[i].ID},
			})
			continue
		}
		if first[i] {
			merged = append(merged, e.resolveGroup(&r.groups[gi], cfg))
		}
	}

	stats := r.statistics()
	zap.L().Info("merge: commit complete",
		zap.Int("before", stats.TotalEventsBefore),
		zap.Int("after", stats.TotalEventsAfter),
		zap.Int("removed", stats.DuplicatesRemoved),
	)

	return &MergeResult{Events: merged, Statistics: stats, Conflicts: r.log}, nil
}
