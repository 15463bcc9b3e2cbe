// Package finder exposes the duplicate-detection operations: finding similar
// resources of a kind, merging exact duplicates, and the image and mesh
// merge paths. It owns the cached result set of the last search.
package finder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/dupegraph/internal/apperr"
	"github.com/starford/dupegraph/internal/canon"
	"github.com/starford/dupegraph/internal/document"
	"github.com/starford/dupegraph/internal/group"
	"github.com/starford/dupegraph/internal/index"
	"github.com/starford/dupegraph/internal/merge"
	"github.com/starford/dupegraph/internal/models"
	"github.com/starford/dupegraph/internal/score"
	"github.com/starford/dupegraph/internal/storage"
)

// ResultSet is the outcome of one similarity search. It lives in memory
// until it is cleared or replaced.
type ResultSet struct {
	RunID      string        `json:"run_id"`
	Kind       models.Kind   `json:"kind"`
	Settings   Settings      `json:"settings"`
	Duplicates []group.Group `json:"duplicates"`
	Scored     []group.Group `json:"scored"`
	Snapshot   string        `json:"snapshot"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Empty reports whether the search found nothing.
func (rs *ResultSet) Empty() bool {
	return len(rs.Duplicates) == 0 && len(rs.Scored) == 0
}

// Service serializes every operation that reads or mutates the vault as a
// whole.
type Service struct {
	mu       sync.Mutex
	store    storage.Provider
	db       *index.DB
	reg      *canon.Registry
	logger   *slog.Logger
	reporter Reporter
	notify   Notifier

	results atomic.Pointer[ResultSet]
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithReporter sets the sink for user-facing reports.
func WithReporter(r Reporter) Option {
	return func(s *Service) { s.reporter = r }
}

// WithNotifier sets the sink for state change events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithRegistry replaces the default node type registry.
func WithRegistry(reg *canon.Registry) Option {
	return func(s *Service) { s.reg = reg }
}

// NewService creates a finder over a vault and its index.
func NewService(store storage.Provider, db *index.DB, opts ...Option) *Service {
	s := &Service{store: store, db: db}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.reporter == nil {
		s.reporter = LogReporter{Logger: s.logger}
	}
	if s.notify == nil {
		s.notify = func(string, any) {}
	}
	if s.reg == nil {
		s.reg = canon.DefaultRegistry()
	}
	return s
}

// Results returns the cached result set, or nil.
func (s *Service) Results() *ResultSet {
	return s.results.Load()
}

// ClearResults drops the cached result set.
func (s *Service) ClearResults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev := s.results.Swap(nil); prev != nil {
		s.notify(EventResultsCleared, map[string]string{"kind": string(prev.Kind)})
	}
}

// FindSimilar scores every pair of resources of kind within the same id
// type and caches the resulting groups.
func (s *Service) FindSimilar(ctx context.Context, kind models.Kind, st Settings) (*ResultSet, error) {
	if err := checkSimilarKind(kind); err != nil {
		return nil, err
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := document.Load(s.store, s.logger)
	if err != nil {
		return nil, err
	}
	rs, err := s.find(ctx, doc, kind, st)
	if err != nil {
		return nil, err
	}
	s.publish(rs)
	return rs, nil
}

// MergeDuplicates merges every exact duplicate group of the cached result
// set onto its first member. The result set is derived first when missing,
// computed for another kind or taken from a vault snapshot that no longer
// matches, and recomputed after the merge. Members that vanished since the
// search are skipped.
func (s *Service) MergeDuplicates(ctx context.Context, kind models.Kind, st Settings) (int, error) {
	if err := checkSimilarKind(kind); err != nil {
		return 0, err
	}
	if err := st.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := document.Load(s.store, s.logger)
	if err != nil {
		return 0, err
	}

	rs := s.results.Load()
	if rs == nil || rs.Kind != kind || rs.Snapshot != doc.Digest() {
		if rs, err = s.find(ctx, doc, kind, st); err != nil {
			return 0, err
		}
	}

	groups := make([][]string, len(rs.Duplicates))
	for i, g := range rs.Duplicates {
		groups[i] = g.Members
	}
	n, err := merge.Merge(kind, groups, doc)
	if err != nil {
		return 0, err
	}
	if err := s.commit(doc); err != nil {
		return 0, err
	}

	s.logger.Info("finder: merged duplicates", slog.String("kind", string(kind)), slog.Int("removed", n))
	s.reporter.Report(LevelInfo, fmt.Sprintf("Cleared %d %s(s)", n, kind.Singular()))
	s.notify(EventResourcesMerged, map[string]any{"kind": kind, "removed": n})

	if doc, err = document.Load(s.store, s.logger); err != nil {
		return n, err
	}
	next, err := s.find(ctx, doc, kind, st)
	if err != nil {
		return n, err
	}
	s.publish(next)
	return n, nil
}

// MergeImages merges local images that load the same file.
func (s *Service) MergeImages(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := document.Load(s.store, s.logger)
	if err != nil {
		return 0, err
	}
	groups := group.Identical(doc.IdenticalImages())
	if len(groups) == 0 {
		s.reporter.Report(LevelInfo, "No duplicate images found")
		return 0, nil
	}
	n, err := s.mergeIdentical(ctx, doc, models.KindImage, groups)
	if err != nil {
		return 0, err
	}
	s.reporter.Report(LevelInfo, fmt.Sprintf("%d image(s) cleared", n))
	return n, nil
}

// MergeMeshes merges local meshes with identical geometry.
func (s *Service) MergeMeshes(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := document.Load(s.store, s.logger)
	if err != nil {
		return 0, err
	}
	groups := group.Identical(doc.IdenticalMeshes())
	n, err := s.mergeIdentical(ctx, doc, models.KindMesh, groups)
	if err != nil {
		return 0, err
	}
	s.reporter.Report(LevelInfo, fmt.Sprintf("Cleared %d mesh(s)", n))
	return n, nil
}

func (s *Service) mergeIdentical(ctx context.Context, doc *document.Document, kind models.Kind, groups []group.Group) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	members := make([][]string, len(groups))
	for i, g := range groups {
		members[i] = g.Members
	}
	n, err := merge.Merge(kind, members, doc)
	if err != nil {
		return 0, err
	}
	if err := s.commit(doc); err != nil {
		return 0, err
	}
	s.logger.Info("finder: merged identical", slog.String("kind", string(kind)),
		slog.Int("groups", len(groups)), slog.Int("removed", n))
	if n > 0 {
		s.notify(EventResourcesMerged, map[string]any{"kind": kind, "removed": n})
	}
	return n, nil
}

// find canonicalizes every comparable resource of kind and resolves the
// pairwise scores into groups.
func (s *Service) find(ctx context.Context, doc *document.Document, kind models.Kind, st Settings) (*ResultSet, error) {
	start := time.Now()
	c := canon.New(s.reg, doc)
	opts := st.canonOptions()

	partitions := make(map[string]map[string][]*canon.Fingerprint)
	for _, res := range doc.Collection(kind) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idType := res.IDType()
		if idType == models.Undefined {
			continue
		}
		fps, ok := c.Canonicalize(res, opts)
		if !ok {
			continue
		}
		if partitions[idType] == nil {
			partitions[idType] = make(map[string][]*canon.Fingerprint)
		}
		partitions[idType][res.Name] = fps
	}

	idTypes := make([]string, 0, len(partitions))
	for t := range partitions {
		idTypes = append(idTypes, t)
	}
	sort.Strings(idTypes)

	scores := score.Scores{}
	compared := 0
	for _, t := range idTypes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		compared += score.FindSimilar(partitions[t], st.SimilarityThreshold, scores)
	}
	dups, scored := group.Resolve(scores, st.GroupingThreshold)

	s.logger.Info("finder: search complete",
		slog.String("kind", string(kind)),
		slog.Int("id_types", len(idTypes)),
		slog.Int("compared", compared),
		slog.Int("duplicates", len(dups)),
		slog.Int("scored", len(scored)),
		slog.Duration("took", time.Since(start)))

	return &ResultSet{
		RunID:      uuid.NewString(),
		Kind:       kind,
		Settings:   st,
		Duplicates: dups,
		Scored:     scored,
		Snapshot:   doc.Digest(),
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// publish caches rs, or clears the cache and reports when rs is empty.
func (s *Service) publish(rs *ResultSet) {
	if rs.Empty() {
		s.results.Store(nil)
		s.reporter.Report(LevelInfo, fmt.Sprintf("No similar %s found", rs.Kind.Label()))
		s.notify(EventResultsCleared, map[string]string{"kind": string(rs.Kind)})
		return
	}
	s.results.Store(rs)
	s.notify(EventResultsUpdated, rs)
}

// commit persists a mutated document and resyncs the touched index rows.
func (s *Service) commit(doc *document.Document) error {
	if !doc.Dirty() {
		return nil
	}
	ch, err := doc.Commit()
	if s.db != nil {
		index.Apply(s.db, s.store, ch.Written, ch.Deleted, s.logger)
	}
	if err != nil {
		return fmt.Errorf("finder: persist: %w", err)
	}
	return nil
}

func checkSimilarKind(kind models.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("finder: %q: %w", kind, apperr.ErrUnknownKind)
	}
	if !kind.Similar() {
		return fmt.Errorf("finder: %s resources carry no node graphs: %w", kind.Label(), apperr.ErrInvalid)
	}
	return nil
}
