// Package bones is the CRDT-native event engine core: a single entry
// point wrapping the event codec, ITC clock, shard store, DAG replayer,
// and relational projection into the API surface external collaborators
// (CLI, TUI, search, triage) consume.
package bones

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bobisme/bones/internal/cache"
	"github.com/bobisme/bones/internal/codec"
	"github.com/bobisme/bones/internal/config"
	"github.com/bobisme/bones/internal/dag"
	"github.com/bobisme/bones/internal/idgen"
	"github.com/bobisme/bones/internal/integrity"
	"github.com/bobisme/bones/internal/itc"
	"github.com/bobisme/bones/internal/lattice"
	"github.com/bobisme/bones/internal/projection"
	"github.com/bobisme/bones/internal/repolock"
	"github.com/bobisme/bones/internal/shard"
	"github.com/bobisme/bones/internal/wallclock"
)

// systemAgent is the agent identity spec §6 assigns to events the
// engine synthesizes itself, e.g. auto_complete's goal close/reopen.
const systemAgent = "bones"

// Repo is the single-writer orchestrator over one repository directory,
// grounded on internal/engine/engine.go's Engine: a struct that holds
// every subsystem a mutating call needs and serializes access to them,
// rather than a bag of free functions.
type Repo struct {
	dir       string
	eventsDir string
	cacheDir  string

	lock   *repolock.Lock
	clock  wallclock.Clocker
	shards *shard.Store
	stamps *stampRegistry
	proj   *projection.Store
	cfg    *config.Config
	logger *slog.Logger

	mu       sync.Mutex
	replayer *dag.Replayer
}

// Options configures Open.
type Options struct {
	// ConfigPath overrides the default <dir>/config.cue overlay
	// location. A missing file falls back to schema defaults.
	ConfigPath string
	// Logger overrides the default slog.Default(). Never a package
	// global: threaded through like internal/engine.Engine's logger.
	Logger *slog.Logger
	// Clock overrides the persisted wallclock.Clock, for tests.
	Clock wallclock.Clocker
}

// Open acquires the repository lock, opens or recovers the shard store,
// loads host-visible configuration, and replays the full event log into
// memory. Callers must Close the returned Repo.
func Open(dir string, opts Options) (*Repo, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("bones: mkdir %s: %w", dir, err)
	}
	cacheDir := filepath.Join(dir, "cache")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("bones: mkdir %s: %w", cacheDir, err)
	}

	lock := repolock.Open(filepath.Join(dir, "lock"))
	ctx, cancel := context.WithTimeout(context.Background(), repolock.DefaultWait+time.Second)
	defer cancel()
	if err := lock.Acquire(ctx, repolock.DefaultWait, 50*time.Millisecond); err != nil {
		return nil, newError(KindLockContention, "could not acquire repository lock", err)
	}

	clk := opts.Clock
	if clk == nil {
		c, err := wallclock.Open(filepath.Join(cacheDir, "clock"))
		if err != nil {
			lock.Release()
			return nil, fmt.Errorf("bones: open clock: %w", err)
		}
		clk = c
	}

	eventsDir := filepath.Join(dir, "events")
	shards, err := shard.Open(eventsDir, time.UnixMicro(clk.Current()))
	if err != nil {
		lock.Release()
		return nil, fmt.Errorf("bones: open shard store: %w", err)
	}
	if shards.Recovered {
		logger.Warn("recovered torn write on active shard", "kind", KindTornWrite)
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = filepath.Join(dir, "config.cue")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		lock.Release()
		return nil, fmt.Errorf("bones: load config: %w", err)
	}

	stamps, err := openStampRegistry(filepath.Join(cacheDir, "itc-stamps"))
	if err != nil {
		lock.Release()
		return nil, fmt.Errorf("bones: open stamp registry: %w", err)
	}

	proj, err := projection.Open(filepath.Join(cacheDir, "projection.db"))
	if err != nil {
		lock.Release()
		return nil, fmt.Errorf("bones: open projection: %w", err)
	}

	r := &Repo{
		dir:       dir,
		eventsDir: eventsDir,
		cacheDir:  cacheDir,
		lock:      lock,
		clock:     clk,
		shards:    shards,
		stamps:    stamps,
		proj:      proj,
		cfg:       cfg,
		logger:    logger,
		replayer:  dag.NewReplayer(),
	}

	if err := r.loadAndProject(context.Background()); err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

// Close releases every resource Open acquired, in reverse order.
func (r *Repo) Close() error {
	var first error
	record := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if r.proj != nil {
		record(r.proj.Close())
	}
	if r.shards != nil {
		record(r.shards.Close())
	}
	if r.lock != nil {
		record(r.lock.Release())
	}
	return first
}

// loadAndProject replays the full event log and repopulates the
// projection, used both at Open and by Rebuild. It prefers the columnar
// cache for every sealed shard (spec §4.10) and only reparses the active
// shard directly, falling back to a full reparse when the cache is
// missing or stale.
func (r *Repo) loadAndProject(ctx context.Context) error {
	events, err := loadShardEventsCached(r.eventsDir, r.cachePath(), r.shards.ActiveShardName(), r.logger)
	if err != nil {
		return err
	}
	r.replayer = dag.NewReplayer()
	warnings := r.replayer.Replay(events)
	r.logWarnings(warnings)
	return projection.Rebuild(ctx, r.proj, r.replayer)
}

// cachePath returns the path to the columnar cache file.
func (r *Repo) cachePath() string {
	return filepath.Join(r.cacheDir, "events.bin")
}

// SealActiveShard seals the currently active shard and opens a fresh one,
// per spec §4.5's "explicit operator request" sealing trigger. AppendEvent
// also seals automatically at a month boundary; this method exists for a
// caller that wants to force a seal early (e.g. before a backup).
func (r *Repo) SealActiveShard() (*shard.SealResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sealActiveShardLocked()
}

// sealActiveShardLocked seals the active shard and refreshes the columnar
// cache to cover it. Callers must already hold r.mu.
func (r *Repo) sealActiveShardLocked() (*shard.SealResult, error) {
	result, err := r.shards.Seal(time.UnixMicro(r.clock.Current()))
	if err != nil {
		return nil, fmt.Errorf("bones: seal active shard: %w", err)
	}
	if err := r.refreshCacheLocked(); err != nil {
		r.logger.Warn("columnar cache refresh failed after seal", "error", err)
	}
	return result, nil
}

// refreshCacheLocked rewrites the columnar cache to hold every currently
// sealed shard's events. Callers must already hold r.mu. A failure here
// is never fatal: the cache is derived, and the next cold start simply
// falls back to reparsing shards directly.
func (r *Repo) refreshCacheLocked() error {
	entries, err := os.ReadDir(r.eventsDir)
	if err != nil {
		return fmt.Errorf("bones: read events dir for cache refresh: %w", err)
	}
	active := r.shards.ActiveShardName()
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".events") || e.Name() == active {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var sealedEvents []codec.Event
	for _, name := range names {
		events, err := loadShardFile(filepath.Join(r.eventsDir, name), r.logger)
		if err != nil {
			return err
		}
		sealedEvents = append(sealedEvents, events...)
	}
	return cache.Write(r.cachePath(), sealedEvents, r.clock.Current())
}

func (r *Repo) logWarnings(warnings []dag.Warning) {
	for _, w := range warnings {
		r.logger.Warn(w.Message, "event_hash", w.EventHash)
	}
}

// AppendOptions carries the per-call inputs AppendEvent needs beyond the
// intent itself.
type AppendOptions struct {
	// AgentFlag is the highest-priority tier of the agent resolution
	// chain (spec §6); pass "" to fall through to environment/TTY
	// resolution.
	AgentFlag string
	// OverrideSecretGuard bypasses the pre-write credential scanner.
	OverrideSecretGuard bool
}

// AppendEvent synthesizes and appends the event intent describes,
// returning its content-addressed hash. It resolves the writing agent,
// runs the secret guard, allocates a wall timestamp and ITC stamp,
// stamps the current frontier as parents, writes the line to the active
// shard, replays it into memory, and updates the projection — all under
// the repo's single-writer mutex.
func (r *Repo) AppendEvent(intent Intent, opts AppendOptions) (string, error) {
	agent, err := RequireAgent(opts.AgentFlag)
	if err != nil {
		return "", err
	}
	return r.appendAs(agent, intent, opts.OverrideSecretGuard, true)
}

// appendAs performs the append with an already-resolved agent. runEffects
// controls whether the goal auto-complete side effect (§6) is evaluated
// afterward; system-generated events (the effect's own moves, and
// snapshots from Compact) pass false to avoid recursing into itself.
func (r *Repo) appendAs(agent string, intent Intent, overrideSecretGuard, runEffects bool) (string, error) {
	if intent.targetItemID() == "" {
		return "", newError(KindInvalidIntent, "intent has no target item id", nil)
	}
	data, err := intent.buildData()
	if err != nil {
		return "", err
	}
	if err := secretGuard(overrideSecretGuard, intent.scannedTexts()...); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ev, err := r.writeLocked(agent, intent.eventType(), intent.targetItemID(), data)
	if err != nil {
		return "", err
	}

	if runEffects && r.cfg.GoalsAutoComplete {
		if err := r.applyGoalEffectLocked(intent.targetItemID()); err != nil {
			r.logger.Warn("goal auto-complete effect failed", "item_id", intent.targetItemID(), "error", err)
		}
	}

	return ev.EventHash, nil
}

// writeLocked performs the mechanical half of an append: stamp
// allocation, hashing, the shard write, replay, and projection upsert.
// Callers must already hold r.mu.
func (r *Repo) writeLocked(agent string, evType codec.EventType, itemID string, data map[string]any) (*codec.Event, error) {
	wallTS, err := r.clock.Next()
	if err != nil {
		return nil, fmt.Errorf("bones: allocate wall timestamp: %w", err)
	}

	if shard.ShardNameForTime(time.UnixMicro(wallTS)) != r.shards.ActiveShardName() {
		if _, err := r.sealActiveShardLocked(); err != nil {
			return nil, err
		}
	}

	stamp, err := r.stamps.StampFor(agent)
	if err != nil {
		return nil, fmt.Errorf("bones: allocate itc stamp: %w", err)
	}
	recorded := stamp.Record()
	if err := r.stamps.Update(agent, recorded); err != nil {
		return nil, fmt.Errorf("bones: persist itc stamp: %w", err)
	}

	ev := &codec.Event{
		WallTSUs: wallTS,
		Agent:    agent,
		ITC:      itc.EncodeText(recorded),
		Parents:  r.replayer.Frontier(),
		Type:     evType,
		ItemID:   itemID,
		Data:     data,
	}

	line, err := codec.EncodeLine(ev)
	if err != nil {
		return nil, fmt.Errorf("bones: encode event: %w", err)
	}
	if err := r.shards.Append(line, r.cfg.DurableAppend); err != nil {
		return nil, fmt.Errorf("bones: append event: %w", err)
	}

	warnings := r.replayer.Replay([]codec.Event{*ev})
	r.logWarnings(warnings)

	ctx := context.Background()
	states := map[string]lattice.ItemState{itemID: r.replayer.ItemState(itemID)}
	frontierHash := projection.FrontierHash(r.replayer.Frontier())
	if err := r.proj.UpsertItems(ctx, states, r.replayer.Cursor(), frontierHash); err != nil {
		return nil, fmt.Errorf("bones: update projection: %w", err)
	}

	return ev, nil
}

// applyGoalEffectLocked implements goals.auto_complete: it walks up from
// itemID through parent goals, closing a goal once every direct child
// has reached done/archived and reopening one that had already closed
// once a child appears that has not. Every event it emits is attributed
// to systemAgent and does not itself retrigger the effect (that happens
// naturally: each hop only looks at its own parent, and a goal's own
// move event only affects a grandparent goal on the next hop).
func (r *Repo) applyGoalEffectLocked(itemID string) error {
	ctx := context.Background()
	current := itemID

	for {
		state := r.replayer.ItemState(current)
		parentID := state.Parent.Value
		if parentID == "" {
			return nil
		}
		parentState := r.replayer.ItemState(parentID)
		if parentState.Kind.Value != "goal" {
			return nil
		}

		progress, err := r.proj.ComputeDirectProgress(ctx, parentID)
		if err != nil {
			return err
		}

		switch {
		case progress.IsComplete() && parentState.Status.Phase != lattice.PhaseDone:
			if _, err := r.writeLocked(systemAgent, codec.TypeItemMove, parentID, map[string]any{"phase": string(lattice.PhaseDone)}); err != nil {
				return err
			}
		case !progress.IsComplete() && parentState.Status.Phase == lattice.PhaseDone:
			if _, err := r.writeLocked(systemAgent, codec.TypeItemMove, parentID, map[string]any{"reopen": true}); err != nil {
				return err
			}
		default:
			return nil
		}

		current = parentID
	}
}

// ReadItem returns the current per-item lattice state, and whether the
// item has ever been observed.
func (r *Repo) ReadItem(itemID string) (lattice.ItemState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	states := r.replayer.States()
	state, ok := states[itemID]
	return state, ok
}

// IterItems returns a restartable sequence over items matching filter
// (nil matches everything). Soft-deleted items are excluded unless
// includeDeleted is set. Callers must Close the returned iterator.
func (r *Repo) IterItems(ctx context.Context, filter Predicate, after string, includeDeleted bool) (*ItemIterator, error) {
	compiled := filter
	if !includeDeleted {
		if filter == nil {
			compiled = ExcludeDeleted{}
		} else {
			compiled = And{Predicates: []Predicate{filter, ExcludeDeleted{}}}
		}
	}
	return r.proj.IterItems(ctx, compiled, after)
}

// Verify walks the on-disk shard directory and reports every invariant
// violation spec §7/§8 names, without mutating anything.
func (r *Repo) Verify() (*integrity.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	report, err := integrity.Verify(r.eventsDir, integrity.NewBufferedQuota(integrity.DefaultBufferedQuota))
	if err != nil {
		return nil, err
	}
	if !report.OK() {
		r.logger.Error("verify found repository inconsistencies", "summary", report.Summary())
	}
	return report, nil
}

// Rebuild discards and repopulates the entire projection by replaying
// every shard from scratch, the fallback path for a missing, corrupted,
// or stale cursor.
func (r *Repo) Rebuild() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadAndProject(context.Background())
}

// Compact folds itemID's current state into an item.snapshot event, once
// it has settled into done or archived for at least
// integrity.MinCompactionAgeUs. The snapshot carries every field's full
// comparator tuple, so a replica that starts from it still resolves
// future concurrent writes identically to one that replayed full
// history.
func (r *Repo) Compact(itemID string) (string, error) {
	r.mu.Lock()
	state := r.replayer.ItemState(itemID)
	eligible := integrity.IsEligibleForCompaction(state, r.clock.Current(), integrity.MinCompactionAgeUs)
	var payload map[string]any
	if eligible {
		payload = integrity.BuildSnapshotPayload(state)
	}
	r.mu.Unlock()

	if !eligible {
		return "", newError(KindInvalidIntent, "item is not eligible for compaction", nil).withItem(itemID)
	}

	return r.appendAs(systemAgent, snapshotItem{itemID: itemID, data: payload}, true, false)
}

// Redact replaces the body of the comment identified by commentHash on
// itemID with "[redacted]" everywhere it has propagated. reason is
// carried in the event for audit purposes.
func (r *Repo) Redact(itemID, commentHash, reason string, opts AppendOptions) (string, error) {
	return r.AppendEvent(RedactComment{ItemID: itemID, CommentHash: commentHash, Reason: reason}, opts)
}

// GenerateID derives a fresh item ID from title/description, sized to
// the repository's current item count and checked against every ID
// already in the projection.
func (r *Repo) GenerateID(title, description string) (idgen.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count, err := r.itemCountLocked()
	if err != nil {
		return idgen.Result{}, err
	}
	exists := func(id string) bool {
		_, ok, err := r.proj.ReadItem(context.Background(), id)
		return err == nil && ok
	}
	return idgen.Generate(title, description, count, exists, idgen.UUIDSuffixGenerator{})
}

// ResolveID resolves a user-supplied short prefix to the single item ID
// it uniquely identifies, per spec §4.1: an exact match always wins
// outright, even over a longer ID that has it as a proper prefix;
// otherwise the prefix must match exactly one known ID or resolution
// fails with a *Error listing every candidate.
func (r *Repo) ResolveID(prefix string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.proj.DB().Query(
		`SELECT item_id FROM items WHERE item_id = ? OR item_id LIKE ? ESCAPE '\' ORDER BY item_id`,
		prefix, escapeLike(prefix)+"%",
	)
	if err != nil {
		return "", fmt.Errorf("bones: resolve id: %w", err)
	}
	defer rows.Close()

	var candidates []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("bones: resolve id: %w", err)
		}
		if id == prefix {
			return id, nil
		}
		candidates = append(candidates, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("bones: resolve id: %w", err)
	}

	switch len(candidates) {
	case 0:
		return "", newError(KindNotFound, fmt.Sprintf("no item matches prefix %q", prefix), nil)
	case 1:
		return candidates[0], nil
	default:
		return "", newError(KindNotFound, fmt.Sprintf("prefix %q is ambiguous among %v", prefix, candidates), nil)
	}
}

// escapeLike escapes SQL LIKE metacharacters in a user-supplied prefix
// so an ID containing a literal "%" or "_" cannot alter the match shape.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func (r *Repo) itemCountLocked() (int, error) {
	var count int
	err := r.proj.DB().QueryRow("SELECT COUNT(*) FROM items").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("bones: count items: %w", err)
	}
	return count, nil
}

// withItem attaches an item ID to a *Error for callers building one
// inline (mirrors internal/engine/errors.go's builder-style constructors).
func (e *Error) withItem(itemID string) *Error {
	e.ItemID = itemID
	return e
}
