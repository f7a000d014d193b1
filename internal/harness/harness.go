package harness

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bobisme/bones"
	"github.com/bobisme/bones/internal/codec"
	"github.com/bobisme/bones/internal/dag"
	"github.com/bobisme/bones/internal/lattice"
	"github.com/bobisme/bones/internal/wallclock"
)

// replica holds one scenario replica's open repo and the directory it
// lives in, so Run can later reach back into its event log for a
// merged-state assertion.
type replica struct {
	dir  string
	repo *bones.Repo
}

// Run executes scenario against a fresh set of replicas, one bones.Repo
// per entry in scenario.Replicas, each in its own temp directory under
// baseDir. Every replica is closed before Run returns.
func Run(baseDir string, scenario *Scenario) (*Result, error) {
	result := NewResult()
	logger := slog.New(slog.NewTextHandler(noopWriter{}, nil))

	replicas := make(map[string]*replica, len(scenario.Replicas))
	defer func() {
		for _, r := range replicas {
			r.repo.Close()
		}
	}()

	for i, name := range scenario.Replicas {
		dir := filepath.Join(baseDir, name)
		repo, err := bones.Open(dir, bones.Options{
			Logger: logger,
			Clock:  wallclock.NewFake(int64(1_000_000 * (i + 1))),
		})
		if err != nil {
			return nil, fmt.Errorf("harness: open replica %s: %w", name, err)
		}
		replicas[name] = &replica{dir: dir, repo: repo}
	}

	defaultReplica := scenario.Replicas[0]

	for idx, step := range scenario.Steps {
		name := step.Replica
		if name == "" {
			name = defaultReplica
		}
		rep, ok := replicas[name]
		if !ok {
			return nil, fmt.Errorf("harness: step %d references unknown replica %q", idx, name)
		}

		outcome := StepOutcome{Index: idx, Replica: name, Op: step.Op}

		if step.Op == "sync_from" {
			from, ok := replicas[str(step.Args, "from")]
			if !ok {
				return nil, fmt.Errorf("harness: step %d: sync_from names unknown replica", idx)
			}
			if err := copyEventLog(from.dir, rep.dir); err != nil {
				result.AddError(fmt.Sprintf("step %d: sync_from: %v", idx, err))
				outcome.Err = err.Error()
				result.AddStep(outcome)
				continue
			}
			if err := rep.repo.Rebuild(); err != nil {
				result.AddError(fmt.Sprintf("step %d: rebuild after sync_from: %v", idx, err))
				outcome.Err = err.Error()
			}
			result.AddStep(outcome)
			continue
		}

		intent, err := buildIntent(step.Op, step.Args)
		if err != nil {
			return nil, fmt.Errorf("harness: step %d: %w", idx, err)
		}

		hash, err := rep.repo.AppendEvent(intent, bones.AppendOptions{AgentFlag: step.Agent})
		if step.ExpectError != "" {
			if err == nil {
				result.AddError(fmt.Sprintf("step %d: expected error kind %s, got success", idx, step.ExpectError))
			} else if !bones.Is(err, bones.Kind(step.ExpectError)) {
				result.AddError(fmt.Sprintf("step %d: expected error kind %s, got %v", idx, step.ExpectError, err))
			}
			outcome.Err = errString(err)
			result.AddStep(outcome)
			continue
		}
		if err != nil {
			result.AddError(fmt.Sprintf("step %d (%s): %v", idx, step.Op, err))
			outcome.Err = err.Error()
			result.AddStep(outcome)
			continue
		}
		outcome.EventHash = hash
		result.AddStep(outcome)
	}

	for i, a := range scenario.Assertions {
		if err := evaluateAssertion(i, a, replicas, defaultReplica); err != nil {
			result.AddError(err.Error())
		}
	}

	return result, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

// mergedItemState replays the union of every replica's on-disk event log
// through a fresh replayer and returns itemID's converged lattice state —
// this is what "the two replicas eventually sync" means for a scenario
// that never actually wires a transport, since the event log is the only
// thing that needs to propagate for the CRDT join to converge.
func mergedItemState(replicas map[string]*replica, itemID string) (lattice.ItemState, error) {
	seen := make(map[string]codec.Event)
	for _, rep := range replicas {
		events, err := loadEventsDir(filepath.Join(rep.dir, "events"))
		if err != nil {
			return lattice.ItemState{}, err
		}
		for _, ev := range events {
			seen[ev.EventHash] = ev
		}
	}
	merged := make([]codec.Event, 0, len(seen))
	for _, ev := range seen {
		merged = append(merged, ev)
	}

	r := dag.NewReplayer()
	r.Replay(merged)
	return r.ItemState(itemID), nil
}

// copyEventLog copies every *.events file from src's events directory
// into dst's, used to model a replica "pulling" another's history before
// a concurrent edit. Pointer/cursor files are not copied: dst keeps its
// own active-shard pointer and rebuilds its projection afterward.
func copyEventLog(srcDir, dstDir string) error {
	srcEvents := filepath.Join(srcDir, "events")
	entries, err := os.ReadDir(srcEvents)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	dstEvents := filepath.Join(dstDir, "events")
	if err := os.MkdirAll(dstEvents, 0o755); err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".events") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(srcEvents, e.Name()))
		if err != nil {
			return err
		}
		destPath := filepath.Join(dstEvents, "incoming-"+e.Name())
		if err := os.WriteFile(destPath, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// loadEventsDir mirrors bones's own (unexported) shard loader: every
// *.events file, sorted, each line parsed and hash-verified, with
// unparsable or hash-mismatched lines silently skipped the same way
// internal/integrity.Verify treats them as non-fatal.
func loadEventsDir(dir string) ([]codec.Event, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".events") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var events []codec.Event
	for _, name := range names {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Bytes()
			if lineNo == 1 {
				continue // header
			}
			if len(line) == 0 || codec.IsComment(line) {
				continue
			}
			ev, err := codec.ParseLine(line)
			if err != nil {
				continue
			}
			ok, err := codec.VerifyHash(ev)
			if err != nil || !ok {
				continue
			}
			events = append(events, *ev)
		}
		f.Close()
	}
	return events, nil
}
