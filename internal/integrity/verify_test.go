package integrity

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bobisme/bones/internal/codec"
	"github.com/bobisme/bones/internal/itc"
	"github.com/bobisme/bones/internal/shard"
)

func buildEvent(t *testing.T, wallTS int64, agent string, stamp itc.Stamp, parents []string, itemID string, typ codec.EventType, data map[string]any) codec.Event {
	t.Helper()
	ev := &codec.Event{
		WallTSUs: wallTS,
		Agent:    agent,
		ITC:      itc.EncodeText(stamp),
		Parents:  parents,
		Type:     typ,
		ItemID:   itemID,
		Data:     data,
	}
	hash, err := codec.ComputeHash(ev)
	require.NoError(t, err)
	ev.EventHash = hash
	return *ev
}

func writeEvents(t *testing.T, dir string, events ...codec.Event) {
	t.Helper()
	store, err := shard.Open(dir, time.Now())
	require.NoError(t, err)
	for _, ev := range events {
		line, err := codec.EncodeLine(&ev)
		require.NoError(t, err)
		require.NoError(t, store.Append(line, false))
	}
	require.NoError(t, store.Close())
}

func TestVerifyCleanRepoPasses(t *testing.T) {
	dir := t.TempDir()
	stamp := itc.Seed()
	root := buildEvent(t, 1000, "agent-a", stamp, nil, "bn-1", codec.TypeItemCreate, map[string]any{"title": "a"})
	stamp = stamp.Record()
	move := buildEvent(t, 2000, "agent-a", stamp, []string{root.EventHash}, "bn-1", codec.TypeItemMove, map[string]any{"phase": "doing"})
	writeEvents(t, dir, root, move)

	report, err := Verify(dir, NewBufferedQuota(DefaultBufferedQuota))
	require.NoError(t, err)
	require.True(t, report.OK(), report.Summary())
	require.Equal(t, 2, report.EventsScanned)
}

func TestVerifyDetectsHashMismatch(t *testing.T) {
	dir := t.TempDir()
	stamp := itc.Seed()
	ev := buildEvent(t, 1000, "agent-a", stamp, nil, "bn-1", codec.TypeItemCreate, map[string]any{"title": "a"})
	writeEvents(t, dir, ev)

	shardPath := filepath.Join(dir, shard.ShardNameForTime(time.Now()))
	raw, err := os.ReadFile(shardPath)
	require.NoError(t, err)
	tampered := []byte(string(raw))
	for i := range tampered {
		if tampered[i] == 'a' {
			tampered[i] = 'z'
			break
		}
	}
	require.NoError(t, os.WriteFile(shardPath, tampered, 0o644))

	report, err := Verify(dir, NewBufferedQuota(DefaultBufferedQuota))
	require.NoError(t, err)
	require.False(t, report.OK())
	require.NotEmpty(t, report.HashMismatches)
}

func TestVerifyDetectsMissingParent(t *testing.T) {
	dir := t.TempDir()
	stamp := itc.Seed()
	ev := buildEvent(t, 1000, "agent-a", stamp, []string{"blake3:deadbeef"}, "bn-1", codec.TypeItemCreate, map[string]any{"title": "a"})
	writeEvents(t, dir, ev)

	report, err := Verify(dir, NewBufferedQuota(DefaultBufferedQuota))
	require.NoError(t, err)
	require.False(t, report.OK())
	require.Len(t, report.MissingParents, 1)
	require.Equal(t, "blake3:deadbeef", report.MissingParents[0].ParentHash)
	require.Equal(t, 1, report.BufferedUnresolved)
}

func TestVerifyDetectsManifestMismatch(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	store, err := shard.Open(dir, now)
	require.NoError(t, err)
	stamp := itc.Seed()
	ev := buildEvent(t, 1000, "agent-a", stamp, nil, "bn-1", codec.TypeItemCreate, map[string]any{"title": "a"})
	line, err := codec.EncodeLine(&ev)
	require.NoError(t, err)
	require.NoError(t, store.Append(line, false))

	_, err = store.Seal(now)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	sealedPath := filepath.Join(dir, shard.ShardNameForTime(now))
	f, err := os.OpenFile(sealedPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	stamp2 := stamp.Record()
	extra := buildEvent(t, 2000, "agent-a", stamp2, []string{ev.EventHash}, "bn-1", codec.TypeItemMove, map[string]any{"phase": "doing"})
	extraLine, err := codec.EncodeLine(&extra)
	require.NoError(t, err)
	_, err = f.Write(extraLine)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	report, err := Verify(dir, NewBufferedQuota(DefaultBufferedQuota))
	require.NoError(t, err)
	require.False(t, report.OK())
	require.NotEmpty(t, report.ManifestMismatches)
}

func TestVerifyDetectsBlockingCycle(t *testing.T) {
	dir := t.TempDir()
	a := buildEvent(t, 1000, "agent-a", itc.Seed(), nil, "bn-a", codec.TypeItemCreate, map[string]any{"title": "a"})
	b := buildEvent(t, 1000, "agent-a", itc.Seed(), nil, "bn-b", codec.TypeItemCreate, map[string]any{"title": "b"})
	linkAB := buildEvent(t, 2000, "agent-a", itc.Seed(), []string{a.EventHash, b.EventHash}, "bn-a", codec.TypeItemLink, map[string]any{"field": "blocked_by", "target": "bn-b"})
	linkBA := buildEvent(t, 2000, "agent-a", itc.Seed(), []string{a.EventHash, b.EventHash}, "bn-b", codec.TypeItemLink, map[string]any{"field": "blocked_by", "target": "bn-a"})
	writeEvents(t, dir, a, b, linkAB, linkBA)

	report, err := Verify(dir, NewBufferedQuota(DefaultBufferedQuota))
	require.NoError(t, err)
	require.False(t, report.OK())
	require.NotEmpty(t, report.BlockingCycles)
}

func TestBufferedQuotaTripsOnManyMissingParents(t *testing.T) {
	dir := t.TempDir()
	var events []codec.Event
	for i := 0; i < 5; i++ {
		ev := buildEvent(t, int64(1000+i), "agent-a", itc.Seed(), []string{"blake3:missing"}, "bn-1", codec.TypeItemUpdate, map[string]any{"title": "x"})
		events = append(events, ev)
	}
	writeEvents(t, dir, events...)

	report, err := Verify(dir, NewBufferedQuota(2))
	require.NoError(t, err)
	require.True(t, report.QuotaExceeded)
}
