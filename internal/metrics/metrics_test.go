package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRecordFunctions_noopBeforeEnable(t *testing.T) {
	// commitCount etc. start out nil at package init; calling the recording
	// functions before Enable must not panic.
	RecordCommit("repo", time.Now())
	RecordSync("repo", true)
	RecordFetch("repo", false)
	RecordMerge("repo", true)
	SetQueueDepth("repo", 3)
	SetViewCacheSize("repo", 7)
	SetWriters("repo", 2)
}

func TestEnable_registersAndRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	Enable(reg)

	RecordCommit("myrepo", time.Now().Add(-time.Second))
	RecordSync("myrepo", true)
	RecordFetch("myrepo", false)
	RecordMerge("myrepo", true)
	SetQueueDepth("myrepo", 5)
	SetViewCacheSize("myrepo", 9)
	SetWriters("myrepo", 1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}

	for _, want := range []string{
		"gitfs_commit_total",
		"gitfs_commit_latency_seconds",
		"gitfs_sync_total",
		"gitfs_fetch_total",
		"gitfs_merge_total",
		"gitfs_commit_queue_depth",
		"gitfs_last_sync_timestamp",
		"gitfs_view_cache_size",
		"gitfs_writers",
	} {
		if !names[want] {
			t.Errorf("expected metric %q to be registered, got %v", want, names)
		}
	}
}

func TestBoolLabel(t *testing.T) {
	if got := boolLabel(true); got != "true" {
		t.Errorf("boolLabel(true) = %q, want true", got)
	}
	if got := boolLabel(false); got != "false" {
		t.Errorf("boolLabel(false) = %q, want false", got)
	}
}
