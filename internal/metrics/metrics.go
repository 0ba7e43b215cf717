// Package metrics exposes the prometheus collectors for the sync engine.
// Registration is optional: every recording function is a no-op until
// Enable has been called, so a mount can run perfectly well with no
// prometheus registerer at all.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commitCount    *prometheus.CounterVec
	commitLatency  *prometheus.HistogramVec
	syncCount      *prometheus.CounterVec
	fetchCount     *prometheus.CounterVec
	mergeCount     *prometheus.CounterVec
	queueDepth     *prometheus.GaugeVec
	lastSyncStamp  *prometheus.GaugeVec
	viewCacheSize  *prometheus.GaugeVec
	writersCurrent *prometheus.GaugeVec
)

// Enable registers gitfs's collectors on registerer under namespace "gitfs".
//
// Available metrics:
//   - gitfs_commit_total (tags: repo) - commits produced by the sync worker
//   - gitfs_commit_latency_seconds (tags: repo) - time to produce a commit
//   - gitfs_sync_total (tags: repo, success) - fetch+merge+push cycles
//   - gitfs_fetch_total (tags: repo, success) - fetch attempts from the fetch worker
//   - gitfs_merge_total (tags: repo, success) - accept-mine merge attempts
//   - gitfs_commit_queue_depth (tags: repo) - pending jobs in the commit queue
//   - gitfs_last_sync_timestamp (tags: repo) - unix time of the last successful sync
//   - gitfs_view_cache_size (tags: repo) - number of views currently cached
//   - gitfs_writers (tags: repo) - current value of the writers counter
func Enable(registerer prometheus.Registerer) {
	factory := promauto.With(registerer)

	commitCount = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gitfs", Name: "commit_total", Help: "Count of commits produced by the sync worker.",
	}, []string{"repo"})

	commitLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gitfs", Name: "commit_latency_seconds", Help: "Latency of producing a single commit.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"repo"})

	syncCount = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gitfs", Name: "sync_total", Help: "Count of fetch+merge+push sync cycles.",
	}, []string{"repo", "success"})

	fetchCount = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gitfs", Name: "fetch_total", Help: "Count of background fetch attempts.",
	}, []string{"repo", "success"})

	mergeCount = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gitfs", Name: "merge_total", Help: "Count of accept-mine merge attempts.",
	}, []string{"repo", "success"})

	queueDepth = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gitfs", Name: "commit_queue_depth", Help: "Pending jobs in the commit queue.",
	}, []string{"repo"})

	lastSyncStamp = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gitfs", Name: "last_sync_timestamp", Help: "Unix time of the last successful sync.",
	}, []string{"repo"})

	viewCacheSize = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gitfs", Name: "view_cache_size", Help: "Number of views currently cached.",
	}, []string{"repo"})

	writersCurrent = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gitfs", Name: "writers", Help: "Current value of the writers counter.",
	}, []string{"repo"})

}

func RecordCommit(repo string, start time.Time) {
	if commitCount == nil {
		return
	}
	commitCount.WithLabelValues(repo).Inc()
	commitLatency.WithLabelValues(repo).Observe(time.Since(start).Seconds())
}

func RecordSync(repo string, success bool) {
	if syncCount == nil {
		return
	}
	syncCount.WithLabelValues(repo, boolLabel(success)).Inc()
	if success {
		lastSyncStamp.WithLabelValues(repo).Set(float64(time.Now().Unix()))
	}
}

func RecordFetch(repo string, success bool) {
	if fetchCount == nil {
		return
	}
	fetchCount.WithLabelValues(repo, boolLabel(success)).Inc()
}

func RecordMerge(repo string, success bool) {
	if mergeCount == nil {
		return
	}
	mergeCount.WithLabelValues(repo, boolLabel(success)).Inc()
}

func SetQueueDepth(repo string, n int) {
	if queueDepth == nil {
		return
	}
	queueDepth.WithLabelValues(repo).Set(float64(n))
}

func SetViewCacheSize(repo string, n int) {
	if viewCacheSize == nil {
		return
	}
	viewCacheSize.WithLabelValues(repo).Set(float64(n))
}

func SetWriters(repo string, n int64) {
	if writersCurrent == nil {
		return
	}
	writersCurrent.WithLabelValues(repo).Set(float64(n))
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
