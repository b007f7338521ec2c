package stats

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// Memory limits, only used without a database.
const (
	maxTrackedIPs   = 10000
	maxTrackedHosts = 1000
)

// Manager records requests in the database when one is configured and in
// memory otherwise.
type Manager struct {
	db     *Database
	stats  *Stats
	logger *slog.Logger
}

// NewManager creates a new stats manager.
//
// Parameters:
//   - db: optional database instance; nil keeps statistics in memory
//   - logger: structured logger instance
//
// Returns a new Manager instance.
func NewManager(db *Database, logger *slog.Logger) *Manager {
	m := &Manager{
		db:     db,
		logger: logger,
	}
	if db == nil {
		m.stats = NewStats()
	}
	return m
}

// Persistent reports whether statistics are written to a database.
func (m *Manager) Persistent() bool {
	return m.db != nil
}

// RecordRequest records one request.
//
// Returns an error only if the database write fails.
func (m *Manager) RecordRequest(ctx context.Context, info RequestInfo) error {
	if info.Timestamp.IsZero() {
		info.Timestamp = time.Now()
	}

	if m.db != nil {
		return m.db.RecordRequest(ctx, info)
	}

	m.stats.Mu.Lock()
	defer m.stats.Mu.Unlock()

	m.stats.TotalRequests++
	if info.Hops > 0 {
		m.stats.ForwardedRequests++
	}
	incrementBounded(m.stats.IPCounts, info.IP, maxTrackedIPs)
	if info.Host != "" {
		incrementBounded(m.stats.HostCounts, info.Host, maxTrackedHosts)
	}

	m.stats.RecentRequests = append(m.stats.RecentRequests, info)
	if len(m.stats.RecentRequests) > m.stats.MaxRecentRequests {
		m.stats.RecentRequests = m.stats.RecentRequests[1:]
	}
	return nil
}

// incrementBounded counts label, only adding new labels while below limit.
func incrementBounded(counts map[string]int, label string, limit int) {
	if _, exists := counts[label]; exists {
		counts[label]++
	} else if len(counts) < limit {
		counts[label] = 1
	}
}

// GetChartData returns the top client IPs and hosts.
//
// Parameters:
//   - ctx: context for cancellation and timeout control
//   - topItemsCount: number of entries per list
func (m *Manager) GetChartData(ctx context.Context, topItemsCount int) ChartData {
	var data ChartData

	if m.db != nil {
		var err error
		if data.TopIPs, err = m.db.GetTopIPs(ctx, topItemsCount); err != nil {
			m.logger.Warn("Failed to get top IPs from database", "error", err)
			return ChartData{}
		}
		if data.TopHosts, err = m.db.GetTopHosts(ctx, topItemsCount); err != nil {
			m.logger.Warn("Failed to get top hosts from database", "error", err)
			return ChartData{}
		}
		return data
	}

	m.stats.Mu.RLock()
	defer m.stats.Mu.RUnlock()

	data.TopIPs = topEntries(m.stats.IPCounts, topItemsCount)
	data.TopHosts = topEntries(m.stats.HostCounts, topItemsCount)
	return data
}

// topEntries sorts counts descending, ties by label, and keeps the first n.
func topEntries(counts map[string]int, n int) []CountEntry {
	entries := make([]CountEntry, 0, len(counts))
	for label, count := range counts {
		entries = append(entries, CountEntry{Label: label, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Label < entries[j].Label
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// GetSummary returns the aggregate counters. Database failures are logged
// and reported as a zero summary.
func (m *Manager) GetSummary(ctx context.Context) Summary {
	if m.db != nil {
		summary, err := m.db.GetSummary(ctx)
		if err != nil {
			m.logger.Warn("Failed to get stats from database", "error", err)
			return Summary{}
		}
		return summary
	}

	m.stats.Mu.RLock()
	defer m.stats.Mu.RUnlock()

	return Summary{
		Uptime:            time.Since(m.stats.StartTime),
		TotalRequests:     m.stats.TotalRequests,
		ForwardedRequests: m.stats.ForwardedRequests,
		UniqueIPs:         len(m.stats.IPCounts),
		UniqueHosts:       len(m.stats.HostCounts),
	}
}

// GetRecentRequests returns up to limit requests, most recent first.
func (m *Manager) GetRecentRequests(ctx context.Context, limit int) []RequestInfo {
	if m.db != nil {
		requests, err := m.db.GetRecentRequests(ctx, limit)
		if err != nil {
			m.logger.Warn("Failed to get recent requests from database", "error", err)
			return nil
		}
		return requests
	}

	m.stats.Mu.RLock()
	defer m.stats.Mu.RUnlock()

	total := len(m.stats.RecentRequests)
	if total == 0 {
		return nil
	}
	count := total
	if limit > 0 && limit < total {
		count = limit
	}

	// stored oldest first
	result := make([]RequestInfo, count)
	for i := 0; i < count; i++ {
		result[i] = m.stats.RecentRequests[total-1-i]
	}
	return result
}

// Close closes the database, if any.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
