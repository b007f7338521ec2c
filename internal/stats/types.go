// Package stats records resolved requests and aggregates them per client and
// per original host.
package stats

import (
	"sync"
	"time"
)

// RequestInfo holds what was learned about a single request.
type RequestInfo struct {
	IP        string    `json:"ip"`                  // Resolved client IP address
	Host      string    `json:"host,omitempty"`      // Original Host, from the first hop when present
	Proto     string    `json:"proto,omitempty"`     // Original scheme, from the first hop when present
	Hops      int       `json:"hops"`                // Number of Forwarded hops, 0 when absent or invalid
	Forwarded string    `json:"forwarded,omitempty"` // Raw Forwarded header value
	Path      string    `json:"path"`                // Requested path
	Timestamp time.Time `json:"timestamp"`           // Request timestamp
}

// Stats holds in-memory statistics, used when no database is configured.
type Stats struct {
	Mu                sync.RWMutex   // Mutex for thread-safe access
	StartTime         time.Time      // Server start time
	TotalRequests     int            // Total number of requests
	ForwardedRequests int            // Requests that carried a usable Forwarded header
	IPCounts          map[string]int // Request count per client IP
	HostCounts        map[string]int // Request count per original host
	RecentRequests    []RequestInfo  // Recent request history, oldest first
	MaxRecentRequests int            // Maximum number of recent requests to keep
}

// NewStats creates and initializes a new Stats instance.
func NewStats() *Stats {
	return &Stats{
		StartTime:         time.Now(),
		IPCounts:          make(map[string]int),
		HostCounts:        make(map[string]int),
		RecentRequests:    make([]RequestInfo, 0),
		MaxRecentRequests: 100,
	}
}

// Summary is a snapshot of the aggregate counters.
type Summary struct {
	Uptime            time.Duration `json:"uptime"`
	TotalRequests     int           `json:"totalRequests"`
	ForwardedRequests int           `json:"forwardedRequests"`
	UniqueIPs         int           `json:"uniqueIPs"`
	UniqueHosts       int           `json:"uniqueHosts"`
}

// CountEntry represents a label and count pair in sorted order.
type CountEntry struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ChartData holds the top lists shown by the admin UI.
type ChartData struct {
	TopIPs   []CountEntry `json:"topIPs"`
	TopHosts []CountEntry `json:"topHosts"`
}
