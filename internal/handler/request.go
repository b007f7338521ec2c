// Package handler serves the Forwarded echo endpoint.
package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rampantspark/goforwarded/internal/clientip"
	"github.com/rampantspark/goforwarded/internal/forwarded"
	"github.com/rampantspark/goforwarded/internal/metrics"
	"github.com/rampantspark/goforwarded/internal/middleware"
	"github.com/rampantspark/goforwarded/internal/stats"
)

// Response is the JSON document written for each echoed request.
type Response struct {
	RequestID string            `json:"request_id,omitempty"`
	ClientIP  string            `json:"client_ip"`
	Hops      *forwarded.Header `json:"hops,omitempty"`
	Appended  string            `json:"appended"`
	Error     string            `json:"error,omitempty"`
}

// RequestHandler echoes how the Forwarded header of a request was understood.
//
// It coordinates between client resolution, metrics and statistics tracking,
// and reports the header value this instance would pass on to the next hop.
type RequestHandler struct {
	resolver *clientip.Resolver
	stats    *stats.Manager
	metrics  *metrics.Metrics
	by       *forwarded.Node
	logger   *slog.Logger
}

// New creates a new request handler.
//
// Parameters:
//   - resolver: resolves the Forwarded header and client address
//   - stats: the stats manager for recording requests
//   - metrics: collectors updated for every request
//   - instanceID: this instance's obfuscated identifier, used as its by node
//   - logger: structured logger instance
//
// Returns a new RequestHandler instance or an error if instanceID is not a
// valid node.
func New(resolver *clientip.Resolver, stats *stats.Manager, metrics *metrics.Metrics, instanceID string, logger *slog.Logger) (*RequestHandler, error) {
	by, err := forwarded.NewNode(instanceID)
	if err != nil {
		return nil, fmt.Errorf("invalid instance identifier: %w", err)
	}
	return &RequestHandler{
		resolver: resolver,
		stats:    stats,
		metrics:  metrics,
		by:       by,
		logger:   logger,
	}, nil
}

// Handle resolves the request, records it and writes the echo response.
//
// A malformed Forwarded header is treated as absent: the response still has
// status 200, carries the parse error and forwards only this hop.
func (h *RequestHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	header, err := h.resolver.Forwarded(r)
	h.metrics.ObserveHeader(header, err)

	resp := Response{
		RequestID: middleware.RequestIDFromContext(ctx),
		ClientIP:  h.resolver.GetClientIP(r),
	}
	if err != nil {
		h.logger.Debug("Malformed Forwarded header", "error", err, "request_id", resp.RequestID)
		resp.Error = err.Error()
		header = nil
	}
	resp.Hops = header

	next, err := h.nextHop(r)
	if err != nil {
		h.logger.Warn("Failed to build forwarded hop", "error", err, "remote_addr", r.RemoteAddr)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if header == nil {
		resp.Appended = forwarded.NewHeader(next).String()
	} else {
		resp.Appended = header.Append(next).String()
	}

	if err := h.stats.RecordRequest(ctx, h.requestInfo(r, resp.ClientIP, header)); err != nil {
		h.logger.Warn("Failed to record request", "error", err)
	}

	if ctx.Err() != nil {
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, renderText(resp))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Warn("Failed to write response", "error", err)
	}
}

// nextHop builds the element this instance appends: the connection peer as
// for, its own identifier as by, plus the Host and scheme it received.
func (h *RequestHandler) nextHop(r *http.Request) (*forwarded.Record, error) {
	forNode, err := forwarded.NewNode(peerNode(r))
	if err != nil {
		return nil, err
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return forwarded.NewRecord(h.by, forNode, r.Host, scheme), nil
}

// peerNode renders RemoteAddr as a node value, bracketing IPv6 addresses.
func peerNode(r *http.Request) string {
	ip := clientip.RemoteIP(r)
	if ip == "" {
		return "unknown"
	}
	if strings.Contains(ip, ":") {
		return "[" + ip + "]"
	}
	return ip
}

// requestInfo describes r for the statistics. The first hop's host and proto
// replace the connection values only when proxies are trusted.
func (h *RequestHandler) requestInfo(r *http.Request, clientIP string, header *forwarded.Header) stats.RequestInfo {
	info := stats.RequestInfo{
		IP:   clientIP,
		Host: r.Host,
		Path: r.URL.Path,
	}
	if r.TLS != nil {
		info.Proto = "https"
	} else {
		info.Proto = "http"
	}
	if header == nil {
		return info
	}

	info.Hops = header.Len()
	info.Forwarded = clientip.Raw(r)
	if !h.resolver.TrustProxy() {
		return info
	}
	if first, ok := header.First(); ok {
		if host, ok := first.Host(); ok {
			info.Host = host
		}
		if proto, ok := first.Proto(); ok {
			info.Proto = proto
		}
	}
	return info
}

func renderText(resp Response) string {
	var sb strings.Builder
	if resp.RequestID != "" {
		fmt.Fprintf(&sb, "request_id: %s\n", resp.RequestID)
	}
	fmt.Fprintf(&sb, "client_ip: %s\n", resp.ClientIP)
	if resp.Error != "" {
		fmt.Fprintf(&sb, "error: %s\n", resp.Error)
	}
	if resp.Hops != nil {
		for i, rec := range resp.Hops.Records() {
			fmt.Fprintf(&sb, "hop %d: %s\n", i, rec)
		}
	}
	fmt.Fprintf(&sb, "appended: %s\n", resp.Appended)
	return sb.String()
}
