package admin

import (
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/rampantspark/goforwarded/internal/stats"
)

// Renderer handles HTML generation for the admin UI.
type Renderer struct {
	adminPath string
}

// NewRenderer creates a new renderer for the dashboard served at adminPath.
func NewRenderer(adminPath string) *Renderer {
	return &Renderer{
		adminPath: adminPath,
	}
}

// RenderDashboard generates the complete dashboard page.
//
// Parameters:
//   - summary: aggregate counters
//   - chartData: top client IPs and hosts
//   - recentRequests: recent requests, most recent first
//   - maxDisplay: maximum number of recent requests to show
//
// Returns the complete HTML as a string.
func (r *Renderer) RenderDashboard(summary stats.Summary, chartData stats.ChartData, recentRequests []stats.RequestInfo, maxDisplay int) string {
	var sb strings.Builder

	r.writeHTMLHeader(&sb)
	r.writeSummary(&sb, summary)
	sb.WriteString("<div class=\"grid\">\n")
	r.writeCountTable(&sb, "Top Clients", "Client IP", chartData.TopIPs)
	r.writeCountTable(&sb, "Top Original Hosts", "Host", chartData.TopHosts)
	sb.WriteString("</div>\n")
	r.writeRecentRequests(&sb, recentRequests, maxDisplay)
	sb.WriteString("<p class=\"muted\">JSON: <a href=\"")
	sb.WriteString(html.EscapeString(r.adminPath))
	sb.WriteString("/data\">")
	sb.WriteString(html.EscapeString(r.adminPath))
	sb.WriteString("/data</a></p>\n")
	sb.WriteString("</body>\n</html>")

	return sb.String()
}

func (r *Renderer) writeHTMLHeader(sb *strings.Builder) {
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString("<title>goforwarded - dashboard</title>\n")
	sb.WriteString("<style>\n")
	sb.WriteString("body { font-family: monospace; margin: 20px; background: #f5f5f5; }\n")
	sb.WriteString(".box { background: white; padding: 15px; margin: 10px 0; border-radius: 5px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }\n")
	sb.WriteString(".grid { display: grid; grid-template-columns: 1fr 1fr; gap: 20px; }\n")
	sb.WriteString("@media (max-width: 768px) { .grid { grid-template-columns: 1fr; } }\n")
	sb.WriteString("table { width: 100%; border-collapse: collapse; margin-top: 10px; }\n")
	sb.WriteString("th, td { padding: 6px; text-align: left; border-bottom: 1px solid #ddd; vertical-align: top; }\n")
	sb.WriteString("th { background-color: #2f6f9f; color: white; }\n")
	sb.WriteString(".chain { word-break: break-all; }\n")
	sb.WriteString(".muted { color: #777; }\n")
	sb.WriteString("</style>\n")
	sb.WriteString("</head>\n<body>\n")
	sb.WriteString("<h1>goforwarded</h1>\n")
}

func (r *Renderer) writeSummary(sb *strings.Builder, summary stats.Summary) {
	sb.WriteString("<div class=\"box\">\n")
	sb.WriteString("<h2>Summary</h2>\n")
	sb.WriteString("<p><strong>Uptime:</strong> " + html.EscapeString(summary.Uptime.Round(time.Second).String()) + "</p>\n")
	sb.WriteString("<p><strong>Total Requests:</strong> " + strconv.Itoa(summary.TotalRequests) + "</p>\n")
	sb.WriteString("<p><strong>Forwarded Requests:</strong> " + strconv.Itoa(summary.ForwardedRequests) + "</p>\n")
	sb.WriteString("<p><strong>Unique Clients:</strong> " + strconv.Itoa(summary.UniqueIPs) + "</p>\n")
	sb.WriteString("<p><strong>Unique Hosts:</strong> " + strconv.Itoa(summary.UniqueHosts) + "</p>\n")
	sb.WriteString("</div>\n")
}

func (r *Renderer) writeCountTable(sb *strings.Builder, title, column string, entries []stats.CountEntry) {
	sb.WriteString("<div class=\"box\">\n<h2>" + html.EscapeString(title) + "</h2>\n")
	if len(entries) == 0 {
		sb.WriteString("<p class=\"muted\">Nothing recorded yet.</p>\n</div>\n")
		return
	}
	sb.WriteString("<table>\n<tr><th>" + html.EscapeString(column) + "</th><th>Requests</th></tr>\n")
	for _, entry := range entries {
		sb.WriteString("<tr><td>")
		sb.WriteString(html.EscapeString(entry.Label))
		sb.WriteString("</td><td>")
		sb.WriteString(strconv.Itoa(entry.Count))
		sb.WriteString("</td></tr>\n")
	}
	sb.WriteString("</table>\n</div>\n")
}

func (r *Renderer) writeRecentRequests(sb *strings.Builder, recentRequests []stats.RequestInfo, maxDisplay int) {
	sb.WriteString("<div class=\"box\">\n<h2>Recent Requests</h2>\n")
	if len(recentRequests) == 0 {
		sb.WriteString("<p class=\"muted\">No recent requests yet.</p>\n</div>\n")
		return
	}

	displayCount := len(recentRequests)
	if maxDisplay > 0 && maxDisplay < displayCount {
		displayCount = maxDisplay
	}

	sb.WriteString("<table>\n")
	sb.WriteString("<tr><th>Timestamp</th><th>Client</th><th>Host</th><th>Proto</th><th>Hops</th><th>Path</th><th>Forwarded</th></tr>\n")
	for _, req := range recentRequests[:displayCount] {
		cells := []string{
			req.Timestamp.Format("2006-01-02 15:04:05"),
			req.IP,
			req.Host,
			req.Proto,
			strconv.Itoa(req.Hops),
			req.Path,
		}
		sb.WriteString("<tr>")
		for _, cell := range cells {
			sb.WriteString("<td>" + html.EscapeString(cell) + "</td>")
		}
		sb.WriteString("<td class=\"chain\">" + html.EscapeString(req.Forwarded) + "</td></tr>\n")
	}
	sb.WriteString("</table>\n</div>\n")
}
