// Package ui prints the console banner and startup summary.
package ui

import (
	"fmt"
	"io"
	"strconv"
	"time"
)

// Banner is the ASCII art banner for goforwarded
const Banner = `
                __                                  _          _
  __ _  ___    / _| ___  _ ____      ____ _ _ __ __| | ___  __| |
 / _' |/ _ \  | |_ / _ \| '__\ \ /\ / / _' | '__/ _' |/ _ \/ _' |
| (_| | (_) | |  _| (_) | |   \ V  V / (_| | | | (_| |  __/ (_| |
 \__, |\___/  |_|  \___/|_|    \_/\_/ \__,_|_|  \__,_|\___|\__,_|
 |___/
`

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// StartupInfo holds configuration information to display at startup
type StartupInfo struct {
	Addr           string
	InstanceID     string
	TrustProxy     bool
	MaxHeaderBytes int
	RateLimit      string
	PersistMode    string
	MetricsPath    string
	AdminLoginURL  string // empty when the admin UI is disabled
	AdminURL       string
}

// Printer writes console output for the server lifecycle.
type Printer struct {
	w io.Writer
}

// NewPrinter returns a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintBanner prints the ASCII banner
func (p *Printer) PrintBanner() {
	fmt.Fprint(p.w, Banner)
}

// PrintStartupInfo prints a clean summary of the server configuration
func (p *Printer) PrintStartupInfo(info StartupInfo) {
	fmt.Fprintln(p.w, rule)
	fmt.Fprintf(p.w, "  Server started at %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintln(p.w, rule)
	fmt.Fprintln(p.w)

	fmt.Fprintln(p.w, "  SERVER")
	fmt.Fprintf(p.w, "     Listening on:    %s\n", info.Addr)
	fmt.Fprintf(p.w, "     Rate Limiting:   %s\n", info.RateLimit)
	fmt.Fprintf(p.w, "     Header Limit:    %s\n", FormatSize(info.MaxHeaderBytes))
	fmt.Fprintln(p.w)

	fmt.Fprintln(p.w, "  FORWARDED")
	fmt.Fprintf(p.w, "     Instance (by):   %s\n", info.InstanceID)
	fmt.Fprintf(p.w, "     Client Address:  %s\n", BuildTrustSummary(info.TrustProxy))
	fmt.Fprintln(p.w)

	fmt.Fprintln(p.w, "  PERSISTENCE")
	fmt.Fprintf(p.w, "     Mode:            %s\n", info.PersistMode)
	fmt.Fprintln(p.w)

	fmt.Fprintln(p.w, "  METRICS")
	fmt.Fprintf(p.w, "     Path:            %s\n", info.MetricsPath)
	fmt.Fprintln(p.w)

	if info.AdminLoginURL != "" {
		fmt.Fprintln(p.w, "  ADMIN ACCESS")
		fmt.Fprintf(p.w, "     Login URL:       %s\n", info.AdminLoginURL)
		fmt.Fprintf(p.w, "     Dashboard:       %s\n", info.AdminURL)
		fmt.Fprintln(p.w)
		fmt.Fprintln(p.w, "  ⚠️  SECURITY WARNING:")
		fmt.Fprintln(p.w, "     The login URL above contains the authentication token.")
		fmt.Fprintln(p.w, "     Keep it secure and rotate logs containing this token.")
		fmt.Fprintln(p.w)
	}

	fmt.Fprintln(p.w, rule)
	fmt.Fprintln(p.w, "  Press Ctrl+C to stop the server")
	fmt.Fprintln(p.w, rule)
	fmt.Fprintln(p.w)
}

// PrintShutdown prints a shutdown message
func (p *Printer) PrintShutdown() {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, rule)
	fmt.Fprintln(p.w, "  Server shutting down gracefully...")
	fmt.Fprintln(p.w, rule)
}

// PrintShutdownComplete prints a final shutdown message
func (p *Printer) PrintShutdownComplete() {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, "  ✓ Server stopped successfully")
	fmt.Fprintln(p.w)
}

// PrintError prints a formatted error message
func (p *Printer) PrintError(message string, err error) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, rule)
	fmt.Fprintf(p.w, "  ❌ ERROR: %s\n", message)
	if err != nil {
		fmt.Fprintf(p.w, "     %v\n", err)
	}
	fmt.Fprintln(p.w, rule)
	fmt.Fprintln(p.w)
}

// FormatSize formats a byte size into a human-readable string
func FormatSize(bytes int) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// BuildRateLimitSummary creates a summary string for rate limiting
func BuildRateLimitSummary(requestsPerSec float64, burst int) string {
	if requestsPerSec <= 0 {
		return "Disabled"
	}
	return fmt.Sprintf("%s req/sec per client (burst: %d)", strconv.FormatFloat(requestsPerSec, 'f', -1, 64), burst)
}

// BuildPersistModeSummary creates a summary string for persistence mode
func BuildPersistModeSummary(dbPath string) string {
	if dbPath != "" {
		return fmt.Sprintf("SQLite database - %s", dbPath)
	}
	return "In memory"
}

// BuildTrustSummary describes where client addresses are taken from.
func BuildTrustSummary(trustProxy bool) string {
	if trustProxy {
		return "First Forwarded hop, then connection"
	}
	return "Connection only"
}
