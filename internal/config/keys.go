package config

import (
	"github.com/tbckr/mailcheck/internal/dnscache"
	"github.com/tbckr/mailcheck/internal/doh"
	"github.com/tbckr/mailcheck/internal/extract"
	"github.com/tbckr/mailcheck/internal/logger"
	"github.com/tbckr/mailcheck/internal/output"
	"github.com/tbckr/mailcheck/internal/services/domain"
	"github.com/tbckr/mailcheck/internal/worker"
)

type kind int

const (
	kindString kind = iota
	kindBool
	kindInt
	kindFloat
	kindDuration
)

// keySpec declares one config key: its flag, default, and validation.
type keySpec struct {
	name  string
	short string
	kind  kind
	def   any
	usage string
	enum  []string
	min   int
}

var keys = []keySpec{
	{name: "verbose", short: "v", kind: kindBool, def: false, usage: "enable verbose logging (debug level)"},
	{name: "log_format", kind: kindString, def: "text", usage: "log format: text, json", enum: logger.Formats()},
	{name: "output", short: "o", kind: kindString, def: string(output.FormatText), usage: "output format: text, json, plain", enum: output.Formats()},
	{name: "listen", kind: kindString, def: ":8080", usage: "HTTP listen address for serve"},
	{name: "livemode", kind: kindBool, def: false, usage: "report livemode=true and hide internal error details"},
	{name: "proxy", kind: kindString, def: "", usage: "proxy URL for DNS and DoH traffic (http, https, socks5)"},
	{name: "user_agent", kind: kindString, def: "", usage: "User-Agent for DoH requests, or a browser preset (chrome, firefox, safari)"},
	{name: "dns_backend", kind: kindString, def: BackendSystem, usage: "MX lookup backend: system, udp, doh", enum: []string{BackendSystem, BackendUDP, BackendDoH}},
	{name: "dns_server", kind: kindString, def: "", usage: "DNS server for the udp backend (host[:port])"},
	{name: "doh_url", kind: kindString, def: doh.DefaultURL, usage: "DNS-over-HTTPS endpoint for the doh backend"},
	{name: "dns_rps", kind: kindFloat, def: doh.DefaultRPS, usage: "maximum DNS queries per second for udp and doh backends (0 = unlimited)"},
	{name: "dns_timeout", kind: kindDuration, def: domain.DefaultTimeout, usage: "deadline for a single MX lookup"},
	{name: "cache_ttl", kind: kindDuration, def: dnscache.DefaultTTL, usage: "lifetime of cached MX lookups"},
	{name: "negative_cache_ttl", kind: kindDuration, def: dnscache.DefaultNegativeTTL, usage: "lifetime of cached failed lookups"},
	{name: "chunk_size", kind: kindInt, def: worker.DefaultSize, usage: "emails validated concurrently per batch chunk", min: 1},
	{name: "chunk_delay", kind: kindDuration, def: worker.DefaultDelay, usage: "pause between batch chunks"},
	{name: "max_emails", kind: kindInt, def: extract.DefaultMaxEmails, usage: "maximum emails validated per uploaded file", min: 1},
	{name: "max_file_size_mb", kind: kindInt, def: extract.DefaultMaxFileSizeMB, usage: "maximum upload size in MB", min: 1},
	{name: "check_smtp", kind: kindBool, def: false, usage: "report checks.smtp (derived from MX presence)"},
	{name: "artifact_dir", kind: kindString, def: "", usage: "directory for generated download files (default: OS temp dir)"},
}
