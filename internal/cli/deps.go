package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tbckr/mailcheck/internal/artifact"
	"github.com/tbckr/mailcheck/internal/batch"
	"github.com/tbckr/mailcheck/internal/config"
	"github.com/tbckr/mailcheck/internal/dnscache"
	"github.com/tbckr/mailcheck/internal/doh"
	"github.com/tbckr/mailcheck/internal/extract"
	"github.com/tbckr/mailcheck/internal/httpclient"
	"github.com/tbckr/mailcheck/internal/logger"
	"github.com/tbckr/mailcheck/internal/output"
	"github.com/tbckr/mailcheck/internal/ratelimit"
	"github.com/tbckr/mailcheck/internal/resolver"
	"github.com/tbckr/mailcheck/internal/services"
	"github.com/tbckr/mailcheck/internal/services/domain"
	"github.com/tbckr/mailcheck/internal/services/email"
	"github.com/tbckr/mailcheck/internal/worker"
)

// resolverBurst is the token bucket capacity for paced DNS backends.
const resolverBurst = doh.DefaultBurst

// deps holds fully-resolved runtime dependencies for a subcommand.
type deps struct {
	cfg    *config.Config
	logger *slog.Logger
	format output.Format
}

// buildDeps resolves config, logger and output format.
func buildDeps(cmd *cobra.Command, stderr io.Writer) (*deps, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := "info"
	if cfg.Verbose {
		level = "debug"
	}
	log, _, err := logger.New(stderr, logger.Config{Level: level, Format: cfg.LogFormat})
	if err != nil {
		return nil, err
	}

	format, err := output.ParseFormat(cfg.Output)
	if err != nil {
		return nil, err
	}

	log.Debug("configuration loaded",
		"file", cfg.ConfigFile,
		"dns_backend", cfg.DNSBackend,
		"output", cfg.Output,
		"proxy", cfg.Proxy != "",
	)
	return &deps{cfg: cfg, logger: log, format: format}, nil
}

// newMXResolver builds the lookup backend selected by dns_backend.
func (d *deps) newMXResolver() (services.MXResolver, error) {
	switch d.cfg.DNSBackend {
	case config.BackendUDP:
		wire := resolver.NewWire(d.cfg.DNSServer, d.cfg.DNSTimeout)
		d.logger.Debug("using wire DNS backend", "server", wire.Server())
		return ratelimit.WrapResolver(wire, ratelimit.New(d.cfg.DNSRPS, resolverBurst)), nil
	case config.BackendDoH:
		client, err := httpclient.New(d.cfg.Proxy, d.cfg.UserAgent, d.logger, d.cfg.Verbose)
		if err != nil {
			return nil, fmt.Errorf("creating HTTP client: %w", err)
		}
		httpclient.AttachRateLimit(client, ratelimit.New(d.cfg.DNSRPS, resolverBurst), d.logger)
		r := doh.NewResolver(client, d.cfg.DoHURL)
		d.logger.Debug("using DoH backend", "url", r.URL())
		return r, nil
	default:
		r, err := resolver.NewResolver(d.cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("creating DNS resolver: %w", err)
		}
		return r, nil
	}
}

// validators bundles the service graph shared by every subcommand.
type validators struct {
	domains *domain.Service
	emails  *email.Service
	batch   *batch.Orchestrator
	store   *artifact.Store
}

// newValidators wires resolver, cache, validators and the batch
// orchestrator. withStore additionally opens the artifact store.
func (d *deps) newValidators(withStore bool) (*validators, error) {
	mx, err := d.newMXResolver()
	if err != nil {
		return nil, err
	}

	cache := dnscache.New(
		dnscache.WithTTL(d.cfg.CacheTTL),
		dnscache.WithNegativeTTL(d.cfg.NegativeCacheTTL),
	)
	domains := domain.NewService(mx, cache, logger.WithService(d.logger, domain.Name),
		domain.WithTimeout(d.cfg.DNSTimeout))
	emails := email.NewService(domains, logger.WithService(d.logger, email.Name),
		email.WithSMTPCheck(d.cfg.CheckSMTP))

	v := &validators{domains: domains, emails: emails}

	opts := []batch.Option{batch.WithLimits(extract.Limits{
		MaxEmails:     d.cfg.MaxEmails,
		MaxFileSizeMB: d.cfg.MaxFileSizeMB,
	})}
	if withStore {
		store, err := artifact.NewStore(d.cfg.ArtifactDir, d.logger)
		if err != nil {
			return nil, err
		}
		v.store = store
		opts = append(opts, batch.WithArtifactStore(store))
	}

	pool := worker.NewPool(d.cfg.ChunkSize, d.cfg.ChunkDelay, d.logger)
	v.batch = batch.NewOrchestrator(emails, pool, logger.WithService(d.logger, "batch"), opts...)
	return v, nil
}
