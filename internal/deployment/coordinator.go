package deployment

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lbf-labs/rebalancer/internal/domain"
	"github.com/lbf-labs/rebalancer/internal/ports"
)

// Config controls where a Coordinator sources its deployment data from.
type Config struct {
	Mode domain.Mode
	// StaticDeployments is used verbatim when Mode is domain.ModeLocalhost,
	// bypassing the manifest sources entirely.
	StaticDeployments domain.Deployments
}

// Coordinator resolves the current set of pool and token deployments from the
// pools and tokens manifests, or from a static snapshot in localhost mode.
// Not safe for concurrent use; the core loop is its only caller.
type Coordinator struct {
	cfg    Config
	pools  ports.ManifestSource
	tokens ports.ManifestSource

	current domain.Deployments
}

func New(cfg Config, pools, tokens ports.ManifestSource) *Coordinator {
	return &Coordinator{
		cfg:     cfg,
		pools:   pools,
		tokens:  tokens,
		current: domain.NewDeployments(),
	}
}

// Refresh fetches the pools and tokens manifests in parallel and replaces the
// current snapshot. On any failure the previous snapshot is retained.
func (c *Coordinator) Refresh(ctx context.Context) error {
	if c.cfg.Mode == domain.ModeLocalhost {
		c.current = c.cfg.StaticDeployments.Clone()
		return nil
	}

	var poolEntries, tokenEntries []ports.ManifestEntry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := c.pools.FetchManifest(gctx)
		if err != nil {
			return domain.NewError(domain.ErrManifestFetchFailed, "deployment.Refresh: pools", err)
		}
		poolEntries = entries
		return nil
	})
	g.Go(func() error {
		entries, err := c.tokens.FetchManifest(gctx)
		if err != nil {
			return domain.NewError(domain.ErrManifestFetchFailed, "deployment.Refresh: tokens", err)
		}
		tokenEntries = entries
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	all := make([]ports.ManifestEntry, 0, len(poolEntries)+len(tokenEntries))
	all = append(all, poolEntries...)
	all = append(all, tokenEntries...)

	parsed, err := parseEntries(all)
	if err != nil {
		return fmt.Errorf("deployment.Refresh: %w", err)
	}
	c.current = parsed
	return nil
}

// Snapshot returns a deep copy of the current deployment set.
func (c *Coordinator) Snapshot() domain.Deployments {
	return c.current.Clone()
}
