package deployment

import (
	"strings"

	"github.com/lbf-labs/rebalancer/internal/domain"
	"github.com/lbf-labs/rebalancer/internal/ports"
)

// parseEntries applies the spec's key-matching rules to the combined pools +
// tokens manifest entries and builds a consistent Deployments snapshot.
//
//   - Key containing "PARENT_POOL" → sets the parent pool; a second one is an error.
//   - Key containing "CHILD_POOL"  → inserts into pools, keyed by network.
//   - Key containing "USDC_"       → inserts into usdc.
//   - Key containing "IOU_"        → inserts into iou.
func parseEntries(entries []ports.ManifestEntry) (domain.Deployments, error) {
	out := domain.NewDeployments()
	sawParent := false

	for _, e := range entries {
		addr, err := domain.ParseAddress(e.Value)
		if err != nil {
			return domain.Deployments{}, domain.NewError(domain.ErrManifestParseFailed, "deployment.parseEntries", err)
		}

		switch {
		case strings.Contains(e.Key, "PARENT_POOL"):
			if sawParent {
				return domain.Deployments{}, domain.NewError(domain.ErrDuplicateParentPool, "deployment.parseEntries",
					nil)
			}
			sawParent = true
			out.ParentPool = domain.ParentPool{Network: e.Network, Address: addr}
		case strings.Contains(e.Key, "CHILD_POOL"):
			out.Pools[e.Network] = addr
		case strings.Contains(e.Key, "USDC_"):
			out.USDC[e.Network] = addr
		case strings.Contains(e.Key, "IOU_"):
			out.IOU[e.Network] = addr
		}
	}

	if !sawParent {
		return domain.Deployments{}, domain.NewError(domain.ErrMissingParentPool, "deployment.parseEntries", nil)
	}
	return out, nil
}
