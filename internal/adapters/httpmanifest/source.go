// Package httpmanifest implements ports.ManifestSource over a plain HTTP GET
// of a KEY=VALUE text manifest, the deployment-coordinator-facing twin of the
// teacher's polymarket HTTP client.
package httpmanifest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/lbf-labs/rebalancer/internal/domain"
	"github.com/lbf-labs/rebalancer/internal/ports"
)

var keyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^LBF_CHILD_POOL_(.+)$`),
	regexp.MustCompile(`^LBF_PARENT_POOL_(.+)$`),
	regexp.MustCompile(`^USDC_(.+)$`),
	regexp.MustCompile(`^IOU_(.+)$`),
}

// Source fetches a single manifest URL and parses its KEY=VALUE lines.
// One Source is built per manifest (pools, tokens).
type Source struct {
	url    string
	client *http.Client
}

func New(url string, timeout time.Duration) *Source {
	return &Source{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// FetchManifest implements ports.ManifestSource.
func (s *Source) FetchManifest(ctx context.Context) ([]ports.ManifestEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, domain.NewError(domain.ErrManifestFetchFailed, "httpmanifest.FetchManifest", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.NewError(domain.ErrManifestFetchFailed, "httpmanifest.FetchManifest", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewError(domain.ErrManifestFetchFailed, "httpmanifest.FetchManifest",
			fmt.Errorf("unexpected status %d from %s", resp.StatusCode, s.url))
	}

	return parseLines(resp.Body)
}

func parseLines(r io.Reader) ([]ports.ManifestEntry, error) {
	scanner := bufio.NewScanner(r)
	entries := make([]ports.ManifestEntry, 0, 16)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		network, matched := matchNetwork(key)
		if !matched {
			continue
		}

		entries = append(entries, ports.ManifestEntry{Key: key, Value: value, Network: network})
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.NewError(domain.ErrManifestFetchFailed, "httpmanifest.parseLines", err)
	}
	return entries, nil
}

// matchNetwork tries each recognized key pattern in turn and returns the
// network name captured by whichever one matches first.
func matchNetwork(key string) (domain.NetworkName, bool) {
	for _, pattern := range keyPatterns {
		if m := pattern.FindStringSubmatch(key); m != nil {
			return domain.NetworkName(m[1]), true
		}
	}
	return "", false
}
