// Package catalog fetches the runtime release catalog and offers the
// filtered and sorted views used to pick a build target.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/aebs/aebs/internal/builderr"
	"github.com/aebs/aebs/internal/extract"
	"github.com/aebs/aebs/internal/project"
)

const (
	// DefaultEndpoint lists Electron releases.
	DefaultEndpoint = "https://api.github.com/repos/electron/electron/releases"
	// DefaultPrefix is the asset name prefix of Electron runtime archives.
	DefaultPrefix    = "electron"
	defaultUserAgent = "Electron Release Downloader"

	httpTimeout = 30 * time.Second
)

var debugMarkers = []string{"-dsym", "-symbols", "-pdb"}

// HTTPDoer interface for HTTP requests (allows mocking in tests).
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client fetches release catalogs.
type Client struct {
	HTTP      HTTPDoer
	UserAgent string
}

// NewClient creates a catalog client with a default HTTP client.
func NewClient(userAgent string) *Client {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{HTTP: &http.Client{Timeout: httpTimeout}, UserAgent: userAgent}
}

// FetchReleases gets the full release list from endpoint in a single
// request. Pagination is not followed.
func (c *Client) FetchReleases(ctx context.Context, endpoint string) ([]Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, builderr.WithURL(builderr.ErrCatalogFetch, "build catalog request", endpoint, err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", c.userAgent())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, builderr.WithURL(builderr.ErrCatalogFetch, "fetch releases", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &builderr.Error{
			Kind:   builderr.ErrCatalogFetch,
			Op:     "fetch releases",
			URL:    endpoint,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("GitHub API error: %s", resp.Status),
		}
	}

	var releases []Release
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, builderr.WithURL(builderr.ErrCatalogFetch, "parse releases", endpoint, err)
	}
	return releases, nil
}

func (c *Client) userAgent() string {
	if c.UserAgent == "" {
		return defaultUserAgent
	}
	return c.UserAgent
}

// Partition splits releases into stable and pre-release sets, keeping
// catalog order within each.
func Partition(releases []Release) (stable, prerelease []Release) {
	for _, r := range releases {
		if r.Prerelease {
			prerelease = append(prerelease, r)
		} else {
			stable = append(stable, r)
		}
	}
	return stable, prerelease
}

// SortedTags returns the tags of releases in lexicographic order.
func SortedTags(releases []Release) []string {
	tags := make([]string, 0, len(releases))
	for _, r := range releases {
		tags = append(tags, r.TagName)
	}
	sort.Strings(tags)
	return tags
}

// SelectAssets keeps the runtime archives of release: names of the form
// <prefix>-<tag>-<os>-<arch>.<ext>, where ext is any archive format the
// extractor reads, without debug-symbol variants.
func SelectAssets(release Release, prefix string) []Asset {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	head := prefix + "-" + release.TagName + "-"

	var out []Asset
	for _, a := range release.Assets {
		if !strings.HasPrefix(a.Name, head) || extract.DetectFormat(a.Name) == extract.FormatUnknown {
			continue
		}
		if isDebugAsset(a.Name) {
			continue
		}
		if len(project.ArchiveBase(a.Name)) <= len(head) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func isDebugAsset(name string) bool {
	for _, m := range debugMarkers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// PlatformToken extracts the <os>-<arch> portion of a runtime asset name
// (electron-v3.0.7-win32-x64.zip -> win32-x64).
func PlatformToken(release Release, asset Asset, prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return strings.TrimPrefix(project.ArchiveBase(asset.Name), prefix+"-"+release.TagName+"-")
}

// Platforms lists the platform tokens available in release, once each.
func Platforms(release Release, prefix string) []string {
	assets := SelectAssets(release, prefix)
	out := make([]string, 0, len(assets))
	seen := make(map[string]bool, len(assets))
	for _, a := range assets {
		token := PlatformToken(release, a, prefix)
		if !seen[token] {
			seen[token] = true
			out = append(out, token)
		}
	}
	return out
}

// FindRelease returns the release tagged tag; a missing 'v' prefix is
// tolerated.
func FindRelease(releases []Release, tag string) (*Release, error) {
	want := ensureV(tag)
	for i := range releases {
		if releases[i].TagName == tag || releases[i].TagName == want {
			return &releases[i], nil
		}
	}
	return nil, fmt.Errorf("release %s not found", tag)
}

// LatestStable returns the stable release with the highest semantic
// version. Tags that are not valid semver are ignored.
func LatestStable(releases []Release) (*Release, error) {
	var best *Release
	for i := range releases {
		r := &releases[i]
		if r.Prerelease || r.Draft || !semver.IsValid(ensureV(r.TagName)) {
			continue
		}
		if best == nil || semver.Compare(ensureV(r.TagName), ensureV(best.TagName)) > 0 {
			best = r
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no stable release found")
	}
	return best, nil
}

// SelectRelease returns the release for tag; "latest" or an empty tag
// selects the newest stable release.
func SelectRelease(releases []Release, tag string) (*Release, error) {
	if tag == "" || tag == "latest" {
		return LatestStable(releases)
	}
	return FindRelease(releases, tag)
}

// ResolveTarget picks the release for tag and its asset for platform. When
// a platform ships in several formats the zip archive wins.
func ResolveTarget(releases []Release, tag, platform, prefix string) (Target, error) {
	rel, err := SelectRelease(releases, tag)
	if err != nil {
		return Target{}, err
	}

	var best *Asset
	for _, a := range SelectAssets(*rel, prefix) {
		if PlatformToken(*rel, a, prefix) != platform {
			continue
		}
		if best == nil || extract.DetectFormat(a.Name) < extract.DetectFormat(best.Name) {
			best = &a
		}
	}
	if best != nil {
		return Target{Platform: platform, Release: *rel, Asset: *best}, nil
	}
	return Target{}, fmt.Errorf("no runtime archive for %s in release %s (available: %s)",
		platform, rel.TagName, strings.Join(Platforms(*rel, prefix), ", "))
}

func ensureV(tag string) string {
	if strings.HasPrefix(tag, "v") {
		return tag
	}
	return "v" + tag
}
