package catalog

// Release represents a runtime release in the remote catalog
type Release struct {
	TagName    string  `json:"tag_name" yaml:"tag_name"`
	Name       string  `json:"name,omitempty" yaml:"name,omitempty"`
	Prerelease bool    `json:"prerelease" yaml:"prerelease"`
	Draft      bool    `json:"draft,omitempty" yaml:"draft,omitempty"`
	Assets     []Asset `json:"assets" yaml:"assets"`
}

// Asset represents a release asset (runtime archive)
type Asset struct {
	Name               string `json:"name" yaml:"name"`
	URL                string `json:"url" yaml:"url"`
	BrowserDownloadURL string `json:"browser_download_url,omitempty" yaml:"browser_download_url,omitempty"`
	Size               int64  `json:"size" yaml:"size"`
}

// DownloadURL returns the URL to fetch the asset bytes from. The API URL
// needs an octet-stream Accept header and redirects to storage.
func (a Asset) DownloadURL() string {
	if a.URL != "" {
		return a.URL
	}
	return a.BrowserDownloadURL
}

// Target is the resolved pairing of platform token, release and asset that
// drives one build.
type Target struct {
	Platform string  // e.g. "win32-x64", "darwin-arm64"
	Release  Release
	Asset    Asset
}
