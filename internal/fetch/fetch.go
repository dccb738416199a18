// Package fetch downloads runtime archives to disk.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/aebs/aebs/internal/builderr"
)

// DefaultMaxRedirects bounds redirect chains.
const DefaultMaxRedirects = 10

const defaultUserAgent = "Electron Release Downloader"

// ProgressFunc is called during download with bytes downloaded and total
// size (-1 when the server sent no Content-Length). It runs on the
// downloading goroutine and must return quickly.
type ProgressFunc func(downloaded, total int64)

// HTTPDoer interface for HTTP requests (allows mocking in tests).
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Options configures a Fetcher.
type Options struct {
	HTTP         HTTPDoer // default: client that does not follow redirects itself
	UserAgent    string
	MaxRedirects int
	Logger       *zap.Logger
}

// Fetcher streams remote archives to local files.
type Fetcher struct {
	http         HTTPDoer
	userAgent    string
	maxRedirects int
	log          *zap.Logger
}

// New creates a Fetcher. Redirects are handled by Download so they can be
// counted and logged.
func New(opts Options) *Fetcher {
	f := &Fetcher{
		http:         opts.HTTP,
		userAgent:    opts.UserAgent,
		maxRedirects: opts.MaxRedirects,
		log:          opts.Logger,
	}
	if f.http == nil {
		f.http = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	if f.userAgent == "" {
		f.userAgent = defaultUserAgent
	}
	if f.maxRedirects <= 0 {
		f.maxRedirects = DefaultMaxRedirects
	}
	if f.log == nil {
		f.log = zap.NewNop()
	}
	return f
}

// Download fetches rawURL into dest, following up to the configured number
// of redirects. The body is written to dest+".part" and renamed on success,
// so dest never holds a partial file.
func (f *Fetcher) Download(ctx context.Context, rawURL, dest string, progress ProgressFunc) error {
	current := rawURL
	for hop := 0; ; hop++ {
		resp, err := f.get(ctx, current)
		if err != nil {
			return builderr.WithURL(builderr.ErrDownload, "download", current, err)
		}

		if isRedirect(resp.StatusCode) && resp.Header.Get("Location") != "" {
			next, err := resolveLocation(resp.Request, current, resp.Header.Get("Location"))
			_ = resp.Body.Close()
			if err != nil {
				return builderr.WithURL(builderr.ErrDownload, "follow redirect", current, err)
			}
			if hop+1 > f.maxRedirects {
				return builderr.WithURL(builderr.ErrTooManyRedirects, "download", rawURL,
					fmt.Errorf("stopped after %d redirects", f.maxRedirects))
			}
			f.log.Debug("following redirect", zap.String("from", current), zap.String("to", next), zap.Int("hop", hop+1))
			current = next
			continue
		}

		err = f.save(resp, current, dest, progress)
		_ = resp.Body.Close()
		return err
	}
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/octet-stream")
	return f.http.Do(req)
}

func (f *Fetcher) save(resp *http.Response, rawURL, dest string, progress ProgressFunc) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &builderr.Error{
			Kind:   builderr.ErrDownload,
			Op:     "download",
			URL:    rawURL,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}

	part := dest + ".part"
	out, err := os.Create(part)
	if err != nil {
		return builderr.WithPath(builderr.ErrDownload, "create", part, err)
	}

	var reader io.Reader = resp.Body
	if progress != nil {
		reader = &progressReader{
			reader:   resp.Body,
			total:    resp.ContentLength,
			progress: progress,
		}
	}

	written, copyErr := io.Copy(out, reader)
	closeErr := out.Close()
	if copyErr == nil && resp.ContentLength > 0 && written != resp.ContentLength {
		copyErr = fmt.Errorf("short body: got %d of %d bytes", written, resp.ContentLength)
	}
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(part)
		return builderr.WithURL(builderr.ErrDownload, "download", rawURL, copyErr)
	}

	if err := os.Rename(part, dest); err != nil {
		_ = os.Remove(part)
		return builderr.WithPath(builderr.ErrDownload, "finalize download", dest, err)
	}
	f.log.Debug("download complete", zap.String("url", rawURL), zap.String("dest", dest), zap.Int64("bytes", written))
	return nil
}

func isRedirect(code int) bool {
	return code >= 300 && code < 400
}

func resolveLocation(req *http.Request, current, location string) (string, error) {
	var base *url.URL
	if req != nil && req.URL != nil {
		base = req.URL
	} else {
		u, err := url.Parse(current)
		if err != nil {
			return "", err
		}
		base = u
	}
	loc, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid Location %q: %w", location, err)
	}
	return base.ResolveReference(loc).String(), nil
}

// progressReader wraps a reader to report download progress.
type progressReader struct {
	reader   io.Reader
	total    int64
	current  int64
	progress ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	if n > 0 && pr.progress != nil {
		pr.progress(pr.current, pr.total)
	}
	return n, err
}

// IsCanceled reports whether err came from a canceled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
