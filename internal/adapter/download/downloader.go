// Package download fetches catalog sources over HTTP into the raw data
// directory, records their provenance, and hands them to artifact stores.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/rio-sonora-etl/internal/catalog"
	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
	"github.com/couchcryptid/rio-sonora-etl/internal/observability"
)

const (
	infoHeading     = "Information from water quality monitoring sites operated by Conagua throughout the country"
	timestampLayout = "2006-01-02 15:04:05"
	maxBackoff      = 30 * time.Second
)

// ArtifactStore versions or uploads a file once it is on disk.
type ArtifactStore interface {
	Name() string
	Track(ctx context.Context, a domain.Artifact) error
}

// Converter turns a downloaded file into the format the pipeline reads.
type Converter interface {
	Convert(ctx context.Context, src, dst string) error
}

// Options configures a Downloader.
type Options struct {
	Dir     string
	Timeout time.Duration

	// Retries is the number of attempts per source; values below one mean one.
	Retries int

	// Backoff is the wait before the first retry; it doubles up to 30s.
	Backoff time.Duration

	// Converter handles sources whose LocalFile differs from File. Nil
	// leaves them unconverted.
	Converter Converter

	Stores []ArtifactStore
	RunID  string
}

// Result describes what Fetch did for one source.
type Result struct {
	Path      string
	Skipped   bool
	Bytes     int64
	Converted string
}

// Downloader fetches catalog sources.
type Downloader struct {
	client  *http.Client
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Downloader writing into opts.Dir.
func New(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Downloader {
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	return &Downloader{
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// FetchAll fetches every source in order and stops at the first failure.
func (d *Downloader) FetchAll(ctx context.Context, sources catalog.Catalog) ([]Result, error) {
	if len(sources) == 0 {
		d.logger.Warn("catalog is empty, nothing to download")
		return nil, nil
	}
	results := make([]Result, 0, len(sources))
	for _, src := range sources {
		res, err := d.Fetch(ctx, src)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	d.logger.Info("all files downloaded", "count", len(results))
	return results, nil
}

// Fetch downloads src unless its file already exists. A fresh download gets
// an info sidecar, is converted when needed, and is tracked by every store.
func (d *Downloader) Fetch(ctx context.Context, src catalog.Source) (Result, error) {
	path := filepath.Join(d.opts.Dir, src.File)
	res := Result{Path: path}

	if _, err := os.Stat(path); err == nil {
		d.logger.Info("file already exists, skipping download", "file", src.File, "dir", d.opts.Dir)
		d.metrics.Downloads.WithLabelValues("skipped").Inc()
		res.Skipped = true
		converted, err := d.convert(ctx, src)
		res.Converted = converted
		return res, err
	}

	if err := os.MkdirAll(d.opts.Dir, 0o755); err != nil {
		return res, fmt.Errorf("create %s: %w", d.opts.Dir, err)
	}

	d.logger.Info("starting download", "source", src.Name, "url", src.URL)
	n, err := d.fetchWithRetry(ctx, src.URL, path)
	if err != nil {
		d.metrics.Downloads.WithLabelValues("error").Inc()
		return res, fmt.Errorf("download %s: %w", src.Name, err)
	}
	res.Bytes = n
	d.metrics.Downloads.WithLabelValues("downloaded").Inc()
	d.metrics.BytesDownloaded.Add(float64(n))
	d.logger.Info("download completed", "path", path, "bytes", n)

	if err := writeInfo(d.opts.Dir, src); err != nil {
		return res, err
	}

	converted, err := d.convert(ctx, src)
	if err != nil {
		return res, err
	}
	res.Converted = converted

	art := domain.NewArtifact(d.opts.RunID, src.Family, domain.ArtifactRaw, path)
	for _, s := range d.opts.Stores {
		if err := s.Track(ctx, art); err != nil {
			d.metrics.ArtifactsStored.WithLabelValues(s.Name(), "error").Inc()
			return res, fmt.Errorf("track %s in %s: %w", path, s.Name(), err)
		}
		d.metrics.ArtifactsStored.WithLabelValues(s.Name(), "success").Inc()
	}
	return res, nil
}

func (d *Downloader) convert(ctx context.Context, src catalog.Source) (string, error) {
	if src.LocalFile() == src.File || d.opts.Converter == nil {
		return "", nil
	}
	dst := filepath.Join(d.opts.Dir, src.LocalFile())
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}
	in := filepath.Join(d.opts.Dir, src.File)
	d.logger.Info("converting workbook", "from", in, "to", dst)
	if err := d.opts.Converter.Convert(ctx, in, dst); err != nil {
		return "", fmt.Errorf("convert %s: %w", in, err)
	}
	return dst, nil
}

// errPermanent marks responses that retrying cannot fix.
var errPermanent = errors.New("permanent failure")

func (d *Downloader) fetchWithRetry(ctx context.Context, url, path string) (int64, error) {
	backoff := d.opts.Backoff
	var lastErr error
	for attempt := 1; attempt <= d.opts.Retries; attempt++ {
		n, err := d.fetch(ctx, url, path)
		if err == nil {
			return n, nil
		}
		lastErr = err
		if errors.Is(err, errPermanent) || ctx.Err() != nil || attempt == d.opts.Retries {
			break
		}
		d.logger.Warn("download attempt failed, retrying", "url", url, "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return 0, ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return 0, lastErr
}

// fetch streams url into a temporary file next to path and renames it into
// place, so an interrupted download never leaves a file that looks complete.
func (d *Downloader) fetch(ctx context.Context, url, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w: %w", errPermanent, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode < http.StatusInternalServerError && resp.StatusCode != http.StatusTooManyRequests {
			err = fmt.Errorf("%w: %w", errPermanent, err)
		}
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.part")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return 0, fmt.Errorf("short body: got %d of %d bytes", n, resp.ContentLength)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	return n, nil
}

// writeInfo records where and when a source was downloaded in <stem>.txt.
func writeInfo(dir string, src catalog.Source) error {
	path := filepath.Join(dir, src.Stem()+".txt")
	var b strings.Builder
	b.WriteString(infoHeading + "\n\n")
	b.WriteString(src.Info + "\n")
	b.WriteString("Downloaded on " + domain.Now().Format(timestampLayout) + "\n")
	b.WriteString("From: " + src.URL + "\n")
	b.WriteString("Name: " + src.File + "\n")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write info %s: %w", path, err)
	}
	return nil
}
