// Package archive downloads the yearly archives and keeps the extracted XML
// documents in a local cache directory.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/runnerr0/dailyverse/internal/logging"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultURLTemplate    = "https://www.losungen.de/fileadmin/media-losungen/download/Losung_%d_XML.zip"
	DefaultDataset        = "losungen"
	DefaultConnectTimeout = 15 * time.Second
	DefaultReadTimeout    = 15 * time.Second
)

// Options configures a Fetcher.
type Options struct {
	// URLTemplate is formatted with the year to build the download URL.
	URLTemplate    string
	Dir            string
	Dataset        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	// Client overrides the HTTP client built from the timeouts.
	Client *http.Client
	Logger *slog.Logger
}

// Fetcher downloads yearly archives into Dir as <dataset>_<year>.xml.
type Fetcher struct {
	urlTemplate string
	dir         string
	dataset     string
	client      *http.Client
	log         *slog.Logger
}

// NewFetcher creates a Fetcher from opts.
func NewFetcher(opts Options) *Fetcher {
	f := &Fetcher{
		urlTemplate: opts.URLTemplate,
		dir:         opts.Dir,
		dataset:     opts.Dataset,
		client:      opts.Client,
		log:         logging.OrDiscard(opts.Logger).With("component", "archive"),
	}
	if f.urlTemplate == "" {
		f.urlTemplate = DefaultURLTemplate
	}
	if f.dataset == "" {
		f.dataset = DefaultDataset
	}
	if f.client == nil {
		f.client = newHTTPClient(opts.ConnectTimeout, opts.ReadTimeout)
	}
	return f
}

func newHTTPClient(connect, read time.Duration) *http.Client {
	if connect <= 0 {
		connect = DefaultConnectTimeout
	}
	if read <= 0 {
		read = DefaultReadTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connect}).DialContext
	transport.TLSHandshakeTimeout = connect
	transport.ResponseHeaderTimeout = read
	return &http.Client{Transport: transport}
}

// Path returns the cache file for year.
func (f *Fetcher) Path(year int) string {
	return filepath.Join(f.dir, fmt.Sprintf("%s_%d.xml", f.dataset, year))
}

// Exists reports whether the document for year has been downloaded.
func (f *Fetcher) Exists(year int) bool {
	info, err := os.Stat(f.Path(year))
	return err == nil && info.Mode().IsRegular()
}

// Remove deletes the cached document for year. A missing file is not an
// error.
func (f *Fetcher) Remove(year int) error {
	if err := os.Remove(f.Path(year)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing cached archive %d: %w", year, err)
	}
	return nil
}

// Years lists the years with a cached document, ascending.
func (f *Fetcher) Years() ([]int, error) {
	matches, err := filepath.Glob(filepath.Join(f.dir, f.dataset+"_*.xml"))
	if err != nil {
		return nil, err
	}
	prefix := f.dataset + "_"
	years := []int{}
	for _, m := range matches {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix), ".xml")
		year, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		years = append(years, year)
	}
	sort.Ints(years)
	return years, nil
}

// EnsureYear makes sure the document for year is cached. It returns true
// only when this call downloaded it; an existing file, a failed request or an
// unusable archive all return false. Failures are logged, never returned.
func (f *Fetcher) EnsureYear(ctx context.Context, year int) bool {
	if f.Exists(year) {
		return false
	}

	if err := f.download(ctx, year); err != nil {
		f.log.Warn("archive download failed", "year", year, "error", err)
		return false
	}
	f.log.Info("archive cached", "year", year, "path", f.Path(year))
	return true
}

func (f *Fetcher) download(ctx context.Context, year int) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	url := fmt.Sprintf(f.urlTemplate, year)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GET %s: HTTP %d", url, resp.StatusCode)
	}

	spool, err := os.CreateTemp(f.dir, ".download-*.zip")
	if err != nil {
		return fmt.Errorf("creating spool file: %w", err)
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	size, err := io.Copy(spool, resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	zr, err := zip.NewReader(spool, size)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}

	entry := firstXMLEntry(zr)
	if entry == nil {
		return fmt.Errorf("archive for %d has no xml document", year)
	}
	return f.extract(entry, f.Path(year))
}

// firstXMLEntry returns the first regular file in archive order whose name
// ends in .xml, ignoring case.
func firstXMLEntry(zr *zip.Reader) *zip.File {
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() || strings.HasSuffix(zf.Name, "/") {
			continue
		}
		if strings.HasSuffix(strings.ToLower(zf.Name), ".xml") {
			return zf
		}
	}
	return nil
}

// extract copies entry to dest through a temp file so dest only ever holds
// a complete document.
func (f *Fetcher) extract(entry *zip.File, dest string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", entry.Name, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(f.dir, ".extract-*.xml")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		return fmt.Errorf("extracting %s: %w", entry.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("moving %s into place: %w", entry.Name, err)
	}
	committed = true
	return nil
}
