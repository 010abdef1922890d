// Package pdf implements the three PDF-related command-surface operations
// (spec §6): download-PDF, get-PDF-local-path, open-local-file. The
// download/cache-directory shape mirrors internal/latex.Downloader's
// DownloadSource exactly (an on-disk cache keyed by arxiv id, re-used across
// calls), generalized from an e-print tarball to a single PDF file.
package pdf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

// Fetcher downloads and caches paper PDFs under a configured directory.
type Fetcher struct {
	http *http.Client
}

// NewFetcher builds a Fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Fetcher{http: &http.Client{Timeout: timeout}}
}

// LocalPath returns the path a PDF for arxivID would live at under dir,
// without touching the filesystem.
func LocalPath(dir, arxivID string) string {
	return filepath.Join(dir, arxivID+".pdf")
}

// Exists reports whether a PDF for arxivID is already cached under dir.
func Exists(dir, arxivID string) bool {
	info, err := os.Stat(LocalPath(dir, arxivID))
	return err == nil && !info.IsDir()
}

// Download fetches pdfURL into dir/<arxivID>.pdf, reusing an existing file
// when already cached. Returns the local path.
func (f *Fetcher) Download(ctx context.Context, arxivID, pdfURL, dir string) (string, error) {
	target := LocalPath(dir, arxivID)
	if Exists(dir, arxivID) {
		return target, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return "", fmt.Errorf("pdf: build request: %w", err)
	}
	req.Header.Set("User-Agent", "PaperFuse/1.0 (https://github.com/paperfuse)")

	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("pdf: download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pdf: download: HTTP %d", resp.StatusCode)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("pdf: create cache dir: %w", err)
	}

	tmp := target + ".part"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("pdf: create file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	out.Close()

	if err := os.Rename(tmp, target); err != nil {
		return "", fmt.Errorf("pdf: finalize file: %w", err)
	}
	return target, nil
}

// OpenLocalFile opens path in the OS default handler for its file type.
// There is no cross-platform stdlib primitive for this (it is inherently an
// os/exec shell-out to the platform opener), so this stays on exec.Command
// rather than reaching for a library.
func OpenLocalFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("pdf: open local file: %w", err)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("pdf: open local file: %w", err)
	}
	return nil
}
