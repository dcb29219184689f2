package models

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// voskRequired are the files every Vosk model directory contains.
var voskRequired = []string{
	filepath.Join("am", "final.mdl"),
	filepath.Join("conf", "model.conf"),
}

// ErrInvalidModel is returned when a Vosk directory is missing required files.
var ErrInvalidModel = errors.New("models: invalid model directory")

// Manager stores models in Dir.
type Manager struct {
	Dir    string
	Client *http.Client
}

// NewManager returns a Manager for dir using http.DefaultClient.
func NewManager(dir string) *Manager {
	return &Manager{Dir: dir, Client: http.DefaultClient}
}

// Path returns where info is stored.
func (m *Manager) Path(info Info) string {
	return filepath.Join(m.Dir, info.Name)
}

// IsDownloaded reports whether info is present and complete.
func (m *Manager) IsDownloaded(info Info) bool {
	path := m.Path(info)
	if info.Archive {
		return ValidateVoskDir(path) == nil
	}
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular() && st.Size() > 0
}

// Download fetches info into Dir unless it is already there and returns
// its path. Progress lines are written to progress, which may be nil.
func (m *Manager) Download(ctx context.Context, info Info, progress io.Writer) (string, error) {
	if progress == nil {
		progress = io.Discard
	}
	dest := m.Path(info)
	if m.IsDownloaded(info) {
		fmt.Fprintf(progress, "  %s already exists: %s\n", info.ID, dest)
		return dest, nil
	}
	if err := os.MkdirAll(m.Dir, 0755); err != nil {
		return "", fmt.Errorf("models: creating models dir: %w", err)
	}

	fmt.Fprintf(progress, "  Downloading %s\n", info.ID)
	fmt.Fprintf(progress, "  URL: %s\n", info.URL)
	fmt.Fprintf(progress, "  Destination: %s\n", dest)

	// Write to a temp file first, then rename or extract.
	tmpPath := dest + ".tmp"
	if info.Archive {
		tmpPath = dest + ".zip.tmp"
	}
	written, err := m.fetch(ctx, info, tmpPath, progress)
	if err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	fmt.Fprintf(progress, "\n  Downloaded %.1f MB\n", float64(written)/(1024*1024))

	if info.Archive {
		defer os.Remove(tmpPath)
		if err := m.install(tmpPath, dest); err != nil {
			return "", err
		}
		return dest, nil
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("models: moving model file: %w", err)
	}
	return dest, nil
}

func (m *Manager) fetch(ctx context.Context, info Info, path string, progress io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("models: %w", err)
	}
	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("models: downloading %s: %w", info.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("models: downloading %s: HTTP %d", info.ID, resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("models: creating temp file: %w", err)
	}
	pw := &progressWriter{
		writer: f,
		out:    progress,
		total:  resp.ContentLength,
		label:  info.Name,
	}
	written, err := io.Copy(pw, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("models: writing model file: %w", err)
	}
	return written, nil
}

// install extracts the archive into a staging directory, validates it and
// moves the model directory to dest.
func (m *Manager) install(archive, dest string) error {
	staging, err := os.MkdirTemp(m.Dir, ".extract-*")
	if err != nil {
		return fmt.Errorf("models: creating staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := extractZip(archive, staging); err != nil {
		return err
	}

	// Archives normally hold a single top-level directory named after
	// the model.
	root := staging
	if entries, err := os.ReadDir(staging); err == nil && len(entries) == 1 && entries[0].IsDir() {
		root = filepath.Join(staging, entries[0].Name())
	}
	if err := ValidateVoskDir(root); err != nil {
		return err
	}

	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("models: replacing %s: %w", dest, err)
	}
	if err := os.Rename(root, dest); err != nil {
		return fmt.Errorf("models: moving model dir: %w", err)
	}
	return nil
}

// extractZip unpacks src into dir. Entries that would escape dir are
// rejected.
func extractZip(src, dir string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("models: opening archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		name := filepath.FromSlash(f.Name)
		if !filepath.IsLocal(name) {
			return fmt.Errorf("models: archive entry %q escapes the target directory", f.Name)
		}
		target := filepath.Join(dir, name)

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("models: %w", err)
			}
			continue
		}
		if !f.Mode().IsRegular() {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("models: %w", err)
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	in, err := f.Open()
	if err != nil {
		return fmt.Errorf("models: reading %s: %w", f.Name, err)
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("models: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("models: extracting %s: %w", f.Name, err)
	}
	return out.Close()
}

// ValidateVoskDir checks that dir looks like an unpacked Vosk model.
func ValidateVoskDir(dir string) error {
	var missing []string
	for _, rel := range voskRequired {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			missing = append(missing, filepath.ToSlash(rel))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s missing %s", ErrInvalidModel, dir, strings.Join(missing, ", "))
	}
	return nil
}

// Delete removes a downloaded model.
func (m *Manager) Delete(info Info) error {
	if err := os.RemoveAll(m.Path(info)); err != nil {
		return fmt.Errorf("models: deleting %s: %w", info.ID, err)
	}
	return nil
}

// progressWriter wraps an io.Writer and prints download progress to out.
type progressWriter struct {
	writer  io.Writer
	out     io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}
