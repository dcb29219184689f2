package models

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

// voskZip builds an archive with a single model directory.
func voskZip(t *testing.T, root string, extra map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		root + "/am/final.mdl":    "mdl",
		root + "/conf/model.conf": "--sample-frequency=16000",
		root + "/README":          "readme",
	}
	for k, v := range extra {
		files[k] = v
	}
	if _, err := zw.Create(root + "/"); err != nil {
		t.Fatal(err)
	}
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(body))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// rewriteTransport sends every request to target, keeping the path.
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = rt.target.Scheme
	r.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func modelServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	zipData := voskZip(t, DefaultVosk, nil)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		switch {
		case strings.HasSuffix(r.URL.Path, ".bin"):
			w.Write(bytes.Repeat([]byte{1}, 2048))
		case strings.HasSuffix(r.URL.Path, ".zip"):
			w.Write(zipData)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func testManager(t *testing.T, ts *httptest.Server) *Manager {
	t.Helper()
	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	return &Manager{
		Dir:    filepath.Join(t.TempDir(), "models"),
		Client: &http.Client{Transport: rewriteTransport{target: u}},
	}
}

func TestDownloadWhisper(t *testing.T) {
	var hits atomic.Int32
	m := testManager(t, modelServer(t, &hits))
	info, _ := Whisper("base")

	var progress bytes.Buffer
	path, err := m.Download(context.Background(), info, &progress)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if path != filepath.Join(m.Dir, "ggml-base.bin") {
		t.Errorf("path = %q", path)
	}
	if st, err := os.Stat(path); err != nil || st.Size() != 2048 {
		t.Fatalf("model file: %v, %v", st, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
	if !strings.Contains(progress.String(), "ggml-base.bin") {
		t.Errorf("progress output = %q", progress.String())
	}
	if !m.IsDownloaded(info) {
		t.Error("IsDownloaded() = false after download")
	}

	// A second call is a no-op.
	if _, err := m.Download(context.Background(), info, nil); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}

	if err := m.Delete(info); err != nil {
		t.Fatal(err)
	}
	if m.IsDownloaded(info) {
		t.Error("IsDownloaded() = true after Delete")
	}
}

func TestDownloadVoskExtracts(t *testing.T) {
	m := testManager(t, modelServer(t, nil))
	info, _ := Lookup(DefaultVosk)

	path, err := m.Download(context.Background(), info, nil)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if err := ValidateVoskDir(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(path, "README")); err != nil {
		t.Errorf("README not extracted: %v", err)
	}
	entries, _ := os.ReadDir(m.Dir)
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("models dir has leftovers: %v", names)
	}
}

func TestDownloadHTTPError(t *testing.T) {
	m := testManager(t, modelServer(t, nil))
	info := Info{ID: "missing", Name: "missing.dat", URL: "http://example.invalid/missing.dat"}
	if _, err := m.Download(context.Background(), info, nil); err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("Download() error = %v, want HTTP 404", err)
	}
	if _, err := os.Stat(filepath.Join(m.Dir, "missing.dat.tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind after failure")
	}
}

func TestDownloadCancelled(t *testing.T) {
	m := testManager(t, modelServer(t, nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	info, _ := Whisper("tiny")
	if _, err := m.Download(ctx, info, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Download() error = %v, want context.Canceled", err)
	}
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	data := voskZip(t, "model", map[string]string{"../escape.txt": "x"})
	if err := os.WriteFile(archive, data, 0644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "out")
	// Depending on GODEBUG=zipinsecurepath the reader or extractZip rejects it.
	if err := extractZip(archive, dest); err == nil {
		t.Fatal("extractZip() accepted an entry outside the target directory")
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(err) {
		t.Error("file written outside the target directory")
	}
}

func TestValidateVoskDir(t *testing.T) {
	dir := t.TempDir()
	err := ValidateVoskDir(dir)
	if !errors.Is(err, ErrInvalidModel) {
		t.Fatalf("ValidateVoskDir(empty) = %v, want ErrInvalidModel", err)
	}
	if !strings.Contains(err.Error(), "am/final.mdl") || !strings.Contains(err.Error(), "conf/model.conf") {
		t.Errorf("error does not list missing files: %v", err)
	}

	for _, rel := range voskRequired {
		p := filepath.Join(dir, rel)
		os.MkdirAll(filepath.Dir(p), 0755)
		os.WriteFile(p, []byte("x"), 0644)
	}
	if err := ValidateVoskDir(dir); err != nil {
		t.Errorf("ValidateVoskDir(complete) = %v", err)
	}
}

func TestProgressWriter(t *testing.T) {
	var out, sink bytes.Buffer
	pw := &progressWriter{
		writer: &sink,
		out:    &out,
		total:  100,
		label:  "test",
	}

	data := make([]byte, 50)
	n, err := pw.Write(data)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != 50 {
		t.Errorf("Write() n = %d, want 50", n)
	}
	if pw.written != 50 {
		t.Errorf("written = %d, want 50", pw.written)
	}
	if !strings.Contains(out.String(), "(50%)") {
		t.Errorf("progress = %q, want 50%%", out.String())
	}
}
