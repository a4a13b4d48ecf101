// Package cache implements the content-addressed filesystem cache for the
// three artifact kinds the investigation pipeline re-reads: per-page OCR
// text, fetched portal HTML, and downloaded attachment files.
//
// Every Set writes through to disk immediately; reads never touch the
// network. Corrupt or unreadable entries are treated as misses, never
// surfaced as errors. Concurrent writers to the same key race benignly
// (last write wins) because cached content is idempotent.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// documentExtensions is the fixed probe order for cached attachments. The
// extension stored on first write decides which probe hits.
var documentExtensions = []string{".pdf", ".docx", ".doc"}

// Manager is the filesystem cache rooted at a base directory with one
// subdirectory per artifact kind.
type Manager struct {
	baseDir string
	ocrDir  string
	htmlDir string
	docsDir string
}

// New creates the cache directories under baseDir. An empty baseDir places
// the cache under the system temp directory.
func New(baseDir string) (*Manager, error) {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "tenderscope_cache")
	}
	m := &Manager{
		baseDir: baseDir,
		ocrDir:  filepath.Join(baseDir, "ocr"),
		htmlDir: filepath.Join(baseDir, "html"),
		docsDir: filepath.Join(baseDir, "docs"),
	}
	for _, dir := range []string{m.ocrDir, m.htmlDir, m.docsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
		}
	}
	return m, nil
}

// BaseDir returns the cache root.
func (m *Manager) BaseDir() string { return m.baseDir }

func urlHash(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

type ocrEntry struct {
	Text     string `json:"text"`
	CachedAt string `json:"cached_at"`
	TenderID string `json:"tender_id"`
	RowID    int    `json:"row_id"`
	PageNum  int    `json:"page_num"`
}

type htmlEntry struct {
	HTML     string `json:"html"`
	URL      string `json:"url"`
	CachedAt string `json:"cached_at"`
}

func (m *Manager) ocrPath(tenderID string, rowID, page int) string {
	return filepath.Join(m.ocrDir, fmt.Sprintf("%s_%d_page_%d.json", tenderID, rowID, page))
}

// GetOCRPage returns the cached text for one document page. OCR entries have
// no read-time expiry; stale entries are removed only by cleanup sweeps.
func (m *Manager) GetOCRPage(tenderID string, rowID, page int) (string, bool) {
	data, err := os.ReadFile(m.ocrPath(tenderID, rowID, page))
	if err != nil {
		return "", false
	}
	var entry ocrEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", false
	}
	return entry.Text, true
}

// SetOCRPage writes the extracted text for one page through to disk.
func (m *Manager) SetOCRPage(tenderID string, rowID, page int, text string) error {
	entry := ocrEntry{
		Text:     text,
		CachedAt: time.Now().UTC().Format(time.RFC3339Nano),
		TenderID: tenderID,
		RowID:    rowID,
		PageNum:  page,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal ocr entry: %w", err)
	}
	if err := os.WriteFile(m.ocrPath(tenderID, rowID, page), data, 0o644); err != nil {
		return fmt.Errorf("write ocr entry: %w", err)
	}
	return nil
}

// GetOCRRange returns the cached pages within [startPage, endPage] inclusive.
// Only pages present in the cache appear in the result; callers send the
// complement to the OCR collaborator.
func (m *Manager) GetOCRRange(tenderID string, rowID, startPage, endPage int) map[int]string {
	results := make(map[int]string)
	for page := startPage; page <= endPage; page++ {
		if text, ok := m.GetOCRPage(tenderID, rowID, page); ok {
			results[page] = text
		}
	}
	return results
}

// GetHTML returns the cached HTML for a URL if it is younger than maxAge.
// A stale entry is deleted as a side effect and reported as a miss.
func (m *Manager) GetHTML(url string, maxAge time.Duration) (string, bool) {
	path := filepath.Join(m.htmlDir, urlHash(url)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	var entry htmlEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", false
	}
	cachedAt, err := time.Parse(time.RFC3339Nano, entry.CachedAt)
	if err != nil {
		return "", false
	}
	if time.Since(cachedAt) > maxAge {
		_ = os.Remove(path)
		return "", false
	}
	return entry.HTML, true
}

// SetHTML writes the HTML for a URL through to disk.
func (m *Manager) SetHTML(url, html string) error {
	entry := htmlEntry{
		HTML:     html,
		URL:      url,
		CachedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal html entry: %w", err)
	}
	path := filepath.Join(m.htmlDir, urlHash(url)+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write html entry: %w", err)
	}
	return nil
}

// GetDocument returns a cached attachment and its stored extension, probing
// the common extensions in a fixed order.
func (m *Manager) GetDocument(tenderID string, rowID int) ([]byte, string, bool) {
	for _, ext := range documentExtensions {
		path := filepath.Join(m.docsDir, fmt.Sprintf("%s_%d%s", tenderID, rowID, ext))
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return data, ext, true
	}
	return nil, "", false
}

// SetDocument writes an attachment through to disk. The extension used on
// the first write fixes the on-disk name for this (tender, row).
func (m *Manager) SetDocument(tenderID string, rowID int, content []byte, extension string) error {
	if extension == "" {
		extension = ".pdf"
	}
	if extension[0] != '.' {
		extension = "." + extension
	}
	path := filepath.Join(m.docsDir, fmt.Sprintf("%s_%d%s", tenderID, rowID, extension))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// CleanupOlderThan removes cache files whose modification time is older than
// maxAge. Individual removal failures are skipped; sweeps are best-effort.
func (m *Manager) CleanupOlderThan(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)
	for _, dir := range []string{m.ocrDir, m.htmlDir, m.docsDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().Before(cutoff) {
				_ = os.Remove(filepath.Join(dir, entry.Name()))
			}
		}
	}
}

// ClearTender removes all OCR and document entries for one tender.
func (m *Manager) ClearTender(tenderID string) {
	for _, dir := range []string{m.ocrDir, m.docsDir} {
		matches, err := filepath.Glob(filepath.Join(dir, tenderID+"_*"))
		if err != nil {
			continue
		}
		for _, path := range matches {
			_ = os.Remove(path)
		}
	}
}

// Stats describes cache usage per artifact kind.
type Stats struct {
	OCRFiles  int
	OCRBytes  int64
	HTMLFiles int
	HTMLBytes int64
	DocFiles  int
	DocBytes  int64
}

// TotalFiles is the file count across all artifact kinds.
func (s Stats) TotalFiles() int { return s.OCRFiles + s.HTMLFiles + s.DocFiles }

// CollectStats walks the cache directories and counts files and bytes.
func (m *Manager) CollectStats() Stats {
	count := func(dir string) (int, int64) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return 0, 0
		}
		var files int
		var bytes int64
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			files++
			bytes += info.Size()
		}
		return files, bytes
	}

	var s Stats
	s.OCRFiles, s.OCRBytes = count(m.ocrDir)
	s.HTMLFiles, s.HTMLBytes = count(m.htmlDir)
	s.DocFiles, s.DocBytes = count(m.docsDir)
	return s
}
