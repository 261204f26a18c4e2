package progress

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStatus is the outcome of reading a file's patient id.
type FileStatus string

const (
	StatusSuccess FileStatus = "success"
	StatusError   FileStatus = "error"
)

// FileEntry is one cached scan result.
type FileEntry struct {
	Status    FileStatus `json:"status"`
	Hash      string     `json:"hash"`
	PatientID string     `json:"patient_id,omitempty"`
	Error     string     `json:"error,omitempty"`
	Timestamp string     `json:"timestamp"`
}

// TrackerData is the JSON structure for persistence
type TrackerData struct {
	Files   map[string]*FileEntry `json:"files"`
	Updated string                `json:"updated"`
	Summary struct {
		Success int `json:"success"`
		Error   int `json:"error"`
		Total   int `json:"total"`
	} `json:"summary"`
}

// Tracker caches the patient id read from each scanned file so repeated runs
// over the same folder skip reparsing unchanged files. Entries are keyed by
// path and invalidated when the file's size or modification time changes.
type Tracker struct {
	mu        sync.Mutex
	cacheFile string
	files     map[string]*FileEntry
	dirty     bool
}

// NewTracker creates a tracker backed by cacheFile. An empty path keeps the
// cache in memory only. A missing file starts an empty cache.
func NewTracker(cacheFile string) (*Tracker, error) {
	t := &Tracker{
		cacheFile: cacheFile,
		files:     make(map[string]*FileEntry),
	}
	if cacheFile == "" {
		return t, nil
	}

	data, err := os.ReadFile(cacheFile)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read scan cache: %w", err)
	}

	var td TrackerData
	if err := json.Unmarshal(data, &td); err != nil {
		return nil, fmt.Errorf("could not parse scan cache %s: %w", cacheFile, err)
	}
	if td.Files != nil {
		t.files = td.Files
	}
	return t, nil
}

// fileHash creates a quick hash based on file size and modification time
func fileHash(filePath string) string {
	info, err := os.Stat(filePath)
	if err != nil {
		return ""
	}
	hashInput := fmt.Sprintf("%d_%d", info.Size(), info.ModTime().UnixNano())
	hash := md5.Sum([]byte(hashInput))
	return fmt.Sprintf("%x", hash[:8])
}

// Lookup returns the cached patient id of an unchanged file.
func (t *Tracker) Lookup(filePath string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.files[filePath]
	if !ok || entry.Status != StatusSuccess {
		return "", false
	}
	hash := fileHash(filePath)
	if hash == "" || entry.Hash != hash {
		return "", false
	}
	return entry.PatientID, true
}

// MarkSuccess records the patient id read from a file.
func (t *Tracker) MarkSuccess(filePath, patientID string) {
	t.mark(filePath, &FileEntry{Status: StatusSuccess, PatientID: patientID})
}

// MarkError records a file that could not be read.
func (t *Tracker) MarkError(filePath, errorMsg string) {
	t.mark(filePath, &FileEntry{Status: StatusError, Error: errorMsg})
}

func (t *Tracker) mark(filePath string, entry *FileEntry) {
	entry.Hash = fileHash(filePath)
	entry.Timestamp = time.Now().Format(time.RFC3339)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.files[filePath] = entry
	t.dirty = true
}

// Stats returns success and error counts.
func (t *Tracker) Stats() (success, errors int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.countStatus(StatusSuccess), t.countStatus(StatusError)
}

func (t *Tracker) countStatus(status FileStatus) int {
	count := 0
	for _, entry := range t.files {
		if entry.Status == status {
			count++
		}
	}
	return count
}

// Save writes the cache if anything changed since the last save.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cacheFile == "" || !t.dirty {
		return nil
	}

	td := TrackerData{
		Files:   t.files,
		Updated: time.Now().Format(time.RFC3339),
	}
	td.Summary.Success = t.countStatus(StatusSuccess)
	td.Summary.Error = t.countStatus(StatusError)
	td.Summary.Total = len(t.files)

	data, err := json.MarshalIndent(td, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal scan cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.cacheFile), 0755); err != nil {
		return fmt.Errorf("could not create cache directory: %w", err)
	}
	if err := os.WriteFile(t.cacheFile, data, 0644); err != nil {
		return fmt.Errorf("could not save scan cache: %w", err)
	}
	t.dirty = false
	return nil
}
