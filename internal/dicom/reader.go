package dicom

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"hmf-id-generator/internal/identity"
	"hmf-id-generator/internal/progress"
)

// ErrNoPatientID is returned for a readable file without a PatientID element.
var ErrNoPatientID = errors.New("no PatientID")

// Dataset wraps a DICOM dataset for easier access
type Dataset struct {
	Data     dicom.Dataset
	FilePath string
}

// ReadDicomMetadataOnly reads only the metadata (no pixel data).
func ReadDicomMetadataOnly(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("could not stat file: %w", err)
	}

	ds, err := dicom.Parse(file, info.Size(), nil, dicom.SkipPixelData())
	if err != nil {
		return nil, fmt.Errorf("could not parse DICOM: %w", err)
	}

	return &Dataset{Data: ds, FilePath: path}, nil
}

// GetString returns a string value for a tag, or empty string if not found.
func (d *Dataset) GetString(t tag.Tag) string {
	elem, err := d.Data.FindElementByTag(t)
	if err != nil || elem.Value == nil {
		return ""
	}

	switch v := elem.Value.GetValue().(type) {
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case string:
		return v
	}
	return ""
}

// GetPatientID returns the patient ID.
func (d *Dataset) GetPatientID() string {
	return strings.TrimSpace(d.GetString(tag.PatientID))
}

// ReadPatientID returns the PatientID of a DICOM file.
func ReadPatientID(path string) (identity.SourceID, error) {
	ds, err := ReadDicomMetadataOnly(path)
	if err != nil {
		return "", err
	}
	pid := ds.GetPatientID()
	if pid == "" {
		return "", ErrNoPatientID
	}
	return identity.NewSourceID(pid)
}

// ProgressCallback is called for every scanned file with its outcome:
// "read", "cached" or "skipped".
type ProgressCallback func(current, total int, filename, status string)

// Scan is the result of collecting patient ids from a set of files.
type Scan struct {
	Patients []identity.SourceID
	Files    int
	Cached   int
	Skipped  int
}

// CollectPatients reads the PatientID of every file, in file order, and
// returns the distinct patients in order of first appearance. Unreadable
// files and files without a usable PatientID are logged and skipped. tracker,
// errLog and progressCb may be nil.
func CollectPatients(ctx context.Context, files []string, tracker *progress.Tracker, errLog *progress.ErrorLogger, progressCb ProgressCallback) (*Scan, error) {
	scan := &Scan{Files: len(files)}
	seen := make(map[identity.SourceID]bool)

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		status := "read"
		var pid identity.SourceID
		if cached, ok := lookup(tracker, path); ok {
			pid = identity.SourceID(cached)
			status = "cached"
			scan.Cached++
		} else {
			var err error
			pid, err = ReadPatientID(path)
			if err != nil {
				scan.Skipped++
				status = "skipped"
				if tracker != nil {
					tracker.MarkError(path, err.Error())
				}
				if errLog != nil {
					errLog.Log(path, err.Error())
				}
			} else if tracker != nil {
				tracker.MarkSuccess(path, pid.String())
			}
		}

		if pid != "" && !seen[pid] {
			seen[pid] = true
			scan.Patients = append(scan.Patients, pid)
		}
		if progressCb != nil {
			progressCb(i+1, len(files), path, status)
		}
	}
	return scan, nil
}

func lookup(tracker *progress.Tracker, path string) (string, bool) {
	if tracker == nil {
		return "", false
	}
	pid, ok := tracker.Lookup(path)
	if !ok || identity.SourceID(pid).Validate() != nil {
		return "", false
	}
	return pid, true
}
