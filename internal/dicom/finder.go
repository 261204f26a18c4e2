package dicom

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DicomExtensions are common DICOM file extensions
var DicomExtensions = map[string]bool{".dcm": true, ".dicom": true}

// ExcludedNames are filenames to skip
var ExcludedNames = map[string]bool{
	"DICOMDIR":    true,
	".DS_Store":   true,
	"Thumbs.db":   true,
	"desktop.ini": true,
}

// ExcludedExtensions are extensions never probed for DICOM content.
var ExcludedExtensions = map[string]bool{
	".json": true, ".yaml": true, ".yml": true, ".xml": true,
	".txt": true, ".csv": true, ".tsv": true, ".log": true, ".md": true,
	".zip": true, ".gz": true, ".tar": true,
	".png": true, ".jpg": true, ".jpeg": true, ".pdf": true,
}

// ExcludedDirs are directory names to skip entirely
var ExcludedDirs = map[string]bool{
	".git":         true,
	"__MACOSX":     true,
	".idgen":       true,
	"node_modules": true,
}

// FindDicomFiles returns the DICOM files under root in lexical order. Files
// without a DICOM extension are included when they carry the DICM preamble.
func FindDicomFiles(root string, recursive bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // unreadable entries are skipped
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if ExcludedDirs[d.Name()] || !recursive {
				return filepath.SkipDir
			}
			return nil
		}

		if ExcludedNames[d.Name()] {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ExcludedExtensions[ext] {
			return nil
		}
		if DicomExtensions[ext] || hasDicomMagicBytes(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// hasDicomMagicBytes checks if a file has the DICOM magic bytes ("DICM" at offset 128)
func hasDicomMagicBytes(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	header := make([]byte, 132)
	if _, err := io.ReadFull(file, header); err != nil {
		return false
	}
	return string(header[128:132]) == "DICM"
}
