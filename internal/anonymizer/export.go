package anonymizer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"hmf-id-generator/internal/identity"
)

// ExportPublic writes one row per identity: its label, sequence id and
// digest. No SourceID is written, so the file may leave the secure
// environment.
func ExportPublic(w io.Writer, out *identity.Output) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"hmf_id", "sequence", "digest"}); err != nil {
		return err
	}
	for _, id := range out.Identities() {
		row := []string{id.Label(), strconv.Itoa(int(id.Sequence())), id.Digest().String()}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportSuperseded writes one row per superseded id and the id that replaced
// it, for downstream systems that still hold the old label.
func ExportSuperseded(w io.Writer, out *identity.Output) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"old_hmf_id", "old_digest", "hmf_id", "digest"}); err != nil {
		return err
	}
	for _, a := range out.SupersededAliases() {
		row := []string{a.Old.Label(), a.Old.Digest().String(), a.Canonical.Label(), a.Canonical.Digest().String()}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportPublicFile writes ExportPublic to path and the superseded list next
// to it with a .superseded.csv suffix.
func ExportPublicFile(path string, out *identity.Output) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create export directory: %w", err)
	}
	if err := writeFile(path, out, ExportPublic); err != nil {
		return err
	}
	return writeFile(supersededPath(path), out, ExportSuperseded)
}

func supersededPath(path string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)] + ".superseded.csv"
}

func writeFile(path string, out *identity.Output, write func(io.Writer, *identity.Output) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create export file: %w", err)
	}
	if err := write(f, out); err != nil {
		f.Close()
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("could not close %s: %w", path, err)
	}
	return nil
}
