// Package samples turns sample lists and alias files into reconciliation batches.
package samples

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"hmf-id-generator/internal/identity"
)

// sampleIDPattern matches a patient id (program code plus eight digits)
// optionally followed by a tumor or reference suffix such as T, TII or R.
var sampleIDPattern = regexp.MustCompile(`^([A-Z]{4}\d{8})([TR]I{0,3}V?)?$`)

// ParsePatientID returns the patient a sample id belongs to. A bare patient id
// is returned as is.
func ParsePatientID(sampleID string) (identity.SourceID, error) {
	s := strings.TrimSpace(sampleID)
	m := sampleIDPattern.FindStringSubmatch(s)
	if m == nil {
		return "", &identity.InvalidIdentifierError{Value: sampleID, Reason: "not a sample or patient id"}
	}
	return identity.NewSourceID(m[1])
}

// ReadSamples reads one sample id per line. Blank lines and lines starting
// with # are skipped. Patients are returned in order of first appearance.
func ReadSamples(r io.Reader) (patients []identity.SourceID, samples int, err error) {
	seen := make(map[identity.SourceID]bool)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		id, err := ParsePatientID(text)
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, err)
		}
		samples++
		if !seen[id] {
			seen[id] = true
			patients = append(patients, id)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("could not read samples: %w", err)
	}
	return patients, samples, nil
}

// ReadAliases reads patient,canonical rows. A first row whose fields are not
// identifiers is treated as a header.
func ReadAliases(r io.Reader) (identity.AliasMap, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	aliases := make(identity.AliasMap)
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not read aliases: %w", err)
		}

		from, errFrom := ParsePatientID(record[0])
		to, errTo := ParsePatientID(record[1])
		if row == 1 && errFrom != nil && errTo != nil {
			continue
		}
		if errFrom != nil {
			return nil, fmt.Errorf("row %d: %w", row, errFrom)
		}
		if errTo != nil {
			return nil, fmt.Errorf("row %d: %w", row, errTo)
		}
		if prev, dup := aliases[from]; dup && prev != to {
			return nil, fmt.Errorf("row %d: %s already aliased to %s", row, from, prev)
		}
		aliases[from] = to
	}
	return aliases, nil
}

// Source describes where a run's batch comes from.
type Source struct {
	Patients []identity.SourceID
	Samples  int
	Aliases  identity.AliasMap
}

// Batch converts the source into a validated reconciliation batch.
func (s Source) Batch() (identity.Batch, error) {
	b := identity.NewBatch(s.Patients, s.Aliases)
	if err := b.Validate(); err != nil {
		return identity.Batch{}, err
	}
	return b, nil
}

// LoadBatch reads a sample list and an optional alias file.
func LoadBatch(samplesPath, aliasesPath string) (Source, error) {
	f, err := os.Open(samplesPath)
	if err != nil {
		return Source{}, fmt.Errorf("could not open sample list: %w", err)
	}
	defer f.Close()

	patients, count, err := ReadSamples(f)
	if err != nil {
		return Source{}, fmt.Errorf("%s: %w", samplesPath, err)
	}

	aliases, err := LoadAliases(aliasesPath)
	if err != nil {
		return Source{}, err
	}
	return Source{Patients: patients, Samples: count, Aliases: aliases}, nil
}

// LoadAliases reads an alias file. An empty path yields no aliases.
func LoadAliases(path string) (identity.AliasMap, error) {
	if path == "" {
		return identity.AliasMap{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open alias file: %w", err)
	}
	defer f.Close()

	aliases, err := ReadAliases(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return aliases, nil
}
