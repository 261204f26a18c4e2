package gui

import (
	"fmt"
	"strings"

	"hmf-id-generator/internal/anonymizer"
)

// FormatStats renders run statistics for the preview and process steps.
func FormatStats(st anonymizer.Stats) string {
	var b strings.Builder
	if st.Files > 0 {
		fmt.Fprintf(&b, "Files: %d (%d cached, %d skipped)\n", st.Files, st.CachedFiles, st.SkippedFiles)
	} else {
		fmt.Fprintf(&b, "Samples: %d\n", st.Samples)
	}
	fmt.Fprintf(&b, "Patients: %d | Aliases: %d\n", st.Patients, st.Aliases)
	fmt.Fprintf(&b, "New: %d | Updated: %d | Unchanged: %d\n", st.NewEntries, st.UpdatedEntries, st.CarriedEntries)
	fmt.Fprintf(&b, "Identities: %d | Superseded ids: %d", st.Identities, st.Superseded)
	return b.String()
}

// FormatChanges lists the entries a run adds or changes, by label. Source ids
// are shown because the wizard only runs inside the secure environment.
func FormatChanges(res *anonymizer.Result) string {
	var lines []string
	for _, e := range res.Output.Entries() {
		before, ok := res.Prior.Entry(e.Source)
		switch {
		case !ok:
			lines = append(lines, fmt.Sprintf("  + %s  %s", e.ID.Label(), e.Source))
		case before != e && before.ID.Sequence() != e.ID.Sequence():
			lines = append(lines, fmt.Sprintf("  ~ %s  %s (was %s)", e.ID.Label(), e.Source, before.ID.Label()))
		case before != e:
			lines = append(lines, fmt.Sprintf("  ~ %s  %s (rehashed)", e.ID.Label(), e.Source))
		}
	}
	if len(lines) == 0 {
		lines = append(lines, "  No changes")
	}

	out := "Changes:\n" + strings.Join(lines, "\n")
	if len(res.Superseded) > 0 {
		var sup []string
		for _, a := range res.Superseded {
			sup = append(sup, fmt.Sprintf("  %s -> %s  (%s)", a.Old.Label(), a.Canonical.Label(), a.Source))
		}
		out += "\n\nSuperseded ids:\n" + strings.Join(sup, "\n")
	}
	return out
}
