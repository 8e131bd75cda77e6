// Package report renders scan and transfer results as a human-readable
// summary. Pure presentation: the renderer never mutates the accumulators
// it is given.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/clouddepot/s3scope/pkg/scan"
	"github.com/clouddepot/s3scope/pkg/transfer"
)

// Report aggregates everything the renderer consumes.
type Report struct {
	// Prefix is the scanned key prefix (separator-terminated).
	Prefix string

	// Folders holds per-folder stats; rendered only when ShowDetails is set.
	Folders map[string]*scan.FolderStats

	// Totals are the run-wide counters from the scan pass.
	Totals scan.Totals

	// ShowDetails enables the per-folder breakdown.
	ShowDetails bool

	// Transfer holds download totals; nil when the transfer pass did not run.
	Transfer *transfer.Totals

	// DestRoot is the resolved destination directory for the download line.
	DestRoot string
}

// Render writes the formatted report to w.
//
// Folder detail is emitted in ascending lexicographic order of folder key.
// Byte counts are shown as gibibytes with two decimals.
func (r *Report) Render(w io.Writer) {
	fmt.Fprintf(w, "Statistics for prefix %s\n", r.Prefix)

	if r.ShowDetails {
		keys := make([]string, 0, len(r.Folders))
		for k := range r.Folders {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			st := r.Folders[k]
			fmt.Fprintf(w, "    %s\n", k)
			fmt.Fprintf(w, "      ├─ files   : %d\n", st.Files)
			fmt.Fprintf(w, "      ├─ size    : %s\n", FormatGiB(st.Bytes))
			fmt.Fprintf(w, "      └─ ignored : %d\n", st.Ignored)
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintln(w, "    TOTAL")
	fmt.Fprintf(w, "    ├─ files   : %d\n", r.Totals.Files)
	fmt.Fprintf(w, "    ├─ size    : %s\n", FormatGiB(r.Totals.Bytes))
	fmt.Fprintf(w, "    └─ ignored : %d\n", r.Totals.Ignored)

	if r.Transfer != nil {
		if r.Transfer.Files == 1 {
			fmt.Fprintf(w, "1 file downloaded (%s) to %s\n", FormatGiB(r.Transfer.Bytes), r.DestRoot)
		} else {
			fmt.Fprintf(w, "%d files downloaded (%s) to %s\n", r.Transfer.Files, FormatGiB(r.Transfer.Bytes), r.DestRoot)
		}
	}
}

// FormatGiB renders a byte count as gibibytes with two decimals.
func FormatGiB(n int64) string {
	return fmt.Sprintf("%.2f GiB", float64(n)/(1<<30))
}
