package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bitia-ru/pftabler/pkg/types"
)

const (
	title = "==> pftabler statistics <=="

	// minNameWidth keeps the Table column readable for short names.
	minNameWidth  = 8
	durationLabel = "Duration"

	// unknownCount marks tables whose expire run produced no parseable
	// diagnostic. Documented in the report preamble.
	unknownCount = "?"
)

// Backup returns one line per failed backup and nothing at all when
// every table was dumped successfully.
func Backup(results []types.BackupResult) string {
	var b strings.Builder
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		fmt.Fprintf(&b, "ERROR: Could not backup table %s as %s: %v\n", r.Table, r.Path, r.Err)
	}
	return b.String()
}

// Expire renders the aligned statistics table. Rows keep the order the
// results were produced in, which is pfctl's listing order.
func Expire(results []types.ExpireResult) string {
	nameWidth := minNameWidth
	durWidth := len(durationLabel)
	countWidth := 1
	for _, r := range results {
		if len(r.Table) > nameWidth {
			nameWidth = len(r.Table)
		}
		if len(r.Duration) > durWidth {
			durWidth = len(r.Duration)
		}
		if w := len(countCell(r)); w > countWidth {
			countWidth = w
		}
	}

	var b strings.Builder
	b.WriteString(title + "\n")
	b.WriteString("The numbers represent IP addresses that were added\n")
	b.WriteString("as pf rules to the active firewall and have since\n")
	b.WriteString("been removed due to expiration. Durations are listed\n")
	b.WriteString("in seconds. A \"?\" count means pfctl reported no\n")
	b.WriteString("expiration statistics for that table.\n")
	b.WriteString("\n")

	header := fmt.Sprintf("  %*s | %-*s | %*s", countWidth, "#", nameWidth, "Table", durWidth, durationLabel)
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("-", len(header)+2) + "\n")

	for _, r := range results {
		fmt.Fprintf(&b, "  %*s | %-*s | %*s\n", countWidth, countCell(r), nameWidth, r.Table, durWidth, r.Duration)
	}
	return b.String()
}

func countCell(r types.ExpireResult) string {
	if !r.HasExpired {
		return unknownCount
	}
	return strconv.Itoa(r.Expired)
}
