package discovery

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bitia-ru/pftabler/pkg/pfctl"
	"github.com/bitia-ru/pftabler/pkg/types"
)

// Discoverer lists the tables pf has defined at runtime and keeps only
// the persistent ones.
type Discoverer struct {
	pf      *pfctl.Client
	verbose bool
}

func New(pf *pfctl.Client, verbose bool) *Discoverer {
	return &Discoverer{pf: pf, verbose: verbose}
}

// Discover returns the persistent tables in the order pfctl reports
// them. It fails only when the listing command itself fails; malformed
// output lines are skipped.
func (d *Discoverer) Discover(ctx context.Context) ([]types.Table, error) {
	res, err := d.pf.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("pfctl -v -s Tables exited %d: %s",
			res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}

	var tables []types.Table
	for _, line := range strings.Split(string(res.Stdout), "\n") {
		// Lines look like this:
		// c-a-r--	__automatic_9d4b1932_0
		// -pa-r--	bad_ssh
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 || len(fields[0]) < 2 {
			d.logf("skipping malformed line %q", line)
			continue
		}
		// The second flag character marks a persistent table.
		if fields[0][1] != 'p' {
			continue
		}
		tables = append(tables, types.Table{Name: fields[1], Flags: fields[0]})
	}

	d.logf("found %d persistent table(s)", len(tables))
	return tables, nil
}

func (d *Discoverer) logf(format string, args ...interface{}) {
	if d.verbose {
		log.Printf("[discovery] "+format, args...)
	}
}
