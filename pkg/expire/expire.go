package expire

import (
	"context"
	"log"
	"regexp"
	"strconv"

	"github.com/bitia-ru/pftabler/pkg/pfctl"
	"github.com/bitia-ru/pftabler/pkg/policy"
	"github.com/bitia-ru/pftabler/pkg/types"
)

// diagRE matches pfctl's expiration diagnostic on stderr, e.g.
// "3/10 addresses expired."
var diagRE = regexp.MustCompile(`(\d+)/\d+ addresses expired\.`)

// ParseExpired extracts the expired-address count from pfctl's stderr.
// ok is false when no diagnostic was found, which is distinct from a
// count of zero.
func ParseExpired(stderr []byte) (count int, ok bool) {
	m := diagRE.FindSubmatch(stderr)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Expirer purges aged entries from tables.
type Expirer struct {
	pf      *pfctl.Client
	verbose bool
}

func New(pf *pfctl.Client, verbose bool) *Expirer {
	return &Expirer{pf: pf, verbose: verbose}
}

// ExpireAll expires every table at its resolved duration and returns
// one result per table, in order. Expiration never aborts the loop:
// pfctl failures are captured in the result's exit code, and the
// diagnostic is parsed regardless of it.
func (e *Expirer) ExpireAll(ctx context.Context, tables []types.Table, pol *policy.Policy) []types.ExpireResult {
	var results []types.ExpireResult
	for _, table := range tables {
		results = append(results, e.expireOne(ctx, table, pol.Resolve(table.Name)))
	}
	return results
}

func (e *Expirer) expireOne(ctx context.Context, table types.Table, duration string) types.ExpireResult {
	result := types.ExpireResult{Table: table.Name, Duration: duration}

	res, err := e.pf.ExpireTable(ctx, table.Name, duration)
	if err != nil {
		e.logf("pfctl did not run for %s: %v", table.Name, err)
		result.ExitCode = -1
		return result
	}
	result.ExitCode = res.ExitCode

	count, ok := ParseExpired(res.Stderr)
	if !ok {
		e.logf("no expiration diagnostic for %s (exit %d)", table.Name, res.ExitCode)
		return result
	}
	result.Expired = count
	result.HasExpired = true

	e.logf("expired %d address(es) from %s in %s", count, table.Name, res.Duration)
	return result
}

func (e *Expirer) logf(format string, args ...interface{}) {
	if e.verbose {
		log.Printf("[expire] "+format, args...)
	}
}
