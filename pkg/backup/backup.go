package backup

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitia-ru/pftabler/pkg/pfctl"
	"github.com/bitia-ru/pftabler/pkg/types"
)

// Backuper dumps each table's current entries to a file under dir so
// they survive reboots and power outages.
type Backuper struct {
	pf      *pfctl.Client
	dir     string
	verbose bool
}

// New returns a Backuper writing into dir. The directory must already
// exist; a missing directory surfaces as a per-table write error.
func New(pf *pfctl.Client, dir string, verbose bool) *Backuper {
	return &Backuper{pf: pf, dir: dir, verbose: verbose}
}

// BackupAll dumps every table and returns one result per table, in
// order. Failures are recorded in the results rather than returned, so
// the remaining tables still get processed.
func (b *Backuper) BackupAll(ctx context.Context, tables []types.Table) []types.BackupResult {
	var results []types.BackupResult
	for _, table := range tables {
		results = append(results, b.backupOne(ctx, table))
	}
	return results
}

func (b *Backuper) backupOne(ctx context.Context, table types.Table) types.BackupResult {
	result := types.BackupResult{
		Table: table.Name,
		Path:  filepath.Join(b.dir, table.Name+".txt"),
	}

	res, err := b.pf.ShowTable(ctx, table.Name)
	if err != nil {
		result.Err = fmt.Errorf("running pfctl: %w", err)
		return result
	}
	if res.ExitCode != 0 {
		result.Err = fmt.Errorf("pfctl exited %d: %s",
			res.ExitCode, strings.TrimSpace(string(res.Stderr)))
		return result
	}

	if err := os.WriteFile(result.Path, res.Stdout, 0644); err != nil {
		result.Err = fmt.Errorf("writing dump: %w", err)
		return result
	}

	b.logf("dumped %s -> %s (%d bytes in %s)", table.Name, result.Path, len(res.Stdout), res.Duration)
	return result
}

func (b *Backuper) logf(format string, args ...interface{}) {
	if b.verbose {
		log.Printf("[backup] "+format, args...)
	}
}
