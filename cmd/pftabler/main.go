package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitia-ru/pftabler/pkg/backup"
	"github.com/bitia-ru/pftabler/pkg/discovery"
	"github.com/bitia-ru/pftabler/pkg/expire"
	"github.com/bitia-ru/pftabler/pkg/pfctl"
	"github.com/bitia-ru/pftabler/pkg/policy"
	"github.com/bitia-ru/pftabler/pkg/remote"
	"github.com/bitia-ru/pftabler/pkg/report"
	"github.com/bitia-ru/pftabler/pkg/types"

	flag "github.com/spf13/pflag"
)

const (
	defaultDirectory  = "/var/pf"
	defaultExpiration = "86400" // one day
)

type mode int

const (
	modeBackup mode = iota
	modeExpire
)

func main() {
	var (
		doBackup    bool
		doExpire    bool
		directory   string
		expiration  string
		configPath  string
		pfctlPath   string
		uploadCreds string
		keepLast    int
		verbose     bool
	)

	flag.BoolVar(&doBackup, "backup", false, "Backup pf tables to the --directory location")
	flag.BoolVar(&doExpire, "expire", false, "Expire aged entries in the pf tables")
	flag.StringVarP(&directory, "directory", "d", defaultDirectory, "Where to store each persistent table's dump file")
	flag.StringVarP(&expiration, "expiration", "e", defaultExpiration, "Default expiration age in seconds")
	flag.StringVarP(&configPath, "config", "c", "", "YAML file of per-table expiration overrides")
	flag.StringVar(&pfctlPath, "pfctl", pfctl.DefaultPath, "Path to the pfctl binary")
	flag.StringVar(&uploadCreds, "upload-credentials", "", "JSON credentials for replicating dumps to S3-compatible storage")
	flag.IntVar(&keepLast, "keep-last", 0, "Uploaded dumps to keep per table (0 disables rotation)")
	flag.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	flag.Parse()

	runMode, err := chooseMode(doBackup, doExpire)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pf := pfctl.New(pfctlPath, pfctl.NewRunner())

	switch runMode {
	case modeBackup:
		var store *remote.Client
		if uploadCreds != "" {
			creds, err := remote.LoadCredentials(uploadCreds)
			if err != nil {
				log.Fatalf("Error: %v", err)
			}
			store, err = remote.New(creds, verbose)
			if err != nil {
				log.Fatalf("Error: %v", err)
			}
		}
		if err := runBackup(ctx, pf, directory, store, keepLast, verbose); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case modeExpire:
		var overrides map[string]string
		if configPath != "" {
			overrides, err = policy.Load(configPath)
			if err != nil {
				log.Fatalf("Error: %v", err)
			}
		}
		if err := runExpire(ctx, pf, policy.New(overrides, expiration), verbose); err != nil {
			log.Fatalf("Error: %v", err)
		}
	}
}

// chooseMode enforces that exactly one runtime mode was requested.
func chooseMode(doBackup, doExpire bool) (mode, error) {
	switch {
	case doBackup && doExpire:
		return 0, fmt.Errorf("cannot run --backup and --expire simultaneously")
	case doBackup:
		return modeBackup, nil
	case doExpire:
		return modeExpire, nil
	default:
		return 0, fmt.Errorf("must specify a runtime mode of --backup or --expire")
	}
}

func runBackup(ctx context.Context, pf *pfctl.Client, directory string, store *remote.Client, keepLast int, verbose bool) error {
	tables, err := discovery.New(pf, verbose).Discover(ctx)
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}

	results := backup.New(pf, directory, verbose).BackupAll(ctx, tables)

	if store != nil {
		uploadDumps(ctx, store, results, keepLast)
	}

	// Successful backups are silent; cron only mails when something failed.
	if out := report.Backup(results); out != "" {
		fmt.Print(out)
	}
	return nil
}

// uploadDumps replicates successful dumps off-host. Upload problems are
// warnings only: the on-disk backup already succeeded.
func uploadDumps(ctx context.Context, store *remote.Client, results []types.BackupResult, keepLast int) {
	now := time.Now()
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		if err := store.Upload(ctx, r.Path, remote.Key(r.Table, now)); err != nil {
			log.Printf("WARNING: failed to upload %s: %v", r.Path, err)
			continue
		}
		if keepLast > 0 {
			if _, err := store.Rotate(ctx, r.Table+"/", keepLast); err != nil {
				log.Printf("WARNING: failed to rotate uploads for table %s: %v", r.Table, err)
			}
		}
	}
}

func runExpire(ctx context.Context, pf *pfctl.Client, pol *policy.Policy, verbose bool) error {
	tables, err := discovery.New(pf, verbose).Discover(ctx)
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}

	results := expire.New(pf, verbose).ExpireAll(ctx, tables, pol)
	fmt.Print(report.Expire(results))
	return nil
}
