package types

// Table is one pf address table as reported by `pfctl -v -s Tables`.
type Table struct {
	Name  string
	Flags string
}

// BackupResult holds the outcome of dumping a single table to disk.
type BackupResult struct {
	Table string
	Path  string
	Err   error
}

// ExpireResult holds the outcome of expiring entries in a single table.
type ExpireResult struct {
	Table    string
	Duration string
	// Expired is the address count parsed from pfctl's diagnostic.
	// HasExpired is false when no diagnostic could be parsed, which is
	// distinct from zero addresses expired.
	Expired    int
	HasExpired bool
	ExitCode   int
}
