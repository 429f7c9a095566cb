package policy

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Tables that expire outside of the usual one-day default, in seconds.
//  86400 ==  1 day
// 432000 ==  5 days
// 864000 == 10 days
var builtinOverrides = map[string]string{
	"bad_udp_vpn": "432000",
	"bad_tcp_vpn": "864000",
	"bad_ssh":     "864000",
}

// Policy resolves the expiration duration pfctl should receive for a
// table. Durations are opaque second counts kept as strings and passed
// through to pfctl untouched.
type Policy struct {
	overrides map[string]string
	def       string
}

// New builds a Policy from an override map and a default duration. A
// nil override map selects the built-in overrides.
func New(overrides map[string]string, def string) *Policy {
	if overrides == nil {
		overrides = builtinOverrides
	}
	return &Policy{overrides: overrides, def: def}
}

// Resolve returns the duration for table: its override if one exists,
// else the default.
func (p *Policy) Resolve(table string) string {
	if d, ok := p.overrides[table]; ok {
		return d
	}
	return p.def
}

// File is the on-disk override configuration.
type File struct {
	Expirations map[string]string `yaml:"expirations"`
}

// Load reads a YAML override file and validates every duration as a
// non-negative integer string.
func Load(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := f.validate(); err != nil {
		return nil, err
	}
	return f.Expirations, nil
}

func (f *File) validate() error {
	if len(f.Expirations) == 0 {
		return errors.New("at least one expiration override is required")
	}
	for table, secs := range f.Expirations {
		if table == "" {
			return errors.New("expiration table name must not be empty")
		}
		n, err := strconv.Atoi(secs)
		if err != nil || n < 0 {
			return fmt.Errorf("expiration for table %s must be a non-negative integer, got %q", table, secs)
		}
	}
	return nil
}
