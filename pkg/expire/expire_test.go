package expire

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bitia-ru/pftabler/pkg/pfctl"
	"github.com/bitia-ru/pftabler/pkg/policy"
	"github.com/bitia-ru/pftabler/pkg/types"
)

type scriptedRunner struct {
	results map[string]pfctl.Result
	err     error
}

func (s *scriptedRunner) Run(ctx context.Context, program string, args ...string) (pfctl.Result, error) {
	if s.err != nil {
		return pfctl.Result{}, s.err
	}
	key := strings.Join(append([]string{program}, args...), " ")
	return s.results[key], nil
}

func TestParseExpired_Match(t *testing.T) {
	count, ok := ParseExpired([]byte("3/10 addresses expired.\n"))
	if !ok {
		t.Fatal("expected a parsed count")
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestParseExpired_Zero(t *testing.T) {
	count, ok := ParseExpired([]byte("0/10 addresses expired.\n"))
	if !ok {
		t.Fatal("expected a parsed count: zero expired is not unknown")
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestParseExpired_NoMatch(t *testing.T) {
	if _, ok := ParseExpired([]byte("pfctl: Table does not exist.\n")); ok {
		t.Error("expected no count for unrelated output")
	}
	if _, ok := ParseExpired(nil); ok {
		t.Error("expected no count for empty output")
	}
	if _, ok := ParseExpired([]byte("addresses expired.\n")); ok {
		t.Error("expected no count without the digit groups")
	}
}

func TestParseExpired_EmbeddedInOtherOutput(t *testing.T) {
	stderr := []byte("No ALTQ support in kernel\n12/345 addresses expired.\n")
	count, ok := ParseExpired(stderr)
	if !ok || count != 12 {
		t.Errorf("ParseExpired = (%d, %v), want (12, true)", count, ok)
	}
}

func TestExpireAll_ResolvesDurations(t *testing.T) {
	runner := &scriptedRunner{results: map[string]pfctl.Result{
		"/sbin/pfctl -t bad_ssh -T expire 864000": {Stderr: []byte("3/10 addresses expired.\n")},
		"/sbin/pfctl -t mytable -T expire 86400":  {},
	}}
	e := New(pfctl.New("/sbin/pfctl", runner), false)
	pol := policy.New(map[string]string{"bad_ssh": "864000"}, "86400")

	results := e.ExpireAll(context.Background(),
		[]types.Table{{Name: "bad_ssh"}, {Name: "mytable"}}, pol)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	if results[0].Duration != "864000" {
		t.Errorf("bad_ssh duration = %q, want %q", results[0].Duration, "864000")
	}
	if !results[0].HasExpired || results[0].Expired != 3 {
		t.Errorf("bad_ssh count = (%d, %v), want (3, true)", results[0].Expired, results[0].HasExpired)
	}

	if results[1].Duration != "86400" {
		t.Errorf("mytable duration = %q, want %q", results[1].Duration, "86400")
	}
	if results[1].HasExpired {
		t.Error("mytable count should be unknown, not zero")
	}
}

func TestExpireAll_RecordsExitCode(t *testing.T) {
	runner := &scriptedRunner{results: map[string]pfctl.Result{
		"/sbin/pfctl -t gone -T expire 86400": {ExitCode: 1, Stderr: []byte("pfctl: Table does not exist.\n")},
	}}
	e := New(pfctl.New("/sbin/pfctl", runner), false)

	results := e.ExpireAll(context.Background(), []types.Table{{Name: "gone"}}, policy.New(nil, "86400"))
	if results[0].ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", results[0].ExitCode)
	}
	if results[0].HasExpired {
		t.Error("count should be unknown for failed expire")
	}
}

func TestExpireAll_RunnerErrorDoesNotAbort(t *testing.T) {
	e := New(pfctl.New("/sbin/pfctl", &scriptedRunner{err: errors.New("exec: not found")}), false)

	results := e.ExpireAll(context.Background(),
		[]types.Table{{Name: "a"}, {Name: "b"}}, policy.New(nil, "86400"))
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for i, r := range results {
		if r.ExitCode != -1 {
			t.Errorf("results[%d].ExitCode = %d, want -1", i, r.ExitCode)
		}
		if r.HasExpired {
			t.Errorf("results[%d] count should be unknown", i)
		}
	}
}
