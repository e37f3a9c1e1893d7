package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bethropolis/scribe/internal/config"
)

const sample = `{"ops":[
{"insert":"Shop","attributes":{"bold":true,"color":"#ff8800"}},{"insert":"ping"},{"insert":1,"attributes":{"frag":"end","block":"para"}},
{"insert":"milk"},{"insert":1,"attributes":{"frag":"end","block":"list","list":"ol1","listId":"a"}},
{"insert":"more milk"},{"insert":1,"attributes":{"frag":"end","block":"list","list":"ol1","listId":"a"}},
{"insert":"x := 1"},{"insert":1,"attributes":{"frag":"end","block":"code","lang":"go"}}
]}`

func runWith(t *testing.T, args ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	var f config.Flags
	fs := flag.NewFlagSet("scribe", flag.ContinueOnError)
	f.DefineFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load("", &f)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := run(cfg, &f, path, &out); err != nil {
		t.Fatal(err)
	}
	return out.String()
}

func TestRunPrintsBlocks(t *testing.T) {
	out := runWith(t)
	for _, want := range []string{"para", "list 1.", "list 2.", "code", `"more milk"`, "height "} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestRunFindAndDump(t *testing.T) {
	out := runWith(t, "-find", "milk", "-dump")
	if !strings.Contains(out, "2 matches for \"milk\"") {
		t.Errorf("find output missing:\n%s", out)
	}
	if !strings.Contains(out, "9:13 in list block") || !strings.Contains(out, "19:23 in list block") {
		t.Errorf("match offsets missing:\n%s", out)
	}
	if !strings.Contains(out, `"key":`) {
		t.Errorf("dump should carry block keys:\n%s", out)
	}
}

func TestRunPrintsStyledRuns(t *testing.T) {
	out := runWith(t, "-runs")
	if !strings.Contains(out, `"Shop" fg #FF8800 bold`) {
		t.Errorf("styled run missing:\n%s", out)
	}
	if strings.Contains(out, `"ping"`) {
		t.Errorf("plain runs should not be listed:\n%s", out)
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in         string
		start, end int
		ok         bool
	}{
		{"1:4", 1, 4, true},
		{"4:1", 1, 4, true},
		{"3", 0, 0, false},
		{"a:2", 0, 0, false},
		{"1:b", 0, 0, false},
	}
	for _, tt := range tests {
		r, err := parseRange(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("parseRange(%q) err = %v", tt.in, err)
		}
		if !tt.ok {
			continue
		}
		if s, e := r.Offsets(); s != tt.start || e != tt.end {
			t.Errorf("parseRange(%q) = %d:%d", tt.in, s, e)
		}
	}
}
