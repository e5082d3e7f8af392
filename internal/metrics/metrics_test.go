package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRunCounters(t *testing.T) {
	r := NewRun("cornell")
	for range 5 {
		r.Listing()
	}
	r.Event()
	r.Event()
	r.Duplicate()
	r.Filtered()
	r.Filtered()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"listings", testutil.ToFloat64(r.listings), 5},
		{"events", testutil.ToFloat64(r.events), 2},
		{"duplicates", testutil.ToFloat64(r.duplicates), 1},
		{"filtered", testutil.ToFloat64(r.filtered), 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestRunsAreIndependent(t *testing.T) {
	a := NewRun("uw")
	b := NewRun("uw")
	a.Event()
	if got := testutil.ToFloat64(b.events); got != 0 {
		t.Errorf("second run events = %v, want 0", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRun("cornell")
	r.Event()
	r.Failed("fetch", 2*time.Second)
	r.Succeeded(time.Unix(1700000000, 0), 3*time.Second)

	path := filepath.Join(t.TempDir(), "textfile", "colloq.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading textfile: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`colloq_events_total{source="cornell"} 1`,
		`colloq_failures_total{kind="fetch",source="cornell"} 1`,
		`colloq_run_duration_seconds{source="cornell"} 3`,
		`colloq_last_success_timestamp_seconds{source="cornell"} 1.7e+09`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q\n%s", want, out)
		}
	}
}
