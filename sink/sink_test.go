package sink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"main/types"
)

// ============================================================================
// ROW ENCODING TESTS
// ============================================================================

// TestAppendRow validates the exact CSV shape: unsigned ids and times,
// fixed two-decimal millisecond latency, label last
func TestAppendRow(t *testing.T) {
	tests := []struct {
		name string
		rec  types.EventRecord
		want string
	}{
		{
			name: "typical_row",
			rec: types.EventRecord{
				EventID:       5827967018,
				EventTimeUs:   1769693418802000,
				ArrivalTimeUs: 1769693418844000,
				LatencyUs:     42000,
				OriginLabel:   "m8a.xlarge",
			},
			want: "5827967018,1769693418802000,1769693418844000,42.00,m8a.xlarge\n",
		},
		{
			name: "negative_latency",
			rec: types.EventRecord{
				EventID:       1,
				EventTimeUs:   100,
				ArrivalTimeUs: 50,
				LatencyUs:     -1234,
				OriginLabel:   "local",
			},
			want: "1,100,50,-1.23,local\n",
		},
		{
			name: "sub_hundredth_latency",
			rec: types.EventRecord{
				EventID:       2,
				EventTimeUs:   100,
				ArrivalTimeUs: 100,
				LatencyUs:     9,
				OriginLabel:   "x",
			},
			want: "2,100,100,0.00,x\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(appendRow(nil, &tt.rec))
			if got != tt.want {
				t.Errorf("row = %q, want %q", got, tt.want)
			}
		})
	}
}

// ============================================================================
// BUFFER SINK TESTS
// ============================================================================

// TestBufferSink_HeaderAndRows validates header emission, truncation of
// prior content and complete persistence on Close
func TestBufferSink_HeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	// Pre-existing content must be truncated
	if err := os.WriteFile(path, []byte("stale old content\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := NewBufferSink(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 1; i <= 5; i++ {
		s.Append(types.EventRecord{
			EventID:       uint64(i),
			EventTimeUs:   uint64(1000 * i),
			ArrivalTimeUs: uint64(1000*i + 500),
			LatencyUs:     int64(500),
			OriginLabel:   "test",
		})
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if lines[0] != "trade_id,trade_ts_us,recv_ts_us,latency_ms,label" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want header + 5 rows", len(lines))
	}
	if lines[1] != "1,1000,1500,0.50,test" {
		t.Errorf("first row = %q", lines[1])
	}
	if strings.Contains(string(data), "stale") {
		t.Errorf("destination was not truncated")
	}
}

// TestBufferSink_FlushThreshold validates that the staging buffer reaches
// disk at the count threshold, not only at Close
func TestBufferSink_FlushThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s, err := NewBufferSink(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// One short of the threshold: nothing beyond the header on disk yet
	for i := 1; i < 1000; i++ {
		s.Append(types.EventRecord{EventID: uint64(i), OriginLabel: "t"})
	}
	if info, _ := os.Stat(path); info.Size() > int64(len(csvHeader)) {
		t.Errorf("flushed before reaching the record threshold")
	}

	// The thousandth record triggers the flush
	s.Append(types.EventRecord{EventID: 1000, OriginLabel: "t"})
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() <= int64(len(csvHeader)) {
		t.Errorf("threshold reached but nothing flushed")
	}
}

// TestBufferSink_OpenFailure validates fail-fast on an unusable destination
func TestBufferSink_OpenFailure(t *testing.T) {
	if _, err := NewBufferSink(filepath.Join(t.TempDir(), "no", "such", "dir", "x.csv")); err == nil {
		t.Fatalf("expected open error for missing directory")
	}
}

// ============================================================================
// RELAY SINK TESTS
// ============================================================================

// TestRelaySink_DrainsFullyOnClose validates the no-drop shutdown guarantee:
// every record accepted before Close reaches the file
func TestRelaySink_DrainsFullyOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s, err := NewRelaySink(path, -1, 0) // no pin, no nice: capability hints off
	if err != nil {
		t.Fatal(err)
	}

	const records = 25_000 // spans many flush intervals
	for i := 1; i <= records; i++ {
		s.Append(types.EventRecord{
			EventID:       uint64(i),
			EventTimeUs:   uint64(i),
			ArrivalTimeUs: uint64(i + 1),
			LatencyUs:     1,
			OriginLabel:   "drain",
		})
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != records+1 {
		t.Fatalf("persisted %d rows, want %d", len(lines)-1, records)
	}
	if lines[records] != "25000,25000,25001,0.00,drain" {
		t.Errorf("last row = %q", lines[records])
	}
}

// TestRelaySink_PreservesOrder validates that rows land in handoff order
func TestRelaySink_PreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s, err := NewRelaySink(path, -1, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 100; i++ {
		s.Append(types.EventRecord{EventID: uint64(i), OriginLabel: "o"})
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")[1:]
	for i, line := range lines {
		want := string(appendRow(nil, &types.EventRecord{EventID: uint64(i + 1), OriginLabel: "o"}))
		if line+"\n" != want {
			t.Fatalf("row %d = %q, want %q", i, line, strings.TrimRight(want, "\n"))
		}
	}
}

// TestDiscard validates the stats-only no-op sink
func TestDiscard(t *testing.T) {
	var d Discard
	d.Append(types.EventRecord{EventID: 1})
	if err := d.Close(); err != nil {
		t.Errorf("Discard.Close() = %v", err)
	}
}
