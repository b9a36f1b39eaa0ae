package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestReporterOutput(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(Options{
		Label:          "yolov5s.pt",
		TotalSize:      1000,
		Output:         &buf,
		UpdateInterval: 10 * time.Millisecond,
	})

	r.Start()
	r.Add(500)
	time.Sleep(30 * time.Millisecond)
	r.Add(500)
	r.Stop()
	time.Sleep(20 * time.Millisecond)

	out := buf.String()
	if !strings.Contains(out, "yolov5s.pt") {
		t.Errorf("output missing label: %q", out)
	}
	if !strings.Contains(out, "Downloading") {
		t.Errorf("output missing header: %q", out)
	}
}

func TestReporterNilSafe(t *testing.T) {
	var r *Reporter
	r.Start()
	r.Add(100)
	r.Reset()
	r.SetTotal(10)
	r.Stop()

	w := r.CountingWriter(&bytes.Buffer{})
	if _, err := w.Write([]byte("ok")); err != nil {
		t.Fatalf("write through nil reporter: %v", err)
	}
}

func TestCountingWriter(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(Options{Output: &buf})

	w := r.CountingWriter(&bytes.Buffer{})
	if _, err := w.Write(make([]byte, 42)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := r.written.Load(); got != 42 {
		t.Errorf("written = %d, want 42", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
		{5 * 1024 * 1024 * 1024, "5.00 GB"},
		{2 * 1024 * 1024 * 1024 * 1024, "2.00 TB"},
	}

	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"100", 100, false},
		{"100B", 100, false},
		{"1KB", 1024, false},
		{"256MB", 256 * 1024 * 1024, false},
		{"1.5GB", 1536 * 1024 * 1024, false},
		{"2TB", 2 * 1024 * 1024 * 1024 * 1024, false},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseBytes(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBytes(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseBytes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
