package report

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

var pathNow = time.Date(2026, 8, 31, 15, 4, 5, 0, time.UTC)

func TestBuildOutputPath_Default(t *testing.T) {
	log := zaptest.NewLogger(t)

	got := BuildOutputPath("/out", "report.xml", "", "run-1", pathNow, false, log)
	want := filepath.Join("/out", "report_2026-08-31_time_15-04-05.xml")
	if got != want {
		t.Fatalf("BuildOutputPath() = %q, want %q", got, want)
	}
}

func TestBuildOutputPath_Template(t *testing.T) {
	log := zaptest.NewLogger(t)

	got := BuildOutputPath("/out", "report.xml", "{{.Name}}-{{.RunID}}", "run-1", pathNow, false, log)
	want := filepath.Join("/out", "report-run-1.xml")
	if got != want {
		t.Fatalf("BuildOutputPath() = %q, want %q", got, want)
	}
}

func TestBuildOutputPath_TemplateWithSprig(t *testing.T) {
	log := zaptest.NewLogger(t)

	got := BuildOutputPath("/out", "report.xml", `{{.Name | upper}}_{{.Date}}`, "run-1", pathNow, false, log)
	want := filepath.Join("/out", "REPORT_2026-08-31.xml")
	if got != want {
		t.Fatalf("BuildOutputPath() = %q, want %q", got, want)
	}
}

func TestBuildOutputPath_BadTemplateFallsBack(t *testing.T) {
	log := zaptest.NewLogger(t)

	got := BuildOutputPath("/out", "report.xml", "{{.NoSuchField}}", "run-1", pathNow, false, log)
	want := filepath.Join("/out", "report_2026-08-31_time_15-04-05.xml")
	if got != want {
		t.Fatalf("BuildOutputPath() = %q, want %q (default scheme)", got, want)
	}
}

func TestBuildOutputPath_Transliterate(t *testing.T) {
	log := zaptest.NewLogger(t)

	got := BuildOutputPath("/out", "Weekly Report.xml", "{{.Name}}", "run-1", pathNow, true, log)
	want := filepath.Join("/out", "weekly-report.xml")
	if got != want {
		t.Fatalf("BuildOutputPath() = %q, want %q", got, want)
	}
}

func TestBuildOutputPath_TemplateCannotEscapeDir(t *testing.T) {
	log := zaptest.NewLogger(t)

	got := BuildOutputPath("/out", "report.xml", "../../{{.Name}}", "run-1", pathNow, false, log)
	want := filepath.Join("/out", "report.xml")
	if got != want {
		t.Fatalf("BuildOutputPath() = %q, want separators stripped (%q)", got, want)
	}
}

func TestCleanFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report", "report"},
		{"a/b\\c", "abc"},
		{"...hidden", "hidden"},
		{"///", "_bad_file_name_"},
	}
	for _, tt := range tests {
		if got := cleanFileName(tt.in); got != tt.want {
			t.Errorf("cleanFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
