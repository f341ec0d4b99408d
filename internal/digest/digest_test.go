package digest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"complaintbot/internal/domain"
)

func sampleSummary() domain.AnalyticsSummary {
	return domain.AnalyticsSummary{
		TopRoutes: []domain.RouteCount{
			{Route: "12", Count: 3},
			{Route: "31", Count: 2},
		},
		PriorityDistribution: domain.PriorityDistribution{Low: 1, Medium: 2, High: 1, Critical: 1},
		AspectFrequency: []domain.AspectCount{
			{Aspect: "punctuality", Count: 4},
			{Aspect: "safety", Count: 1},
		},
		TimeOfDayHeatmap: []domain.HeatmapBucket{
			{Day: 1, Hour: 9, Count: 3},
			{Day: 7, Hour: 18, Count: 1},
		},
	}
}

func TestRenderUsesLocalizedLabels(t *testing.T) {
	date := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)

	kk := Render(sampleSummary(), 5, date, domain.LangKK)
	if !strings.Contains(kk, "2025-02-03") {
		t.Fatalf("digest must carry the date: %s", kk)
	}
	if !strings.Contains(kk, domain.PriorityLabel(domain.LangKK, domain.PriorityCritical)) {
		t.Fatalf("expected kk priority label in digest:\n%s", kk)
	}
	if !strings.Contains(kk, domain.AspectLabel(domain.LangKK, "punctuality")) {
		t.Fatalf("expected kk aspect label in digest:\n%s", kk)
	}
	if !strings.Contains(kk, "Route 12: 3") {
		t.Fatalf("expected top route line:\n%s", kk)
	}
	if !strings.Contains(kk, "Mon 09:00: 3") {
		t.Fatalf("expected busiest-hours line:\n%s", kk)
	}

	ru := Render(sampleSummary(), 5, date, domain.LangRU)
	if !strings.Contains(ru, domain.PriorityLabel(domain.LangRU, domain.PriorityCritical)) {
		t.Fatalf("expected ru priority label in digest:\n%s", ru)
	}

	// Unknown language falls back to Kazakh labels.
	fallback := Render(sampleSummary(), 5, date, domain.Language("en"))
	if !strings.Contains(fallback, domain.PriorityLabel(domain.LangKK, domain.PriorityCritical)) {
		t.Fatalf("expected kk fallback labels:\n%s", fallback)
	}
}

func TestRenderEmptySummary(t *testing.T) {
	date := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	out := Render(domain.AnalyticsSummary{}, 0, date, domain.LangKK)
	if !strings.Contains(out, "Total complaints: **0**") {
		t.Fatalf("expected zero total:\n%s", out)
	}
	if !strings.Contains(out, "_no route mentions yet_") {
		t.Fatalf("expected empty-routes placeholder:\n%s", out)
	}
	if strings.Contains(out, "Busiest hours") {
		t.Fatalf("empty heatmap must omit the section:\n%s", out)
	}
}

func TestBusiestKeepsOrderOnTies(t *testing.T) {
	buckets := []domain.HeatmapBucket{
		{Day: 1, Hour: 8, Count: 2},
		{Day: 1, Hour: 9, Count: 5},
		{Day: 2, Hour: 8, Count: 2},
	}
	got := busiest(buckets, 2)
	if got[0].Hour != 9 || got[1] != buckets[0] {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestWriteDigestFile(t *testing.T) {
	dir := t.TempDir()
	date := time.Date(2025, 2, 3, 7, 0, 0, 0, time.UTC)
	path, err := WriteDigestFile("# digest\n", filepath.Join(dir, "out"), date)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if filepath.Base(path) != "complaints_20250203.md" {
		t.Fatalf("unexpected filename %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if string(data) != "# digest\n" {
		t.Fatalf("content mismatch: %q", data)
	}
}
