// Package digest renders the daily analytics rollup as a markdown file and
// schedules its generation.
package digest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"complaintbot/internal/domain"
)

// Render builds the markdown digest body. Labels follow the requested
// language, defaulting to Kazakh for anything unknown.
func Render(summary domain.AnalyticsSummary, total int, date time.Time, lang domain.Language) string {
	if !lang.Valid() {
		lang = domain.LangKK
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Complaint digest %s\n\n", date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Total complaints: **%d**\n\n", total)

	b.WriteString("## Priority\n\n")
	d := summary.PriorityDistribution
	for _, row := range []struct {
		p     domain.Priority
		count int
	}{
		{domain.PriorityCritical, d.Critical},
		{domain.PriorityHigh, d.High},
		{domain.PriorityMedium, d.Medium},
		{domain.PriorityLow, d.Low},
	} {
		fmt.Fprintf(&b, "- %s: %d\n", domain.PriorityLabel(lang, row.p), row.count)
	}

	b.WriteString("\n## Top routes\n\n")
	if len(summary.TopRoutes) == 0 {
		b.WriteString("_no route mentions yet_\n")
	}
	for i, r := range summary.TopRoutes {
		fmt.Fprintf(&b, "%d. Route %s: %d\n", i+1, r.Route, r.Count)
	}

	b.WriteString("\n## Aspects\n\n")
	if len(summary.AspectFrequency) == 0 {
		b.WriteString("_no aspects yet_\n")
	}
	for _, a := range summary.AspectFrequency {
		fmt.Fprintf(&b, "- %s: %d\n", domain.AspectLabel(lang, a.Aspect), a.Count)
	}

	if len(summary.TimeOfDayHeatmap) > 0 {
		b.WriteString("\n## Busiest hours\n\n")
		for _, bucket := range busiest(summary.TimeOfDayHeatmap, 5) {
			fmt.Fprintf(&b, "- %s %02d:00: %d\n", weekdayName(bucket.Day), bucket.Hour, bucket.Count)
		}
	}
	return b.String()
}

// busiest picks the top buckets by count, keeping the day/hour order for
// equal counts.
func busiest(buckets []domain.HeatmapBucket, limit int) []domain.HeatmapBucket {
	out := make([]domain.HeatmapBucket, len(buckets))
	copy(out, buckets)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

var weekdayNames = [8]string{"", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func weekdayName(day int) string {
	if day < 1 || day > 7 {
		return "?"
	}
	return weekdayNames[day]
}

func WriteDigestFile(content, outputDir string, date time.Time) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("complaints_%s.md", date.Format("20060102"))
	path := filepath.Join(outputDir, filename)
	return path, os.WriteFile(path, []byte(content), 0644)
}
