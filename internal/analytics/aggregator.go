// Package analytics derives rollups from persisted complaints on demand.
// Nothing here is cached or stored; every summary is computed from the
// current complaint list.
package analytics

import (
	"sort"
	"strings"
	"time"

	"complaintbot/internal/domain"
)

const (
	topRoutesLimit = 10
	aspectLimit    = 7
)

func Summarize(complaints []domain.Complaint) domain.AnalyticsSummary {
	return domain.AnalyticsSummary{
		TopRoutes:            topRoutes(complaints),
		PriorityDistribution: priorityDistribution(complaints),
		AspectFrequency:      aspectFrequency(complaints),
		TimeOfDayHeatmap:     heatmap(complaints),
	}
}

func priorityDistribution(complaints []domain.Complaint) domain.PriorityDistribution {
	var d domain.PriorityDistribution
	for _, c := range complaints {
		switch c.Priority {
		case domain.PriorityLow:
			d.Low++
		case domain.PriorityMedium:
			d.Medium++
		case domain.PriorityHigh:
			d.High++
		case domain.PriorityCritical:
			d.Critical++
		}
	}
	return d
}

// topRoutes counts one mention per route object occurrence, ordered by count
// descending with lexicographic tie-break, capped at ten rows.
func topRoutes(complaints []domain.Complaint) []domain.RouteCount {
	counts := make(map[string]int)
	for _, c := range complaints {
		for _, tuple := range c.Tuples {
			for _, obj := range tuple.Objects {
				if obj.Type != domain.ObjectRoute {
					continue
				}
				route := strings.TrimSpace(obj.Value)
				if route == "" {
					continue
				}
				counts[route]++
			}
		}
	}

	out := make([]domain.RouteCount, 0, len(counts))
	for route, count := range counts {
		out = append(out, domain.RouteCount{Route: route, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Route < out[j].Route
	})
	if len(out) > topRoutesLimit {
		out = out[:topRoutesLimit]
	}
	return out
}

func aspectFrequency(complaints []domain.Complaint) []domain.AspectCount {
	counts := make(map[string]int)
	for _, c := range complaints {
		for _, tuple := range c.Tuples {
			for _, aspect := range tuple.Aspects {
				aspect = strings.TrimSpace(aspect)
				if aspect == "" {
					continue
				}
				counts[aspect]++
			}
		}
	}

	out := make([]domain.AspectCount, 0, len(counts))
	for aspect, count := range counts {
		out = append(out, domain.AspectCount{Aspect: aspect, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Aspect < out[j].Aspect
	})
	if len(out) > aspectLimit {
		out = out[:aspectLimit]
	}
	return out
}

// heatmap buckets complaints by weekday and hour of their submission time,
// falling back to created-at; a complaint with neither is left out. Only
// non-empty buckets are emitted, ordered day then hour ascending.
func heatmap(complaints []domain.Complaint) []domain.HeatmapBucket {
	type key struct{ day, hour int }
	counts := make(map[key]int)
	for _, c := range complaints {
		ts := c.SubmissionTime
		if ts.IsZero() {
			ts = c.CreatedAt
		}
		if ts.IsZero() {
			continue
		}
		counts[key{isoWeekday(ts), ts.Hour()}]++
	}

	out := make([]domain.HeatmapBucket, 0, len(counts))
	for k, count := range counts {
		out = append(out, domain.HeatmapBucket{Day: k.day, Hour: k.hour, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].Hour < out[j].Hour
	})
	return out
}

// isoWeekday maps Go's Sunday-first weekday to 1=Monday .. 7=Sunday.
func isoWeekday(ts time.Time) int {
	wd := int(ts.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
