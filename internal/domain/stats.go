package domain

import "sort"

// VisitStats summarises link usage for the statistics view.
type VisitStats struct {
	Ranked        []LinkItem `json:"ranked"`
	TotalVisits   int        `json:"totalVisits"`
	TotalLinks    int        `json:"totalLinks"`
	LastVisitedAt int64      `json:"lastVisitedAt,omitempty"`
}

// RankByVisits orders links by visit count, most visited first. Ties keep
// their original order.
func RankByVisits(links []LinkItem) VisitStats {
	ranked := CloneLinks(links)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].VisitCount > ranked[j].VisitCount
	})

	stats := VisitStats{Ranked: ranked, TotalLinks: len(links)}
	for _, l := range links {
		stats.TotalVisits += l.VisitCount
		if l.LastVisitedAt > stats.LastVisitedAt {
			stats.LastVisitedAt = l.LastVisitedAt
		}
	}
	if stats.Ranked == nil {
		stats.Ranked = []LinkItem{}
	}
	return stats
}
