// Package analytics derives per-location performance summaries from the
// history ledger. Nothing here is cached or persisted: every read
// recomputes from the full ledger, which stays cheap at the volumes a
// single vendor accumulates.
package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/munchmap/truck-radar/internal/models"
)

// DefaultBestLimit is the truncation applied by BestLocations when the
// caller does not specify one.
const DefaultBestLimit = 5

// Aggregate groups ledger entries into coordinate buckets (3 decimal
// places, roughly 111 m) and summarizes each bucket. Results are sorted
// descending by average revenue.
func Aggregate(entries []models.LocationHistoryEntry) []models.LocationAnalytics {
	type bucket struct {
		address string
		entries []models.LocationHistoryEntry
	}

	buckets := make(map[string]*bucket)
	var order []string
	for _, entry := range entries {
		key := BucketKey(entry.Latitude, entry.Longitude)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{address: entry.Address}
			buckets[key] = b
			order = append(order, key)
		}
		b.entries = append(b.entries, entry)
	}

	out := make([]models.LocationAnalytics, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		avgCustomers := meanCustomers(b.entries)
		avgRevenue := meanRevenue(b.entries)
		out = append(out, models.LocationAnalytics{
			LocationID:   key,
			Address:      b.address,
			VisitCount:   len(b.entries),
			AvgCustomers: avgCustomers,
			AvgRevenue:   avgRevenue,
			BestDays:     bestDays(b.entries),
			BestTimeSlot: bestTimeSlot(b.entries),
			Rating:       rating(avgRevenue),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AvgRevenue > out[j].AvgRevenue
	})
	return out
}

// BestLocations truncates the aggregated list to limit entries.
func BestLocations(entries []models.LocationHistoryEntry, limit int) []models.LocationAnalytics {
	if limit <= 0 {
		limit = DefaultBestLimit
	}
	out := Aggregate(entries)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// BucketKey rounds a coordinate to the 3-decimal grouping key. The
// coarseness is deliberate: it merges near-duplicate stops into one
// logical location.
func BucketKey(lat, lng float64) string {
	return fmt.Sprintf("%.3f,%.3f", lat, lng)
}

// meanCustomers averages CustomersServed over entries that carry it;
// entries missing the field are excluded, not treated as zero.
func meanCustomers(entries []models.LocationHistoryEntry) float64 {
	sum, n := 0.0, 0
	for _, entry := range entries {
		if entry.CustomersServed != nil {
			sum += float64(*entry.CustomersServed)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func meanRevenue(entries []models.LocationHistoryEntry) float64 {
	sum, n := 0.0, 0
	for _, entry := range entries {
		if entry.Revenue != nil {
			sum += *entry.Revenue
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// bestDays returns the top 3 weekday names by session frequency, ties
// broken by first-encountered order.
func bestDays(entries []models.LocationHistoryEntry) []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	var days []string
	for i, entry := range entries {
		day := entry.StartTime.Weekday().String()
		if _, ok := counts[day]; !ok {
			firstSeen[day] = i
			days = append(days, day)
		}
		counts[day]++
	}

	sort.SliceStable(days, func(i, j int) bool {
		if counts[days[i]] != counts[days[j]] {
			return counts[days[i]] > counts[days[j]]
		}
		return firstSeen[days[i]] < firstSeen[days[j]]
	})
	if len(days) > 3 {
		days = days[:3]
	}
	return days
}

// bestTimeSlot renders the single most frequent start hour as an
// "HH:00 - HH:00" label, or "N/A" with no entries.
func bestTimeSlot(entries []models.LocationHistoryEntry) string {
	if len(entries) == 0 {
		return "N/A"
	}
	var counts [24]int
	firstSeen := [24]int{}
	for i, entry := range entries {
		h := entry.StartTime.Hour()
		if counts[h] == 0 {
			firstSeen[h] = i
		}
		counts[h]++
	}
	best := -1
	for h := 0; h < 24; h++ {
		if counts[h] == 0 {
			continue
		}
		if best == -1 || counts[h] > counts[best] ||
			(counts[h] == counts[best] && firstSeen[h] < firstSeen[best]) {
			best = h
		}
	}
	return fmt.Sprintf("%02d:00 - %02d:00", best, best+1)
}

// rating bands average revenue linearly into 1-5: clamp(round(avg/100)).
func rating(avgRevenue float64) int {
	r := int(math.Round(avgRevenue / 100))
	if r < 1 {
		return 1
	}
	if r > 5 {
		return 5
	}
	return r
}
