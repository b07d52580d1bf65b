package metrics

import (
	"math"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Bucket is one cumulative histogram bucket.
type Bucket struct {
	UpperBound float64 `json:"le"`
	Count      uint64  `json:"count"`
}

// LatencyHistogram is a per-provider attempt latency distribution in seconds.
type LatencyHistogram struct {
	Count   uint64   `json:"count"`
	Sum     float64  `json:"sum_seconds"`
	Buckets []Bucket `json:"buckets"`
}

// Mean returns the average latency in seconds, or 0 when empty.
func (h LatencyHistogram) Mean() float64 {
	if h.Count == 0 {
		return 0
	}
	return h.Sum / float64(h.Count)
}

// ProviderStats summarizes one provider's upstream attempts.
type ProviderStats struct {
	Attempts  uint64           `json:"attempts"`
	Failures  uint64           `json:"failures"`
	ErrorRate float64          `json:"error_rate"`
	Latency   LatencyHistogram `json:"latency"`
}

// CacheStats summarizes hits and misses across backends.
type CacheStats struct {
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

// ProviderStats reads the attempt counters and latency histograms back from
// the registry and aggregates them per provider, summing over models.
func (c *Collector) ProviderStats() (map[string]ProviderStats, error) {
	families, err := c.gather()
	if err != nil {
		return nil, err
	}

	stats := make(map[string]ProviderStats)

	for _, m := range families[c.name("provider_attempts_total")] {
		provider := label(m, "provider")
		s := stats[provider]
		n := uint64(m.GetCounter().GetValue())
		s.Attempts += n
		if label(m, "outcome") == "failure" {
			s.Failures += n
		}
		stats[provider] = s
	}

	for _, m := range families[c.name("provider_latency_seconds")] {
		provider := label(m, "provider")
		s := stats[provider]
		s.Latency = mergeHistogram(s.Latency, m.GetHistogram())
		stats[provider] = s
	}

	for provider, s := range stats {
		if s.Attempts > 0 {
			s.ErrorRate = float64(s.Failures) / float64(s.Attempts)
		}
		stats[provider] = s
	}
	return stats, nil
}

// CacheStats returns hit and miss totals across all backends.
func (c *Collector) CacheStats() (CacheStats, error) {
	families, err := c.gather()
	if err != nil {
		return CacheStats{}, err
	}

	var s CacheStats
	for _, m := range families[c.name("cache_hits_total")] {
		s.Hits += uint64(m.GetCounter().GetValue())
	}
	for _, m := range families[c.name("cache_misses_total")] {
		s.Misses += uint64(m.GetCounter().GetValue())
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRatio = float64(s.Hits) / float64(total)
	}
	return s, nil
}

func (c *Collector) name(metric string) string {
	return prometheus.BuildFQName(c.config.Namespace, c.config.Subsystem, metric)
}

func (c *Collector) gather() (map[string][]*dto.Metric, error) {
	mfs, err := c.registry.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]*dto.Metric, len(mfs))
	for _, mf := range mfs {
		out[mf.GetName()] = mf.GetMetric()
	}
	return out, nil
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// mergeHistogram adds h into acc. Both use the collector's bucket layout.
func mergeHistogram(acc LatencyHistogram, h *dto.Histogram) LatencyHistogram {
	acc.Count += h.GetSampleCount()
	acc.Sum += h.GetSampleSum()

	counts := make(map[float64]uint64, len(acc.Buckets))
	for _, b := range acc.Buckets {
		counts[b.UpperBound] = b.Count
	}
	for _, b := range h.GetBucket() {
		if math.IsInf(b.GetUpperBound(), 1) {
			continue
		}
		counts[b.GetUpperBound()] += b.GetCumulativeCount()
	}

	acc.Buckets = acc.Buckets[:0]
	for ub, n := range counts {
		acc.Buckets = append(acc.Buckets, Bucket{UpperBound: ub, Count: n})
	}
	sort.Slice(acc.Buckets, func(i, j int) bool { return acc.Buckets[i].UpperBound < acc.Buckets[j].UpperBound })
	return acc
}
