package search

import "sort"

// degenerateScore is used when a backend's result set is too small for
// min-max normalization, or when all raw scores are equal.
const degenerateScore = 0.5

// BackendResults is one backend's contribution to a fusion pass.
type BackendResults struct {
	Backend Backend
	Results []*Result
}

// Fusion merges per-backend result lists into one ranked list using
// min-max normalization within each backend followed by weighted
// additive aggregation across backends.
type Fusion struct {
	// StructuredConfidence is the fixed normalized score assigned to
	// structured hits, which carry no continuous relevance score.
	StructuredConfidence float64
}

// NewFusion creates a fusion instance.
// If structuredConfidence is not in (0, 1], the default is used.
func NewFusion(structuredConfidence float64) *Fusion {
	if structuredConfidence <= 0 || structuredConfidence > 1 {
		structuredConfidence = DefaultStructuredConfidence
	}
	return &Fusion{StructuredConfidence: structuredConfidence}
}

// Fuse normalizes each backend's scores over that backend's own result
// set, then sums normalized_score x backend_weight per chunk ID.
// Chunks confirmed by multiple backends accumulate contributions and
// outrank single-backend hits of equal individual score.
//
// Ranking is by fused score descending with a stable tie-break on
// first-seen insertion order, truncated to k.
func (f *Fusion) Fuse(backendResults []BackendResults, weights Weights, k int) []*Result {
	fused := make(map[string]*Result)
	var order []string

	for _, br := range backendResults {
		f.normalize(br)
		weight := backendWeight(br.Backend, weights)

		for _, r := range br.Results {
			entry, seen := fused[r.ChunkID]
			if !seen {
				// First-seen backend supplies the representative
				// source and metadata
				entry = r
				fused[r.ChunkID] = entry
				order = append(order, r.ChunkID)
			}
			entry.FusedScore += r.NormalizedScore * weight
		}
	}

	results := make([]*Result, 0, len(order))
	for _, id := range order {
		results = append(results, fused[id])
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FusedScore > results[j].FusedScore
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

// normalize scales one backend's raw scores to [0,1] in place.
// Structured hits skip min-max and receive the fixed confidence score.
// Zero or one result, or a flat score distribution, yields the
// degenerate score for every entry rather than dividing by zero.
func (f *Fusion) normalize(br BackendResults) {
	if br.Backend == BackendStructured {
		for _, r := range br.Results {
			r.NormalizedScore = f.StructuredConfidence
		}
		return
	}

	if len(br.Results) <= 1 {
		for _, r := range br.Results {
			r.NormalizedScore = degenerateScore
		}
		return
	}

	minScore := br.Results[0].RawScore
	maxScore := br.Results[0].RawScore
	for _, r := range br.Results[1:] {
		if r.RawScore < minScore {
			minScore = r.RawScore
		}
		if r.RawScore > maxScore {
			maxScore = r.RawScore
		}
	}

	if maxScore == minScore {
		for _, r := range br.Results {
			r.NormalizedScore = degenerateScore
		}
		return
	}

	span := maxScore - minScore
	for _, r := range br.Results {
		r.NormalizedScore = (r.RawScore - minScore) / span
	}
}

func backendWeight(b Backend, w Weights) float64 {
	switch b {
	case BackendVector:
		return w.Vector
	case BackendLexical:
		return w.Lexical
	case BackendStructured:
		return w.Structured
	default:
		return 0
	}
}
