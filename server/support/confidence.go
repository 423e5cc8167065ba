package support

import "github.com/deskpilot/deskpilot/server/kb"

// Default confidence weighting and tier thresholds. Retrieval quality is
// the primary signal, so similarity carries most of the weight.
const (
	DefaultSimilarityWeight = 0.7
	DefaultCertaintyWeight  = 0.3
	DefaultHighThreshold    = 0.7
	DefaultLowThreshold     = 0.4
)

// Scorer folds retrieval similarity and categorization certainty into one
// confidence value in [0,1] and maps it onto a behavioral tier.
type Scorer struct {
	similarityWeight float64
	certaintyWeight  float64
	highThreshold    float64
	lowThreshold     float64
}

// NewScorer creates a scorer. Weights must sum to 1; zero values select the
// defaults.
func NewScorer(similarityWeight, certaintyWeight, highThreshold, lowThreshold float64) *Scorer {
	if similarityWeight == 0 && certaintyWeight == 0 {
		similarityWeight = DefaultSimilarityWeight
		certaintyWeight = DefaultCertaintyWeight
	}
	if highThreshold == 0 {
		highThreshold = DefaultHighThreshold
	}
	if lowThreshold == 0 {
		lowThreshold = DefaultLowThreshold
	}
	return &Scorer{
		similarityWeight: similarityWeight,
		certaintyWeight:  certaintyWeight,
		highThreshold:    highThreshold,
		lowThreshold:     lowThreshold,
	}
}

// Score combines the best retrieval similarity with categorizer certainty.
// An empty retrieval result contributes 0 similarity; negative cosine
// similarity is clamped to 0 so confidence stays in [0,1]. Holding
// certainty fixed, higher best similarity never lowers the score.
func (s *Scorer) Score(result kb.RetrievalResult, certainty float64) float64 {
	var bestSim float64
	if best := result.Best(); best != nil {
		bestSim = best.Score
	}
	if bestSim < 0 {
		bestSim = 0
	}
	if bestSim > 1 {
		bestSim = 1
	}
	confidence := s.similarityWeight*bestSim + s.certaintyWeight*certainty
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// Tier maps a confidence value onto its discrete band.
func (s *Scorer) Tier(confidence float64) ConfidenceTier {
	switch {
	case confidence >= s.highThreshold:
		return TierHigh
	case confidence >= s.lowThreshold:
		return TierMedium
	default:
		return TierLow
	}
}
