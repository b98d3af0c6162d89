package pronunciation

import "math"

// Weights of the sub-scores in the overall composite. They must sum to 1.
const (
	WeightAccuracy     = 0.4
	WeightFluency      = 0.3
	WeightCompleteness = 0.2
	WeightProsody      = 0.1
)

// Score is the result of assessing one spoken attempt against a reference
// phrase. All values are integer percentages in [0,100].
type Score struct {
	Overall      int `json:"overall"`
	Accuracy     int `json:"accuracy"`
	Fluency      int `json:"fluency"`
	Completeness int `json:"completeness"`
	Prosody      int `json:"prosody"`
}

// Valid reports whether every field is within [0,100].
func (s *Score) Valid() bool {
	for _, v := range []int{s.Overall, s.Accuracy, s.Fluency, s.Completeness, s.Prosody} {
		if v < 0 || v > 100 {
			return false
		}
	}
	return true
}

// Compose combines the four sub-scores into the weighted overall score,
// rounded half-up.
func Compose(accuracy, fluency, completeness, prosody int) int {
	weighted := WeightAccuracy*float64(accuracy) +
		WeightFluency*float64(fluency) +
		WeightCompleteness*float64(completeness) +
		WeightProsody*float64(prosody)
	return int(math.Floor(weighted + 0.5))
}
