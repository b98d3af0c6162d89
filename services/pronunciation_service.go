package services

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/antzucaro/matchr"

	"speakUpAPI/internal/types/pronunciation"
)

// ErrInvalidInput marks requests that are rejected before any state changes.
var ErrInvalidInput = errors.New("invalid input")

const (
	// Two words count as pronounced correctly when their normalized
	// Levenshtein similarity is strictly above this.
	wordMatchThreshold = 0.7

	// Deterministic stand-ins for the noisy sub-scores. Nothing downstream
	// depends on how prosody is produced, only that it lands in [0,100].
	fixedLengthNoiseFactor = 0.9
	fixedProsody           = 85
)

// PronunciationService scores a recognized transcript against a reference
// phrase. Scoring is deterministic unless a jitter source is supplied.
type PronunciationService struct {
	jitter *rand.Rand
}

func NewPronunciationService() *PronunciationService {
	return &PronunciationService{}
}

// NewPronunciationServiceWithJitter enables the UX "liveliness" noise on the
// fluency and prosody sub-scores. Not used in tests.
func NewPronunciationServiceWithJitter(r *rand.Rand) *PronunciationService {
	return &PronunciationService{jitter: r}
}

// Score assesses userTranscript against referenceText.
//
// Accuracy compares words positionally (no alignment search), completeness
// penalizes truncated attempts and fluency is a length-ratio pacing proxy.
// An empty transcript is a valid zero-ish score; an empty reference is
// ErrInvalidInput.
func (s *PronunciationService) Score(userTranscript, referenceText string) (*pronunciation.Score, error) {
	ref := strings.Fields(strings.ToLower(referenceText))
	if len(ref) == 0 {
		return nil, fmt.Errorf("%w: reference text must not be empty", ErrInvalidInput)
	}
	usr := strings.Fields(strings.ToLower(userTranscript))

	matched := 0
	for i := range ref {
		if i < len(usr) && wordsMatch(usr[i], ref[i]) {
			matched++
		}
	}
	longest := len(ref)
	if len(usr) > longest {
		longest = len(usr)
	}
	accuracy := float64(matched) / float64(longest)

	completeness := math.Min(float64(len(usr))/float64(len(ref)), 1.0)

	var fluency float64
	if len(usr) > 0 {
		ratio := math.Min(float64(len(usr))/float64(len(ref)), float64(len(ref))/float64(len(usr)))
		fluency = ratio * s.lengthNoiseFactor()
	}

	score := &pronunciation.Score{
		Accuracy:     toPercent(accuracy),
		Fluency:      toPercent(fluency),
		Completeness: toPercent(completeness),
		Prosody:      s.prosody(),
	}
	score.Overall = pronunciation.Compose(score.Accuracy, score.Fluency, score.Completeness, score.Prosody)
	return score, nil
}

func (s *PronunciationService) lengthNoiseFactor() float64 {
	if s.jitter == nil {
		return fixedLengthNoiseFactor
	}
	return 0.8 + 0.2*s.jitter.Float64()
}

func (s *PronunciationService) prosody() int {
	if s.jitter == nil {
		return fixedProsody
	}
	return toPercent(0.7 + 0.3*s.jitter.Float64())
}

func wordsMatch(a, b string) bool {
	return wordSimilarity(a, b) > wordMatchThreshold
}

// wordSimilarity is 1 - editDistance/maxLen, so it is symmetric and equals 1
// for identical words.
func wordSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	dist := matchr.Levenshtein(a, b)
	return 1 - float64(dist)/float64(longest)
}

// toPercent converts a [0,1] fraction to an integer percentage, round-half-up.
func toPercent(fraction float64) int {
	return int(math.Floor(fraction*100 + 0.5))
}
