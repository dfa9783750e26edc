package synthesis

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
)

// DefaultMaxSentences is how many sentences the extractive answer keeps.
const DefaultMaxSentences = 3

var (
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]?`)
	wordPattern     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// ExtractiveSynthesizer is the degraded-mode variant: it selects the passage
// sentences that best overlap the question's vocabulary and returns them in
// document order. No model call is made, so it is always available and fully
// deterministic.
type ExtractiveSynthesizer struct {
	maxSentences int
}

// NewExtractiveSynthesizer creates a synthesizer keeping up to maxSentences
// sentences. A non-positive value uses DefaultMaxSentences.
func NewExtractiveSynthesizer(maxSentences int) *ExtractiveSynthesizer {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	return &ExtractiveSynthesizer{maxSentences: maxSentences}
}

// Answer scores each passage sentence by its Ochiai token overlap with the
// question and returns the best ones in their original order. Confidence is
// the score of the best selected sentence.
func (s *ExtractiveSynthesizer) Answer(ctx context.Context, question, passage string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	sentences := sentencePattern.FindAllString(passage, -1)
	questionTokens := tokenSet(question)
	if len(sentences) == 0 || len(questionTokens) == 0 {
		trimmed := strings.TrimSpace(passage)
		if trimmed == "" {
			return Result{Text: "", Confidence: 0}, nil
		}
		return Result{Text: firstSentences(trimmed, s.maxSentences), Confidence: 0.1}, nil
	}

	type scored struct {
		pos   int
		text  string
		score float64
	}
	candidates := make([]scored, 0, len(sentences))
	for pos, sentence := range sentences {
		trimmed := strings.TrimSpace(sentence)
		if trimmed == "" {
			continue
		}
		candidates = append(candidates, scored{
			pos:   pos,
			text:  trimmed,
			score: ochiai(questionTokens, tokenSet(trimmed)),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	keep := candidates
	if len(keep) > s.maxSentences {
		keep = keep[:s.maxSentences]
	}
	// Restore document order so the extract reads coherently.
	sort.Slice(keep, func(i, j int) bool { return keep[i].pos < keep[j].pos })

	var best float64
	parts := make([]string, 0, len(keep))
	for _, c := range keep {
		parts = append(parts, c.text)
		if c.score > best {
			best = c.score
		}
	}
	return Result{Text: strings.Join(parts, " "), Confidence: best}, nil
}

func firstSentences(text string, n int) string {
	sentences := sentencePattern.FindAllString(text, -1)
	if len(sentences) > n {
		sentences = sentences[:n]
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}
	return strings.Join(sentences, " ")
}

func tokenSet(text string) map[string]struct{} {
	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// ochiai computes |A∩B| / sqrt(|A|·|B|), a cosine over token sets.
func ochiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}
