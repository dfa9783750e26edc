// Package planner classifies a question and, when it carries multiple
// distinct informational needs, decomposes it into an ordered sequence of
// self-contained sub-questions. Classification is a pure function of the
// question text, so planning is deterministic and testable.
package planner

import (
	"regexp"
	"strings"
)

// Kind is the classification a question receives before decomposition.
type Kind string

const (
	KindSimple        Kind = "simple"
	KindCompound      Kind = "compound"
	KindComparative   Kind = "comparative"
	KindAnalytical    Kind = "analytical"
	KindSummarization Kind = "summarization"
)

// SubQuestion is one ordered step of a plan. QueryID is a back-reference to
// the originating query, relation only.
type SubQuestion struct {
	Index   int
	Text    string
	QueryID string
}

// Plan is the planner's terminal output: the classification plus the ordered
// sub-questions. Simple questions produce a single sub-question equal to the
// original.
type Plan struct {
	Kind         Kind
	SubQuestions []SubQuestion
}

// Pattern tables checked in a fixed order; the first matching family wins.
var (
	comparativePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(compare|vs|versus|difference between|similarity between)\b`),
		regexp.MustCompile(`\b(better than|worse than|superior to|inferior to)\b`),
	}
	analyticalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(analyze|analyse|evaluate|assess|examine|investigate)\b`),
		regexp.MustCompile(`\b(why does|how does|what causes|what leads to|what results in)\b`),
	}
	compoundPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(and also|additionally|furthermore|moreover|as well as)\b`),
		regexp.MustCompile(`\b(what are the|list all|enumerate|describe all)\b`),
		regexp.MustCompile(`\b(pros and cons|advantages and disadvantages)\b`),
	}
	summarizationWords = []string{"summarize", "summarise", "summary", "overview", "brief"}

	compoundSplitter   = regexp.MustCompile(`\b(?:and also|additionally|furthermore|moreover|as well as)\b|;`)
	entityPair         = regexp.MustCompile(`(.+?)\s+(?:vs\.?|versus|compared to|and)\s+(.+)`)
	leadingQuestioning = regexp.MustCompile(`^(what|how|why|when|where|who|which|tell me about|explain|describe|compare|analyze|analyse|evaluate|summarize|summarise)\s+`)
)

// Planner decomposes questions. It is stateless across queries.
type Planner struct{}

// New creates a Planner.
func New() *Planner { return &Planner{} }

// Plan classifies the question and produces the ordered sub-questions.
// Identical input always yields an identical plan.
func (p *Planner) Plan(queryID, question string) Plan {
	kind := classify(question)

	var texts []string
	switch kind {
	case KindComparative:
		texts = decomposeComparative(question)
	case KindAnalytical:
		texts = decomposeAnalytical(question)
	case KindCompound:
		texts = decomposeCompound(question)
	case KindSummarization:
		texts = decomposeSummarization(question)
	default:
		texts = []string{strings.TrimSpace(question)}
	}

	subs := make([]SubQuestion, len(texts))
	for i, text := range texts {
		subs[i] = SubQuestion{Index: i, Text: text, QueryID: queryID}
	}
	return Plan{Kind: kind, SubQuestions: subs}
}

// classify checks the pattern families in a fixed order: comparative, then
// analytical, then compound, then summarization. Anything left is simple.
func classify(question string) Kind {
	lower := strings.ToLower(question)

	for _, pattern := range comparativePatterns {
		if pattern.MatchString(lower) {
			return KindComparative
		}
	}
	for _, pattern := range analyticalPatterns {
		if pattern.MatchString(lower) {
			return KindAnalytical
		}
	}
	for _, pattern := range compoundPatterns {
		if pattern.MatchString(lower) {
			return KindCompound
		}
	}
	for _, word := range summarizationWords {
		if strings.Contains(lower, word) {
			return KindSummarization
		}
	}
	return KindSimple
}

// decomposeComparative splits "A vs B" style questions into one sub-question
// per entity plus a closing contrast question.
func decomposeComparative(question string) []string {
	topic := extractTopic(question)
	if m := entityPair.FindStringSubmatch(topic); m != nil {
		left := strings.TrimSpace(m[1])
		right := strings.TrimSpace(m[2])
		if left != "" && right != "" {
			return []string{
				"What is " + left + "?",
				"What is " + right + "?",
				"What are the differences between " + left + " and " + right + "?",
			}
		}
	}
	return []string{
		"What is " + topic + "?",
		"What distinguishes " + topic + "?",
	}
}

func decomposeAnalytical(question string) []string {
	topic := extractTopic(question)
	return []string{
		"What is " + topic + "?",
		"What are the key points about " + topic + "?",
	}
}

// decomposeCompound splits on conjunctions; fragments too short to stand on
// their own are dropped. When no usable split exists the question falls back
// to a definition plus key-points pair.
func decomposeCompound(question string) []string {
	parts := compoundSplitter.Split(question, -1)
	var texts []string
	for _, part := range parts {
		part = strings.TrimSpace(strings.Trim(part, ".,;?"))
		if len(part) > 10 {
			if !strings.HasSuffix(part, "?") {
				part += "?"
			}
			texts = append(texts, part)
		}
	}
	if len(texts) > 1 {
		return texts
	}
	topic := extractTopic(question)
	return []string{
		"What is " + topic + "?",
		"What are the key points about " + topic + "?",
	}
}

func decomposeSummarization(question string) []string {
	topic := extractTopic(question)
	return []string{
		"What is the main information about " + topic + "?",
		"What are the important details about " + topic + "?",
	}
}

// extractTopic strips leading question scaffolding and trailing punctuation,
// keeping at most the first eight words.
func extractTopic(question string) string {
	topic := strings.ToLower(strings.TrimSpace(question))
	for {
		stripped := leadingQuestioning.ReplaceAllString(topic, "")
		stripped = strings.TrimPrefix(stripped, "is ")
		stripped = strings.TrimPrefix(stripped, "are ")
		stripped = strings.TrimPrefix(stripped, "the ")
		if stripped == topic {
			break
		}
		topic = stripped
	}
	topic = strings.TrimRight(topic, "?!. ")
	words := strings.Fields(topic)
	if len(words) > 8 {
		words = words[:8]
	}
	return strings.Join(words, " ")
}
