// Package engine orchestrates planner, retriever and synthesizer across one
// or more reasoning steps and aggregates the partial answers into a final
// Answer with its evidence trail and confidence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/bull/corpusqa/internal/index"
	"github.com/bull/corpusqa/internal/planner"
	"github.com/bull/corpusqa/internal/retrieval"
	"github.com/bull/corpusqa/internal/synthesis"
)

var (
	// ErrTooManySteps guards against a misbehaving planner producing an
	// excessive decomposition.
	ErrTooManySteps = errors.New("query decomposition exceeds the step ceiling")

	// ErrNoAnswer is returned when every reasoning step failed and nothing
	// can be said without fabricating content.
	ErrNoAnswer = errors.New("no answer could be produced from the available evidence")
)

const (
	// DefaultMaxSteps bounds the reasoning loop.
	DefaultMaxSteps = 8

	// DefaultConfidenceFloor is the confidence assigned to a step whose
	// capability call failed.
	DefaultConfidenceFloor = 0.1

	// FallbackText marks a degraded step's partial answer.
	FallbackText = "insufficient evidence"

	// NoEvidenceText marks a step whose retrieval returned nothing.
	NoEvidenceText = "no supporting passages found"
)

// Config tunes the engine. Zero values select the defaults.
type Config struct {
	TopK            int
	MaxSteps        int
	ConfidenceFloor float64
	Logger          *slog.Logger
}

// Query is a user question plus an optional session identifier supplied by
// the host.
type Query struct {
	ID      string
	Text    string
	Session string
}

// Step records one reasoning step: the sub-question, its retrieved evidence,
// the synthesized partial answer and the step's confidence. Degraded marks
// steps whose capability call failed.
type Step struct {
	SubQuestion   planner.SubQuestion
	Evidence      []index.ScoredEntry
	PartialAnswer string
	Confidence    float64
	Degraded      bool
}

// Answer is the final synthesized response. Steps is the evidence trail in
// execution order; it is only empty when NoEvidence is set. Confidence is
// the minimum of the per-step confidences: an answer is only as reliable as
// its least-supported part.
type Answer struct {
	QueryID    string
	Kind       planner.Kind
	Text       string
	Steps      []Step
	Confidence float64
	NoEvidence bool
}

// Engine runs the retrieve-and-reason pipeline for one query at a time.
// Instances are safe for concurrent use; all state lives on the stack of a
// single Run call.
type Engine struct {
	planner   *planner.Planner
	retriever *retrieval.Retriever
	synth     synthesis.Synthesizer
	cfg       Config
}

// New creates an Engine. The synthesizer variant is chosen by the host at
// startup; the engine only sees the contract.
func New(p *planner.Planner, r *retrieval.Retriever, s synthesis.Synthesizer, cfg Config) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = retrieval.DefaultTopK
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.ConfidenceFloor <= 0 {
		cfg.ConfidenceFloor = DefaultConfidenceFloor
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{planner: p, retriever: r, synth: s, cfg: cfg}
}

// Ask runs a question with a fresh query id.
func (e *Engine) Ask(ctx context.Context, question string) (*Answer, error) {
	return e.Run(ctx, Query{ID: uuid.New().String(), Text: question})
}

// Run executes the full pipeline for one query. A cancelled context aborts
// the run and discards any partially computed steps; the engine never
// returns a partially aggregated Answer as if it were complete.
func (e *Engine) Run(ctx context.Context, q Query) (*Answer, error) {
	plan := e.planner.Plan(q.ID, q.Text)
	if len(plan.SubQuestions) > e.cfg.MaxSteps {
		return nil, fmt.Errorf("%w: planner produced %d steps, ceiling is %d",
			ErrTooManySteps, len(plan.SubQuestions), e.cfg.MaxSteps)
	}
	e.cfg.Logger.Info("Planned query",
		"query", q.ID, "kind", plan.Kind, "steps", len(plan.SubQuestions))

	steps := make([]Step, 0, len(plan.SubQuestions))
	failed, empty := 0, 0
	for _, sub := range plan.SubQuestions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step, err := e.runStep(ctx, sub)
		if err != nil {
			return nil, err
		}
		// A step with no evidence at all is a hard failure; a degraded
		// synthesis still has its retrieval trail and can stand as a
		// floor-confidence partial answer.
		if step.Degraded && len(step.Evidence) == 0 {
			failed++
		} else if len(step.Evidence) == 0 && !step.Degraded {
			empty++
		}
		steps = append(steps, step)
	}

	if failed == len(steps) {
		return nil, ErrNoAnswer
	}
	return e.aggregate(q, plan.Kind, steps, empty == len(steps)), nil
}

// runStep retrieves evidence for one sub-question and synthesizes a partial
// answer. Capability failures degrade the step to the confidence floor with
// fallback text instead of aborting the whole query. Index-structural errors
// indicate a configuration or data-integrity problem and are returned, not
// degraded.
func (e *Engine) runStep(ctx context.Context, sub planner.SubQuestion) (Step, error) {
	step := Step{SubQuestion: sub}

	evidence, err := e.retriever.Retrieve(ctx, sub.Text, e.cfg.TopK)
	if err != nil {
		if structuralError(err) {
			return step, fmt.Errorf("step %d: %w", sub.Index, err)
		}
		e.cfg.Logger.Warn("Retrieval failed, degrading step",
			"step", sub.Index, "error", err)
		step.PartialAnswer = FallbackText
		step.Confidence = e.cfg.ConfidenceFloor
		step.Degraded = true
		return step, nil
	}
	if len(evidence) == 0 {
		step.PartialAnswer = NoEvidenceText
		step.Confidence = 0
		return step, nil
	}
	step.Evidence = evidence

	result, err := e.synth.Answer(ctx, sub.Text, combinePassages(evidence))
	if err != nil {
		e.cfg.Logger.Warn("Synthesis failed, degrading step",
			"step", sub.Index, "error", err)
		step.PartialAnswer = FallbackText
		step.Confidence = e.cfg.ConfidenceFloor
		step.Degraded = true
		return step, nil
	}

	step.PartialAnswer = result.Text
	step.Confidence = stepConfidence(evidence, result.Confidence)
	e.cfg.Logger.Debug("Completed step",
		"step", sub.Index, "evidence", len(evidence), "confidence", step.Confidence)
	return step, nil
}

// structuralError reports whether a retrieval error indicates a broken
// index configuration rather than a transient capability failure.
func structuralError(err error) bool {
	return errors.Is(err, index.ErrDimensionMismatch) ||
		errors.Is(err, index.ErrIncompatibleIndex) ||
		errors.Is(err, index.ErrIDConflict)
}

// aggregate combines the partial answers in step order. A single-step query
// returns its partial answer unchanged; multi-step answers keep each part
// attributed to its sub-question.
func (e *Engine) aggregate(q Query, kind planner.Kind, steps []Step, noEvidence bool) *Answer {
	answer := &Answer{
		QueryID:    q.ID,
		Kind:       kind,
		Steps:      steps,
		NoEvidence: noEvidence,
	}

	min := steps[0].Confidence
	for _, step := range steps[1:] {
		if step.Confidence < min {
			min = step.Confidence
		}
	}
	answer.Confidence = min

	if noEvidence {
		answer.Text = NoEvidenceText
		return answer
	}
	if len(steps) == 1 {
		answer.Text = steps[0].PartialAnswer
		return answer
	}

	var sb strings.Builder
	for i, step := range steps {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "%s\n%s", step.SubQuestion.Text, step.PartialAnswer)
	}
	answer.Text = sb.String()
	return answer
}

// combinePassages joins the retrieved chunk texts, each tagged with its
// source so attribution survives synthesis.
func combinePassages(evidence []index.ScoredEntry) string {
	var sb strings.Builder
	for i, hit := range evidence {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		source := hit.Entry.Meta.Source
		if source == "" {
			source = hit.Entry.Meta.DocumentID
		}
		fmt.Fprintf(&sb, "[Source: %s]\n%s", source, hit.Entry.Meta.Text)
	}
	return sb.String()
}

// stepConfidence combines the mean retrieval similarity with the
// synthesizer's own signal by equal-weight average. Both inputs are clamped
// to [0, 1] first, so the function is monotone in each.
func stepConfidence(evidence []index.ScoredEntry, synthConfidence float64) float64 {
	var sum float64
	for _, hit := range evidence {
		sum += clamp01(hit.Score)
	}
	meanSimilarity := sum / float64(len(evidence))
	return 0.5*meanSimilarity + 0.5*clamp01(synthConfidence)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
