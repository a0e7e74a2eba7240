// Package pipeline orchestrates a redaction run: flatten existing
// revisions, extract text, detect spans with rules and optionally a
// model backend, resolve conflicts, and apply tracked changes. A run is
// all-or-nothing: any apply failure leaves the input untouched.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/LegalMarc/marcut/internal/chunker"
	"github.com/LegalMarc/marcut/internal/docx"
	"github.com/LegalMarc/marcut/internal/interpret"
	"github.com/LegalMarc/marcut/internal/llm"
	"github.com/LegalMarc/marcut/internal/logging"
	"github.com/LegalMarc/marcut/internal/resolve"
	"github.com/LegalMarc/marcut/internal/rules"
	"github.com/LegalMarc/marcut/internal/span"
)

// Job describes one redaction run over a WordprocessingML document part.
type Job struct {
	Document  []byte
	InputName string

	// Rels, when present, holds the part's relationship declarations so
	// the rewritten document can be checked for dangling references.
	Rels []byte
	// Clean carries metadata-scrub toggles through to the report.
	Clean *docx.CleanSettings

	// Mode is "rules" or "hybrid". Hybrid requires Client.
	Mode    string
	Backend string
	Model   string
	Author  string

	Workers  int
	MaxChunk int
	Overlap  int

	Client  llm.Client
	Options llm.Options
	Retry   llm.RetryPolicy
}

// Result carries the redacted document and everything needed for the
// audit report. On an apply failure Document holds the original bytes.
type Result struct {
	Document []byte
	Spans    []span.Span
	Report   *Report

	// Degraded is set when hybrid mode lost its backend and fell back
	// to rules-only output.
	Degraded bool
	// FlattenedRevisions is set when the input carried tracked changes
	// that were accepted before processing.
	FlattenedRevisions bool
}

// ReplacementTag renders the text inserted in place of a redacted span.
func ReplacementTag(l span.Label) string {
	return "[" + string(l) + "]"
}

// Run executes one redaction job.
func Run(ctx context.Context, job Job) (*Result, error) {
	log := logging.Get(logging.Pipeline)
	if err := validate(&job); err != nil {
		return nil, err
	}

	flat, flattened, err := docx.FlattenRevisions(job.Document)
	if err != nil {
		return nil, stageErr("load", CodeDocLoadFailed, err)
	}
	if flattened {
		log.Infow("accepted existing tracked changes", "input", job.InputName)
	}

	doc, err := docx.ParsePart(flat)
	if err != nil {
		return nil, stageErr("load", CodeDocLoadFailed, err)
	}
	applier := docx.NewApplier(doc, job.Author)
	text := applier.Text()

	vocab := rules.NewVocabulary()
	detected := rules.NewEngine(vocab).Detect(text)
	log.Infow("rule detection complete", "spans", len(detected))

	degraded := false
	if job.Mode == "hybrid" {
		llmSpans, err := extractAll(ctx, job, vocab, text)
		switch {
		case err == nil:
			log.Infow("model extraction complete", "spans", len(llmSpans))
			detected = append(detected, llmSpans...)
		case errors.Is(err, llm.ErrBackendUnavailable):
			degraded = true
			log.Warnw("model backend unavailable, falling back to rules-only output", "error", err)
		default:
			return nil, stageErr("extract", CodeAIProcessingFailed, err)
		}
	}

	resolved := resolve.New(vocab).Resolve(text, detected)

	redactions := make([]docx.Redaction, len(resolved))
	for i, s := range resolved {
		redactions[i] = docx.Redaction{Start: s.Start, End: s.End, Replacement: ReplacementTag(s.Label)}
	}
	if err := applier.Apply(redactions); err != nil {
		return &Result{Document: job.Document}, stageErr("apply", CodeOutputSaveFailed, err)
	}

	out := docx.Serialize(doc)
	if job.Rels != nil {
		if err := docx.CheckRelationshipRefs(out, job.Rels); err != nil {
			return &Result{Document: job.Document}, stageErr("apply", CodeOutputSaveFailed, err)
		}
	}

	res := &Result{
		Document:           out,
		Spans:              resolved,
		Degraded:           degraded,
		FlattenedRevisions: flattened,
	}
	res.Report = NewReport(job, resolved, degraded)
	log.Infow("redaction complete", "input", job.InputName, "redactions", len(resolved), "degraded", degraded)
	return res, nil
}

// validate rejects unusable jobs and fills defaults in place.
func validate(job *Job) error {
	switch job.Mode {
	case "rules", "hybrid":
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrValidation, job.Mode)
	}
	switch job.Backend {
	case "", "ollama", "mock":
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrValidation, job.Backend)
	}
	if job.Mode == "hybrid" && job.Client == nil {
		return fmt.Errorf("%w: hybrid mode requires a model client", ErrValidation)
	}
	if len(job.Document) == 0 {
		return fmt.Errorf("%w: empty document", ErrValidation)
	}
	if job.Workers <= 0 {
		job.Workers = 4
	}
	if job.MaxChunk <= 0 {
		job.MaxChunk = 4000
	}
	if job.Overlap < 0 || job.Overlap >= job.MaxChunk {
		return fmt.Errorf("%w: overlap %d out of range [0, %d)", ErrValidation, job.Overlap, job.MaxChunk)
	}
	if job.Author == "" {
		job.Author = "Marcut"
	}
	return nil
}

// extractAll fans chunks out to the backend with a bounded worker pool.
// A failed chunk stops new chunks from being issued; calls already in
// flight run to completion or their own timeout. Results are collected
// per chunk index so output order does not depend on scheduling.
func extractAll(ctx context.Context, job Job, vocab *rules.Vocabulary, text string) ([]span.Span, error) {
	chunks, err := chunker.Make(text, job.MaxChunk, job.Overlap)
	if err != nil {
		return nil, err
	}
	ex := llm.NewExtractor(job.Client, interpret.New(vocab), job.Retry, logging.Get(logging.LLM))

	results := make([][]span.Span, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(job.Workers)
	for i, c := range chunks {
		if gctx.Err() != nil {
			break
		}
		i, c := i, c
		g.Go(func() error {
			spans, err := ex.ExtractChunk(ctx, c.Text, c.Start, job.Options)
			if err != nil {
				return err
			}
			results[i] = spans
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []span.Span
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
