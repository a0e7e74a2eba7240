package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LegalMarc/marcut/internal/config"
	"github.com/LegalMarc/marcut/internal/docx"
	"github.com/LegalMarc/marcut/internal/llm"
	"github.com/LegalMarc/marcut/internal/logging"
	"github.com/LegalMarc/marcut/internal/pipeline"
	"github.com/LegalMarc/marcut/internal/resolve"
	"github.com/LegalMarc/marcut/internal/rules"
)

var (
	// Global flags
	verbose    bool
	logFile    string
	configPath string

	// redact flags
	inPath     string
	outPath    string
	reportPath string
	mode       string
	backend    string
	model      string
	author     string
	workers    int
	chunkChars int
	overlap    int
	temp       float64
	seed       int
	cleanArgs  []string
)

var rootCmd = &cobra.Command{
	Use:   "marcut",
	Short: "marcut - local DOCX redaction with tracked changes",
	Long: `marcut redacts legal DOCX documents on your machine.

Detection combines a deterministic rule engine with an optional local
model backend (Ollama). Every redaction is applied as a Word tracked
change, so reviewers see exactly what was removed and what replaced it,
and an audit report is written alongside the output.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadDotEnv()
		if err := logging.Initialize(verbose, logFile); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Sync()
	},
}

var redactCmd = &cobra.Command{
	Use:   "redact",
	Short: "Redact a DOCX file and write an audit report",
	Long: `Runs the full redaction pipeline over a .docx file:
  1. Accept any tracked changes already in the document
  2. Detect sensitive spans (rules, plus the model backend in hybrid mode)
  3. Resolve overlaps and propagate consistent entities
  4. Apply each redaction as a tracked change
  5. Write a JSON audit report

Example:
  marcut redact --in contract.docx --out contract.redacted.docx --report contract.report.json`,
	RunE: runRedact,
}

var rulesCmd = &cobra.Command{
	Use:   "rules [input.docx]",
	Short: "Print rule-engine detections without modifying the document",
	Long: `Runs detection and resolution in rules-only mode and prints the
resulting spans as JSON. The document is not modified. Useful for
inspecting what a rules-mode redact run would target.`,
	Args: cobra.ExactArgs(1),
	RunE: runRules,
}

var reportCmd = &cobra.Command{
	Use:   "report [report.json]",
	Short: "Summarize an audit report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Duplicate log output to this file")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "marcut.yaml", "Configuration file")

	redactCmd.Flags().StringVar(&inPath, "in", "", "Input .docx (required)")
	redactCmd.Flags().StringVar(&outPath, "out", "", "Output .docx (required)")
	redactCmd.Flags().StringVar(&reportPath, "report", "", "Audit report path (required)")
	redactCmd.Flags().StringVar(&mode, "mode", "", "Detection mode: rules or hybrid")
	redactCmd.Flags().StringVar(&backend, "backend", "", "Model backend: ollama or mock")
	redactCmd.Flags().StringVar(&model, "model", "", "Model identifier")
	redactCmd.Flags().StringVar(&author, "author", "", "Tracked-change author name")
	redactCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent model calls")
	redactCmd.Flags().IntVar(&chunkChars, "chunk-chars", 0, "Chunk window size in characters")
	redactCmd.Flags().IntVar(&overlap, "overlap", -1, "Chunk overlap in characters")
	redactCmd.Flags().Float64Var(&temp, "temp", -1, "Sampling temperature")
	redactCmd.Flags().IntVar(&seed, "seed", -1, "Sampling seed")
	redactCmd.Flags().StringSliceVar(&cleanArgs, "clean-arg", nil, "Metadata cleaning argument (repeatable, e.g. --clean-arg=--no-clean-author)")
	_ = redactCmd.MarkFlagRequired("in")
	_ = redactCmd.MarkFlagRequired("out")
	_ = redactCmd.MarkFlagRequired("report")

	rootCmd.AddCommand(redactCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig layers explicitly set flags over the config file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	f := cmd.Flags()
	if f.Changed("mode") {
		cfg.Mode = mode
	}
	if f.Changed("backend") {
		cfg.Backend = backend
	}
	if f.Changed("model") {
		cfg.Model = model
	}
	if f.Changed("author") {
		cfg.Author = author
	}
	if f.Changed("workers") {
		cfg.Workers = workers
	}
	if f.Changed("chunk-chars") {
		cfg.Chunking.MaxChars = chunkChars
	}
	if f.Changed("overlap") {
		cfg.Chunking.Overlap = overlap
	}
	if f.Changed("temp") {
		cfg.LLM.Temperature = temp
	}
	if f.Changed("seed") {
		cfg.LLM.Seed = seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildClient(cfg *config.Config) llm.Client {
	if cfg.Mode != "hybrid" {
		return nil
	}
	if cfg.Backend == "mock" {
		return llm.NewMockClient()
	}
	return llm.NewOllamaClient(cfg.LLM.BaseURL, cfg.Model, cfg.LLMTimeout())
}

// textParts lists the WordprocessingML parts that carry document text:
// the body plus any headers, footers, footnotes, and endnotes.
func textParts(pkg *docx.Package) []string {
	parts := []string{docx.MainPartName}
	for _, name := range pkg.PartNames() {
		if name == docx.MainPartName || !strings.HasSuffix(name, ".xml") {
			continue
		}
		switch {
		case strings.HasPrefix(name, "word/header"),
			strings.HasPrefix(name, "word/footer"),
			name == "word/footnotes.xml",
			name == "word/endnotes.xml":
			parts = append(parts, name)
		}
	}
	return parts
}

// relsNameFor maps a part to its relationship declarations, e.g.
// word/header1.xml -> word/_rels/header1.xml.rels.
func relsNameFor(part string) string {
	return path.Dir(part) + "/_rels/" + path.Base(part) + ".rels"
}

func runRedact(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	pkg, err := docx.OpenPackage(inPath)
	if err != nil {
		return err
	}
	if _, ok := pkg.Part(docx.MainPartName); !ok {
		return fmt.Errorf("%s is not a Word document: missing %s", inPath, docx.MainPartName)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var clean *docx.CleanSettings
	if cmd.Flags().Changed("clean-arg") {
		cs := docx.CleanSettingsFromArgs(cleanArgs)
		clean = &cs
	}
	client := buildClient(cfg)

	var (
		report   *pipeline.Report
		total    int
		degraded bool
	)
	for _, partName := range textParts(pkg) {
		partData, _ := pkg.Part(partName)
		rels, _ := pkg.Part(relsNameFor(partName))

		job := pipeline.Job{
			Document:  partData,
			InputName: inPath,
			Rels:      rels,
			Mode:      cfg.Mode,
			Backend:   cfg.Backend,
			Model:     cfg.Model,
			Author:    cfg.Author,
			Workers:   cfg.Workers,
			MaxChunk:  cfg.Chunking.MaxChars,
			Overlap:   cfg.Chunking.Overlap,
			Client:    client,
			Options:   llm.Options{Temperature: cfg.LLM.Temperature, Seed: cfg.LLM.Seed},
			Retry:     llm.DefaultRetryPolicy(),
			Clean:     clean,
		}

		res, err := pipeline.Run(ctx, job)
		if err != nil {
			_ = pipeline.NewFailureReport(inPath, err).Write(reportPath)
			return err
		}
		degraded = degraded || res.Degraded

		if len(res.Spans) > 0 || res.FlattenedRevisions {
			if err := pkg.SetPart(partName, res.Document); err != nil {
				return err
			}
		}

		if partName == docx.MainPartName {
			report = res.Report
			for i := range report.Spans {
				report.Spans[i].Part = partName
			}
		} else {
			for _, row := range res.Report.Spans {
				row.Part = partName
				report.Spans = append(report.Spans, row)
			}
		}
		total += len(res.Spans)
	}
	report.Degraded = degraded

	if err := pkg.Save(outPath); err != nil {
		return err
	}
	if err := report.Write(reportPath); err != nil {
		return err
	}

	fmt.Printf("Redacted %d span(s): %s -> %s\n", total, inPath, outPath)
	if degraded {
		fmt.Println("Note: model backend was unavailable; output is rules-only.")
	}
	fmt.Printf("Audit report: %s\n", reportPath)
	return nil
}

func runRules(cmd *cobra.Command, args []string) error {
	pkg, err := docx.OpenPackage(args[0])
	if err != nil {
		return err
	}
	docPart, ok := pkg.Part(docx.MainPartName)
	if !ok {
		return fmt.Errorf("%s is not a Word document: missing %s", args[0], docx.MainPartName)
	}

	flat, _, err := docx.FlattenRevisions(docPart)
	if err != nil {
		return err
	}
	doc, err := docx.ParsePart(flat)
	if err != nil {
		return err
	}
	text := docx.NewRunMap(doc).Text

	vocab := rules.NewVocabulary()
	spans := resolve.New(vocab).Resolve(text, rules.NewEngine(vocab).Detect(text))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(spans)
}

func runReport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var rep pipeline.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return fmt.Errorf("parse report %s: %w", args[0], err)
	}

	fmt.Printf("Run:      %s\n", rep.RunID)
	fmt.Printf("Created:  %s\n", rep.CreatedAt)
	fmt.Printf("Input:    %s\n", rep.Input)
	fmt.Printf("Mode:     %s (backend %s, model %s)\n", rep.Mode, rep.Backend, rep.Model)
	if rep.Degraded {
		fmt.Println("Degraded: model backend was unavailable, rules-only output")
	}

	counts := map[string]int{}
	for _, s := range rep.Spans {
		counts[s.Label]++
	}
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	fmt.Printf("Spans:    %d\n", len(rep.Spans))
	for _, l := range labels {
		fmt.Printf("  %-8s %d\n", l, counts[l])
	}
	return nil
}
