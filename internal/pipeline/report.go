package pipeline

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/LegalMarc/marcut/internal/span"
)

// ReportSpan is one audit row. Order in a report is deterministic:
// ascending start, ties broken by descending length.
type ReportSpan struct {
	Part       string  `json:"part,omitempty"`
	Label      string  `json:"label"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// Report is the JSON audit record written next to a redacted document.
type Report struct {
	RunID     string       `json:"run_id"`
	CreatedAt string       `json:"created_at"`
	Input     string       `json:"input"`
	Mode      string       `json:"mode"`
	Backend   string       `json:"backend"`
	Model     string       `json:"model"`
	Degraded  bool         `json:"degraded,omitempty"`
	Settings  []string     `json:"settings,omitempty"`
	Spans     []ReportSpan `json:"spans"`
}

// NewReport snapshots a completed run. The spans are expected to carry
// report ordering already; it is not re-derived here.
func NewReport(job Job, spans []span.Span, degraded bool) *Report {
	rows := make([]ReportSpan, len(spans))
	for i, s := range spans {
		rows[i] = ReportSpan{
			Label:      string(s.Label),
			Start:      s.Start,
			End:        s.End,
			Text:       s.Text,
			Source:     string(s.Source),
			Confidence: s.Confidence,
		}
	}
	var settings []string
	if job.Clean != nil {
		settings = job.Clean.Args()
	}
	return &Report{
		RunID:     uuid.NewString(),
		Settings:  settings,
		CreatedAt: time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		Input:     job.InputName,
		Mode:      job.Mode,
		Backend:   job.Backend,
		Model:     job.Model,
		Degraded:  degraded,
		Spans:     rows,
	}
}

// Write serializes the report as indented JSON.
func (r *Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// FailureReport is the minimal record written when a run fails, so the
// caller can surface what went wrong without parsing log output.
type FailureReport struct {
	Status    string `json:"status"`
	Input     string `json:"input"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Details   string `json:"technical_details,omitempty"`
}

// NewFailureReport classifies err into a stable code. Stage errors keep
// their code; anything else is reported as unexpected.
func NewFailureReport(inputName string, err error) *FailureReport {
	code := CodeUnexpectedFailure
	details := ""
	var re *RedactionError
	if errors.As(err, &re) {
		code = re.Code
		details = re.Err.Error()
	}
	return &FailureReport{
		Status:    "error",
		Input:     inputName,
		ErrorCode: code,
		Message:   err.Error(),
		Details:   details,
	}
}

// Write serializes the failure report as indented JSON.
func (r *FailureReport) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
