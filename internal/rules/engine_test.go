package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LegalMarc/marcut/internal/span"
)

func detectLabels(t *testing.T, text string) map[span.Label][]string {
	t.Helper()
	e := NewEngine(NewVocabulary())
	got := make(map[span.Label][]string)
	for _, s := range e.Detect(text) {
		require.True(t, s.Valid(text), "span %+v must satisfy the offset invariant", s)
		got[s.Label] = append(got[s.Label], s.Text)
	}
	return got
}

func TestDetectStructuredIdentifiers(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		label span.Label
		want  string
	}{
		{"email", "Send notices to counsel@firmllp.com promptly.", span.LabelEmail, "counsel@firmllp.com"},
		{"ssn", "Taxpayer SSN 123-45-6789 on file.", span.LabelSSN, "123-45-6789"},
		{"phone formatted", "Phone: (415) 555-1234", span.LabelPhone, "(415) 555-1234"},
		{"money symbol", "a purchase price of $1,250,000.00 payable at closing", span.LabelMoney, "$1,250,000.00"},
		{"money spelled", "Six Hundred Thousand Dollars in cash", span.LabelMoney, "Six Hundred Thousand Dollars"},
		{"percent", "an interest rate of 12.5% per annum", span.LabelPercent, "12.5%"},
		{"date written", "dated as of January 15, 2024 by and among", span.LabelDate, "January 15, 2024"},
		{"date day-of", "executed on the 5th day of June, 2024 at the offices", span.LabelDate, "the 5th day of June, 2024"},
		{"ipv4", "from host 192.168.10.44 last night", span.LabelIP, "192.168.10.44"},
		{"swift", "wire via SWIFT CHASUS33XXX only", span.LabelSwift, "CHASUS33XXX"},
		{"po box", "mail to P.O. Box 971, Wilmington", span.LabelLoc, "P.O. Box 971, Wilmington"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectLabels(t, tt.text)
			assert.Contains(t, got[tt.label], tt.want)
		})
	}
}

func TestDetectCardLuhn(t *testing.T) {
	valid := detectLabels(t, "card number 4532015112830366 ends in 0366")
	assert.Contains(t, valid[span.LabelCard], "4532015112830366")

	invalid := detectLabels(t, "card number 1234567890123456 ends in 3456")
	assert.Empty(t, invalid[span.LabelCard], "failed checksum must not yield a CARD span")
}

func TestDetectPhoneAccountDisambiguation(t *testing.T) {
	t.Run("account vocabulary nearby", func(t *testing.T) {
		got := detectLabels(t, "Account Number: 4155551234 held at the branch")
		assert.Empty(t, got[span.LabelPhone])
		assert.Contains(t, got[span.LabelAccount], "4155551234")
	})
	t.Run("phone vocabulary nearby", func(t *testing.T) {
		got := detectLabels(t, "you may call 4155551234 at any time")
		assert.Contains(t, got[span.LabelPhone], "4155551234")
	})
	t.Run("bare digits without context downgrade", func(t *testing.T) {
		got := detectLabels(t, "reference 4155551234 appears in the ledger")
		assert.Empty(t, got[span.LabelPhone])
		assert.Contains(t, got[span.LabelNumber], "4155551234")
	})
}

func TestDetectURLTrimsTrailingPunctuation(t *testing.T) {
	got := detectLabels(t, "see https://example.com/terms. for details")
	assert.Contains(t, got[span.LabelURL], "https://example.com/terms")
	assert.NotContains(t, got[span.LabelURL], "https://example.com/terms.")
}

func TestDetectOrg(t *testing.T) {
	t.Run("legal suffix", func(t *testing.T) {
		got := detectLabels(t, "entered into by Meridian Holdings, Inc. as borrower")
		assert.Contains(t, got[span.LabelOrg], "Meridian Holdings, Inc.")
	})
	t.Run("generic defined term rejected", func(t *testing.T) {
		got := detectLabels(t, "payable to the Target Company upon demand")
		assert.Empty(t, got[span.LabelOrg])
	})
	t.Run("overlong span rejected", func(t *testing.T) {
		long := "Whereas The Extremely Long And Unlikely Capitalized Fragment Continues Until Company"
		got := detectLabels(t, long)
		assert.Empty(t, got[span.LabelOrg])
	})
}

func TestDetectUnicodePunctuationFold(t *testing.T) {
	text := "SSN 123–45–6789 per the exhibit"
	e := NewEngine(NewVocabulary())
	var ssn []span.Span
	for _, s := range e.Detect(text) {
		if s.Label == span.LabelSSN {
			ssn = append(ssn, s)
		}
	}
	require.Len(t, ssn, 1)
	assert.Equal(t, "123–45–6789", ssn[0].Text, "span text carries the original dashes")
	assert.True(t, ssn[0].Valid(text))
}

func TestDetectSignatureNames(t *testing.T) {
	text := "IN WITNESS WHEREOF:\nName: John Smith      Jane Doe\nTitle: President\n"
	got := detectLabels(t, text)
	assert.Contains(t, got[span.LabelName], "John Smith")
	assert.Contains(t, got[span.LabelName], "Jane Doe")

	single := detectLabels(t, "Name: Smith\n")
	assert.Empty(t, single[span.LabelName], "single-word candidates are rejected")
}

func TestDetectDefinedTermName(t *testing.T) {
	got := detectLabels(t, `between Robert Q. Villanueva ("Villanueva") and the Company`)
	assert.Contains(t, got[span.LabelName], "Robert Q. Villanueva")
	assert.Contains(t, got[span.LabelName], "Villanueva")

	mismatch := detectLabels(t, `between Robert Q. Villanueva ("Executive") and the Company`)
	assert.Empty(t, mismatch[span.LabelName])
}

func TestRuleFilterEnv(t *testing.T) {
	text := "reach counsel@firmllp.com or SSN 123-45-6789"

	t.Run("allow-list restricts labels", func(t *testing.T) {
		t.Setenv(EnvRuleFilter, "email")
		got := detectLabels(t, text)
		assert.NotEmpty(t, got[span.LabelEmail])
		assert.Empty(t, got[span.LabelSSN])
	})
	t.Run("set but empty disables everything", func(t *testing.T) {
		t.Setenv(EnvRuleFilter, "")
		e := NewEngine(NewVocabulary())
		assert.Empty(t, e.Detect(text))
	})
}

func TestContainsSentenceBoundary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"plain boundary", "the Company. We agree", true},
		{"honorific", "Mr. Smith", false},
		{"middle initial", "Robert Q. Villanueva", false},
		{"entity suffix", "Banco Popular, N.A. Holdings", false},
		{"inc abbreviation", "Acme Inc. Holdings", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, containsSentenceBoundary(tt.in))
		})
	}
}

func TestLuhn(t *testing.T) {
	assert.True(t, luhnOK("4532015112830366"))
	assert.True(t, luhnOK("4532 0151 1283 0366"))
	assert.False(t, luhnOK("1234567890123456"))
	assert.False(t, luhnOK("41111111"), "too few digits")
}
