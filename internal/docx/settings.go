package docx

// CleanSettings selects which metadata surfaces a scrub pass wipes from
// the package. Defaults clean everything except the created and modified
// dates, which carry signing-date significance in executed agreements.
type CleanSettings struct {
	// docProps/app.xml
	Company          bool
	Manager          bool
	Application      bool
	AppVersion       bool
	Template         bool
	HyperlinkBase    bool
	Statistics       bool
	TotalEditingTime bool
	DocSecurity      bool

	// docProps/core.xml
	Author         bool
	LastModifiedBy bool
	Title          bool
	Subject        bool
	Keywords       bool
	Comments       bool
	Category       bool
	ContentStatus  bool
	CreatedDate    bool
	ModifiedDate   bool
	LastPrinted    bool
	RevisionNumber bool
	Identifier     bool
	Language       bool
	Version        bool

	// document structure
	CustomProperties  bool
	ReviewComments    bool
	RSIDs             bool
	SpellGrammarState bool
	DocumentVariables bool
	HiddenText        bool
	Watermarks        bool
	HeadersFooters    bool

	// embedded content
	Thumbnail         bool
	HyperlinkURLs     bool
	AltText           bool
	OLEObjects        bool
	VBAMacros         bool
	DigitalSignatures bool
	Glossary          bool
}

// settingsFlags pairs each disable flag with its field accessor. The
// flag form is --no-clean-<surface>; absence means the surface is cleaned.
var settingsFlags = []struct {
	flag  string
	field func(*CleanSettings) *bool
}{
	{"--no-clean-company", func(s *CleanSettings) *bool { return &s.Company }},
	{"--no-clean-manager", func(s *CleanSettings) *bool { return &s.Manager }},
	{"--no-clean-application", func(s *CleanSettings) *bool { return &s.Application }},
	{"--no-clean-app-version", func(s *CleanSettings) *bool { return &s.AppVersion }},
	{"--no-clean-template", func(s *CleanSettings) *bool { return &s.Template }},
	{"--no-clean-hyperlink-base", func(s *CleanSettings) *bool { return &s.HyperlinkBase }},
	{"--no-clean-statistics", func(s *CleanSettings) *bool { return &s.Statistics }},
	{"--no-clean-total-editing-time", func(s *CleanSettings) *bool { return &s.TotalEditingTime }},
	{"--no-clean-doc-security", func(s *CleanSettings) *bool { return &s.DocSecurity }},
	{"--no-clean-author", func(s *CleanSettings) *bool { return &s.Author }},
	{"--no-clean-last-modified-by", func(s *CleanSettings) *bool { return &s.LastModifiedBy }},
	{"--no-clean-title", func(s *CleanSettings) *bool { return &s.Title }},
	{"--no-clean-subject", func(s *CleanSettings) *bool { return &s.Subject }},
	{"--no-clean-keywords", func(s *CleanSettings) *bool { return &s.Keywords }},
	{"--no-clean-comments", func(s *CleanSettings) *bool { return &s.Comments }},
	{"--no-clean-category", func(s *CleanSettings) *bool { return &s.Category }},
	{"--no-clean-content-status", func(s *CleanSettings) *bool { return &s.ContentStatus }},
	{"--no-clean-created-date", func(s *CleanSettings) *bool { return &s.CreatedDate }},
	{"--no-clean-modified-date", func(s *CleanSettings) *bool { return &s.ModifiedDate }},
	{"--no-clean-last-printed", func(s *CleanSettings) *bool { return &s.LastPrinted }},
	{"--no-clean-revision-number", func(s *CleanSettings) *bool { return &s.RevisionNumber }},
	{"--no-clean-identifier", func(s *CleanSettings) *bool { return &s.Identifier }},
	{"--no-clean-language", func(s *CleanSettings) *bool { return &s.Language }},
	{"--no-clean-version", func(s *CleanSettings) *bool { return &s.Version }},
	{"--no-clean-custom-properties", func(s *CleanSettings) *bool { return &s.CustomProperties }},
	{"--no-clean-review-comments", func(s *CleanSettings) *bool { return &s.ReviewComments }},
	{"--no-clean-rsids", func(s *CleanSettings) *bool { return &s.RSIDs }},
	{"--no-clean-spell-grammar-state", func(s *CleanSettings) *bool { return &s.SpellGrammarState }},
	{"--no-clean-document-variables", func(s *CleanSettings) *bool { return &s.DocumentVariables }},
	{"--no-clean-hidden-text", func(s *CleanSettings) *bool { return &s.HiddenText }},
	{"--no-clean-watermarks", func(s *CleanSettings) *bool { return &s.Watermarks }},
	{"--no-clean-headers-footers", func(s *CleanSettings) *bool { return &s.HeadersFooters }},
	{"--no-clean-thumbnail", func(s *CleanSettings) *bool { return &s.Thumbnail }},
	{"--no-clean-hyperlink-urls", func(s *CleanSettings) *bool { return &s.HyperlinkURLs }},
	{"--no-clean-alt-text", func(s *CleanSettings) *bool { return &s.AltText }},
	{"--no-clean-ole-objects", func(s *CleanSettings) *bool { return &s.OLEObjects }},
	{"--no-clean-vba-macros", func(s *CleanSettings) *bool { return &s.VBAMacros }},
	{"--no-clean-digital-signatures", func(s *CleanSettings) *bool { return &s.DigitalSignatures }},
	{"--no-clean-glossary", func(s *CleanSettings) *bool { return &s.Glossary }},
}

// DefaultCleanSettings cleans everything except created/modified dates.
func DefaultCleanSettings() CleanSettings {
	var s CleanSettings
	for _, f := range settingsFlags {
		*f.field(&s) = true
	}
	s.CreatedDate = false
	s.ModifiedDate = false
	return s
}

// CleanSettingsFromArgs applies --no-clean-* flags over the defaults.
// "--preset-none" turns every surface off. Unknown args are ignored so
// the caller can pass its whole argument list through.
func CleanSettingsFromArgs(args []string) CleanSettings {
	s := DefaultCleanSettings()
	for _, arg := range args {
		if arg == "--preset-none" {
			s = CleanSettings{}
			continue
		}
		for _, f := range settingsFlags {
			if f.flag == arg {
				*f.field(&s) = false
				break
			}
		}
	}
	return s
}

// Args renders the settings back to the flag form that reproduces them,
// relative to the defaults.
func (s CleanSettings) Args() []string {
	defaults := DefaultCleanSettings()
	var args []string
	allOff := true
	for _, f := range settingsFlags {
		if *f.field(&s) {
			allOff = false
		}
	}
	if allOff {
		return []string{"--preset-none"}
	}
	for _, f := range settingsFlags {
		if *f.field(&defaults) && !*f.field(&s) {
			args = append(args, f.flag)
		}
	}
	return args
}
