package rules

import (
	"regexp"
	"strings"
)

// Curly apostrophes and Unicode dashes are folded to ASCII before scanning
// so one pattern set covers both typed and word-processed text. The fold is
// done rune by rune with an offset table (see scanText) because the
// replacements are narrower than the originals in UTF-8.
var scanFold = map[rune]rune{
	'\u2018': '\'', // left single quotation mark
	'\u2019': '\'', // right single quotation mark
	'\u201B': '\'', // single high-reversed-9 quotation mark
	'\u02BC': '\'', // modifier letter apostrophe
	'\uFF07': '\'', // fullwidth apostrophe
	'\u2010': '-',  // hyphen
	'\u2011': '-',  // non-breaking hyphen
	'\u2012': '-',  // figure dash
	'\u2013': '-',  // en dash
	'\u2014': '-',  // em dash
	'\u2212': '-',  // minus sign
}

// scanText returns the fold-normalized text plus a table mapping every byte
// offset of the scan text back to the byte offset of the originating rune in
// the source. The table has one extra entry mapping len(scan) to len(src) so
// half-open match ranges translate directly. When no folding is needed the
// original string is returned with a nil table (identity mapping).
func scanText(src string) (string, []int) {
	if !strings.ContainsFunc(src, func(r rune) bool { _, ok := scanFold[r]; return ok }) {
		return src, nil
	}
	var b strings.Builder
	b.Grow(len(src))
	offsets := make([]int, 0, len(src)+1)
	for i, r := range src {
		if folded, ok := scanFold[r]; ok {
			r = folded
		}
		n := b.Len()
		b.WriteRune(r)
		for ; n < b.Len(); n++ {
			offsets = append(offsets, i)
		}
	}
	offsets = append(offsets, len(src))
	return b.String(), offsets
}

// toSource translates a half-open scan range to source offsets.
func toSource(offsets []int, start, end int) (int, int) {
	if offsets == nil {
		return start, end
	}
	return offsets[start], offsets[end]
}

var (
	reEmail = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)

	// NANP and international forms. Digit-adjacency is enforced by a guard
	// after matching since RE2 has no lookaround.
	rePhone = regexp.MustCompile(
		`(?:\+?\s?\d{1,3}[\s.-]?)?(?:\(\d{3}\)|\d{3})[\s.-]?\d{3}[\s.-]?\d{4}` +
			`|\+\s?\d{1,3}(?:[\s().-]?\d){7,12}`)

	reSSN = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)

	spelledNumber = `(?:one|two|three|four|five|six|seven|eight|nine|ten|` +
		`eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty|` +
		`thirty|forty|fifty|sixty|seventy|eighty|ninety|hundred|thousand|million|billion|and)`

	reMoney = regexp.MustCompile(`(?i)` +
		// symbol/ISO with magnitude words: "$3 million", "USD 2.5 billion"
		`(?:USD|EUR|GBP|CAD|AUD|JPY|CHF|[$£€¥])\s*\[?\d[\d,]*(?:\.\d{1,2})?\]?\s*(?:thousand|million|billion|trillion)\b(?:\s*(?:dollars?|euros?|pounds?|yen|yuan))?` +
		// numeric + magnitude + currency word: "3 million dollars"
		`|\b\d{1,3}(?:[\s.,]\d{3})*(?:[.,]\d{1,2})?\s*(?:thousand|million|billion|trillion)\s*(?:dollars?|euros?|pounds?|yen|yuan)\b` +
		// ISO code or symbol followed by amount, optionally bracketed
		`|(?:USD|EUR|GBP|CAD|AUD|JPY|CHF|[$£€¥])\s*\[?\d{1,3}(?:[\s.,]\d{3})*(?:[.,]\d{1,2})?\]?` +
		`|\$\s*\[?\d[\d,]*(?:\.\d{1,2})?\]?` +
		`|€\s*\[?\d{1,3}(?:\.\d{3})*(?:,\d{1,2})?\]?` +
		`|£\s*\[?\d[\d,]*(?:\.\d{1,2})?\]?` +
		// spelled-out amounts: "Six Hundred Thousand Dollars"
		`|\b(?:` + spelledNumber + `(?:\s+|-)){1,10}(?:dollars?|euros?|pounds?|yen|yuan)\b`)

	rePercent = regexp.MustCompile(`(?i)` +
		`\(?\d+(?:\.\d+)?\s*%\)?` +
		`|\[\d+(?:\.\d+)?\]\s*%` +
		`|\b(?:(?:one|two|three|four|five|six|seven|eight|nine|ten|` +
		`eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty|` +
		`thirty|forty|fifty|sixty|seventy|eighty|ninety|hundred|thousand|` +
		`hundredth|hundredths|thousandth|thousandths|tenth|tenths|` +
		`half|quarter|third|thirds|fourth|fourths|fifth|fifths|and|of|one)` +
		`(?:\s+|-)){1,10}percent(?:age)?\b`)

	// Bracketed quantity not preceded by a currency symbol (guarded in code).
	reNumberBracket = regexp.MustCompile(`\[(?:\d{1,3}(?:,\d{3})*|\d+)(?:\.\d+)?\]`)

	reAccount = regexp.MustCompile(`(?:\d[ -]?){8,20}`)

	// 8 or 11 characters; the digit requirement is checked after matching.
	reSwift = regexp.MustCompile(`\b[A-Z]{4}[A-Z]{2}[A-Z0-9]{2}(?:[A-Z0-9]{3})?\b`)

	reCard = regexp.MustCompile(`(?:\d[ -]?){13,19}`)

	reURL = regexp.MustCompile(`(?i)` +
		`(?:https?|ftp|sftp)://[^\s<>()]+` +
		`|mailto:[^\s<>()]+` +
		`|www\.[^\s<>()]+\.[a-z]{2,}[^\s<>()]*` +
		`|(?:[A-Za-z0-9-]+\.)+[A-Za-z]{2,}[^\s<>()]*`)

	reIPv4 = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`)

	reIPv6 = regexp.MustCompile(`\b(?:` +
		`(?:[A-Fa-f0-9]{1,4}:){7}[A-Fa-f0-9]{1,4}` +
		`|(?:[A-Fa-f0-9]{1,4}:){1,6}:[A-Fa-f0-9]{1,4}` +
		`|(?:[A-Fa-f0-9]{1,4}:){1,5}(?::[A-Fa-f0-9]{1,4}){1,2}` +
		`|(?:[A-Fa-f0-9]{1,4}:){1,4}(?::[A-Fa-f0-9]{1,4}){1,3}` +
		`|(?:[A-Fa-f0-9]{1,4}:){1,3}(?::[A-Fa-f0-9]{1,4}){1,4}` +
		`|(?:[A-Fa-f0-9]{1,4}:){1,2}(?::[A-Fa-f0-9]{1,4}){1,5}` +
		`|[A-Fa-f0-9]{1,4}:(?::[A-Fa-f0-9]{1,4}){1,6}` +
		`|(?:[A-Fa-f0-9]{1,4}:){1,4}:(?:\d{1,3}\.){3}\d{1,3}` +
		`)\b`)

	// E-sign envelope IDs, labeled document numbers, bare UUIDs, versioned
	// DMS numbers, and prefixed record IDs.
	reDocIDEnvelope = regexp.MustCompile(`(?i)DocuSign\s+Envelope\s+ID:\s*[A-Fa-f0-9]{8}\s*-\s*[A-Fa-f0-9]{4}\s*-\s*[A-Fa-f0-9]{4}\s*-\s*[A-Fa-f0-9]{4}\s*-\s*[A-Fa-f0-9]{12}`)
	reDocIDLabeled  = regexp.MustCompile(`(?i)(?:Document|Doc|File|Envelope|Agreement|Contract|Transaction|Reference|Ref|Case|Matter|Deal|Project)\s*(?:ID|No\.?|Number|#|Ref|Reference)?:\s*[A-Za-z0-9][-A-Za-z0-9_.]{4,40}`)
	reDocIDUUID     = regexp.MustCompile(`[A-Fa-f0-9]{8}-[A-Fa-f0-9]{4}-[A-Fa-f0-9]{4}-[A-Fa-f0-9]{4}-[A-Fa-f0-9]{12}`)
	reDocIDVersion  = regexp.MustCompile(`\d{7,12}(?:\s*[vV]\.?\s*\d{1,3}|\.\d{1,3})`)
	reDocIDPrefix   = regexp.MustCompile(`\b(?:DOC|ENV|AGR|REF|CASE|MATTER|DEAL|FILE|PROJ|TXN|DMS|ND)[-:_#]?[A-Za-z0-9]{4,20}\b`)

	reOrg = regexp.MustCompile(
		`\b(?:(?:[A-Z][\w'&.-]+|\d+[A-Za-z0-9'&.-]*|(?i:and|of|the|for|a|an|&|de|la)),?\s+){1,10}` +
			`(?:(?i:Incorporated|Corporation|Company|Limited)` +
			`|(?i:Inc)\.?|(?i:Corp)\.?|(?i:Co)\.?|(?i:Ltd)\.?` +
			`|(?i:Limited\s+Liability\s+Company)|L\.L\.C\.|LLC|L\.C\.|LC` +
			`|(?i:Limited\s+Liability\s+Partnership)|L\.L\.P\.|LLP` +
			`|(?i:Limited\s+Partnership)|L\.P\.|LP` +
			`|(?i:General\s+Partnership)|G\.P\.|GP` +
			`|(?i:Professional\s+Corporation)|P\.C\.|PC` +
			`|(?i:Professional\s+Association)|P\.A\.|PA` +
			`|(?i:Federal\s+Savings\s+Bank)|FSB` +
			`|(?i:National\s+Association)|N\.A\.` +
			`|(?i:National\s+Bank|Bank)` +
			`|(?i:Trust\s+Company)` +
			`|Capital|Holdings|Group|Fund` +
			`|(?i:Statutory\s+Trust|Business\s+Trust)|REIT|Trust` +
			`|(?i:Foundation|Association|Society|Institute)` +
			`|GmbH|AG|S\.A\.S\.|S\.A\.|S\.R\.L\.|B\.V\.|N\.V\.|(?i:PLC|p\.l\.c\.))`)

	reAddress = compileAddress()

	reCounty = regexp.MustCompile(
		`(?:(?:[A-Z][A-Za-z'’-]{1,30}\s+){0,2}[A-Z][A-Za-z'’-]{1,30}\s+(?:County|Parish|Borough)` +
			`|(?:County|Parish|Borough)\s+of\s+(?:[A-Z][A-Za-z'’-]{1,30}\s+){0,2}[A-Z][A-Za-z'’-]{1,30})`)

	reDate = compileDate()

	// Full Name ("Short") defined-term introduction; the quoted short form
	// must repeat the surname.
	reDefinedTermName = regexp.MustCompile(
		`(?P<full>[A-Z][A-Za-z'\-.]+(?:\s+[A-Z][A-Za-z'\-.]+){1,2})\s*\(\s*["“”](?P<short>[A-Z][A-Za-z'\-.]+)["”]\s*\)`)

	reSignatureLine  = regexp.MustCompile(`(?im)^\s*Name:[ \t]*([^\n]+?)[ \t]*$`)
	reIndividualName = regexp.MustCompile(`^[A-Z][a-z]+(?:\s+(?:[A-Z][a-z]+|[A-Z]\.?))?\s+[A-Z][a-z]+$`)

	reMultiSpace = regexp.MustCompile(`\s{2,}`)

	usJurisdictions = `Alabama|Alaska|Arizona|Arkansas|California|Colorado|Connecticut|Delaware|` +
		`Florida|Georgia|Hawaii|Idaho|Illinois|Indiana|Iowa|Kansas|Kentucky|Louisiana|` +
		`Maine|Maryland|Massachusetts|Michigan|Minnesota|Mississippi|Missouri|Montana|` +
		`Nebraska|Nevada|New\s+Hampshire|New\s+Jersey|New\s+Mexico|New\s+York|` +
		`North\s+Carolina|North\s+Dakota|Ohio|Oklahoma|Oregon|Pennsylvania|` +
		`Rhode\s+Island|South\s+Carolina|South\s+Dakota|Tennessee|Texas|Utah|` +
		`Vermont|Virginia|Washington|West\s+Virginia|Wisconsin|Wyoming|` +
		`District\s+of\s+Columbia|D\.C\.`

	// ", a Delaware limited liability company" and similar trailing clauses.
	reJurisdictionTail = regexp.MustCompile(`(?i)(?:,\s*)?(?:a|an)\s+(?:` + usJurisdictions + `)\s+` +
		`(?:limited\s+liability\s+company|limited\s+liability\s+partnership|limited\s+partnership|general\s+partnership` +
		`|corporation|inc\.?|company|llc|l\.l\.c\.|l\.c\.|lc|llp|l\.l\.p\.|lp|l\.p\.|plc|p\.l\.c\.` +
		`|statutory\s+trust|business\s+trust)\s*$`)

	// Entity suffixes whose periods must not count as sentence boundaries.
	reEntitySuffixPeriods = regexp.MustCompile(`L\.L\.C\.|L\.L\.P\.|L\.P\.|G\.P\.|P\.C\.|P\.A\.|N\.A\.|S\.A\.S\.|S\.A\.|B\.V\.|N\.V\.|p\.l\.c\.`)

	reSentenceBreak = regexp.MustCompile(`\.\s+[A-Z]`)

	reAccountContext  = regexp.MustCompile(`(?i)\b(?:account\s+(?:number|no\.?|#)|acct\s+(?:number|no\.?|#)|iban|routing|aba|swift|bic|sort\s+code)\b`)
	rePhoneContext    = regexp.MustCompile(`(?i)\b(?:phone|tel|telephone|mobile|cell|fax|call|ph\.?)\b`)
	reCurrencyTrail   = regexp.MustCompile(`^\s*\(?[A-Z]{3}(?:\b|/)`)
	reCommaSplit      = regexp.MustCompile(`,\s*`)
	reSegmentSplit    = regexp.MustCompile(`(,\s*|:\s*|;\s*|\n)`)
	reNonDigit        = regexp.MustCompile(`\D`)
	reWordBoundarySafe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 '&.,-]*[A-Za-z0-9]$`)
)

func compileDate() *regexp.Regexp {
	months := `Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|` +
		`Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?`
	phToken := `(?:_+|[•●○■□]+|[ \t]{2,})`
	phBracket := `\[\s*[_•●○■□]*\s*\]`
	phAny := `(?:` + phToken + `|` + phBracket + `)`
	phYear := `(?:_{2,4}|[•●○■□]{2,4}|` + phBracket + `|[ \t]{2,})`
	sep := `[./-]`

	patterns := []string{
		// numeric forms (Unicode dashes already folded to -)
		`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`,
		`\b\d{4}[/-]\d{1,2}[/-]\d{1,2}\b`,
		`\b\d{1,2}\.\d{1,2}\.\d{2,4}\b`,
		`\b\d{1,2}\s*[./-]\s*\d{1,2}\s*[./-]\s*\d{2,4}\b`,
		// ISO
		`\b\d{4}-\d{2}-\d{2}\b`,
		`\b\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(?::\d{2})?(?:Z|[+-]\d{2}:?\d{2})?\b`,
		// written month
		`\b(?:` + months + `)\s+\d{1,2}(?:st|nd|rd|th)?(?:,\s*|\s+)\d{2,4}\b`,
		`\b\d{1,2}(?:st|nd|rd|th)?\s+(?:` + months + `)(?:,\s*|\s+)\d{2,4}\b`,
		`\b(?:` + months + `)(?:\s+|\s*,\s*)\d{4}\b`,
		// placeholder dates common in unexecuted legal drafts
		`\b(?:` + months + `)\s+` + phAny + `(?:\s*,\s*|\s+)\d{4}\b`,
		`\b__+[/-]__+[/-]\d{2,4}\b`,
		`\b\d{1,2}[/-]__+[/-]\d{2,4}\b`,
		phAny + `\s*` + sep + `\s*(?:\d{1,2}|` + phAny + `)\s*` + sep + `\s*(?:\d{2,4}|` + phYear + `)`,
		`\d{1,2}\s*` + sep + `\s*` + phAny + `\s*` + sep + `\s*(?:\d{2,4}|` + phYear + `)`,
		`\d{1,2}\s*` + sep + `\s*\d{1,2}\s*` + sep + `\s*` + phYear,
		`\d{2,4}\s*` + sep + `\s*` + phAny + `\s*` + sep + `\s*(?:\d{1,2}|` + phAny + `)`,
		`\d{2,4}\s*` + sep + `\s*\d{1,2}\s*` + sep + `\s*` + phAny,
		phYear + `\s*` + sep + `\s*(?:\d{1,2}|` + phAny + `)\s*` + sep + `\s*(?:\d{1,2}|` + phAny + `)`,
		// "the 5th day of June, 2024"
		`\b(?:the\s+)?\d{1,2}(?:st|nd|rd|th)?\s+day\s+of\s+(?:` + months + `),?\s*\d{4}\b`,
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(patterns, "|") + `)`)
}

func compileAddress() *regexp.Regexp {
	stateAbbrevs := `A[LKSZRAEP]|C[AOT]|D[EC]|F[LM]|G[AU]|HI|I[ADLN]|K[SY]|LA|M[ADEHINOPST]|` +
		`N[CDEHJMVY]|O[HKR]|P[ARW]|RI|S[CD]|T[NX]|UT|V[AIT]|W[AIVY]`
	states := `(?:` + stateAbbrevs + `|` + usJurisdictions + `)`
	suffixes := `Street|St|Road|Rd|Avenue|Ave|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|` +
		`Place|Pl|Terrace|Ter|Way|Parkway|Pkwy|Circle|Cir|Loop|Crescent|Cres|` +
		`Square|Sq|Alley|Aly|Plaza|Plz|Highway|Hwy|Freeway|Fwy|Expressway|Expy|` +
		`Turnpike|Tpke|Causeway|Cswy|Trail|Trl|Path|Walk|Row|Mews|Close|Cl|` +
		`Gardens|Gdns|Esplanade|Esp|Promenade|Prom|Quay|Wharf|Embankment|Emb|` +
		`Mall|Via|Route|Rte|Byway|Bywy|Spur|Cutoff|Crossing|Xing|Trace|Trce|` +
		`Apartment|Apt|Suite|Ste|Unit|Building|Bldg|Floor|Fl`
	secondaryUnits := `Apt|Apartment|Suite|Ste|Unit|Floor|Fl|Bldg|Building|#`
	secondaryBlock := `(?:(?:` + secondaryUnits + `)\.?\s*\S+|\S+\s*(?:` + secondaryUnits + `)\.?)`
	noSuffix := `Broadway|The Strand|The Mall|The Bowery|The High Line|Wall|Canal|` +
		`Fleet|Piccadilly|Lombard|Hollywood|Sunset|Market|Mission|` +
		`Valencia|Causeway|Esplanade|Promenade|Boardwalk|Embankment|` +
		`Walk|Way|Via Appia|Via del Corso|Beacon|Liberty|Union|` +
		`Central|Victory|Heritage|King's Way|Queen's Walk|Champs[-\s](?:Elysees|Élysées)`

	pStandard := `\b\d+\s+[A-Z0-9][a-zA-Z0-9\s.]+\b(?:` + suffixes + `)\.?,?\s+` +
		`(?:(?:` + secondaryBlock + `)\s*,?\s*)?` +
		`(?:[A-Za-z\s]+,?\s+)?` +
		states + `\s+\d{5}(?:-\d{4})?`
	pNoSuffix := `\b\d+\s+(?:` + noSuffix + `)\b,?\s+` +
		`(?:(?:` + secondaryBlock + `)\s*,?\s*)?` +
		`(?:[A-Za-z\s]+,?\s+)?` +
		states + `\s+\d{5}(?:-\d{4})?`
	pPOBox := `(?i:\bP\.?O\.?\s+Box\s+\d+(?:,\s*[A-Za-z\s]+)?\b)`
	pLabel := `(?i:(?:Address|Residing at|Location):\s+[^\n,]+(?:,[^\n,]+)+)`

	return regexp.MustCompile(pStandard + `|` + pNoSuffix + `|` + pPOBox + `|` + pLabel)
}
