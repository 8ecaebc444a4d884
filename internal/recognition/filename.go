package recognition

import (
	"path/filepath"
	"regexp"
	"strings"
)

type filenamePattern struct {
	re *regexp.Regexp
	// needDigit rejects ordinary words such as "package" or "photo".
	needDigit bool
}

var filenamePatterns = buildFilenamePatterns()

func buildFilenamePatterns() []filenamePattern {
	var carriers []string
	for _, s := range Shapes {
		if s.Carrier {
			carriers = append(carriers, regexp.QuoteMeta(s.Prefix))
		}
	}
	return []filenamePattern{
		{re: regexp.MustCompile(`^([A-Za-z0-9-]{6,})`), needDigit: true},
		{re: regexp.MustCompile(`^([A-Za-z0-9-]+)__`)},
		{re: regexp.MustCompile(`(?i)\b((?:` + strings.Join(carriers, "|") + `)[A-Za-z0-9]{6,})\b`)},
		{re: regexp.MustCompile(`\b(\d{10,16})\b`)},
	}
}

// GuessFromFilename looks for a code in an uploaded file's name. The patterns
// are tried in order on the name without directory or extension and the first
// capture wins, upper-cased. It returns "" when nothing matches.
func GuessFromFilename(name string) string {
	if name == "" {
		return ""
	}
	// Browsers on Windows may send the full client path.
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	for _, p := range filenamePatterns {
		m := p.re.FindStringSubmatch(stem)
		if m == nil {
			continue
		}
		if p.needDigit && !strings.ContainsAny(m[1], "0123456789") {
			continue
		}
		return strings.ToUpper(m[1])
	}
	return ""
}
