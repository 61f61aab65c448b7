package common

import (
	"fmt"
	"strings"
	"unicode"
)

// DeprecatedLicenses maps the license values deprecated by STAC 1.1 to their replacement
var DeprecatedLicenses = map[string]string{
	"proprietary": "other",
	"various":     "other",
}

// NormalizeLicense normalizes the license of a collection.
// It returns the license and a warning if a deprecated value was mapped.
func NormalizeLicense(license string) (string, string, error) {
	trimmed := strings.TrimSpace(license)
	if trimmed == "" {
		return "", "", ErrValidation{Field: "license", Reason: "license is required"}
	}
	lower := strings.ToLower(trimmed)
	if repl, ok := DeprecatedLicenses[lower]; ok {
		return repl, fmt.Sprintf("license value %q is deprecated; mapped to %q", license, repl), nil
	}
	if lower == "other" {
		return "other", "", nil
	}
	if !ValidSPDXExpression(trimmed) {
		return "", "", ErrValidation{Field: "license", Reason: fmt.Sprintf(`license value %q must be an SPDX identifier, SPDX expression, or the string "other"`, license)}
	}
	return trimmed, "", nil
}

// LicenseRequiresLink returns true if a link with rel=license is required
func LicenseRequiresLink(license string) bool {
	return license == "other" || strings.Contains(license, "LicenseRef-")
}

// EnsureLicenseLinks checks that a license link is present when required
func EnsureLicenseLinks(license string, links []Link) error {
	if !LicenseRequiresLink(license) {
		return nil
	}
	for _, l := range links {
		if strings.EqualFold(l.Rel, RelLicense) && strings.TrimSpace(l.Href) != "" {
			return nil
		}
	}
	return ErrValidation{Field: "links", Reason: fmt.Sprintf("license links are required when license is %q", license)}
}

// ValidSPDXExpression validates an SPDX license expression (identifiers, AND/OR, WITH, "+", parentheses)
func ValidSPDXExpression(value string) bool {
	tokens := tokenizeSPDX(value)
	if len(tokens) == 0 {
		return false
	}
	p := spdxParser{tokens: tokens}
	return p.expression() && p.pos == len(p.tokens)
}

func tokenizeSPDX(value string) []string {
	var tokens []string
	for i := 0; i < len(value); {
		switch ch := value[i]; ch {
		case ' ', '\t', '\n', '\r':
			i++
		case '(', ')', '+':
			tokens = append(tokens, string(ch))
			i++
		default:
			start := i
			for i < len(value) && !strings.ContainsRune(" \t\n\r()+", rune(value[i])) {
				i++
			}
			tokens = append(tokens, value[start:i])
		}
	}
	return tokens
}

type spdxParser struct {
	tokens []string
	pos    int
}

func (p *spdxParser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *spdxParser) expression() bool {
	if !p.term() {
		return false
	}
	for tok := p.peek(); tok == "AND" || tok == "OR"; tok = p.peek() {
		p.pos++
		if !p.term() {
			return false
		}
	}
	return true
}

func (p *spdxParser) term() bool {
	if !p.factor() {
		return false
	}
	if p.peek() == "WITH" {
		p.pos++
		if !licenseIdentifier(p.peek()) {
			return false
		}
		p.pos++
	}
	return true
}

func (p *spdxParser) factor() bool {
	switch tok := p.peek(); {
	case tok == "":
		return false
	case tok == "(":
		p.pos++
		if !p.expression() || p.peek() != ")" {
			return false
		}
		p.pos++
		return true
	case !licenseIdentifier(tok):
		return false
	}
	p.pos++
	if p.peek() == "+" {
		p.pos++
	}
	return true
}

func licenseIdentifier(tok string) bool {
	switch tok {
	case "", "AND", "OR", "WITH", "(", ")", "+":
		return false
	}
	if strings.HasPrefix(tok, "LicenseRef-") || strings.HasPrefix(tok, "DocumentRef-") {
		return true
	}
	for _, ch := range tok {
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && !strings.ContainsRune("-._", ch) {
			return false
		}
	}
	return true
}
