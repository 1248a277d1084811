package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sub-lexers for quote-like operator text. The lexer hands these the raw
// token text (prefix, delimiters and all); they extract pattern, body and
// modifiers honoring escapes and nested paired delimiters. The lenient
// variants drop invalid modifiers so tokenization keeps going; the strict
// variants reject them so diagnostics can call them out.

// closingDelimiter maps an opening delimiter to its closing counterpart.
// Non-paired delimiters close themselves.
func closingDelimiter(open rune) rune {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	case '{':
		return '}'
	case '<':
		return '>'
	}
	return open
}

func isPairedDelimiter(open rune) bool {
	return closingDelimiter(open) != open
}

// isQuoteDelimiter reports whether c may open a quote-like construct:
// any punctuation that is not whitespace, control, or alphanumeric.
func isQuoteDelimiter(c rune) bool {
	return !unicode.IsLetter(c) && !unicode.IsDigit(c) &&
		!unicode.IsSpace(c) && !unicode.IsControl(c) && c != utf8.RuneError
}

// extractDelimited reads one delimiter-bounded body out of text, which must
// begin with the opening delimiter. It returns the body (escapes kept
// verbatim, delimiters excluded), the remainder after the closing
// delimiter, and whether the closing delimiter was found. Paired
// delimiters nest: "{a{b}c}" yields body "a{b}c".
func extractDelimited(text string, open, close rune) (body, rest string, closed bool) {
	if text == "" {
		return "", "", false
	}
	first, size := utf8.DecodeRuneInString(text)
	if first != open {
		return "", text, false
	}
	paired := open != close
	depth := 0
	if paired {
		depth = 1
	}
	var b strings.Builder
	escaped := false
	for i := size; i < len(text); {
		ch, chSize := utf8.DecodeRuneInString(text[i:])
		i += chSize
		if escaped {
			b.WriteRune(ch)
			escaped = false
			continue
		}
		switch {
		case ch == '\\':
			b.WriteRune('\\')
			escaped = true
		case paired && ch == open:
			depth++
			b.WriteRune(ch)
		case ch == close:
			if paired {
				depth--
				if depth == 0 {
					return b.String(), text[i:], true
				}
				b.WriteRune(ch)
			} else {
				return b.String(), text[i:], true
			}
		default:
			b.WriteRune(ch)
		}
	}
	return b.String(), "", false
}

// takeModifiers splits trailing modifier letters off the front of rest.
func takeModifiers(rest string) string {
	end := 0
	for end < len(rest) {
		c := rest[end]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			end++
		} else {
			break
		}
	}
	return rest[:end]
}

const matchModifiers = "gimsxoce"
const substitutionModifiers = "gimsxoer"
const transliterationModifiers = "cdsr"

func filterModifiers(mods, valid string) string {
	var b strings.Builder
	for _, c := range mods {
		if strings.ContainsRune(valid, c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func validateModifiers(mods, valid string) (string, error) {
	for _, c := range mods {
		if !strings.ContainsRune(valid, c) {
			return "", &SubstitutionError{Kind: SubErrInvalidModifier, Modifier: c}
		}
	}
	return mods, nil
}

// ExtractRegexParts splits a regex-like token (qr//, m//, or a bare //)
// into its pattern (delimiters included, for position math) and modifier
// string. Invalid modifiers are dropped; use the parser's diagnostics for
// strict validation.
func ExtractRegexParts(text string) (pattern, modifiers string) {
	content := text
	switch {
	case strings.HasPrefix(text, "qr"):
		content = text[2:]
	case strings.HasPrefix(text, "m") && len(text) > 1:
		next, _ := utf8.DecodeRuneInString(text[1:])
		if isQuoteDelimiter(next) {
			content = text[1:]
		}
	}
	if content == "" {
		return "", ""
	}
	open, _ := utf8.DecodeRuneInString(content)
	close := closingDelimiter(open)
	body, rest, _ := extractDelimited(content, open, close)
	pattern = string(open) + body + string(close)
	return pattern, filterModifiers(takeModifiers(rest), matchModifiers)
}

// SubstitutionErrorKind enumerates strict-extraction failures.
type SubstitutionErrorKind int

const (
	SubErrInvalidModifier SubstitutionErrorKind = iota
	SubErrMissingDelimiter
	SubErrMissingPattern
	SubErrMissingReplacement
	SubErrMissingClosingDelimiter
)

// SubstitutionError reports why strict substitution extraction failed.
type SubstitutionError struct {
	Kind     SubstitutionErrorKind
	Modifier rune
}

func (e *SubstitutionError) Error() string {
	switch e.Kind {
	case SubErrInvalidModifier:
		return fmt.Sprintf("invalid substitution modifier %q", e.Modifier)
	case SubErrMissingDelimiter:
		return "missing delimiter after 's'"
	case SubErrMissingPattern:
		return "missing substitution pattern"
	case SubErrMissingReplacement:
		return "missing substitution replacement"
	case SubErrMissingClosingDelimiter:
		return "missing closing delimiter"
	}
	return "invalid substitution"
}

// ExtractSubstitutionParts parses s/pattern/replacement/mods leniently:
// unterminated sections come back as far as they got and invalid modifiers
// are dropped. The lexer uses this form so a half-typed substitution still
// tokenizes.
func ExtractSubstitutionParts(text string) (pattern, replacement, modifiers string) {
	pattern, replacement, mods, _ := substitutionParts(text)
	return pattern, replacement, filterModifiers(mods, substitutionModifiers)
}

// ExtractSubstitutionPartsStrict parses s/pattern/replacement/mods and
// returns a typed error for missing sections or invalid modifiers.
func ExtractSubstitutionPartsStrict(text string) (pattern, replacement, modifiers string, err error) {
	p, r, mods, extractErr := substitutionParts(text)
	if extractErr != nil {
		return "", "", "", extractErr
	}
	validated, err := validateModifiers(mods, substitutionModifiers)
	if err != nil {
		return "", "", "", err
	}
	return p, r, validated, nil
}

func substitutionParts(text string) (pattern, replacement, modifiers string, err error) {
	content := strings.TrimPrefix(text, "s")
	if content == "" {
		return "", "", "", &SubstitutionError{Kind: SubErrMissingDelimiter}
	}
	open, _ := utf8.DecodeRuneInString(content)
	if !isQuoteDelimiter(open) {
		return "", "", "", &SubstitutionError{Kind: SubErrMissingDelimiter}
	}
	close := closingDelimiter(open)
	paired := open != close

	pattern, rest, patternClosed := extractDelimited(content, open, close)
	if !patternClosed {
		return pattern, "", "", &SubstitutionError{Kind: SubErrMissingClosingDelimiter}
	}

	if !paired {
		// Same delimiter throughout: the closing delimiter of the pattern
		// doubles as the opener of the replacement, so scan it directly.
		body, after, replClosed := scanToDelimiter(rest, close)
		if !replClosed {
			if body == "" && after == "" {
				return pattern, "", "", &SubstitutionError{Kind: SubErrMissingReplacement}
			}
			return pattern, body, "", &SubstitutionError{Kind: SubErrMissingClosingDelimiter}
		}
		return pattern, body, takeModifiers(after), nil
	}

	// Paired delimiters: the replacement opens with its own delimiter,
	// which may differ from the pattern's (s[a]{b} is valid Perl).
	trimmed := strings.TrimLeft(rest, " \t\r\n")
	if trimmed == "" {
		return pattern, "", "", &SubstitutionError{Kind: SubErrMissingReplacement}
	}
	replOpen, _ := utf8.DecodeRuneInString(trimmed)
	if !isQuoteDelimiter(replOpen) {
		return pattern, "", "", &SubstitutionError{Kind: SubErrMissingReplacement}
	}
	replClose := closingDelimiter(replOpen)
	replacement, after, replClosed := extractDelimited(trimmed, replOpen, replClose)
	if !replClosed {
		return pattern, replacement, "", &SubstitutionError{Kind: SubErrMissingClosingDelimiter}
	}
	return pattern, replacement, takeModifiers(after), nil
}

// scanToDelimiter reads up to an unescaped close rune. Returns the body,
// the remainder after the delimiter, and whether it was found.
func scanToDelimiter(text string, close rune) (body, rest string, closed bool) {
	var b strings.Builder
	escaped := false
	for i := 0; i < len(text); {
		ch, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if escaped {
			b.WriteRune(ch)
			escaped = false
			continue
		}
		if ch == '\\' {
			b.WriteRune('\\')
			escaped = true
			continue
		}
		if ch == close {
			return b.String(), text[i:], true
		}
		b.WriteRune(ch)
	}
	return b.String(), "", false
}

// ExtractTransliterationParts parses tr/SEARCH/REPLACE/mods (or y///),
// leniently dropping invalid modifiers.
func ExtractTransliterationParts(text string) (search, replace, modifiers string) {
	content := text
	switch {
	case strings.HasPrefix(text, "tr"):
		content = text[2:]
	case strings.HasPrefix(text, "y"):
		content = text[1:]
	}
	if content == "" {
		return "", "", ""
	}
	open, _ := utf8.DecodeRuneInString(content)
	if !isQuoteDelimiter(open) {
		return "", "", ""
	}
	close := closingDelimiter(open)
	paired := open != close

	search, rest, searchClosed := extractDelimited(content, open, close)
	if !searchClosed {
		return search, "", ""
	}
	if !paired {
		body, after, _ := scanToDelimiter(rest, close)
		return search, body, filterModifiers(takeModifiers(after), transliterationModifiers)
	}
	trimmed := strings.TrimLeft(rest, " \t\r\n")
	if trimmed == "" {
		return search, "", ""
	}
	replOpen, _ := utf8.DecodeRuneInString(trimmed)
	if !isQuoteDelimiter(replOpen) {
		return search, "", ""
	}
	replace, after, _ := extractDelimited(trimmed, replOpen, closingDelimiter(replOpen))
	return search, replace, filterModifiers(takeModifiers(after), transliterationModifiers)
}

// ExtractQuoteBody strips the operator prefix and delimiters from a q, qq
// or qw token, returning the raw body.
func ExtractQuoteBody(text string) string {
	content := text
	switch {
	case strings.HasPrefix(text, "qq"), strings.HasPrefix(text, "qw"):
		content = text[2:]
	case strings.HasPrefix(text, "q"):
		content = text[1:]
	}
	content = strings.TrimLeft(content, " \t")
	if content == "" {
		return ""
	}
	open, _ := utf8.DecodeRuneInString(content)
	body, _, _ := extractDelimited(content, open, closingDelimiter(open))
	return body
}

// SplitQwWords splits a qw() token into its word list.
func SplitQwWords(text string) []string {
	return strings.Fields(ExtractQuoteBody(text))
}
