package statement

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	quoteChar         = `"`
	placeholderPrefix = "Unnamed: "
)

// TokenKind classifies a word of the merged borrower-name/description field.
type TokenKind int

const (
	NameToken TokenKind = iota
	DescriptionToken
)

// TokenClassifier decides whether a word belongs to the borrower name or to the description.
type TokenClassifier func(token string) TokenKind

// ClassifyByCase treats upper-case words as borrower name and anything else as description.
func ClassifyByCase(token string) TokenKind {
	if token != strings.ToUpper(token) {
		return DescriptionToken
	}
	return NameToken
}

// DropPlaceholders removes empty tokens and unnamed-column placeholders.
func DropPlaceholders(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" || strings.HasPrefix(tok, placeholderPrefix) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// JoinSplitFloats rejoins numeric literals whose thousands separators were
// taken for field delimiters, e.g. ["\"35", "890.00\""] becomes ["35890.00"].
// A split literal starts with a quote followed by a digit and runs until the
// first following fragment that ends in a quote. Tokens without quotes are
// returned unchanged.
func JoinSplitFloats(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !opensSplitFloat(tok) {
			out = append(out, tok)
			continue
		}
		var b strings.Builder
		b.WriteString(tok)
		closed := len(tok) > 2 && strings.HasSuffix(tok, quoteChar)
		for !closed && i+1 < len(tokens) {
			i++
			b.WriteString(tokens[i])
			closed = strings.HasSuffix(tokens[i], quoteChar)
		}
		out = append(out, strings.Trim(b.String(), quoteChar))
	}
	return out
}

func opensSplitFloat(tok string) bool {
	return len(tok) > 1 && strings.HasPrefix(tok, quoteChar) && tok[1] >= '0' && tok[1] <= '9'
}

// SplitNameDescription separates the borrower name from the description in a
// merged field such as "CHELSEA BIANCA VANDERAA Upfront Commission". The first
// word classified as description starts the description. The name may be empty.
func SplitNameDescription(field string, classify TokenClassifier) (name, description string, err error) {
	if classify == nil {
		classify = ClassifyByCase
	}
	words := strings.Split(field, " ")
	for pos, word := range words {
		if classify(word) == DescriptionToken {
			return strings.Join(words[:pos], " "), strings.Join(words[pos:], " "), nil
		}
	}
	return "", "", fmt.Errorf("%w: no borrower name/description boundary in %q", ErrFieldReconstruction, field)
}

// SplitSubBrokerName separates a sub-broker from a borrower name that the
// extraction glued onto it, e.g. "Aagam Pabari ANJAN GUPTA". The last
// lower-case letter ends the sub-broker. When there is no lower-case letter the
// whole field is the sub-broker and the borrower name is empty.
func SplitSubBrokerName(field string) (subBroker, borrowerName string) {
	runes := []rune(field)
	for pos := len(runes) - 1; pos >= 0; pos-- {
		r := runes[pos]
		if !unicode.IsLetter(r) {
			continue
		}
		if r != unicode.ToUpper(r) {
			return strings.TrimSpace(string(runes[:pos+1])), strings.TrimSpace(string(runes[pos+1:]))
		}
	}
	return field, ""
}
