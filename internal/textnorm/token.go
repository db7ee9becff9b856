package textnorm

import (
	"strings"
	"unicode"
)

// Kind classifies a token.
type Kind int

const (
	// KindWord is any run of letters, digits and joining punctuation.
	KindWord Kind = iota

	// KindNumber is a word that parses as a number.
	KindNumber

	// KindDate is a word that parses as a calendar date.
	KindDate

	// KindQuoted is text enclosed in quotes; Raw holds the inner text.
	KindQuoted

	// KindSymbol is a run of comparison symbols (=, <, >, !).
	KindSymbol

	// KindComma separates list items and clauses.
	KindComma
)

func (k Kind) String() string {
	switch k {
	case KindWord:
		return "word"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindQuoted:
		return "quoted"
	case KindSymbol:
		return "symbol"
	case KindComma:
		return "comma"
	}
	return "unknown"
}

// Token is one lexical unit of a request.
type Token struct {
	Raw  string
	Norm string
	Kind Kind
}

// IsWord reports whether t is a plain word that folds like w.
func (t Token) IsWord(w string) bool {
	return t.Kind == KindWord && t.Norm == Fold(w)
}

// IsLiteral reports whether t can only be a value (number, date or quoted text).
func (t Token) IsLiteral() bool {
	return t.Kind == KindNumber || t.Kind == KindDate || t.Kind == KindQuoted
}

var closingQuote = map[rune]rune{
	'"':  '"',
	'\'': '\'',
	'„': '“',
	'“': '”',
	'‚': '‘',
	'»': '«',
	'«': '»',
}

func isSymbol(r rune) bool {
	return r == '<' || r == '>' || r == '=' || r == '!'
}

// isJoiner reports runes that stay inside a word when surrounded by word text
// (dates, decimals, identifiers like S-2024-00017).
func isJoiner(r rune) bool {
	return r == '.' || r == '-' || r == '/' || r == '_'
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '€' || r == '%'
}

// Tokenize splits s into tokens. It never fails; characters that carry no
// meaning (brackets, question marks, stray punctuation) are dropped.
func Tokenize(s string) []Token {
	rs := []rune(s)
	var toks []Token
	var word []rune

	flush := func() {
		w := strings.TrimRightFunc(string(word), isJoiner)
		if !signedNumber(w) {
			w = strings.TrimLeftFunc(w, isJoiner)
		}
		word = word[:0]
		if w == "" {
			return
		}
		toks = append(toks, classify(w))
	}

	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			flush()
		case closingQuote[r] != 0 && len(word) == 0:
			end := indexQuote(rs, i+1, r)
			if end < 0 {
				// Unbalanced quote: treat the rest as ordinary text.
				continue
			}
			inner := strings.TrimSpace(string(rs[i+1 : end]))
			if inner != "" {
				toks = append(toks, Token{Raw: inner, Norm: Fold(inner), Kind: KindQuoted})
			}
			i = end
		case isSymbol(r):
			flush()
			j := i
			for j < len(rs) && isSymbol(rs[j]) {
				j++
			}
			sym := string(rs[i:j])
			i = j - 1
			if sym == "!" {
				continue
			}
			toks = append(toks, Token{Raw: sym, Norm: sym, Kind: KindSymbol})
		case r == ',':
			if len(word) > 0 && unicode.IsDigit(word[len(word)-1]) && i+1 < len(rs) && unicode.IsDigit(rs[i+1]) {
				word = append(word, r)
				continue
			}
			flush()
			toks = append(toks, Token{Raw: ",", Norm: ",", Kind: KindComma})
		case r == ';':
			flush()
			toks = append(toks, Token{Raw: ";", Norm: ",", Kind: KindComma})
		case isWordRune(r):
			word = append(word, r)
		case isJoiner(r) && len(word) > 0:
			word = append(word, r)
		case r == '-' && i+1 < len(rs) && unicode.IsDigit(rs[i+1]):
			// Minus sign of a number such as "-5".
			word = append(word, r)
		default:
			flush()
		}
	}
	flush()
	return toks
}

// signedNumber reports whether w starts with a minus sign followed by a digit.
func signedNumber(w string) bool {
	return len(w) > 1 && w[0] == '-' && w[1] >= '0' && w[1] <= '9'
}

func indexQuote(rs []rune, from int, open rune) int {
	want := closingQuote[open]
	for j := from; j < len(rs); j++ {
		if rs[j] == want || (want != open && rs[j] == open) || (open == '„' && rs[j] == '"') {
			return j
		}
	}
	return -1
}

func classify(w string) Token {
	t := Token{Raw: w, Norm: Fold(w), Kind: KindWord}
	if _, ok := ParseDate(w); ok {
		t.Kind = KindDate
	} else if _, ok := ParseNumber(w); ok {
		t.Kind = KindNumber
	}
	return t
}
