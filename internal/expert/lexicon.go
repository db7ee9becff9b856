package expert

import (
	"slices"

	"github.com/roach88/nlq/internal/queryir"
	"github.com/roach88/nlq/internal/textnorm"
)

// phrase is one folded keyword split into words, pointing at an entry of
// whatever table owns the lexicon.
type phrase struct {
	words []string
	ref   int
}

// lexicon matches multi-word phrases against a token stream, longest
// phrase first. Among equally long phrases the first added wins.
type lexicon struct {
	phrases []phrase
}

func newLexicon() *lexicon { return &lexicon{} }

func (l *lexicon) add(keyword string, ref int) {
	words := textnorm.Phrase(keyword)
	if len(words) == 0 {
		return
	}
	l.phrases = append(l.phrases, phrase{words: words, ref: ref})
	slices.SortStableFunc(l.phrases, func(a, b phrase) int {
		return len(b.words) - len(a.words)
	})
}

// match returns the ref and word count of the longest phrase starting at
// toks[i].
func (l *lexicon) match(toks []textnorm.Token, i int) (ref, n int, ok bool) {
	if l == nil || i >= len(toks) {
		return 0, 0, false
	}
	for _, p := range l.phrases {
		if matchWords(toks, i, p.words) {
			return p.ref, len(p.words), true
		}
	}
	return 0, 0, false
}

func matchWords(toks []textnorm.Token, i int, words []string) bool {
	if i+len(words) > len(toks) {
		return false
	}
	for j, w := range words {
		t := toks[i+j]
		if t.Kind == textnorm.KindQuoted || t.Kind == textnorm.KindComma {
			return false
		}
		if t.Norm != w {
			return false
		}
	}
	return true
}

// hits counts the distinct phrases of l that occur anywhere in toks.
func (l *lexicon) hits(toks []textnorm.Token) int {
	seen := make(map[int]bool)
	for i := range toks {
		for k, p := range l.phrases {
			if !seen[k] && matchWords(toks, i, p.words) {
				seen[k] = true
			}
		}
	}
	return len(seen)
}

type opKind int

const (
	// opCompare takes one value.
	opCompare opKind = iota
	// opNull takes no value.
	opNull
	// opBetween takes two values joined by "und" or "bis".
	opBetween
	// opFrom is "von X", a range when "bis Y" follows.
	opFrom
	// opList takes one or more values.
	opList
)

// opEntry describes one operator phrase. Strict phrases are operators
// wherever they appear; the others are common prepositions and only count
// when a usable value follows.
type opEntry struct {
	kind   opKind
	op     queryir.Operator
	strict bool
}

var opTable = []struct {
	phrases []string
	entry   opEntry
}{
	{[]string{"=", "==", "gleich", "ist gleich"}, opEntry{opCompare, queryir.OpEquals, true}},
	{[]string{"ist"}, opEntry{opCompare, queryir.OpEquals, false}},
	{[]string{"!=", "<>", "ungleich", "ist ungleich", "ist nicht", "nicht gleich", "nicht"}, opEntry{opCompare, queryir.OpNotEquals, true}},
	{[]string{"enthält", "enthalten", "enthaltend"}, opEntry{opCompare, queryir.OpContains, true}},
	{[]string{"wie"}, opEntry{opCompare, queryir.OpContains, false}},
	{[]string{">", "größer als", "grösser als", "mehr als", "höher als"}, opEntry{opCompare, queryir.OpGreater, true}},
	{[]string{"über", "nach"}, opEntry{opCompare, queryir.OpGreater, false}},
	{[]string{"<", "kleiner als", "weniger als", "niedriger als"}, opEntry{opCompare, queryir.OpLess, true}},
	{[]string{"unter", "vor"}, opEntry{opCompare, queryir.OpLess, false}},
	{[]string{">=", "=>", "mindestens", "größer gleich"}, opEntry{opCompare, queryir.OpGreaterEqual, true}},
	{[]string{"ab", "seit"}, opEntry{opCompare, queryir.OpGreaterEqual, false}},
	{[]string{"<=", "=<", "höchstens", "kleiner gleich"}, opEntry{opCompare, queryir.OpLessEqual, true}},
	{[]string{"bis", "maximal"}, opEntry{opCompare, queryir.OpLessEqual, false}},
	{[]string{"zwischen"}, opEntry{opBetween, queryir.OpBetween, true}},
	{[]string{"von"}, opEntry{opFrom, queryir.OpBetween, false}},
	{[]string{"in"}, opEntry{opList, queryir.OpIn, false}},
	{[]string{"nicht in"}, opEntry{opList, queryir.OpNotIn, true}},
	{[]string{"leer", "ist leer", "fehlt", "fehlend", "fehlen"}, opEntry{opNull, queryir.OpIsNull, true}},
	{[]string{"nicht leer", "ist nicht leer", "vorhanden", "gesetzt", "ist gesetzt", "ausgefüllt"}, opEntry{opNull, queryir.OpIsNotNull, true}},
}

var (
	operators  = newLexicon()
	opEntries  []opEntry
	sortMarker = newLexicon()
	directions = newLexicon()
	limitMark  = newLexicon()
	negations  = newLexicon()
	vocabulary = newLexicon()
)

type negationKind int

const (
	// negAbsent turns a bare field into an is-null check ("ohne VSN").
	negAbsent negationKind = iota
	// negExclude turns a bare field into an excluded projection ("nicht VSN").
	negExclude
)

type limitKind int

const (
	// limitStrict requires a count.
	limitStrict limitKind = iota
	// limitLoose is ignored without a count.
	limitLoose
)

var (
	stopwords = map[string]bool{}
	articles  = map[string]bool{}
)

func init() {
	for _, row := range opTable {
		ref := len(opEntries)
		opEntries = append(opEntries, row.entry)
		for _, p := range row.phrases {
			operators.add(p, ref)
			vocabulary.add(p, 0)
		}
	}
	for _, p := range []string{"sortiert nach", "sortieren nach", "sortiere nach", "sortiert", "geordnet nach", "ordne nach", "ordnen nach", "sortierung nach"} {
		sortMarker.add(p, 0)
		vocabulary.add(p, 0)
	}
	for _, p := range []string{"absteigend", "desc", "abwärts", "neueste zuerst"} {
		directions.add(p, 1)
		vocabulary.add(p, 0)
	}
	for _, p := range []string{"aufsteigend", "asc", "aufwärts", "älteste zuerst"} {
		directions.add(p, 0)
		vocabulary.add(p, 0)
	}
	for _, p := range []string{"die ersten", "die erste", "limit"} {
		limitMark.add(p, int(limitStrict))
		vocabulary.add(p, 0)
	}
	for _, p := range []string{"erste", "ersten", "top"} {
		limitMark.add(p, int(limitLoose))
		vocabulary.add(p, 0)
	}
	for _, p := range []string{"ohne", "kein", "keine", "keinen", "keiner"} {
		negations.add(p, int(negAbsent))
		vocabulary.add(p, 0)
	}
	for _, p := range []string{"nicht", "außer", "ausser", "ausgenommen"} {
		negations.add(p, int(negExclude))
		vocabulary.add(p, 0)
	}
	for _, w := range []string{"oder", "weder", "noch", "zuerst", "dann", "danach"} {
		vocabulary.add(w, 0)
	}
	for _, w := range []string{
		"zeige", "zeig", "zeigen", "liste", "listen", "gib", "gebe", "mir", "uns", "alle", "alles",
		"und", "mit", "wo", "wobei", "deren", "dessen", "bei", "für", "im", "am", "an", "auf",
		"nur", "bitte", "sowie", "auch", "als", "welche", "welcher", "welches", "was", "sind",
		"hat", "haben", "ich", "möchte", "brauche", "suche", "finde", "mal", "spalte", "spalten",
		"feld", "felder", "bericht", "report", "übersicht", "aus", "zu", "zum", "zur",
	} {
		stopwords[textnorm.Fold(w)] = true
	}
	for _, w := range []string{"der", "die", "das", "den", "dem", "des", "ein", "eine", "einen", "einem", "einer"} {
		articles[w] = true
	}
}

func isFiller(t textnorm.Token) bool {
	return t.Kind == textnorm.KindWord && (stopwords[t.Norm] || articles[t.Norm])
}

// skipArticles returns the first index at or after i that is not an article.
func skipArticles(toks []textnorm.Token, i int) int {
	for i < len(toks) && toks[i].Kind == textnorm.KindWord && articles[toks[i].Norm] {
		i++
	}
	return i
}
