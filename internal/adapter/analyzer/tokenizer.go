package analyzer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tokenizer splits transcript text into index terms: lowercased, accent
// folded, with stopwords and spoken fillers removed and optional stemming.
type Tokenizer struct {
	stemmer   *PorterStemmer
	stopwords map[string]struct{}
}

// NewTokenizer creates a new Tokenizer.
func NewTokenizer(useStemming bool) *Tokenizer {
	var stemmer *PorterStemmer
	if useStemming {
		stemmer = NewPorterStemmer()
	}
	return &Tokenizer{stemmer: stemmer, stopwords: stopwordSet}
}

// Tokenize splits text into terms. Apostrophes inside a word are dropped,
// so "don't" and "dont" yield the same term.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(Fold(text))
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		if len(word) < 2 {
			continue
		}
		if _, stop := t.stopwords[word]; stop {
			continue
		}
		if t.stemmer != nil {
			word = t.stemmer.Stem(word)
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// CountTokens estimates how many LLM tokens text costs. Every word counts,
// stopwords included, at roughly 1.3 subword tokens per word.
func (t *Tokenizer) CountTokens(text string) int {
	n := len(splitWords(text))
	return (n*13 + 9) / 10
}

// Fold lowercases text and strips combining marks, so "Dōgen" becomes "dogen".
func Fold(text string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(folder, text)
	if err != nil {
		out = text
	}
	return strings.ToLower(out)
}

// splitWords returns runs of letters and digits. An apostrophe between two
// letters is skipped rather than splitting the word.
func splitWords(text string) []string {
	var words []string
	var cur strings.Builder
	rs := []rune(text)

	for i, r := range rs {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.WriteRune(r)
		case isApostrophe(r) && cur.Len() > 0 && i+1 < len(rs) && unicode.IsLetter(rs[i+1]):
		default:
			if cur.Len() > 0 {
				words = append(words, cur.String())
				cur.Reset()
			}
		}
	}
	if cur.Len() > 0 {
		words = append(words, cur.String())
	}
	return words
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '’'
}

var stopwordSet = func() map[string]struct{} {
	words := []string{
		// English function words
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"no", "can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "must", "shall", "which",
		"who", "whom", "what", "when", "where", "why", "how", "all",
		"each", "every", "both", "few", "more", "most", "other",
		"some", "such", "than", "too", "very", "just", "also",
		"there", "then", "these", "those", "into", "about", "me", "my",
		// contractions, apostrophe dropped
		"im", "ive", "youre", "youve", "its", "thats", "theres",
		"dont", "doesnt", "didnt", "isnt", "arent", "wasnt", "cant", "wont",
		// spoken fillers common in auto captions
		"um", "uh", "umm", "uhm", "hmm", "mm", "oh", "ah", "yeah", "yes",
		"okay", "ok", "right", "gonna", "wanna", "gotta", "kinda", "sorta",
		"really", "actually", "basically", "like", "know", "mean", "thing",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
