package analyzer

import "strings"

// PorterStemmer reduces English words to their Porter stem. Rules are applied
// in a fixed order so the same word always yields the same stem.
type PorterStemmer struct{}

func NewPorterStemmer() *PorterStemmer {
	return &PorterStemmer{}
}

// rule rewrites suffix to repl when the remaining stem has a positive measure.
type rule struct {
	suffix string
	repl   string
}

// Suffix tables for steps 2 to 4. Step 4 is ordered longest first.
var (
	step2Rules = []rule{
		{"ational", "ate"}, {"tional", "tion"}, {"enci", "ence"}, {"anci", "ance"},
		{"izer", "ize"}, {"abli", "able"}, {"alli", "al"}, {"entli", "ent"},
		{"eli", "e"}, {"ousli", "ous"}, {"ization", "ize"}, {"ation", "ate"},
		{"ator", "ate"}, {"alism", "al"}, {"iveness", "ive"}, {"fulness", "ful"},
		{"ousness", "ous"}, {"aliti", "al"}, {"iviti", "ive"}, {"biliti", "ble"},
	}
	step3Rules = []rule{
		{"icate", "ic"}, {"ative", ""}, {"alize", "al"}, {"iciti", "ic"},
		{"ical", "ic"}, {"ful", ""}, {"ness", ""},
	}
	step4Suffixes = []string{
		"ement", "ance", "ence", "able", "ible", "ment", "ant", "ent",
		"ism", "ate", "iti", "ous", "ive", "ize", "ion", "al", "er", "ic", "ou",
	}
)

// Stem returns the stem of a lowercase word. Words with non-ASCII letters
// and words shorter than three bytes are returned unchanged.
func (p *PorterStemmer) Stem(word string) string {
	if len(word) < 3 || !isASCII(word) {
		return word
	}
	w := stem(strings.ToLower(word))
	w = step1a(w)
	w = step1b(w)
	w = step1c(w)
	w = w.replaceFirst(step2Rules)
	w = w.replaceFirst(step3Rules)
	w = step4(w)
	w = step5(w)
	return string(w)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

type stem string

func (s stem) consonant(i int) bool {
	switch s[i] {
	case 'a', 'e', 'i', 'o', 'u':
		return false
	case 'y':
		return i == 0 || !s.consonant(i-1)
	}
	return true
}

// measure counts vowel-consonant sequences: [C](VC)^m[V].
func (s stem) measure() int {
	n, i, m := len(s), 0, 0
	for i < n && s.consonant(i) {
		i++
	}
	for i < n {
		for i < n && !s.consonant(i) {
			i++
		}
		if i >= n {
			break
		}
		m++
		for i < n && s.consonant(i) {
			i++
		}
	}
	return m
}

func (s stem) hasVowel() bool {
	for i := range len(s) {
		if !s.consonant(i) {
			return true
		}
	}
	return false
}

func (s stem) doubleConsonant() bool {
	n := len(s)
	return n >= 2 && s[n-1] == s[n-2] && s.consonant(n-1)
}

// cvc reports a consonant-vowel-consonant ending whose last letter is not w, x or y.
func (s stem) cvc() bool {
	n := len(s)
	if n < 3 || !s.consonant(n-3) || s.consonant(n-2) || !s.consonant(n-1) {
		return false
	}
	c := s[n-1]
	return c != 'w' && c != 'x' && c != 'y'
}

func (s stem) has(suffix string) bool { return strings.HasSuffix(string(s), suffix) }

func (s stem) trim(suffix string) stem { return s[:len(s)-len(suffix)] }

// replaceFirst applies the first rule whose suffix matches. Once a suffix
// matches no later rule is tried, even when the measure test fails.
func (s stem) replaceFirst(rules []rule) stem {
	for _, r := range rules {
		if !s.has(r.suffix) {
			continue
		}
		if base := s.trim(r.suffix); base.measure() > 0 {
			return base + stem(r.repl)
		}
		return s
	}
	return s
}

func step1a(s stem) stem {
	switch {
	case s.has("sses"), s.has("ies"):
		return s[:len(s)-2]
	case s.has("ss"):
		return s
	case s.has("s"):
		return s[:len(s)-1]
	}
	return s
}

func step1b(s stem) stem {
	if s.has("eed") {
		if s.trim("eed").measure() > 0 {
			return s[:len(s)-1]
		}
		return s
	}

	var base stem
	switch {
	case s.has("ed") && s.trim("ed").hasVowel():
		base = s.trim("ed")
	case s.has("ing") && s.trim("ing").hasVowel():
		base = s.trim("ing")
	default:
		return s
	}

	switch {
	case base.has("at"), base.has("bl"), base.has("iz"):
		return base + "e"
	case base.doubleConsonant():
		if c := base[len(base)-1]; c != 'l' && c != 's' && c != 'z' {
			return base[:len(base)-1]
		}
	case base.measure() == 1 && base.cvc():
		return base + "e"
	}
	return base
}

func step1c(s stem) stem {
	if s.has("y") && s.trim("y").hasVowel() {
		return s.trim("y") + "i"
	}
	return s
}

func step4(s stem) stem {
	for _, suffix := range step4Suffixes {
		if !s.has(suffix) {
			continue
		}
		base := s.trim(suffix)
		if base.measure() <= 1 {
			return s
		}
		if suffix == "ion" {
			if n := len(base); n == 0 || (base[n-1] != 's' && base[n-1] != 't') {
				return s
			}
		}
		return base
	}
	return s
}

func step5(s stem) stem {
	if s.has("e") {
		base := s.trim("e")
		if m := base.measure(); m > 1 || (m == 1 && !base.cvc()) {
			s = base
		}
	}
	if s.measure() > 1 && s.doubleConsonant() && s[len(s)-1] == 'l' {
		s = s[:len(s)-1]
	}
	return s
}
