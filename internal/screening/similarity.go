package screening

import (
	"strings"
	"unicode"
)

var honorifics = []string{"mr.", "mrs.", "ms.", "dr.", "prof.", "mr ", "mrs ", "ms ", "dr ", "prof "}

// normalizeName lowercases a name and strips honorifics and punctuation
func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))

	for _, h := range honorifics {
		if strings.HasPrefix(name, h) {
			name = name[len(h):]
			break
		}
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r):
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '-':
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// jaroWinkler returns the Jaro-Winkler similarity of two strings,
// from 0 (no match) to 1 (identical). It compares runes, not bytes.
func jaroWinkler(a, b string) float64 {
	if a == b {
		return 1.0
	}

	s1, s2 := []rune(a), []rune(b)
	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	matchDistance := max(max(len(s1), len(s2))/2-1, 0)

	s1Matches := make([]bool, len(s1))
	s2Matches := make([]bool, len(s2))

	matches := 0
	for i := range s1 {
		start := max(0, i-matchDistance)
		end := min(i+matchDistance+1, len(s2))
		for j := start; j < end; j++ {
			if s2Matches[j] || s1[i] != s2[j] {
				continue
			}
			s1Matches[i] = true
			s2Matches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := range s1 {
		if !s1Matches[i] {
			continue
		}
		for !s2Matches[k] {
			k++
		}
		if s1[i] != s2[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	jaro := (m/float64(len(s1)) + m/float64(len(s2)) + (m-float64(transpositions)/2)/m) / 3.0

	prefix := 0
	for i := 0; i < min(4, len(s1), len(s2)); i++ {
		if s1[i] != s2[i] {
			break
		}
		prefix++
	}

	return jaro + float64(prefix)*0.1*(1.0-jaro)
}
