package enrich

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// wordPattern matches words of two or more letters, digits or underscores.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// sentencePattern matches runs of text ending in sentence punctuation.
var sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]`)

// Prefix returns at most n runes from the start of s.
func Prefix(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func words(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// candidate is a 1- or 2-word phrase with its count and first position.
type candidate struct {
	phrase string
	count  int
	first  int
}

// candidates extracts unigrams and bigrams after dropping stop words, the
// way a stop-word-filtering n-gram vectorizer would.
func candidates(text string) []candidate {
	var kept []string
	for _, w := range words(text) {
		if !isStopWord(w) {
			kept = append(kept, w)
		}
	}

	index := map[string]int{}
	var out []candidate
	add := func(p string) {
		if i, ok := index[p]; ok {
			out[i].count++
			return
		}
		index[p] = len(out)
		out = append(out, candidate{phrase: p, count: 1, first: len(out)})
	}
	for i, w := range kept {
		add(w)
		if i+1 < len(kept) {
			add(w + " " + kept[i+1])
		}
	}
	return out
}
