package feature

import (
	"math"
	"regexp"
	"sort"
	"strings"

	vecmath "github.com/Siddhant-K-code/recourse/pkg/math"
)

// tokenPattern keeps word tokens of two or more characters.
var tokenPattern = regexp.MustCompile(`\w\w+`)

// tokenize lowercases a title and splits it into terms, dropping English
// stop words and single-character tokens.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	terms := raw[:0]
	for _, t := range raw {
		if !stopWords[t] {
			terms = append(terms, t)
		}
	}
	return terms
}

// fitVocabulary learns a fixed vocabulary from the corpus: the maxTerms most
// frequent terms across all titles (ties broken alphabetically), ordered
// alphabetically so column positions are stable. IDF uses smoothed inverse
// document frequency: ln((1+n)/(1+df)) + 1.
func fitVocabulary(titles []string, maxTerms int) (vocab []string, idf []float64) {
	corpusCount := make(map[string]int)
	docFreq := make(map[string]int)

	for _, title := range titles {
		seen := make(map[string]bool)
		for _, term := range tokenize(title) {
			corpusCount[term]++
			if !seen[term] {
				seen[term] = true
				docFreq[term]++
			}
		}
	}

	terms := make([]string, 0, len(corpusCount))
	for term := range corpusCount {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if corpusCount[terms[i]] != corpusCount[terms[j]] {
			return corpusCount[terms[i]] > corpusCount[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}
	sort.Strings(terms)

	n := float64(len(titles))
	idf = make([]float64, len(terms))
	for i, term := range terms {
		idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}
	return terms, idf
}

// tfidfRow fills dst with term-frequency × inverse-document-frequency values
// for one title and L2-normalizes the block. Terms outside the fitted
// vocabulary are ignored. dst must span exactly the text columns.
func tfidfRow(dst []float32, title string, termIndex map[string]int, idf []float64) {
	for _, term := range tokenize(title) {
		if idx, ok := termIndex[term]; ok {
			dst[idx] += float32(idf[idx])
		}
	}
	vecmath.NormalizeInPlace(dst)
}

// stopWords is a standard English stop-word list; terms in it never enter
// the vocabulary.
var stopWords = func() map[string]bool {
	list := []string{
		"a", "about", "above", "after", "again", "against", "all", "am", "an",
		"and", "any", "are", "as", "at", "be", "because", "been", "before",
		"being", "below", "between", "both", "but", "by", "can", "cannot",
		"could", "did", "do", "does", "doing", "down", "during", "each",
		"few", "for", "from", "further", "had", "has", "have", "having",
		"he", "her", "here", "hers", "herself", "him", "himself", "his",
		"how", "i", "if", "in", "into", "is", "it", "its", "itself", "just",
		"me", "more", "most", "my", "myself", "no", "nor", "not", "now",
		"of", "off", "on", "once", "only", "or", "other", "our", "ours",
		"ourselves", "out", "over", "own", "same", "she", "should", "so",
		"some", "such", "than", "that", "the", "their", "theirs", "them",
		"themselves", "then", "there", "these", "they", "this", "those",
		"through", "to", "too", "under", "until", "up", "very", "was", "we",
		"were", "what", "when", "where", "which", "while", "who", "whom",
		"why", "will", "with", "would", "you", "your", "yours", "yourself",
		"yourselves",
	}
	m := make(map[string]bool, len(list))
	for _, w := range list {
		m[w] = true
	}
	return m
}()
