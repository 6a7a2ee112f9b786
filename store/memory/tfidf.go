package memory

import (
	"math"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`)

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at",
		"by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that",
		"these", "those", "from", "up", "down", "over", "under", "than", "so", "such", "into", "about",
		"between", "through", "during", "before", "after", "out", "off", "too", "very", "can", "will",
		"just", "should", "now", "do", "does", "did", "how", "what", "why", "when", "where", "which",
		"who", "me", "my", "i", "you", "your", "we", "our", "show", "explain",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// tokenize lower-cases text and returns its terms without stopwords.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// vector is a sparse, L2-normalized TF-IDF vector.
type vector map[string]float64

// weigh builds the TF-IDF vector of tokens against document frequencies df
// over n documents, using smoothed IDF.
func weigh(tokens []string, df map[string]int, n int) vector {
	if len(tokens) == 0 {
		return nil
	}
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}

	v := make(vector, len(tf))
	var norm float64
	for term, count := range tf {
		idf := math.Log(float64(1+n)/float64(1+df[term])) + 1
		w := float64(count) / float64(len(tokens)) * idf
		v[term] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for term := range v {
		v[term] /= norm
	}
	return v
}

func (v vector) dot(o vector) float64 {
	if len(o) < len(v) {
		v, o = o, v
	}
	var sum float64
	for term, w := range v {
		sum += w * o[term]
	}
	return sum
}

// documentFrequencies counts, for each term, the documents containing it.
func documentFrequencies(docs [][]string) map[string]int {
	df := make(map[string]int)
	for _, tokens := range docs {
		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}
	return df
}
