package embed

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
)

// DefaultMaxFeatures bounds the vocabulary size.
const DefaultMaxFeatures = 1000

// ErrEmptyVocabulary is returned when a fit corpus holds no usable terms.
var ErrEmptyVocabulary = errors.New("embed: empty vocabulary, corpus contains only stop words")

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Vocabulary is a fitted TF-IDF weighting. It is immutable once built, so it
// can be shared by any number of goroutines without locking.
type Vocabulary struct {
	terms map[string]int
	idf   []float32
}

// Fit builds a vocabulary from corpus. Terms are ranked by total frequency
// (ties broken alphabetically), the top maxFeatures are kept, and columns are
// ordered alphabetically. IDF is smoothed: ln((1+n)/(1+df)) + 1.
func Fit(corpus []string, maxFeatures int) (*Vocabulary, error) {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}

	tf := make(map[string]int)
	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(doc) {
			tf[tok]++
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				df[tok]++
			}
		}
	}
	if len(tf) == 0 {
		return nil, ErrEmptyVocabulary
	}

	ranked := make([]string, 0, len(tf))
	for term := range tf {
		ranked = append(ranked, term)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if tf[ranked[i]] != tf[ranked[j]] {
			return tf[ranked[i]] > tf[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > maxFeatures {
		ranked = ranked[:maxFeatures]
	}
	sort.Strings(ranked)

	n := float64(len(corpus))
	v := &Vocabulary{
		terms: make(map[string]int, len(ranked)),
		idf:   make([]float32, len(ranked)),
	}
	for i, term := range ranked {
		v.terms[term] = i
		v.idf[i] = float32(math.Log((1+n)/(1+float64(df[term]))) + 1)
	}
	return v, nil
}

// Dimensions returns the vector length produced by Transform.
func (v *Vocabulary) Dimensions() int {
	return len(v.idf)
}

// Contains reports whether term is part of the vocabulary.
func (v *Vocabulary) Contains(term string) bool {
	_, ok := v.terms[term]
	return ok
}

// Transform returns the L2-normalised TF-IDF vector of text. Texts made only of
// out-of-vocabulary terms produce an all-zero vector.
func (v *Vocabulary) Transform(text string) []float32 {
	vec := make([]float32, len(v.idf))
	for _, tok := range tokenize(text) {
		if idx, ok := v.terms[tok]; ok {
			vec[idx]++
		}
	}

	var norm float64
	for i, count := range vec {
		if count == 0 {
			continue
		}
		vec[i] = count * v.idf[i]
		norm += float64(vec[i]) * float64(vec[i])
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// IsZero reports whether every component of vec is zero.
func IsZero(vec []float32) bool {
	for _, x := range vec {
		if x != 0 {
			return false
		}
	}
	return true
}
