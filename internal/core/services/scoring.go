package services

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

// rrfK is the Reciprocal Rank Fusion constant.
const rrfK = 60

var reTerm = regexp.MustCompile(`[\p{L}\p{N}]+`)

// tokenize splits text into lowercased word terms.
func tokenize(text string) []string {
	return reTerm.FindAllString(strings.ToLower(text), -1)
}

// chunkScorer scores one chunk against a query. A scorer only applies to
// chunks it has the inputs for; the index picks the first applicable one.
type chunkScorer interface {
	Method() domain.ScoreMethod
	Applies(c domain.Chunk) bool
	Score(c domain.Chunk) float64
}

// vectorScorer ranks by cosine similarity. It needs both vectors.
type vectorScorer struct {
	query []float32
}

func (s vectorScorer) Method() domain.ScoreMethod { return domain.ScoreVector }

func (s vectorScorer) Applies(c domain.Chunk) bool {
	return len(s.query) > 0 && len(c.Embedding) == len(s.query)
}

func (s vectorScorer) Score(c domain.Chunk) float64 {
	return cosineSimilarity(s.query, c.Embedding)
}

// keywordScorer ranks by the share of distinct query terms present in the
// chunk, with a saturating bonus for repeated occurrences. Scores lie in [0, 1).
type keywordScorer struct {
	terms []string
}

func newKeywordScorer(query string) keywordScorer {
	seen := make(map[string]bool)
	var terms []string
	for _, t := range tokenize(query) {
		if !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}
	return keywordScorer{terms: terms}
}

func (s keywordScorer) Method() domain.ScoreMethod { return domain.ScoreKeyword }

func (s keywordScorer) Applies(domain.Chunk) bool { return true }

func (s keywordScorer) Score(c domain.Chunk) float64 {
	if len(s.terms) == 0 {
		return 0
	}

	freq := make(map[string]int)
	for _, t := range tokenize(c.Text) {
		freq[t]++
	}

	matched, occurrences := 0, 0
	for _, t := range s.terms {
		if n := freq[t]; n > 0 {
			matched++
			occurrences += n
		}
	}
	if matched == 0 {
		return 0
	}

	bonus := float64(occurrences) / float64(occurrences+1)
	return (float64(matched) + bonus) / float64(len(s.terms)+1)
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// scoredChunk holds an intermediate result before fusion.
type scoredChunk struct {
	docID   string
	docName string
	chunk   domain.Chunk
	raw     float64
	fused   float64
	method  domain.ScoreMethod
}

// lessByPosition orders by ascending chunk sequence, then document ID.
func lessByPosition(a, b scoredChunk) bool {
	if a.chunk.Sequence != b.chunk.Sequence {
		return a.chunk.Sequence < b.chunk.Sequence
	}
	return a.docID < b.docID
}

// rankList sorts one score space by descending raw score.
func rankList(list []scoredChunk) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].raw != list[j].raw {
			return list[i].raw > list[j].raw
		}
		return lessByPosition(list[i], list[j])
	})
}

// reciprocalRankFusion merges ranked lists by rank rather than raw score,
// so cosine and keyword magnitudes never compete directly.
// k is the constant (typically 60) to prevent high ranks from dominating.
func reciprocalRankFusion(k int, lists ...[]scoredChunk) []scoredChunk {
	byKey := make(map[string]*scoredChunk)
	var order []string

	for _, list := range lists {
		for rank, sc := range list {
			key := sc.docID + "\x00" + strconv.Itoa(sc.chunk.Sequence)
			existing, ok := byKey[key]
			if !ok {
				c := sc
				existing = &c
				byKey[key] = existing
				order = append(order, key)
			}
			existing.fused += 1.0 / float64(k+rank+1)
		}
	}

	results := make([]scoredChunk, 0, len(order))
	for _, key := range order {
		results = append(results, *byKey[key])
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].fused != results[j].fused {
			return results[i].fused > results[j].fused
		}
		return lessByPosition(results[i], results[j])
	})
	return results
}
