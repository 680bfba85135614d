package stats

import (
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/Con7105/fantasy-valo/internal/models"
	"github.com/Con7105/fantasy-valo/internal/vlr"
)

// fuzzyThreshold is the minimum Levenshtein similarity for a fuzzy name hit.
const fuzzyThreshold = 0.8

// ClutchIndex maps a normalized player label to match-level clutch counts.
// Only players with at least one clutch are indexed.
type ClutchIndex map[string]models.ClutchCounts

// NormalizeLabel lowercases and strips all whitespace: "NoMan XLG" -> "nomanxlg".
func NormalizeLabel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func NewClutchIndex(rows []vlr.AdvancedStat) ClutchIndex {
	idx := ClutchIndex{}
	for _, row := range rows {
		key := NormalizeLabel(row.Player())
		if key == "" {
			continue
		}
		c := models.ClutchCounts{
			C1v1: count(row.Column(6)),
			C1v2: count(row.Column(7)),
			C1v3: count(row.Column(8)),
			C1v4: count(row.Column(9)),
			C1v5: count(row.Column(10)),
		}
		if c.Total() > 0 {
			idx[key] = c
		}
	}
	return idx
}

// Lookup finds a player's counts. The table labels players as name followed by
// team tag, so it tries name+team, then the bare name, then the closest label
// that starts with the name.
func (idx ClutchIndex) Lookup(name, team string) (models.ClutchCounts, bool) {
	if len(idx) == 0 {
		return models.ClutchCounts{}, false
	}
	full := NormalizeLabel(name + team)
	if c, ok := idx[full]; ok {
		return c, true
	}
	bare := NormalizeLabel(name)
	if bare == "" {
		return models.ClutchCounts{}, false
	}
	if c, ok := idx[bare]; ok {
		return c, true
	}

	best, bestScore := "", 0.0
	for label := range idx {
		if !strings.HasPrefix(label, bare) {
			continue
		}
		score := similarity(full, label)
		if score >= fuzzyThreshold && (score > bestScore || (score == bestScore && label < best)) {
			best, bestScore = label, score
		}
	}
	if best == "" {
		return models.ClutchCounts{}, false
	}
	return idx[best], true
}

func similarity(a, b string) float64 {
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(fuzzy.LevenshteinDistance(a, b))/float64(maxLen)
}
