package datasource

import (
	"strings"
	"unicode/utf8"
)

// maxTeamDistance is the largest edit distance accepted between a requested team
// and a table entry when no substring match exists
const maxTeamDistance = 2

// minFuzzyLength stops short names such as "Ajax" matching unrelated clubs
const minFuzzyLength = 5

// closestTeam returns the index of the name nearest to requested, or -1 when none
// is within maxTeamDistance. Club affixes like "FC" are ignored.
func closestTeam(requested string, names []string) int {
	r := bareTeamName(requested)
	n := bareTeamName(NormalizeTeamName(requested))
	if utf8.RuneCountInString(r) < minFuzzyLength {
		return -1
	}
	best, bestDistance := -1, maxTeamDistance+1
	for i, name := range names {
		bare := bareTeamName(name)
		d := min(levenshteinDistance(r, bare), levenshteinDistance(n, bare))
		if d < bestDistance {
			best, bestDistance = i, d
		}
	}
	return best
}

func bareTeamName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, " fc")
	name = strings.TrimPrefix(name, "fc ")
	return name
}

// levenshteinDistance calculates the edit distance between two strings in runes
func levenshteinDistance(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	matrix := make([][]int, len(r1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(r2)+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len(r2); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(r1); i++ {
		for j := 1; j <= len(r2); j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}
	return matrix[len(r1)][len(r2)]
}
