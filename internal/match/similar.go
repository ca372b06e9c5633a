package match

// similarGroups lists words a recognizer commonly swaps for each other. Entries
// are stored in normalized form; every word appears in at most one group.
var similarGroups = [][]string{
	{"there", "their", "theyre"},
	{"fun", "fan"},
	{"aloud", "allowed"},
	{"1", "one", "won"},
	{"2", "two", "to", "too"},
	{"3", "three"},
	{"4", "four", "for", "fore"},
	{"5", "five"},
	{"6", "six"},
	{"7", "seven"},
	{"8", "eight", "ate"},
	{"9", "nine"},
	{"10", "ten"},
	{"right", "write"},
	{"see", "sea"},
	{"be", "bee"},
	{"i", "eye"},
	{"know", "no"},
	{"knew", "new"},
	{"hear", "here"},
	{"by", "buy", "bye"},
	{"sun", "son"},
	{"your", "youre"},
	{"whose", "whos"},
	{"weather", "whether"},
	{"wood", "would"},
	{"red", "read"},
	{"blue", "blew"},
	{"week", "weak"},
	{"peace", "piece"},
	{"flower", "flour"},
	{"night", "knight"},
	{"hole", "whole"},
	{"wait", "weight"},
	{"road", "rode"},
	{"tail", "tale"},
	{"pair", "pear", "pare"},
	{"meet", "meat"},
	{"sale", "sail"},
}

var similarSounding = buildSimilar(similarGroups)

func buildSimilar(groups [][]string) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{})
	for _, group := range groups {
		for _, w := range group {
			set, ok := out[w]
			if !ok {
				set = make(map[string]struct{}, len(group)-1)
				out[w] = set
			}
			for _, alt := range group {
				if alt != w {
					set[alt] = struct{}{}
				}
			}
		}
	}
	return out
}

// SimilarSounding reports whether spoken is an accepted alternative for target.
// Both words must already be normalized.
func SimilarSounding(target, spoken string) bool {
	alts, ok := similarSounding[target]
	if !ok {
		return false
	}
	_, ok = alts[spoken]
	return ok
}

// Alternatives returns the accepted alternatives for a normalized word.
func Alternatives(word string) []string {
	alts := similarSounding[word]
	out := make([]string, 0, len(alts))
	for _, g := range similarGroups {
		for _, w := range g {
			if _, ok := alts[w]; ok {
				out = append(out, w)
			}
		}
	}
	return out
}
