package mbti

// Compatibility tiers. Level 1 searches only the curated best-match pairs,
// each higher level widens the ring, and level 4 covers all 16 codes.
const (
	LevelBest    = 1
	LevelGood    = 2
	LevelAverage = 3
	LevelAll     = 4
)

// bestMatch holds the curated Level 1 pairs.
var bestMatch = map[MBTI][]MBTI{
	INFP: {ENFJ, ENTJ}, ENFP: {INFJ, INTJ},
	INFJ: {ENFP, ENTP}, ENFJ: {INFP, ISFP},
	INTJ: {ENFP, ENTP}, ENTJ: {INFP, INTP},
	INTP: {ENTJ, ESTJ}, ENTP: {INFJ, INTJ},
	ISFP: {ENFJ, ESFJ}, ESFP: {ISFJ, ISTJ},
	ISTP: {ESFJ, ESTJ}, ESTP: {ISFJ, ISTJ},
	ISFJ: {ESFP, ESTP}, ESFJ: {ISFP, ISTP},
	ISTJ: {ESFP, ESTP}, ESTJ: {INTP, ISTP},
}

// Level 3 group mapping: NT types and S types rate each other "average".
var (
	groupNT = []MBTI{INTJ, ENTJ, INTP, ENTP}
	groupNF = []MBTI{INFP, ENFP, INFJ, ENFJ}
	groupS  = []MBTI{ISFP, ESFP, ISTP, ESTP, ISFJ, ESFJ, ISTJ, ESTJ}
)

// Targets returns the set of MBTI codes to search for a partner at the given
// expansion level. Levels above LevelAll saturate; the result preserves the
// canonical ordering of All.
func Targets(my MBTI, level int) []MBTI {
	target := make(map[MBTI]struct{})

	best := bestMatch[my]
	badAndAvg := badAndAverage(my)

	switch {
	case level <= LevelBest:
		addAll(target, best)
	case level == LevelGood:
		addAll(target, best)
		addAll(target, good(my, best, badAndAvg))
	case level == LevelAverage:
		addAll(target, best)
		addAll(target, good(my, best, badAndAvg))
		addAll(target, averageOnly(my))
	default: // LevelAll and beyond
		addAll(target, All)
	}

	out := make([]MBTI, 0, len(target))
	for _, m := range All {
		if _, ok := target[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

// good is everything that is neither best, average, nor bad. Same-type is
// always at least "good".
func good(my MBTI, best []MBTI, badAndAvg map[MBTI]struct{}) []MBTI {
	excluded := make(map[MBTI]struct{}, len(best)+len(badAndAvg))
	for _, m := range best {
		excluded[m] = struct{}{}
	}
	for m := range badAndAvg {
		excluded[m] = struct{}{}
	}

	var out []MBTI
	for _, m := range All {
		if _, ok := excluded[m]; !ok {
			out = append(out, m)
		}
	}
	return out
}

func averageOnly(my MBTI) []MBTI {
	if contains(groupNT, my) {
		return groupS
	}
	if contains(groupS, my) {
		return groupNT
	}
	return nil
}

// badAndAverage combines the bad ring (NF vs S) with the average ring.
// Exception rule: ENFJ and ISFP are always best for each other, so each is
// carved out of the other's bad set.
func badAndAverage(my MBTI) map[MBTI]struct{} {
	out := make(map[MBTI]struct{})

	if contains(groupNF, my) {
		for _, m := range groupS {
			if my == ENFJ && m == ISFP {
				continue
			}
			out[m] = struct{}{}
		}
	} else if contains(groupS, my) {
		for _, m := range groupNF {
			if my == ISFP && m == ENFJ {
				continue
			}
			out[m] = struct{}{}
		}
	}

	for _, m := range averageOnly(my) {
		out[m] = struct{}{}
	}
	return out
}

func addAll(set map[MBTI]struct{}, ms []MBTI) {
	for _, m := range ms {
		set[m] = struct{}{}
	}
}

func contains(ms []MBTI, m MBTI) bool {
	for _, v := range ms {
		if v == m {
			return true
		}
	}
	return false
}
