package mbti

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetsLevelFourCoversEveryone(t *testing.T) {
	for _, m := range All {
		targets := Targets(m, LevelAll)
		assert.ElementsMatch(t, All, targets, "level 4 for %s", m)
	}
}

func TestTargetsSaturateAboveLevelFour(t *testing.T) {
	for _, m := range All {
		assert.Equal(t, Targets(m, LevelAll), Targets(m, 7), "%s", m)
	}
}

func TestTargetsAreMonotonic(t *testing.T) {
	// Each level must be a superset of the previous one.
	for _, m := range All {
		prev := map[MBTI]struct{}{}
		for level := LevelBest; level <= LevelAll; level++ {
			cur := make(map[MBTI]struct{})
			for _, tgt := range Targets(m, level) {
				cur[tgt] = struct{}{}
			}
			for tgt := range prev {
				_, ok := cur[tgt]
				assert.True(t, ok, "%s level %d lost target %s", m, level, tgt)
			}
			prev = cur
		}
	}
}

func TestSameTypeIsGood(t *testing.T) {
	// INFP is neither best nor bad/average for itself, so it shows up in its
	// own level 2 ring.
	targets := Targets(INFP, LevelGood)
	assert.Contains(t, targets, INFP)

	assert.NotContains(t, Targets(INFP, LevelBest), INFP)
}

func TestBestMatchesAtLevelOne(t *testing.T) {
	assert.ElementsMatch(t, []MBTI{ENFJ, ENTJ}, Targets(INFP, LevelBest))
	assert.ElementsMatch(t, []MBTI{INTP, ISTP}, Targets(ESTJ, LevelBest))
}

func TestENFJISFPExceptionRule(t *testing.T) {
	// NF vs S is normally the worst tier, but ENFJ and ISFP are curated as
	// best for each other, in both directions.
	assert.Contains(t, Targets(ENFJ, LevelBest), ISFP)
	assert.Contains(t, Targets(ISFP, LevelBest), ENFJ)

	// The remaining S types stay out of ENFJ's ring until level 4.
	assert.NotContains(t, Targets(ENFJ, LevelAverage), ISTJ)
	assert.Contains(t, Targets(ENFJ, LevelAll), ISTJ)
}

func TestWorstTierOnlyAtLevelFour(t *testing.T) {
	// INFP (NF) vs ISTJ (S) is the bad ring.
	for level := LevelBest; level <= LevelAverage; level++ {
		assert.NotContains(t, Targets(INFP, level), ISTJ, "level %d", level)
	}
	assert.Contains(t, Targets(INFP, LevelAll), ISTJ)
}

func TestAverageRingAppearsAtLevelThree(t *testing.T) {
	// INTP (NT) rates S types as average: excluded at level 2, present at 3.
	require.NotContains(t, Targets(INTP, LevelGood), ISFJ)
	assert.Contains(t, Targets(INTP, LevelAverage), ISFJ)
}
