package mbti

import (
	"fmt"
	"strings"
)

// MBTI is a validated four-letter personality code. The zero value is not a
// valid code; use Parse at trust boundaries.
type MBTI string

const (
	INFP MBTI = "INFP"
	ENFP MBTI = "ENFP"
	INFJ MBTI = "INFJ"
	ENFJ MBTI = "ENFJ"
	INTJ MBTI = "INTJ"
	ENTJ MBTI = "ENTJ"
	INTP MBTI = "INTP"
	ENTP MBTI = "ENTP"
	ISFP MBTI = "ISFP"
	ESFP MBTI = "ESFP"
	ISTP MBTI = "ISTP"
	ESTP MBTI = "ESTP"
	ISFJ MBTI = "ISFJ"
	ESFJ MBTI = "ESFJ"
	ISTJ MBTI = "ISTJ"
	ESTJ MBTI = "ESTJ"
)

// All lists every MBTI code in a fixed order.
var All = []MBTI{
	INFP, ENFP, INFJ, ENFJ, INTJ, ENTJ, INTP, ENTP,
	ISFP, ESFP, ISTP, ESTP, ISFJ, ESFJ, ISTJ, ESTJ,
}

var valid = func() map[MBTI]struct{} {
	m := make(map[MBTI]struct{}, len(All))
	for _, v := range All {
		m[v] = struct{}{}
	}
	return m
}()

// Parse validates a raw string (case-insensitive) against the closed
// 16-element set.
func Parse(s string) (MBTI, error) {
	m := MBTI(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := valid[m]; !ok {
		return "", fmt.Errorf("invalid MBTI %q", s)
	}
	return m, nil
}

// IsValid reports whether m is one of the 16 codes.
func IsValid(m MBTI) bool {
	_, ok := valid[m]
	return ok
}

func (m MBTI) String() string { return string(m) }
