package session

import (
	"errors"
	"fmt"
	"regexp"
	"regexp/syntax"
	"slices"
	"strings"
	"unicode/utf8"
)

// DefaultLabelPattern is the character whitelist for session labels.
const DefaultLabelPattern = `^[a-zA-Z0-9\s\-_]+$`

// Limits bounds every user-supplied field before it reaches the store.
type Limits struct {
	MaxMinutes     int
	MaxRepetitions int
	MaxLabelLength int
	LabelPattern   *regexp.Regexp

	// allowed is the per-character test taken from LabelPattern's class.
	allowed func(rune) bool
}

// DefaultLimits mirrors the bounds the timer has always shipped with.
func DefaultLimits() Limits {
	return Limits{
		MaxMinutes:     480,
		MaxRepetitions: 100,
		MaxLabelLength: 100,
		LabelPattern:   regexp.MustCompile(DefaultLabelPattern),
		allowed:        mustRuneMatcher(DefaultLabelPattern),
	}
}

// NewLimits compiles pattern and checks the numeric bounds. The pattern
// must whitelist one character class over the whole label, e.g.
// ^[a-z ]+$ or ^[A-Za-z0-9 ]{3,}$.
func NewLimits(maxMinutes, maxRepetitions, maxLabelLength int, pattern string) (Limits, error) {
	if maxMinutes <= 0 || maxRepetitions <= 0 || maxLabelLength <= 0 {
		return Limits{}, fmt.Errorf("limits must be positive (minutes=%d, repetitions=%d, label length=%d)",
			maxMinutes, maxRepetitions, maxLabelLength)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Limits{}, fmt.Errorf("compile label pattern: %w", err)
	}
	allowed, err := runeMatcher(pattern)
	if err != nil {
		return Limits{}, fmt.Errorf("label pattern %q: %w", pattern, err)
	}
	return Limits{
		MaxMinutes:     maxMinutes,
		MaxRepetitions: maxRepetitions,
		MaxLabelLength: maxLabelLength,
		LabelPattern:   re,
		allowed:        allowed,
	}, nil
}

// ValidateMinutes checks 0 < minutes <= MaxMinutes.
func (l Limits) ValidateMinutes(minutes int) error {
	return checkRange("duration_minutes", minutes, l.MaxMinutes)
}

// ValidateRepetitions checks 0 < n <= MaxRepetitions.
func (l Limits) ValidateRepetitions(n int) error {
	return checkRange("repetitions", n, l.MaxRepetitions)
}

// ValidateLabel trims surrounding whitespace and returns the label if every
// remaining character is whitelisted and the length is within bounds.
func (l Limits) ValidateLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", invalid("label", "must not be empty")
	}
	if n := utf8.RuneCountInString(label); n > l.MaxLabelLength {
		return "", invalid("label", "length %d exceeds maximum %d", n, l.MaxLabelLength)
	}
	if !l.pattern().MatchString(label) {
		return "", invalid("label", "contains characters outside %s", l.pattern().String())
	}
	return label, nil
}

// CleanLabel strips characters the whitelist rejects and truncates to the
// maximum length. Interactive callers use it to coerce free text before
// validation; an empty result means nothing usable was left.
func (l Limits) CleanLabel(raw string) string {
	allowed := l.runeAllowed()
	var b strings.Builder
	for _, r := range raw {
		if allowed(r) {
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimSpace(b.String())
	if utf8.RuneCountInString(cleaned) > l.MaxLabelLength {
		cleaned = strings.TrimSpace(string([]rune(cleaned)[:l.MaxLabelLength]))
	}
	return cleaned
}

func (l Limits) pattern() *regexp.Regexp {
	if l.LabelPattern == nil {
		return regexp.MustCompile(DefaultLabelPattern)
	}
	return l.LabelPattern
}

func (l Limits) runeAllowed() func(rune) bool {
	if l.allowed != nil {
		return l.allowed
	}
	if allowed, err := runeMatcher(l.pattern().String()); err == nil {
		return allowed
	}
	// Hand-built pattern of another shape: keep runes it accepts on their own.
	re := l.pattern()
	return func(r rune) bool { return re.MatchString(string(r)) }
}

var errLabelPatternShape = errors.New("must be one anchored character class with a repeat, e.g. ^[a-z ]+$")

// runeMatcher extracts the single-character test from a pattern of the form
// ^<class><repeat>$.
func runeMatcher(pattern string) (func(rune) bool, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, err
	}
	if re.Op != syntax.OpConcat || len(re.Sub) != 3 ||
		re.Sub[0].Op != syntax.OpBeginText || re.Sub[2].Op != syntax.OpEndText {
		return nil, errLabelPatternShape
	}
	switch rep := re.Sub[1]; rep.Op {
	case syntax.OpPlus, syntax.OpStar, syntax.OpQuest, syntax.OpRepeat:
		return classMatcher(rep.Sub[0])
	default:
		return nil, errLabelPatternShape
	}
}

func classMatcher(re *syntax.Regexp) (func(rune) bool, error) {
	switch re.Op {
	case syntax.OpCharClass:
		ranges := slices.Clone(re.Rune)
		return func(r rune) bool {
			for i := 0; i+1 < len(ranges); i += 2 {
				if ranges[i] <= r && r <= ranges[i+1] {
					return true
				}
			}
			return false
		}, nil
	case syntax.OpLiteral:
		if len(re.Rune) != 1 {
			return nil, errLabelPatternShape
		}
		lit := string(re.Rune[0])
		if re.Flags&syntax.FoldCase != 0 {
			return func(r rune) bool { return strings.EqualFold(string(r), lit) }, nil
		}
		return func(r rune) bool { return string(r) == lit }, nil
	case syntax.OpAnyCharNotNL:
		return func(r rune) bool { return r != '\n' }, nil
	case syntax.OpAnyChar:
		return func(rune) bool { return true }, nil
	default:
		return nil, errLabelPatternShape
	}
}

func mustRuneMatcher(pattern string) func(rune) bool {
	allowed, err := runeMatcher(pattern)
	if err != nil {
		panic(err)
	}
	return allowed
}

func checkRange(field string, v, max int) error {
	if v <= 0 || v > max {
		return invalid(field, "must be between 1 and %d, got %d", max, v)
	}
	return nil
}
