// Package scorer estimates how likely a text fragment is unpolished prose that
// still needs converting to LaTeX, with an auditable breakdown of every signal.
package scorer

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/draftscan/internal/model"
)

// Scoring constants. They are empirically tuned and the regression tests
// depend on the literal values.
const (
	shortTextRunes      = 10
	shortTextConfidence = 0.3

	formattedConfidence = 0.2
	formattedNLCutoff   = 0.3
	commandDensityRunes = 20

	naturalWeight    = 0.6
	incompleteBonus  = 0.3
	multiLineBonus   = 0.1
	multiLineMin     = 3
	formattedPenalty = 0.7

	avgWordLength = 5
	nlAmplifier   = 1.5
	symbolRatio   = 0.5
)

// Result is the outcome of scoring one fragment.
type Result struct {
	Confidence float64                   `json:"confidence"`
	Breakdown  model.ConfidenceBreakdown `json:"breakdown"`
}

// FormattedSignals records which formatted-markup checks fired.
type FormattedSignals struct {
	BeginEnd     bool `json:"begin_end"`
	Section      bool `json:"section"`
	ManyCommands bool `json:"many_commands"`
}

// Any reports whether at least one signal fired.
func (s FormattedSignals) Any() bool {
	return s.BeginEnd || s.Section || s.ManyCommands
}

// penalties lists the fired signals, each followed by suffix.
func (s FormattedSignals) penalties(suffix string) []string {
	var out []string
	if s.BeginEnd {
		out = append(out, `Contains \begin{}\end{}`+suffix)
	}
	if s.Section {
		out = append(out, "Contains section commands"+suffix)
	}
	if s.ManyCommands {
		out = append(out, "High LaTeX command density"+suffix)
	}
	return out
}

// DetectFormatted runs the three formatted-markup checks on trimmed text.
func DetectFormatted(trimmed string) FormattedSignals {
	commands := countMatches(commandPattern, trimmed)
	return FormattedSignals{
		BeginEnd:     beginEndPattern.MatchString(trimmed),
		Section:      sectionPattern.MatchString(trimmed),
		ManyCommands: float64(commands) > float64(utf8.RuneCountInString(trimmed))/commandDensityRunes,
	}
}

// NaturalLanguageScore returns a [0,1] estimate of how much of text reads as
// English prose rather than markup.
func NaturalLanguageScore(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if PureMarkupShape(trimmed) != "" {
		return 0
	}

	englishWords := countMatches(englishWordPattern, trimmed)
	latexCommands := countMatches(commandPattern, trimmed)
	mathSymbols := countMatches(markupSymbolPattern, trimmed)

	if latexCommands > englishWords || float64(mathSymbols) > float64(englishWords)*symbolRatio {
		return 0
	}

	totalChars := math.Max(1, float64(utf8.RuneCountInString(trimmed)))
	englishCharRatio := float64(englishWords*avgWordLength) / totalChars
	return math.Min(1, englishCharRatio*nlAmplifier)
}

// Score computes the draft confidence of text. It is deterministic: equal
// inputs yield equal results, breakdown included.
func Score(text string) Result {
	trimmed := strings.TrimSpace(text)

	if trimmed == "" {
		return Result{
			Confidence: 0,
			Breakdown:  newBreakdown(0, 0, true),
		}
	}

	if utf8.RuneCountInString(trimmed) < shortTextRunes {
		b := newBreakdown(shortTextConfidence, 0, true)
		b.Penalties = append(b.Penalties, fmt.Sprintf("Short text (<%d chars)", shortTextRunes))
		return Result{Confidence: shortTextConfidence, Breakdown: b}
	}

	formatted := DetectFormatted(trimmed)
	naturalScore := NaturalLanguageScore(trimmed)

	if formatted.Any() && naturalScore < formattedNLCutoff {
		b := newBreakdown(formattedConfidence, naturalScore, false)
		b.HasFormattedLaTeX = true
		b.Penalties = append(b.Penalties, formatted.penalties("")...)
		return Result{Confidence: formattedConfidence, Breakdown: b}
	}

	b := newBreakdown(0, naturalScore, false)
	b.HasFormattedLaTeX = formatted.Any()

	confidence := naturalScore * naturalWeight
	b.Factors = append(b.Factors, fmt.Sprintf("Natural language: %d%% (×%.1f = %d%%)",
		percent(naturalScore), naturalWeight, percent(naturalScore*naturalWeight)))

	incompleteMath := incompleteMathPattern.MatchString(trimmed)
	incompleteCmd := incompleteCommandPattern.MatchString(trimmed)
	if incompleteMath || incompleteCmd {
		b.IncompleteLaTeX = true
		confidence += incompleteBonus
		if incompleteMath {
			b.Factors = append(b.Factors, "Incomplete math ($...) +30%")
		}
		if incompleteCmd {
			b.Factors = append(b.Factors, "Incomplete command +30%")
		}
	}

	lineCount := strings.Count(trimmed, "\n") + 1
	if lineCount >= multiLineMin {
		b.MultiLine = true
		confidence += multiLineBonus
		b.Factors = append(b.Factors, fmt.Sprintf("Multi-line (%d lines) +10%%", lineCount))
	}

	if formatted.Any() {
		confidence *= formattedPenalty
		b.Penalties = append(b.Penalties, formatted.penalties(" (-30%)")...)
	}

	b.BaseScore = confidence
	return Result{Confidence: clamp(confidence), Breakdown: b}
}

func newBreakdown(base, natural float64, short bool) model.ConfidenceBreakdown {
	return model.ConfidenceBreakdown{
		BaseScore:            base,
		NaturalLanguageScore: natural,
		IsShortText:          short,
		Factors:              []string{},
		Penalties:            []string{},
	}
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
