package intent

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	contractx "github.com/tanpawarit/trademind/agent/contract"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultKeywordsRaw []byte

// Vocabulary drives when the tracker re-classifies and how strict a switch is.
type Vocabulary struct {
	Intents          map[contractx.Intent][]string `yaml:"intents"`
	ChangePhrases    []string                      `yaml:"change_phrases"`
	QuestionStarters []string                      `yaml:"question_starters"`
	TopicShift       []string                      `yaml:"topic_shift"`
	VerifyEvery      int                           `yaml:"verify_every"`
	ContextWindow    int                           `yaml:"context_window"`
	SwitchThreshold  float64                       `yaml:"switch_threshold"`
}

func DefaultVocabulary() Vocabulary {
	v, err := ParseVocabulary(defaultKeywordsRaw)
	if err != nil {
		panic(fmt.Sprintf("embedded intent vocabulary: %v", err))
	}
	return v
}

// LoadVocabulary reads a YAML vocabulary from path, or the built-in one for "".
func LoadVocabulary(path string) (Vocabulary, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultVocabulary(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("read intent vocabulary: %w", err)
	}
	return ParseVocabulary(raw)
}

// ParseVocabulary decodes raw and pre-normalizes every phrase.
func ParseVocabulary(raw []byte) (Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("parse intent vocabulary: %w", err)
	}
	if v.VerifyEvery <= 0 {
		return Vocabulary{}, fmt.Errorf("%w: verify_every must be > 0", contractx.ErrValidation)
	}
	if v.ContextWindow <= 0 {
		return Vocabulary{}, fmt.Errorf("%w: context_window must be > 0", contractx.ErrValidation)
	}
	if v.SwitchThreshold < 0 || v.SwitchThreshold > 1 {
		return Vocabulary{}, fmt.Errorf("%w: switch_threshold must be within [0,1]", contractx.ErrValidation)
	}
	for in := range v.Intents {
		if !in.IsSpecific() {
			return Vocabulary{}, fmt.Errorf("%w: unknown intent category %q", contractx.ErrValidation, in)
		}
	}

	intents := make(map[contractx.Intent][]string, len(v.Intents))
	for in, words := range v.Intents {
		intents[in] = normalizeAll(words)
	}
	v.Intents = intents
	v.ChangePhrases = normalizeAll(v.ChangePhrases)
	v.QuestionStarters = normalizeAll(v.QuestionStarters)
	v.TopicShift = normalizeAll(v.TopicShift)
	return v, nil
}

// ChangePotential reports whether the latest message hints at a new goal.
// history ends with the message being evaluated.
func (v Vocabulary) ChangePotential(history []contractx.Message, current contractx.Intent) bool {
	if len(history) < 2 || current == "" {
		return true
	}

	msg := Normalize(history[len(history)-1].Content)
	if containsAny(msg, v.ChangePhrases) {
		return true
	}

	for _, in := range []contractx.Intent{contractx.IntentBuy, contractx.IntentSell, contractx.IntentGraphic} {
		if in != current && containsAny(msg, v.Intents[in]) {
			return true
		}
	}

	for _, starter := range v.QuestionStarters {
		if strings.HasPrefix(msg, starter) {
			return true
		}
	}
	return false
}

// ShouldCheck reports whether the tracker re-classifies on this turn.
func (v Vocabulary) ShouldCheck(history []contractx.Message, current contractx.Intent) bool {
	if current == "" || v.ChangePotential(history, current) {
		return true
	}
	if len(history)%v.VerifyEvery == 0 {
		return true
	}
	if len(history) == 0 {
		return false
	}
	return containsAny(Normalize(history[len(history)-1].Content), v.TopicShift)
}

// Normalize lower-cases s and strips combining marks.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = Normalize(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
