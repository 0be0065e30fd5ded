package prompt

import (
	"context"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/trademind/agent/contract"
	statex "github.com/tanpawarit/trademind/agent/state"
)

const stageWindow = 3

// DetectStage classifies where a sell/graphic conversation is, scanning the
// last few messages newest first.
func DetectStage(msgs []contractx.Message, basicInfo bool) statex.Stage {
	stage := statex.StageInfoGathering
	start := len(msgs) - stageWindow
	if start < 0 {
		start = 0
	}
	for i := len(msgs) - 1; i >= start; i-- {
		content := strings.ToLower(msgs[i].Content)
		if strings.Contains(content, "lanzamiento") || strings.Contains(content, "fecha") || basicInfo {
			return statex.StageGradeAssessment
		}
		if containsAny(content, "5g", "almacenamiento", "modelo") {
			stage = statex.StageInfoGathering
			continue
		}
		if containsAny(content, "estado", "condición", "pantalla") {
			return statex.StageGradeAssessment
		}
	}
	return stage
}

// System builds the assistant system prompt for the conversation and
// returns the stage it settled on.
func (s Set) System(ctx context.Context, conv *statex.Conversation) (string, statex.Stage, error) {
	if conv == nil {
		return "", "", statex.ErrNilConversation
	}

	switch conv.Intent {
	case contractx.IntentSell, contractx.IntentGraphic:
		stage := DetectStage(conv.Messages, conv.HasBasicDeviceInfo())
		prompt, err := s.selling(ctx, conv.Intent, stage, conv.Device)
		if err != nil {
			return "", "", err
		}
		return prompt, stage, nil
	case contractx.IntentBuy:
		prompt, err := s.join(ctx, Base, Buying)
		return prompt, conv.Stage, err
	default:
		prompt, err := s.Render(ctx, Base, nil)
		return prompt, conv.Stage, err
	}
}

func (s Set) selling(ctx context.Context, in contractx.Intent, stage statex.Stage, d contractx.DeviceInfo) (string, error) {
	base, err := s.Render(ctx, Base, nil)
	if err != nil {
		return "", err
	}
	selling, err := s.Render(ctx, Selling, map[string]any{
		"conversation_state": "Current stage: " + string(stage),
		"brand":              d.Brand,
		"model":              d.Model,
		"storage":            d.Storage,
		"has_5g":             describeBool(d.Has5G),
		"release_date":       describeDate(d),
	})
	if err != nil {
		return "", err
	}

	parts := []string{base + "\n" + selling}
	if stage == statex.StageGradeAssessment {
		extra := []Name{Grading}
		switch in {
		case contractx.IntentSell:
			extra = append(extra, SellIntent)
		case contractx.IntentGraphic:
			extra = append(extra, GraphicIntent)
		}
		for _, n := range extra {
			p, err := s.Render(ctx, n, nil)
			if err != nil {
				return "", err
			}
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func (s Set) join(ctx context.Context, names ...Name) (string, error) {
	parts := make([]string, 0, len(names))
	for _, n := range names {
		p, err := s.Render(ctx, n, nil)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "\n"), nil
}

func describeBool(b *bool) string {
	if b == nil {
		return "None"
	}
	return strconv.FormatBool(*b)
}

func describeDate(d contractx.DeviceInfo) string {
	if d.ReleaseDate == nil {
		return "None"
	}
	return d.ReleaseDate.Format("2006-01-02")
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
