package prompt

import (
	"context"
	"embed"
	"fmt"
	"path"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/trademind/agent/contract"
)

//go:embed template/*.txt
var templateFS embed.FS

type Name string

const (
	Base          Name = "base"
	Selling       Name = "selling"
	Grading       Name = "grading"
	SellIntent    Name = "sell_intent"
	GraphicIntent Name = "graphic_intent"
	Buying        Name = "buying"
	DetectIntent  Name = "detect_intent"
	VerifyIntent  Name = "verify_intent"
	DeviceExtract Name = "device_extract"
	BuyingExtract Name = "buying_extract"
)

var allNames = []Name{
	Base, Selling, Grading, SellIntent, GraphicIntent, Buying,
	DetectIntent, VerifyIntent, DeviceExtract, BuyingExtract,
}

// Set holds loaded prompt content keyed by name.
type Set struct {
	raw map[Name]string
}

// LoadSet reads every embedded template. Templates use FString placeholders
// ({name}); literal braces are doubled.
func LoadSet() (Set, error) {
	raw := make(map[Name]string, len(allNames))
	for _, n := range allNames {
		b, err := templateFS.ReadFile(path.Join("template", string(n)+".txt"))
		if err != nil {
			return Set{}, fmt.Errorf("%w: template=%s: %v", contractx.ErrPromptMissing, n, err)
		}
		raw[n] = strings.TrimSpace(string(b))
	}
	return Set{raw: raw}, nil
}

func MustLoadSet() Set {
	s, err := LoadSet()
	if err != nil {
		panic(err)
	}
	return s
}

func (s Set) Raw(name Name) (string, error) {
	t, ok := s.raw[name]
	if !ok {
		return "", fmt.Errorf("%w: template=%s", contractx.ErrPromptMissing, name)
	}
	return t, nil
}

// Render formats one template with vars.
func (s Set) Render(ctx context.Context, name Name, vars map[string]any) (string, error) {
	raw, err := s.Raw(name)
	if err != nil {
		return "", err
	}
	return format(ctx, raw, vars)
}

func format(ctx context.Context, raw string, vars map[string]any) (string, error) {
	if vars == nil {
		vars = map[string]any{}
	}
	tpl := einoprompt.FromMessages(schema.FString, schema.SystemMessage(raw))
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("format prompt: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%w: template produced no message", contractx.ErrPromptMissing)
	}
	return msgs[0].Content, nil
}
