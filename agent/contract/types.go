package contract

import (
	"strconv"
	"strings"
	"time"
)

type Intent string

const (
	IntentBuy     Intent = "buy"
	IntentSell    Intent = "sell"
	IntentGraphic Intent = "graphic"
	IntentNone    Intent = "none"
)

// ParseIntent accepts only the four known labels, case-insensitively.
func ParseIntent(raw string) (Intent, bool) {
	switch Intent(strings.ToLower(strings.TrimSpace(raw))) {
	case IntentBuy:
		return IntentBuy, true
	case IntentSell:
		return IntentSell, true
	case IntentGraphic:
		return IntentGraphic, true
	case IntentNone:
		return IntentNone, true
	default:
		return "", false
	}
}

// IsSpecific reports whether the intent is one of buy, sell or graphic.
func (i Intent) IsSpecific() bool {
	return i == IntentBuy || i == IntentSell || i == IntentGraphic
}

type Grade string

const (
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeE Grade = "E"

	DefaultGrade = GradeC
)

var AllGrades = []Grade{GradeB, GradeC, GradeD, GradeE}

func ParseGrade(raw string) (Grade, bool) {
	switch g := Grade(strings.ToUpper(strings.TrimSpace(raw))); g {
	case GradeB, GradeC, GradeD, GradeE:
		return g, true
	default:
		return "", false
	}
}

// StorageCapacities is the closed set of storage labels a device may carry.
var StorageCapacities = []string{"32GB", "64GB", "128GB", "256GB", "512GB", "1TB"}

// FormatStorage renders a GB amount the way capacities are written.
func FormatStorage(gb int) string {
	if gb >= 1000 && gb%1000 == 0 {
		return strconv.Itoa(gb/1000) + "TB"
	}
	return strconv.Itoa(gb) + "GB"
}

func IsStorageCapacity(s string) bool {
	for _, c := range StorageCapacities {
		if c == s {
			return true
		}
	}
	return false
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// DeviceInfo describes the device a user wants to sell or chart.
// Empty strings and nil pointers mean "unknown".
type DeviceInfo struct {
	Brand          string     `json:"brand"`
	Model          string     `json:"model"`
	Storage        string     `json:"storage"`
	Has5G          *bool      `json:"has_5g"`
	ReleaseDate    *time.Time `json:"release_date"`
	Grade          Grade      `json:"grade"`
	EstimatedPrice *float64   `json:"estimated_price,omitempty"`
}

func NewDeviceInfo() DeviceInfo {
	return DeviceInfo{Grade: DefaultGrade}
}

// Complete reports whether every extractable field is known.
func (d DeviceInfo) Complete() bool {
	return d.Brand != "" && d.Model != "" && d.Storage != "" && d.Has5G != nil && d.ReleaseDate != nil && d.Grade != ""
}

type BuyingInfo struct {
	Budget          *float64 `json:"budget"`
	BrandPreference string   `json:"brand_preference"`
	MinStorage      *int     `json:"min_storage"`
	GradePreference Grade    `json:"grade_preference"`
}

// HasBudget reports whether a positive budget is known.
func (b BuyingInfo) HasBudget() bool {
	return b.Budget != nil && *b.Budget != 0
}

// ToolRequest is one tool call of the assistant. ArgsError is set when the
// raw arguments were not a JSON object; the call is still answered.
type ToolRequest struct {
	ID        string         `json:"id,omitempty"`
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args,omitempty"`
	ArgsError string         `json:"args_error,omitempty"`
}

type ToolResult struct {
	ID     string `json:"id,omitempty"`
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Date truncates t to a UTC calendar date.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func Ptr[T any](v T) *T {
	return &v
}
