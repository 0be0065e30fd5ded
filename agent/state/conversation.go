package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	contractx "github.com/tanpawarit/trademind/agent/contract"
)

// Conversation is the explicit per-conversation state threaded through a turn.
// - Intent: current user goal, governed by the intent tracker
// - Device/Buying: extracted facts, merged non-destructively
// - Messages: full history including tool traffic
type Conversation struct {
	ID     string           `json:"id"`
	Intent contractx.Intent `json:"intent,omitempty"`
	Stage  Stage            `json:"stage"`

	Device contractx.DeviceInfo `json:"device"`
	Buying contractx.BuyingInfo `json:"buying"`

	Messages []contractx.Message `json:"messages"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Stage string

const (
	StageGreeting        Stage = "greeting"
	StageInfoGathering   Stage = "info_gathering"
	StageGradeAssessment Stage = "grade_assessment"
)

const WelcomeMessage = `## ¡Bienvenido a TradeMind! 🤖📱

Soy tu asistente especializado en la compra-venta de smartphones reacondicionados.

*Si quiere saber más sobre como te puedo ayudar, pulsa el botón de TradeMind.*

¿En qué te puedo ayudar hoy?`

var (
	ErrNilConversation = errors.New("conversation is nil")
	ErrInvalidID       = errors.New("conversation id is empty")
	ErrInvalidIntent   = errors.New("conversation intent is invalid")
)

// NewConversation starts a conversation with the welcome message already sent.
// An empty id gets a fresh uuid.
func NewConversation(id string, now time.Time) *Conversation {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	return &Conversation{
		ID:        id,
		Stage:     StageGreeting,
		Device:    contractx.NewDeviceInfo(),
		Messages:  []contractx.Message{contractx.AssistantMessage(WelcomeMessage)},
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (c *Conversation) Touch(now time.Time) {
	c.UpdatedAt = now.UTC()
}

func (c *Conversation) Validate() error {
	if c == nil {
		return ErrNilConversation
	}
	if strings.TrimSpace(c.ID) == "" {
		return ErrInvalidID
	}
	if c.Intent != "" {
		if _, ok := contractx.ParseIntent(string(c.Intent)); !ok {
			return fmt.Errorf("%w: %q", ErrInvalidIntent, c.Intent)
		}
	}
	if c.Device.Storage != "" && !contractx.IsStorageCapacity(c.Device.Storage) {
		return fmt.Errorf("%w: storage=%q", contractx.ErrValidation, c.Device.Storage)
	}
	return nil
}

func (c *Conversation) Append(msgs ...contractx.Message) {
	c.Messages = append(c.Messages, msgs...)
}

// Dialogue returns the user and assistant text messages, skipping tool
// traffic and empty assistant tool-call turns.
func (c *Conversation) Dialogue() []contractx.Message {
	if c == nil {
		return nil
	}
	out := make([]contractx.Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		switch m.Role {
		case contractx.RoleUser:
			out = append(out, m)
		case contractx.RoleAssistant:
			if strings.TrimSpace(m.Content) != "" {
				out = append(out, m)
			}
		}
	}
	return out
}

// Transcript renders the dialogue as "Usuario:"/"Asistente:" lines.
func (c *Conversation) Transcript() string {
	return RenderTranscript(c.Dialogue())
}

func RenderTranscript(msgs []contractx.Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		if m.Role == contractx.RoleUser {
			b.WriteString("Usuario: ")
		} else {
			b.WriteString("Asistente: ")
		}
		b.WriteString(m.Content)
	}
	return b.String()
}

// HasBasicDeviceInfo reports whether everything needed for a valuation is known.
func (c *Conversation) HasBasicDeviceInfo() bool {
	return c != nil && c.Device.Complete()
}

func (c *Conversation) HasBasicBuyingInfo() bool {
	return c != nil && c.Buying.HasBudget()
}
