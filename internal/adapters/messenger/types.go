package messenger

import (
	"errors"
	"fmt"
)

// WebhookBody is the body of a POST /webhook delivery.
type WebhookBody struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one batched entry of a webhook delivery.
type Entry struct {
	ID        string            `json:"id,omitempty"`
	Time      int64             `json:"time,omitempty"`
	Messaging []*MessagingEvent `json:"messaging"`
}

// MessagingEvent is a single event addressed to the page. Exactly one of
// Message or Postback is set for the events the bot handles; deliveries,
// reads and other shapes leave both nil.
type MessagingEvent struct {
	Sender    *Party           `json:"sender"`
	Recipient *Party           `json:"recipient,omitempty"`
	Timestamp int64            `json:"timestamp,omitempty"`
	Message   *InboundMessage  `json:"message,omitempty"`
	Postback  *InboundPostback `json:"postback,omitempty"`
}

// SenderID returns the PSID of the sender, or "" when absent.
func (e *MessagingEvent) SenderID() string {
	if e == nil || e.Sender == nil {
		return ""
	}
	return e.Sender.ID
}

// MessageID returns the mid of the message or postback, or "" when absent.
func (e *MessagingEvent) MessageID() string {
	switch {
	case e == nil:
		return ""
	case e.Message != nil:
		return e.Message.MID
	case e.Postback != nil:
		return e.Postback.MID
	}
	return ""
}

// Party identifies a sender or recipient.
type Party struct {
	ID string `json:"id"`
}

// InboundMessage is a message sent by a user.
type InboundMessage struct {
	MID         string              `json:"mid,omitempty"`
	Text        string              `json:"text,omitempty"`
	IsEcho      bool                `json:"is_echo,omitempty"`
	QuickReply  *QuickReplyPayload  `json:"quick_reply,omitempty"`
	NLP         *NLP                `json:"nlp,omitempty"`
	Attachments []InboundAttachment `json:"attachments,omitempty"`
}

// QuickReplyPayload is attached to messages produced by tapping a quick reply.
type QuickReplyPayload struct {
	Payload string `json:"payload"`
}

// NLP holds the entities the platform's built-in NLP attached to a message.
type NLP struct {
	Entities map[string][]Entity `json:"entities"`
}

// Entity is one detected entity with its confidence.
type Entity struct {
	Confidence float64 `json:"confidence"`
	Value      any     `json:"value,omitempty"`
}

// FirstEntity returns the first entity detected for name, or nil.
func (n *NLP) FirstEntity(name string) *Entity {
	if n == nil || n.Entities == nil {
		return nil
	}
	list := n.Entities[name]
	if len(list) == 0 {
		return nil
	}
	return &list[0]
}

// InboundAttachment is a file or media item sent by a user.
type InboundAttachment struct {
	Type    string `json:"type"`
	Payload struct {
		URL string `json:"url,omitempty"`
	} `json:"payload"`
}

// InboundPostback is produced when a user taps a postback button.
type InboundPostback struct {
	MID     string `json:"mid,omitempty"`
	Title   string `json:"title,omitempty"`
	Payload string `json:"payload"`
}

// Message is an outbound message payload. Exactly one of Text or Attachment
// is populated.
type Message struct {
	Text         string       `json:"text,omitempty"`
	QuickReplies []QuickReply `json:"quick_replies,omitempty"`
	Attachment   *Attachment  `json:"attachment,omitempty"`
}

// QuickReply is a quick-reply chip shown under a text message.
type QuickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

// Attachment wraps a structured template.
type Attachment struct {
	Type    string           `json:"type"`
	Payload *TemplatePayload `json:"payload"`
}

// Template types.
const (
	TemplateButton = "button"
	TemplateList   = "list"
)

// TemplatePayload is a button or list template.
type TemplatePayload struct {
	TemplateType    string    `json:"template_type"`
	Text            string    `json:"text,omitempty"`
	TopElementStyle string    `json:"top_element_style,omitempty"`
	Buttons         []Button  `json:"buttons,omitempty"`
	Elements        []Element `json:"elements,omitempty"`
}

// Button is a postback button.
type Button struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// Element is one row of a list template.
type Element struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

// TextMessage builds a plain text message.
func TextMessage(text string, quickReplies ...QuickReply) *Message {
	return &Message{Text: text, QuickReplies: quickReplies}
}

// TextQuickReply builds a text quick reply.
func TextQuickReply(title, payload string) QuickReply {
	return QuickReply{ContentType: "text", Title: title, Payload: payload}
}

// PostbackButton builds a postback button.
func PostbackButton(title, payload string) Button {
	return Button{Type: "postback", Title: title, Payload: payload}
}

// ButtonTemplate builds a button template message.
func ButtonTemplate(text string, buttons ...Button) *Message {
	return &Message{
		Attachment: &Attachment{
			Type: "template",
			Payload: &TemplatePayload{
				TemplateType: TemplateButton,
				Text:         text,
				Buttons:      buttons,
			},
		},
	}
}

// ListTemplate builds a compact list template message.
func ListTemplate(elements ...Element) *Message {
	return &Message{
		Attachment: &Attachment{
			Type: "template",
			Payload: &TemplatePayload{
				TemplateType:    TemplateList,
				TopElementStyle: "compact",
				Elements:        elements,
			},
		},
	}
}

// IsTemplate reports whether the message carries a template of the given type.
func (m *Message) IsTemplate(templateType string) bool {
	return m != nil && m.Attachment != nil && m.Attachment.Payload != nil &&
		m.Attachment.Payload.TemplateType == templateType
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := &Message{Text: m.Text}
	if m.QuickReplies != nil {
		out.QuickReplies = append([]QuickReply(nil), m.QuickReplies...)
	}
	if m.Attachment != nil {
		att := &Attachment{Type: m.Attachment.Type}
		if p := m.Attachment.Payload; p != nil {
			cp := *p
			cp.Buttons = append([]Button(nil), p.Buttons...)
			cp.Elements = make([]Element, len(p.Elements))
			for i, el := range p.Elements {
				el.Buttons = append([]Button(nil), el.Buttons...)
				cp.Elements[i] = el
			}
			if p.Elements == nil {
				cp.Elements = nil
			}
			att.Payload = &cp
		}
		out.Attachment = att
	}
	return out
}

var errEmptyPayload = errors.New("button without payload")

// Validate checks that exactly one variant is populated and that every
// button carries an action payload.
func (m *Message) Validate() error {
	if m == nil {
		return errors.New("nil message")
	}
	hasText := m.Text != ""
	hasAttachment := m.Attachment != nil
	if hasText == hasAttachment {
		return errors.New("message must have exactly one of text or attachment")
	}
	for _, qr := range m.QuickReplies {
		if qr.Payload == "" {
			return fmt.Errorf("quick reply %q: %w", qr.Title, errEmptyPayload)
		}
	}
	if !hasAttachment {
		return nil
	}
	p := m.Attachment.Payload
	if p == nil {
		return errors.New("attachment without payload")
	}
	for _, b := range p.Buttons {
		if b.Payload == "" {
			return fmt.Errorf("button %q: %w", b.Title, errEmptyPayload)
		}
	}
	for _, el := range p.Elements {
		for _, b := range el.Buttons {
			if b.Payload == "" {
				return fmt.Errorf("element %q button %q: %w", el.Title, b.Title, errEmptyPayload)
			}
		}
	}
	return nil
}
