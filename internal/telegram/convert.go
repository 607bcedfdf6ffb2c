package telegram

import (
	"github.com/JuniorJPDJ/telegram-rss/internal/message"
)

var entityKinds = map[string]message.AnnotationKind{
	"mention":      message.Mention,
	"text_mention": message.TextMention,
	"text_link":    message.TextLink,
	"url":          message.URL,
	"bot_command":  message.BotCommand,
	"hashtag":      message.Hashtag,
}

// ToMessage converts an API message into the command core's shape, turning
// UTF-16 entity offsets into byte offsets.
func ToMessage(m *Message) message.Message {
	if m == nil {
		return message.Message{}
	}
	anns := make([]message.Annotation, 0, len(m.Entities))
	for _, e := range m.Entities {
		start := utf16OffsetToByteIndex(m.Text, e.Offset)
		end := utf16OffsetToByteIndex(m.Text, e.Offset+e.Length)
		kind, ok := entityKinds[e.Type]
		if !ok {
			kind = message.Other
		}
		a := message.Annotation{Kind: kind, Offset: start, Length: end - start, URL: e.URL}
		if e.User != nil {
			a.UserID = e.User.ID
		}
		anns = append(anns, a)
	}
	out := message.New(m.Text, anns)
	out.MessageID = m.MessageID
	if m.Chat != nil {
		out.ChatID = m.Chat.ID
		out.ChatType = m.Chat.Type
	}
	if m.From != nil {
		out.FromUserID = m.From.ID
	}
	return out
}

func utf16OffsetToByteIndex(s string, offset int) int {
	if offset <= 0 {
		return 0
	}
	units := 0
	for i, r := range s {
		if units >= offset {
			return i
		}
		if r <= 0xFFFF {
			units++
		} else {
			units += 2
		}
	}
	return len(s)
}
