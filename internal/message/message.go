// Package message is the inbound chat message shape the command core works on.
// Offsets are byte offsets into Text; transport adapters convert from whatever
// unit the network uses before building a Message.
package message

type AnnotationKind string

const (
	Mention     AnnotationKind = "mention"      // @username
	TextMention AnnotationKind = "text_mention" // mention of a user without a username
	TextLink    AnnotationKind = "text_link"    // clickable text with an embedded URL
	URL         AnnotationKind = "url"          // bare URL in the text
	BotCommand  AnnotationKind = "bot_command"  // /command or /command@bot
	Hashtag     AnnotationKind = "hashtag"
	Other       AnnotationKind = "other"
)

type Annotation struct {
	Kind   AnnotationKind
	Offset int
	Length int
	// URL is set for TextLink.
	URL string
	// UserID is set for TextMention.
	UserID int64
	// Text is the annotated span of the message text.
	Text string
}

// End is the exclusive end offset of the annotation.
func (a Annotation) End() int {
	return a.Offset + a.Length
}

type Message struct {
	ChatID      int64
	MessageID   int64
	ChatType    string
	FromUserID  int64
	Text        string
	Annotations []Annotation
}

// New builds a message and fills every annotation's Text from its span,
// clamped to the bounds of text.
func New(text string, anns []Annotation) Message {
	out := make([]Annotation, 0, len(anns))
	for _, a := range anns {
		a.Text = Slice(text, a.Offset, a.Length)
		out = append(out, a)
	}
	return Message{Text: text, Annotations: out}
}

// Slice returns text[offset:offset+length] with both ends clamped.
func Slice(text string, offset, length int) string {
	if offset < 0 {
		offset = 0
	}
	end := offset + length
	if end > len(text) {
		end = len(text)
	}
	if offset >= end {
		return ""
	}
	return text[offset:end]
}
