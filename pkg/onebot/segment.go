package onebot

// Segment type discriminators.
const (
	SegText       = "text"
	SegImage      = "image"
	SegVideo      = "video"
	SegVoice      = "voice"
	SegAudio      = "audio"
	SegFile       = "file"
	SegAt         = "at"
	SegMention    = "mention"
	SegMentionAll = "mention_all"
	SegReply      = "reply"
)

// Segment is one typed unit of message content. Data carries the
// variant-specific fields; its shape mirrors the OneBot12 wire format so
// segments round-trip through JSON without a schema per variant.
type Segment struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Str returns the string value stored under key, or "" when the key is
// absent or holds a non-string value.
func (s Segment) Str(key string) string {
	v, _ := s.Data[key].(string)
	return v
}

// Text builds a text segment.
func Text(text string) Segment {
	return Segment{Type: SegText, Data: map[string]any{"text": text}}
}

// At builds a mention segment. Either userID (numeric platform id) or name
// (display handle) may be empty.
func At(userID, name string) Segment {
	data := make(map[string]any, 2)
	if userID != "" {
		data["user_id"] = userID
	}
	if name != "" {
		data["name"] = name
	}
	return Segment{Type: SegAt, Data: data}
}

// MentionAll builds a mention-everyone segment.
func MentionAll() Segment {
	return Segment{Type: SegMentionAll, Data: map[string]any{}}
}

// Reply builds a reply segment referencing an earlier message. A reply
// segment always occupies index 0 of a message's segment sequence: it is a
// backward reference, not an inline content item.
func Reply(messageID, userID string) Segment {
	return Segment{Type: SegReply, Data: map[string]any{
		"message_id": messageID,
		"user_id":    userID,
	}}
}

// IsMedia reports whether the segment carries a media payload that maps to
// a dedicated platform send endpoint.
func (s Segment) IsMedia() bool {
	switch s.Type {
	case SegImage, SegVideo, SegVoice, SegAudio, SegFile:
		return true
	}
	return false
}
