package telegram

import (
	"strconv"
	"strings"

	"github.com/flemzord/obgram/pkg/onebot"
)

// mentionAllPrefix is the literal prepended to the rendered text when a
// send mentions everyone. Telegram has no native mention-all, so this is a
// visible convention, not an entity.
const mentionAllPrefix = "@All "

// SendModifiers carries the chain-style modifiers applied to one outbound
// call: a reply target, extra mention targets, and the mention-all flag.
type SendModifiers struct {
	ReplyMessageID string
	AtUserIDs      []string
	AtAll          bool
}

// APICall describes one Telegram Bot API invocation: a method name and its
// parameter map. Complex parameter values are serialized by the dispatcher.
type APICall struct {
	Endpoint string
	Params   map[string]any

	// DroppedMedia counts media segments beyond the first. The single-call
	// send model carries at most one media payload per call; the count is
	// surfaced so callers can observe the loss instead of guessing.
	DroppedMedia int
}

// mediaEndpoints maps media segment types to their Bot API method and the
// parameter field holding the media reference.
var mediaEndpoints = map[string]struct{ endpoint, field string }{
	onebot.SegImage: {"sendPhoto", "photo"},
	onebot.SegVideo: {"sendVideo", "video"},
	onebot.SegVoice: {"sendVoice", "voice"},
	onebot.SegAudio: {"sendAudio", "audio"},
	onebot.SegFile:  {"sendDocument", "document"},
}

// messageEntity is a Telegram entity attached to outbound text. Offsets and
// lengths are UTF-16 code units, the platform's entity unit.
type messageEntity struct {
	Type   string      `json:"type"`
	Offset int         `json:"offset"`
	Length int         `json:"length"`
	User   *entityUser `json:"user,omitempty"`
}

type entityUser struct {
	ID int64 `json:"id"`
}

// translateSegments turns a normalized segment sequence plus modifiers into
// exactly one API call descriptor. Pure and deterministic: identical input
// always yields a bit-identical call.
//
// Pass 1 walks the segments once, accumulating text fragments, the first
// media segment (later ones are dropped and counted), mention entities at
// running offsets into the rendered text, and an explicit reply target.
// Pass 2 emits either a single media call (caption = rendered text, falling
// back to the media's own caption) or a sendMessage call (single-space
// placeholder when empty: the wire API rejects empty text).
func translateSegments(chatID string, segments []onebot.Segment, mods SendModifiers) APICall {
	var (
		text     strings.Builder
		textLen  int // UTF-16 code units of text so far
		entities []messageEntity
		media    *onebot.Segment
		dropped  int
		replyID  string
		atAll    = mods.AtAll
	)

	appendText := func(s string) {
		text.WriteString(s)
		textLen += utf16Len(s)
	}

	for _, seg := range segments {
		switch {
		case seg.Type == onebot.SegText:
			appendText(seg.Str("text"))

		case seg.IsMedia():
			if media == nil {
				s := seg
				media = &s
			} else {
				dropped++
			}

		case seg.Type == onebot.SegAt || seg.Type == onebot.SegMention:
			token, ent := renderMention(segString(seg, "user_id"), seg.Str("name"), textLen)
			if token == "" {
				continue
			}
			appendText(token)
			entities = append(entities, ent)

		case seg.Type == onebot.SegMentionAll:
			atAll = true

		case seg.Type == onebot.SegReply:
			if replyID == "" {
				replyID = segString(seg, "message_id")
			}
		}
	}

	// Mention-all text is inserted before modifier-level mentions are
	// appended, so their offsets are computed against the longer text;
	// entities already recorded shift right by the prefix length.
	rendered := text.String()
	if atAll {
		shift := utf16Len(mentionAllPrefix)
		for i := range entities {
			entities[i].Offset += shift
		}
		rendered = mentionAllPrefix + rendered
		textLen += shift
	}

	for _, userID := range mods.AtUserIDs {
		sep := ""
		if textLen > 0 {
			sep = " "
		}
		token, ent := renderMention(userID, "", textLen+utf16Len(sep))
		if token == "" {
			continue
		}
		rendered += sep + token
		textLen += utf16Len(sep) + utf16Len(token)
		entities = append(entities, ent)
	}

	params := map[string]any{"chat_id": chatID}

	// Explicit reply segments take priority over the modifier-level target.
	// Unparseable ids attach no reply and raise no error.
	finalReply := replyID
	if finalReply == "" {
		finalReply = mods.ReplyMessageID
	}
	if finalReply != "" {
		if id, err := strconv.ParseInt(finalReply, 10, 64); err == nil {
			params["reply_to_message_id"] = id
		}
	}

	if media != nil {
		target := mediaEndpoints[media.Type]
		ref := media.Str("file_id")
		if ref == "" {
			ref = media.Str("url")
		}
		params[target.field] = ref

		caption := rendered
		if caption == "" {
			caption = media.Str("caption")
		}
		params["caption"] = caption
		return APICall{Endpoint: target.endpoint, Params: params, DroppedMedia: dropped}
	}

	if rendered == "" {
		rendered = " "
	}
	params["text"] = rendered
	if len(entities) > 0 {
		params["entities"] = entities
	}
	return APICall{Endpoint: "sendMessage", Params: params, DroppedMedia: dropped}
}

// renderMention renders one mention as an @-prefixed token and its entity
// at the given UTF-16 offset. Purely numeric identifiers become resolved
// text_mention entities carrying the user id; anything else becomes a plain
// handle mention. Empty identifiers render nothing.
func renderMention(userID, name string, offset int) (string, messageEntity) {
	identifier := userID
	if identifier == "" {
		identifier = name
	}
	if identifier == "" {
		return "", messageEntity{}
	}

	token := identifier
	if !strings.HasPrefix(token, "@") {
		token = "@" + token
	}

	ent := messageEntity{Offset: offset, Length: utf16Len(token)}
	if id, ok := digitsToInt(identifier); ok {
		ent.Type = "text_mention"
		ent.User = &entityUser{ID: id}
	} else {
		ent.Type = "mention"
	}
	return token, ent
}

// segString reads a segment data field as a string, rendering numeric
// values as decimal strings. Consumers hand-build segment maps, so ids may
// arrive as numbers.
func segString(seg onebot.Segment, key string) string {
	return idString(seg.Data, key)
}

// digitsToInt parses a digits-only string. Signed or mixed strings report
// false: they are handles, not user ids.
func digitsToInt(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// utf16Len returns the length of s in UTF-16 code units.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n++
		if r > 0xFFFF {
			n++
		}
	}
	return n
}
