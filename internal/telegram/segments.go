package telegram

import (
	"strings"
	"unicode/utf16"

	"github.com/flemzord/obgram/pkg/onebot"
)

// parseSegments decomposes a Telegram message object into an ordered
// OneBot12 segment sequence. The rules run in a fixed order and each is
// independently optional; a message with no text and no media yields an
// empty (or reply-only) sequence, which is valid.
//
// Ordering invariants: a reply segment, when present, is inserted at index
// 0; mention segments derived from entities are appended after all content
// segments.
func parseSegments(msg map[string]any, fileURL func(string) string) []onebot.Segment {
	var segments []onebot.Segment

	text := strField(msg, "text")
	if text == "" {
		text = strField(msg, "caption")
	}
	if text != "" {
		segments = append(segments, onebot.Text(text))
	}

	// Photos arrive as a size-ranked array; the last entry is the highest
	// resolution.
	if photos := sliceField(msg, "photo"); len(photos) > 0 {
		if photo, ok := photos[len(photos)-1].(map[string]any); ok {
			segments = append(segments, onebot.Segment{Type: onebot.SegImage, Data: map[string]any{
				"file_id":       strField(photo, "file_id"),
				"url":           fileURL(strField(photo, "file_path")),
				"telegram_file": photo,
			}})
		}
	}

	if video := subMap(msg, "video"); video != nil {
		segments = append(segments, onebot.Segment{Type: onebot.SegVideo, Data: map[string]any{
			"file_id":  strField(video, "file_id"),
			"url":      fileURL(strField(video, "file_path")),
			"duration": intField(video, "duration"),
			"width":    intField(video, "width"),
			"height":   intField(video, "height"),
		}})
	}

	if voice := subMap(msg, "voice"); voice != nil {
		segments = append(segments, onebot.Segment{Type: onebot.SegVoice, Data: map[string]any{
			"file_id":  strField(voice, "file_id"),
			"url":      fileURL(strField(voice, "file_path")),
			"duration": intField(voice, "duration"),
		}})
	}

	if audio := subMap(msg, "audio"); audio != nil {
		segments = append(segments, onebot.Segment{Type: onebot.SegAudio, Data: map[string]any{
			"file_id":   strField(audio, "file_id"),
			"url":       fileURL(strField(audio, "file_path")),
			"duration":  intField(audio, "duration"),
			"title":     strField(audio, "title"),
			"performer": strField(audio, "performer"),
		}})
	}

	if doc := subMap(msg, "document"); doc != nil {
		segments = append(segments, onebot.Segment{Type: onebot.SegFile, Data: map[string]any{
			"file_id":   strField(doc, "file_id"),
			"url":       fileURL(strField(doc, "file_path")),
			"file_name": strField(doc, "file_name"),
			"file_size": intField(doc, "file_size"),
			"mime_type": strField(doc, "mime_type"),
		}})
	}

	// Stickers become image segments with a marker so alt-text rendering
	// can tell them apart from ordinary images.
	if sticker := subMap(msg, "sticker"); sticker != nil {
		segments = append(segments, onebot.Segment{Type: onebot.SegImage, Data: map[string]any{
			"file_id":       strField(sticker, "file_id"),
			"url":           fileURL(strField(sticker, "file_path")),
			"telegram_type": "sticker",
			"telegram_file": sticker,
		}})
	}

	if reply := subMap(msg, "reply_to_message"); reply != nil {
		segments = append([]onebot.Segment{onebot.Reply(
			idString(reply, "message_id"),
			idString(subMap(reply, "from"), "id"),
		)}, segments...)
	}

	return append(segments, resolveMentions(msg)...)
}

// resolveMentions extracts mention segments from the message's rich-text
// entity annotations. Best effort and non-lossy: malformed entities are
// skipped, never fatal.
func resolveMentions(msg map[string]any) []onebot.Segment {
	entities := sliceField(msg, "entities")
	if len(entities) == 0 {
		return nil
	}
	text := strField(msg, "text")

	var mentions []onebot.Segment
	for _, raw := range entities {
		ent, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		switch strField(ent, "type") {
		case "mention":
			// @username references: slice the display text at the entity's
			// declared span. Out-of-range spans drop the entity silently.
			handle, ok := entitySlice(text, int(intField(ent, "offset")), int(intField(ent, "length")))
			if !ok || handle == "" {
				continue
			}
			mentions = append(mentions, onebot.At("", handle))

		case "text_mention":
			// Mentions of users without a username carry the user record
			// directly; offset validity is irrelevant here.
			user := subMap(ent, "user")
			if user == nil {
				continue
			}
			mentions = append(mentions, onebot.At(idString(user, "id"), displayName(user)))
		}
	}
	return mentions
}

// entitySlice extracts the substring covered by an entity span. Telegram
// declares entity offsets and lengths in UTF-16 code units, so the text is
// re-encoded before slicing to stay correct for non-BMP runes (emoji).
// Reports false when the span exceeds the text.
func entitySlice(text string, offset, length int) (string, bool) {
	if offset < 0 || length < 0 {
		return "", false
	}
	encoded := utf16.Encode([]rune(text))
	if offset+length > len(encoded) {
		return "", false
	}
	return string(utf16.Decode(encoded[offset : offset+length])), true
}

// altText renders a single-line human-readable summary of a segment
// sequence. Non-authoritative display fallback only; never parsed back.
func altText(segments []onebot.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg.Type {
		case onebot.SegText:
			parts = append(parts, seg.Str("text"))
		case onebot.SegImage:
			if seg.Str("telegram_type") == "sticker" {
				parts = append(parts, "[sticker]")
			} else {
				parts = append(parts, "[image]")
			}
		case onebot.SegVideo:
			parts = append(parts, "[video]")
		case onebot.SegVoice:
			parts = append(parts, "[voice]")
		case onebot.SegAudio:
			parts = append(parts, "[audio]")
		case onebot.SegFile:
			if name := seg.Str("file_name"); name != "" {
				parts = append(parts, "[file:"+name+"]")
			} else {
				parts = append(parts, "[file]")
			}
		case onebot.SegAt, onebot.SegMention:
			parts = append(parts, seg.Str("name"))
		case onebot.SegReply:
			parts = append(parts, "[reply]")
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
