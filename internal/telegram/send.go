package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/flemzord/obgram/internal/metrics"
	"github.com/flemzord/obgram/pkg/onebot"
)

// maxArgPreview bounds the rendering of a single argument in the
// unsupported-operation notice.
const maxArgPreview = 100

// Send is a chainable builder for outbound calls to one chat. Modifiers
// (At, AtAll, Reply) accumulate on the builder and apply to the next send
// operation. Builders are cheap; create one per send.
type Send struct {
	client    *Client
	chatID    string
	atUserIDs []string
	replyID   string
	atAll     bool
}

// To starts a send builder targeting the given chat.
func (c *Client) To(chatID string) *Send {
	return &Send{client: c, chatID: chatID}
}

// At adds a mention target. May be called repeatedly; targets render in
// call order.
func (s *Send) At(userID string) *Send {
	s.atUserIDs = append(s.atUserIDs, userID)
	return s
}

// AtAll marks the send as mentioning everyone.
func (s *Send) AtAll() *Send {
	s.atAll = true
	return s
}

// Reply sets the message this send replies to.
func (s *Send) Reply(messageID string) *Send {
	s.replyID = messageID
	return s
}

func (s *Send) modifiers() SendModifiers {
	return SendModifiers{
		ReplyMessageID: s.replyID,
		AtUserIDs:      s.atUserIDs,
		AtAll:          s.atAll,
	}
}

// Segments translates a normalized segment sequence through the outbound
// translator and dispatches the resulting call.
func (s *Send) Segments(ctx context.Context, segments []onebot.Segment) onebot.CallResult {
	call := translateSegments(s.chatID, segments, s.modifiers())
	if call.DroppedMedia > 0 {
		metrics.DroppedMediaTotal.Add(float64(call.DroppedMedia))
	}
	return s.client.CallAPI(ctx, call.Endpoint, call.Params)
}

// Text sends a plain text message.
func (s *Send) Text(ctx context.Context, text string) onebot.CallResult {
	return s.Segments(ctx, []onebot.Segment{onebot.Text(text)})
}

// Image sends an image. file may be a Telegram file_id or a URL.
func (s *Send) Image(ctx context.Context, file, caption string) onebot.CallResult {
	return s.media(ctx, onebot.SegImage, file, caption)
}

// Video sends a video.
func (s *Send) Video(ctx context.Context, file, caption string) onebot.CallResult {
	return s.media(ctx, onebot.SegVideo, file, caption)
}

// Voice sends a voice note.
func (s *Send) Voice(ctx context.Context, file, caption string) onebot.CallResult {
	return s.media(ctx, onebot.SegVoice, file, caption)
}

// Audio sends an audio file.
func (s *Send) Audio(ctx context.Context, file, caption string) onebot.CallResult {
	return s.media(ctx, onebot.SegAudio, file, caption)
}

// File sends a document.
func (s *Send) File(ctx context.Context, file, caption string) onebot.CallResult {
	return s.media(ctx, onebot.SegFile, file, caption)
}

func (s *Send) media(ctx context.Context, segType, file, caption string) onebot.CallResult {
	seg := onebot.Segment{Type: segType, Data: map[string]any{
		"file_id": file,
		"caption": caption,
	}}
	return s.Segments(ctx, []onebot.Segment{seg})
}

// Markdown sends MarkdownV2-formatted text. Formatted sends bypass the
// segment translator: parse mode and entities are mutually exclusive on
// the wire.
func (s *Send) Markdown(ctx context.Context, text string) onebot.CallResult {
	return s.formatted(ctx, text, "MarkdownV2")
}

// HTML sends HTML-formatted text.
func (s *Send) HTML(ctx context.Context, text string) onebot.CallResult {
	return s.formatted(ctx, text, "HTML")
}

func (s *Send) formatted(ctx context.Context, text, parseMode string) onebot.CallResult {
	params := map[string]any{
		"chat_id":    s.chatID,
		"text":       text,
		"parse_mode": parseMode,
	}
	s.applyReply(params)
	return s.client.CallAPI(ctx, "sendMessage", params)
}

// Edit replaces the text of a previously sent message.
func (s *Send) Edit(ctx context.Context, messageID int64, text string) onebot.CallResult {
	return s.client.CallAPI(ctx, "editMessageText", map[string]any{
		"chat_id":    s.chatID,
		"message_id": messageID,
		"text":       text,
	})
}

// Recall deletes a previously sent message.
func (s *Send) Recall(ctx context.Context, messageID int64) onebot.CallResult {
	return s.client.CallAPI(ctx, "deleteMessage", map[string]any{
		"chat_id":    s.chatID,
		"message_id": messageID,
	})
}

// RawJSON sends a caller-assembled parameter object. The endpoint is taken
// from the "endpoint" key, defaulting to sendMessage.
func (s *Send) RawJSON(ctx context.Context, raw string) onebot.CallResult {
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return onebot.CallResult{
			Status:  onebot.CallFailed,
			RetCode: onebot.RetPlatformError,
			Message: "invalid raw JSON payload: " + err.Error(),
		}
	}
	endpoint := defaultStr(params, "endpoint", "sendMessage")
	delete(params, "endpoint")
	if _, ok := params["chat_id"]; !ok {
		params["chat_id"] = s.chatID
	}
	return s.client.CallAPI(ctx, endpoint, params)
}

func (s *Send) applyReply(params map[string]any) {
	if s.replyID == "" {
		return
	}
	if id, ok := digitsToInt(s.replyID); ok {
		params["reply_to_message_id"] = id
	}
}

// Dispatch executes a send operation by name. The operation set is closed
// and matching is case-insensitive; unknown operations never fail — they
// degrade to a visible text notice naming the operation and a bounded
// summary of its arguments.
func (s *Send) Dispatch(ctx context.Context, op string, args map[string]any) onebot.CallResult {
	switch strings.ToLower(op) {
	case "text":
		return s.Text(ctx, argString(args, "text"))
	case "face":
		return s.Text(ctx, defaultStr(args, "emoji", argString(args, "text")))
	case "markdown":
		return s.Markdown(ctx, argString(args, "text"))
	case "html":
		return s.HTML(ctx, argString(args, "text"))
	case "image":
		return s.Image(ctx, argString(args, "file"), argString(args, "caption"))
	case "video":
		return s.Video(ctx, argString(args, "file"), argString(args, "caption"))
	case "voice":
		return s.Voice(ctx, argString(args, "file"), argString(args, "caption"))
	case "audio":
		return s.Audio(ctx, argString(args, "file"), argString(args, "caption"))
	case "file", "document":
		return s.File(ctx, argString(args, "file"), argString(args, "caption"))
	case "edit":
		return s.Edit(ctx, argInt(args, "message_id"), argString(args, "text"))
	case "recall":
		return s.Recall(ctx, argInt(args, "message_id"))
	case "raw_ob12":
		if segments, ok := args["message"].([]onebot.Segment); ok {
			return s.Segments(ctx, segments)
		}
		return s.Text(ctx, unsupportedNotice(op, args))
	case "raw_json":
		return s.RawJSON(ctx, argString(args, "json"))
	default:
		return s.Text(ctx, unsupportedNotice(op, args))
	}
}

// unsupportedNotice renders the diagnostic text sent for an unknown
// operation. Argument order is sorted for determinism; each value's
// rendering is bounded and byte blobs show only their size.
func unsupportedNotice(op string, args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+previewArg(args[k]))
	}
	return fmt.Sprintf("[unsupported send operation] op: %s, args: [%s]", op, strings.Join(parts, ", "))
}

func previewArg(v any) string {
	if b, ok := v.([]byte); ok {
		return fmt.Sprintf("<bytes: %d bytes>", len(b))
	}
	rendered := []rune(fmt.Sprintf("%#v", v))
	if len(rendered) > maxArgPreview {
		return string(rendered[:maxArgPreview]) + "…"
	}
	return string(rendered)
}

func argString(args map[string]any, key string) string {
	return idString(args, key)
}

func argInt(args map[string]any, key string) int64 {
	return intField(args, key)
}
