package telegram

import (
	"errors"
	"time"

	"github.com/flemzord/obgram/pkg/onebot"
)

// Platform is the identifier stamped on every normalized event.
const Platform = "telegram"

// errNoUpdateID is returned when an update lacks the update_id field and
// therefore cannot be converted at all. Every other anomaly degrades to
// defaults inside the handlers.
var errNoUpdateID = errors.New("telegram: update has no update_id")

// Converter builds normalized OneBot12 events from raw Telegram updates.
// It is stateless per conversion and safe for concurrent use; the only
// configuration is the download-URL template and the bot identity.
type Converter struct {
	fileURL    func(path string) string
	selfUserID string
	now        func() time.Time
}

// NewConverter creates a Converter. fileURL renders a media download URL
// from a platform file path; nil disables URL resolution (media segments
// carry an empty url).
func NewConverter(fileURL func(path string) string) *Converter {
	if fileURL == nil {
		fileURL = func(string) string { return "" }
	}
	return &Converter{fileURL: fileURL, now: time.Now}
}

// SetSelfUserID records the authenticated bot identity so events carry a
// populated self reference. Safe to leave unset: the contract allows an
// empty bot identity, filled in by the layer that owns the client.
func (c *Converter) SetSelfUserID(id string) {
	c.selfUserID = id
}

// Convert transforms one raw Telegram update into exactly one normalized
// event. Updates with unrecognized shapes yield an unknown-category event
// with a warning, never a dropped update; the only error is a missing
// update_id, which makes the input unidentifiable.
func (c *Converter) Convert(update map[string]any) (*onebot.Event, error) {
	if _, ok := update["update_id"]; !ok {
		return nil, errNoUpdateID
	}

	category, rawType := classify(update)
	ev := c.baseEvent(update, category, rawType)

	switch category {
	case onebot.EventUnknown:
		ev.Warning = "Unsupported event type: " + rawType
		ev.AltMessage = "This event type is not supported by this adapter."
	case onebot.EventMessage:
		c.enrichMessage(update, ev)
	case onebot.EventNotice:
		c.enrichNotice(update, ev, rawType)
	case onebot.EventRequest:
		c.enrichRequest(update, ev, rawType)
	}

	return ev, nil
}

// baseEvent builds the envelope shared by every category. The raw update is
// embedded untouched for audit, namespaced with the platform prefix.
func (c *Converter) baseEvent(update map[string]any, category onebot.EventType, rawType string) *onebot.Event {
	ev := &onebot.Event{
		ID:       idString(update, "update_id"),
		Time:     c.now().Unix(),
		Type:     category,
		Platform: Platform,
		Self:     onebot.Self{Platform: Platform, UserID: c.selfUserID},
	}
	ev.SetExtra("telegram_raw", update)
	ev.SetExtra("telegram_raw_type", rawType)
	return ev
}

// setSender fills the shared sender identity fields from a user record.
func setSender(ev *onebot.Event, user map[string]any) {
	ev.UserID = idString(user, "id")
	ev.UserNickname = displayName(user)
}

// setChatTarget fills group_id or channel_id from a chat record. Telegram
// models broadcast channels as a chat type, so the two are exclusive.
func setChatTarget(ev *onebot.Event, chat map[string]any) {
	if strField(chat, "type") == "channel" {
		ev.ChannelID = idString(chat, "id")
	} else {
		ev.GroupID = idString(chat, "id")
	}
}

// messageFields lists the message-bearing update keys in resolution order,
// with their edit markers.
var messageFields = []struct {
	key    string
	edited bool
}{
	{"message", false},
	{"edited_message", true},
	{"channel_post", false},
	{"edited_channel_post", true},
}

func (c *Converter) enrichMessage(update map[string]any, ev *onebot.Event) {
	var msg map[string]any
	var edited bool
	for _, field := range messageFields {
		if m := subMap(update, field.key); m != nil {
			msg, edited = m, field.edited
			break
		}
	}
	if msg == nil {
		return
	}

	chat := subMap(msg, "chat")
	chatType := strField(chat, "type")
	switch chatType {
	case "private":
		ev.DetailType = "user"
	case "group", "supergroup":
		ev.DetailType = "group"
	case "channel":
		ev.DetailType = "channel"
	default:
		// Unknown future chat kinds pass through unchanged rather than
		// being collapsed into a known value.
		ev.DetailType = chatType
	}

	segments := parseSegments(msg, c.fileURL)
	ev.MessageID = idString(msg, "message_id")
	ev.Message = segments
	ev.AltMessage = altText(segments)

	// Channel posts frequently omit the sender record.
	if from := subMap(msg, "from"); from != nil {
		setSender(ev, from)
	}

	if edited {
		ev.SetExtra("telegram_edit_time", c.now().Unix())
	}
	ev.SetExtra("telegram_chat", chat)

	switch ev.DetailType {
	case "group":
		ev.GroupID = idString(chat, "id")
	case "channel":
		ev.ChannelID = idString(chat, "id")
	}
}

func (c *Converter) enrichNotice(update map[string]any, ev *onebot.Event, rawType string) {
	switch rawType {
	case "callback_query":
		c.enrichCallbackQuery(update, ev)
	case "poll":
		c.enrichPoll(update, ev)
	case "poll_answer":
		c.enrichPollAnswer(update, ev)
	case "chosen_inline_result":
		c.enrichChosenInlineResult(update, ev)
	case "my_chat_member", "chat_member":
		c.enrichChatMember(update, ev, rawType)
	}
}

func (c *Converter) enrichRequest(update map[string]any, ev *onebot.Event, rawType string) {
	switch rawType {
	case "inline_query":
		c.enrichInlineQuery(update, ev)
	case "shipping_query":
		c.enrichShippingQuery(update, ev)
	case "pre_checkout_query":
		c.enrichPreCheckoutQuery(update, ev)
	case "chat_join_request":
		c.enrichChatJoinRequest(update, ev)
	}
}

func (c *Converter) enrichCallbackQuery(update map[string]any, ev *onebot.Event) {
	callback := subMap(update, "callback_query")
	ev.DetailType = "telegram_callback_query"
	setSender(ev, subMap(callback, "from"))

	ev.SetExtra("telegram_callback_id", strField(callback, "id"))
	ev.SetExtra("telegram_callback_data", callback["data"])
	ev.SetExtra("telegram_inline_message_id", callback["inline_message_id"])
	ev.SetExtra("telegram_chat_instance", strField(callback, "chat_instance"))

	if msg := subMap(callback, "message"); msg != nil {
		ev.MessageID = idString(msg, "message_id")
		if chat := subMap(msg, "chat"); chat != nil {
			setChatTarget(ev, chat)
		}
	}
}

func (c *Converter) enrichPoll(update map[string]any, ev *onebot.Event) {
	poll := subMap(update, "poll")
	ev.DetailType = "telegram_poll"

	ev.SetExtra("telegram_poll_id", strField(poll, "id"))
	ev.SetExtra("telegram_poll_question", strField(poll, "question"))
	ev.SetExtra("telegram_poll_options", defaultSlice(poll, "options"))
	ev.SetExtra("telegram_poll_total_voter_count", intField(poll, "total_voter_count"))
	ev.SetExtra("telegram_poll_is_closed", boolField(poll, "is_closed", false))
	ev.SetExtra("telegram_poll_is_anonymous", boolField(poll, "is_anonymous", true))
	ev.SetExtra("telegram_poll_type", defaultStr(poll, "type", "regular"))
	ev.SetExtra("telegram_poll_allows_multiple_answers", boolField(poll, "allows_multiple_answers", false))
	ev.SetExtra("telegram_poll_correct_option_id", poll["correct_option_id"])
	ev.SetExtra("telegram_poll_explanation", poll["explanation"])
	ev.SetExtra("telegram_poll_open_period", poll["open_period"])
	ev.SetExtra("telegram_poll_close_date", poll["close_date"])
}

func (c *Converter) enrichPollAnswer(update map[string]any, ev *onebot.Event) {
	answer := subMap(update, "poll_answer")
	ev.DetailType = "telegram_poll_answer"
	setSender(ev, subMap(answer, "user"))

	ev.SetExtra("telegram_poll_id", strField(answer, "poll_id"))
	ev.SetExtra("telegram_poll_option_ids", defaultSlice(answer, "option_ids"))
	ev.SetExtra("telegram_voter_chat", answer["voter_chat"])
}

func (c *Converter) enrichChosenInlineResult(update map[string]any, ev *onebot.Event) {
	result := subMap(update, "chosen_inline_result")
	ev.DetailType = "telegram_chosen_inline_result"
	setSender(ev, subMap(result, "from"))

	ev.SetExtra("telegram_result_id", strField(result, "result_id"))
	ev.SetExtra("telegram_query", strField(result, "query"))
	ev.SetExtra("telegram_inline_message_id", result["inline_message_id"])
}

func (c *Converter) enrichChatMember(update map[string]any, ev *onebot.Event, rawType string) {
	member := subMap(update, rawType)
	ev.DetailType = "telegram_" + rawType
	setSender(ev, subMap(member, "from"))

	ev.SetExtra("telegram_old_member", defaultMap(member, "old_chat_member"))
	ev.SetExtra("telegram_new_member", defaultMap(member, "new_chat_member"))

	chat := defaultMap(member, "chat")
	ev.SetExtra("telegram_chat", chat)
	setChatTarget(ev, chat)
}

func (c *Converter) enrichInlineQuery(update map[string]any, ev *onebot.Event) {
	query := subMap(update, "inline_query")
	ev.DetailType = "telegram_inline_query"
	setSender(ev, subMap(query, "from"))

	ev.SetExtra("telegram_query_id", strField(query, "id"))
	ev.SetExtra("telegram_query_text", strField(query, "query"))
	ev.SetExtra("telegram_query_offset", strField(query, "offset"))
	ev.SetExtra("telegram_query_chat_type", query["chat_type"])
}

func (c *Converter) enrichShippingQuery(update map[string]any, ev *onebot.Event) {
	shipping := subMap(update, "shipping_query")
	ev.DetailType = "telegram_shipping_query"
	setSender(ev, subMap(shipping, "from"))

	ev.SetExtra("telegram_shipping_query_id", strField(shipping, "id"))
	ev.SetExtra("telegram_invoice_payload", strField(shipping, "invoice_payload"))
	ev.SetExtra("telegram_shipping_address", shipping["shipping_address"])
}

func (c *Converter) enrichPreCheckoutQuery(update map[string]any, ev *onebot.Event) {
	checkout := subMap(update, "pre_checkout_query")
	ev.DetailType = "telegram_pre_checkout_query"
	setSender(ev, subMap(checkout, "from"))

	ev.SetExtra("telegram_checkout_id", strField(checkout, "id"))
	ev.SetExtra("telegram_invoice_payload", strField(checkout, "invoice_payload"))
	ev.SetExtra("telegram_currency", strField(checkout, "currency"))
	ev.SetExtra("telegram_total_amount", intField(checkout, "total_amount"))
	ev.SetExtra("telegram_shipping_option_id", checkout["shipping_option_id"])
	ev.SetExtra("telegram_order_info", checkout["order_info"])
}

func (c *Converter) enrichChatJoinRequest(update map[string]any, ev *onebot.Event) {
	request := subMap(update, "chat_join_request")
	ev.DetailType = "telegram_chat_join_request"
	setSender(ev, subMap(request, "from"))
	ev.Comment = strField(subMap(request, "invite_link"), "name")

	ev.SetExtra("telegram_date", intField(request, "date"))
	ev.SetExtra("telegram_user_chat_id", request["user_chat_id"])

	chat := defaultMap(request, "chat")
	ev.SetExtra("telegram_chat", chat)
	setChatTarget(ev, chat)
}

// boolField returns the boolean under key, or def when absent or mistyped.
func boolField(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

// defaultStr returns the string under key, or def when absent or empty.
func defaultStr(m map[string]any, key, def string) string {
	if v := strField(m, key); v != "" {
		return v
	}
	return def
}

// defaultSlice returns the array under key, or an empty slice. Consumers
// rely on the field being a list, never null.
func defaultSlice(m map[string]any, key string) []any {
	if v := sliceField(m, key); v != nil {
		return v
	}
	return []any{}
}

// defaultMap returns the object under key, or an empty map.
func defaultMap(m map[string]any, key string) map[string]any {
	if v := subMap(m, key); v != nil {
		return v
	}
	return map[string]any{}
}
