package telegram

import "github.com/flemzord/obgram/pkg/onebot"

// updateKinds maps Telegram update payload keys to normalized categories.
// Declaration order is part of the contract: a malformed update carrying
// several recognized keys resolves to the first entry listed here, never to
// map iteration order.
var updateKinds = []struct {
	key      string
	category onebot.EventType
}{
	{"message", onebot.EventMessage},
	{"edited_message", onebot.EventMessage},
	{"channel_post", onebot.EventMessage},
	{"edited_channel_post", onebot.EventMessage},
	{"inline_query", onebot.EventRequest},
	{"chosen_inline_result", onebot.EventNotice},
	{"callback_query", onebot.EventNotice},
	{"shipping_query", onebot.EventRequest},
	{"pre_checkout_query", onebot.EventRequest},
	{"poll", onebot.EventNotice},
	{"poll_answer", onebot.EventNotice},
	{"my_chat_member", onebot.EventNotice},
	{"chat_member", onebot.EventNotice},
	{"chat_join_request", onebot.EventRequest},
}

// UpdateKeys returns the Telegram update keys the classifier recognizes, in
// declaration order. Used as the default allowed_updates list so the bot
// subscribes to exactly the shapes it can convert.
func UpdateKeys() []string {
	keys := make([]string, len(updateKinds))
	for i, kind := range updateKinds {
		keys[i] = kind.key
	}
	return keys
}

// classify inspects a raw update and returns its normalized category along
// with the platform key that triggered the match. Unrecognized updates
// classify as EventUnknown with the lexically first non-update_id key (or
// "unknown" when the update carries nothing else).
func classify(update map[string]any) (onebot.EventType, string) {
	for _, kind := range updateKinds {
		if _, ok := update[kind.key]; ok {
			return kind.category, kind.key
		}
	}

	for _, key := range sortedKeys(update) {
		if key != "update_id" {
			return onebot.EventUnknown, key
		}
	}
	return onebot.EventUnknown, "unknown"
}
