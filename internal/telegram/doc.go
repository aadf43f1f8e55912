// Package telegram bridges the Telegram Bot API and the OneBot 12 event
// model.
//
// Inbound, every Bot API update is classified by its payload key and
// converted into exactly one flat onebot.Event: messages, notices and
// requests each map to a fixed detail type, and unrecognized shapes
// degrade to type "unknown" with a warning instead of being dropped.
// Platform-specific fields ride along under a telegram_ prefix and the
// unmodified update is embedded as telegram_raw for auditing.
//
// Outbound, OneBot 12 message segments are translated into Bot API calls:
// text and mention segments fold into a single sendMessage with UTF-16
// entity offsets, the first media segment selects the matching send*
// endpoint, and a reply segment or modifier sets reply_to_message_id.
//
// Two delivery modes are supported: long-polling (default) and webhook
// with constant-time secret validation.
//
// No external Telegram library is used — the package speaks to the Bot
// API via raw net/http + encoding/json.
package telegram
