package telegram

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/flemzord/obgram/pkg/onebot"
)

// decodeUpdate parses a JSON literal the way the transport layer does, so
// conversion tests see the exact loosely typed shapes production sees.
func decodeUpdate(t *testing.T, raw string) map[string]any {
	t.Helper()
	var update map[string]any
	if err := json.Unmarshal([]byte(raw), &update); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	return update
}

func TestConvertPrivateTextMessage(t *testing.T) {
	conv := NewConverter(nil)
	conv.SetSelfUserID("777")

	ev, err := conv.Convert(decodeUpdate(t, `{
		"update_id": 42,
		"message": {
			"message_id": 7,
			"text": "hi",
			"chat": {"id": 5, "type": "private"},
			"from": {"id": 5, "username": "alice"}
		}
	}`))
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}

	if ev.ID != "42" {
		t.Errorf("ID = %q, want %q", ev.ID, "42")
	}
	if ev.Type != onebot.EventMessage {
		t.Errorf("Type = %q, want message", ev.Type)
	}
	if ev.DetailType != "user" {
		t.Errorf("DetailType = %q, want %q", ev.DetailType, "user")
	}
	if ev.Platform != "telegram" {
		t.Errorf("Platform = %q, want %q", ev.Platform, "telegram")
	}
	if ev.Self.UserID != "777" {
		t.Errorf("Self.UserID = %q, want %q", ev.Self.UserID, "777")
	}
	if ev.MessageID != "7" {
		t.Errorf("MessageID = %q, want %q", ev.MessageID, "7")
	}
	if ev.UserID != "5" {
		t.Errorf("UserID = %q, want %q", ev.UserID, "5")
	}
	if ev.UserNickname != "alice" {
		t.Errorf("UserNickname = %q, want %q", ev.UserNickname, "alice")
	}
	if ev.AltMessage != "hi" {
		t.Errorf("AltMessage = %q, want %q", ev.AltMessage, "hi")
	}
	if len(ev.Message) != 1 || ev.Message[0].Type != onebot.SegText {
		t.Fatalf("Message = %+v, want single text segment", ev.Message)
	}
	if ev.Extra["telegram_raw"] == nil {
		t.Error("telegram_raw extra missing")
	}
	if ev.Extra["telegram_raw_type"] != "message" {
		t.Errorf("telegram_raw_type = %v, want %q", ev.Extra["telegram_raw_type"], "message")
	}
}

func TestConvertMissingUpdateID(t *testing.T) {
	conv := NewConverter(nil)
	_, err := conv.Convert(map[string]any{"message": map[string]any{}})
	if !errors.Is(err, errNoUpdateID) {
		t.Errorf("Convert() error = %v, want errNoUpdateID", err)
	}
}

func TestConvertUnknownShape(t *testing.T) {
	conv := NewConverter(nil)
	ev, err := conv.Convert(decodeUpdate(t, `{"update_id": 9, "business_message": {}}`))
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if ev.Type != onebot.EventUnknown {
		t.Errorf("Type = %q, want unknown", ev.Type)
	}
	if ev.Warning != "Unsupported event type: business_message" {
		t.Errorf("Warning = %q", ev.Warning)
	}
	if ev.AltMessage != "This event type is not supported by this adapter." {
		t.Errorf("AltMessage = %q", ev.AltMessage)
	}
}

func TestConvertGroupMessage(t *testing.T) {
	conv := NewConverter(nil)
	ev, err := conv.Convert(decodeUpdate(t, `{
		"update_id": 1,
		"message": {
			"message_id": 2,
			"text": "hello group",
			"chat": {"id": -100123, "type": "supergroup"},
			"from": {"id": 8, "first_name": "Bob"}
		}
	}`))
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if ev.DetailType != "group" {
		t.Errorf("DetailType = %q, want %q", ev.DetailType, "group")
	}
	if ev.GroupID != "-100123" {
		t.Errorf("GroupID = %q, want %q", ev.GroupID, "-100123")
	}
	if ev.ChannelID != "" {
		t.Errorf("ChannelID = %q, want empty", ev.ChannelID)
	}
	if ev.UserNickname != "Bob" {
		t.Errorf("UserNickname = %q, want %q", ev.UserNickname, "Bob")
	}
}

func TestConvertChannelPostWithoutSender(t *testing.T) {
	conv := NewConverter(nil)
	ev, err := conv.Convert(decodeUpdate(t, `{
		"update_id": 3,
		"channel_post": {
			"message_id": 4,
			"text": "announcement",
			"chat": {"id": -200456, "type": "channel"}
		}
	}`))
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if ev.DetailType != "channel" {
		t.Errorf("DetailType = %q, want %q", ev.DetailType, "channel")
	}
	if ev.ChannelID != "-200456" {
		t.Errorf("ChannelID = %q, want %q", ev.ChannelID, "-200456")
	}
	if ev.UserID != "" {
		t.Errorf("UserID = %q, want empty", ev.UserID)
	}
}

func TestConvertEditedMessageCarriesEditTime(t *testing.T) {
	conv := NewConverter(nil)
	ev, err := conv.Convert(decodeUpdate(t, `{
		"update_id": 5,
		"edited_message": {
			"message_id": 6,
			"text": "fixed typo",
			"chat": {"id": 5, "type": "private"},
			"from": {"id": 5, "username": "alice"}
		}
	}`))
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if ev.Extra["telegram_edit_time"] == nil {
		t.Error("telegram_edit_time extra missing on edited message")
	}
	if ev.Extra["telegram_raw_type"] != "edited_message" {
		t.Errorf("telegram_raw_type = %v, want edited_message", ev.Extra["telegram_raw_type"])
	}
}

// Unknown future chat kinds pass through as detail_type rather than being
// collapsed into a known value.
func TestConvertChatTypePassthrough(t *testing.T) {
	conv := NewConverter(nil)
	ev, err := conv.Convert(decodeUpdate(t, `{
		"update_id": 5,
		"message": {
			"message_id": 6,
			"text": "x",
			"chat": {"id": 1, "type": "forum_topic"}
		}
	}`))
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if ev.DetailType != "forum_topic" {
		t.Errorf("DetailType = %q, want %q", ev.DetailType, "forum_topic")
	}
}

func TestConvertPollDefaults(t *testing.T) {
	conv := NewConverter(nil)
	ev, err := conv.Convert(decodeUpdate(t, `{
		"update_id": 10,
		"poll": {"id": "p1", "question": "lunch?"}
	}`))
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if ev.Type != onebot.EventNotice {
		t.Errorf("Type = %q, want notice", ev.Type)
	}
	if ev.DetailType != "telegram_poll" {
		t.Errorf("DetailType = %q, want telegram_poll", ev.DetailType)
	}
	if got := ev.Extra["telegram_poll_is_anonymous"]; got != true {
		t.Errorf("telegram_poll_is_anonymous = %v, want true", got)
	}
	if got := ev.Extra["telegram_poll_type"]; got != "regular" {
		t.Errorf("telegram_poll_type = %v, want regular", got)
	}
	if got := ev.Extra["telegram_poll_is_closed"]; got != false {
		t.Errorf("telegram_poll_is_closed = %v, want false", got)
	}
	options, ok := ev.Extra["telegram_poll_options"].([]any)
	if !ok || options == nil {
		t.Errorf("telegram_poll_options = %v, want empty slice", ev.Extra["telegram_poll_options"])
	}
}

func TestConvertCallbackQuery(t *testing.T) {
	conv := NewConverter(nil)
	ev, err := conv.Convert(decodeUpdate(t, `{
		"update_id": 11,
		"callback_query": {
			"id": "cb1",
			"data": "vote:1",
			"from": {"id": 9, "username": "carol"},
			"message": {
				"message_id": 33,
				"chat": {"id": -500, "type": "group"}
			}
		}
	}`))
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if ev.Type != onebot.EventNotice {
		t.Errorf("Type = %q, want notice", ev.Type)
	}
	if ev.DetailType != "telegram_callback_query" {
		t.Errorf("DetailType = %q, want telegram_callback_query", ev.DetailType)
	}
	if ev.UserID != "9" {
		t.Errorf("UserID = %q, want %q", ev.UserID, "9")
	}
	if ev.MessageID != "33" {
		t.Errorf("MessageID = %q, want %q", ev.MessageID, "33")
	}
	if ev.GroupID != "-500" {
		t.Errorf("GroupID = %q, want %q", ev.GroupID, "-500")
	}
	if got := ev.Extra["telegram_callback_data"]; got != "vote:1" {
		t.Errorf("telegram_callback_data = %v, want vote:1", got)
	}
}

func TestConvertChatJoinRequest(t *testing.T) {
	conv := NewConverter(nil)
	ev, err := conv.Convert(decodeUpdate(t, `{
		"update_id": 12,
		"chat_join_request": {
			"from": {"id": 15, "first_name": "Dan"},
			"chat": {"id": -900, "type": "supergroup"},
			"invite_link": {"name": "spring cohort"},
			"date": 1700000000
		}
	}`))
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if ev.Type != onebot.EventRequest {
		t.Errorf("Type = %q, want request", ev.Type)
	}
	if ev.DetailType != "telegram_chat_join_request" {
		t.Errorf("DetailType = %q, want telegram_chat_join_request", ev.DetailType)
	}
	if ev.Comment != "spring cohort" {
		t.Errorf("Comment = %q, want %q", ev.Comment, "spring cohort")
	}
	if ev.GroupID != "-900" {
		t.Errorf("GroupID = %q, want %q", ev.GroupID, "-900")
	}
}

func TestConvertPollAnswer(t *testing.T) {
	conv := NewConverter(nil)
	ev, err := conv.Convert(decodeUpdate(t, `{
		"update_id": 13,
		"poll_answer": {
			"poll_id": "p1",
			"user": {"id": 21, "username": "erin"},
			"option_ids": [0, 2]
		}
	}`))
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if ev.DetailType != "telegram_poll_answer" {
		t.Errorf("DetailType = %q, want telegram_poll_answer", ev.DetailType)
	}
	if ev.UserID != "21" {
		t.Errorf("UserID = %q, want %q", ev.UserID, "21")
	}
	ids, ok := ev.Extra["telegram_poll_option_ids"].([]any)
	if !ok || len(ids) != 2 {
		t.Errorf("telegram_poll_option_ids = %v, want 2 entries", ev.Extra["telegram_poll_option_ids"])
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user string
		want string
	}{
		{"username wins", `{"id": 1, "username": "neo", "first_name": "Thomas", "last_name": "Anderson"}`, "neo"},
		{"full name", `{"id": 1, "first_name": "Thomas", "last_name": "Anderson"}`, "Thomas Anderson"},
		{"first only", `{"id": 1, "first_name": "Thomas"}`, "Thomas"},
		{"id fallback", `{"id": 314}`, "314"},
		{"empty", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var user map[string]any
			if err := json.Unmarshal([]byte(tt.user), &user); err != nil {
				t.Fatalf("decode user: %v", err)
			}
			if got := displayName(user); got != tt.want {
				t.Errorf("displayName = %q, want %q", got, tt.want)
			}
		})
	}
}
