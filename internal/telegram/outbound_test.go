package telegram

import (
	"testing"

	"github.com/flemzord/obgram/pkg/onebot"
)

func TestTranslateTextWithNumericMention(t *testing.T) {
	call := translateSegments("1", []onebot.Segment{
		onebot.Text("go "),
		onebot.At("9", ""),
	}, SendModifiers{})

	if call.Endpoint != "sendMessage" {
		t.Fatalf("Endpoint = %q, want sendMessage", call.Endpoint)
	}
	if got := call.Params["text"]; got != "go @9" {
		t.Errorf("text = %q, want %q", got, "go @9")
	}

	entities, ok := call.Params["entities"].([]messageEntity)
	if !ok || len(entities) != 1 {
		t.Fatalf("entities = %v, want 1 entity", call.Params["entities"])
	}
	ent := entities[0]
	if ent.Type != "text_mention" {
		t.Errorf("entity type = %q, want text_mention", ent.Type)
	}
	if ent.Offset != 3 || ent.Length != 2 {
		t.Errorf("entity span = (%d, %d), want (3, 2)", ent.Offset, ent.Length)
	}
	if ent.User == nil || ent.User.ID != 9 {
		t.Errorf("entity user = %+v, want ID 9", ent.User)
	}
}

func TestTranslateHandleMention(t *testing.T) {
	call := translateSegments("1", []onebot.Segment{
		onebot.At("", "alice"),
	}, SendModifiers{})

	if got := call.Params["text"]; got != "@alice" {
		t.Errorf("text = %q, want %q", got, "@alice")
	}
	entities := call.Params["entities"].([]messageEntity)
	if entities[0].Type != "mention" {
		t.Errorf("entity type = %q, want mention", entities[0].Type)
	}
	if entities[0].User != nil {
		t.Errorf("entity user = %+v, want nil", entities[0].User)
	}
}

func TestTranslateFirstMediaWinsRestDropped(t *testing.T) {
	call := translateSegments("1", []onebot.Segment{
		{Type: onebot.SegImage, Data: map[string]any{"file_id": "first"}},
		{Type: onebot.SegImage, Data: map[string]any{"file_id": "second"}},
		{Type: onebot.SegVideo, Data: map[string]any{"file_id": "third"}},
	}, SendModifiers{})

	if call.Endpoint != "sendPhoto" {
		t.Errorf("Endpoint = %q, want sendPhoto", call.Endpoint)
	}
	if got := call.Params["photo"]; got != "first" {
		t.Errorf("photo = %q, want %q", got, "first")
	}
	if call.DroppedMedia != 2 {
		t.Errorf("DroppedMedia = %d, want 2", call.DroppedMedia)
	}
}

func TestTranslateMediaEndpoints(t *testing.T) {
	tests := []struct {
		segType  string
		endpoint string
		field    string
	}{
		{onebot.SegImage, "sendPhoto", "photo"},
		{onebot.SegVideo, "sendVideo", "video"},
		{onebot.SegVoice, "sendVoice", "voice"},
		{onebot.SegAudio, "sendAudio", "audio"},
		{onebot.SegFile, "sendDocument", "document"},
	}

	for _, tt := range tests {
		t.Run(tt.segType, func(t *testing.T) {
			call := translateSegments("1", []onebot.Segment{
				{Type: tt.segType, Data: map[string]any{"file_id": "f"}},
			}, SendModifiers{})
			if call.Endpoint != tt.endpoint {
				t.Errorf("Endpoint = %q, want %q", call.Endpoint, tt.endpoint)
			}
			if got := call.Params[tt.field]; got != "f" {
				t.Errorf("Params[%q] = %v, want %q", tt.field, got, "f")
			}
		})
	}
}

func TestTranslateMediaRefFallsBackToURL(t *testing.T) {
	call := translateSegments("1", []onebot.Segment{
		{Type: onebot.SegImage, Data: map[string]any{"url": "https://example.com/p.jpg"}},
	}, SendModifiers{})

	if got := call.Params["photo"]; got != "https://example.com/p.jpg" {
		t.Errorf("photo = %q, want url fallback", got)
	}
}

func TestTranslateCaptionFallsBackToMediaCaption(t *testing.T) {
	call := translateSegments("1", []onebot.Segment{
		{Type: onebot.SegImage, Data: map[string]any{"file_id": "f", "caption": "from media"}},
	}, SendModifiers{})

	if got := call.Params["caption"]; got != "from media" {
		t.Errorf("caption = %q, want %q", got, "from media")
	}
}

func TestTranslateTextBecomesMediaCaption(t *testing.T) {
	call := translateSegments("1", []onebot.Segment{
		onebot.Text("look"),
		{Type: onebot.SegImage, Data: map[string]any{"file_id": "f", "caption": "ignored"}},
	}, SendModifiers{})

	if got := call.Params["caption"]; got != "look" {
		t.Errorf("caption = %q, want %q", got, "look")
	}
}

func TestTranslateMentionAllShiftsEntities(t *testing.T) {
	call := translateSegments("1", []onebot.Segment{
		onebot.MentionAll(),
		onebot.Text("hi "),
		onebot.At("7", ""),
	}, SendModifiers{})

	if got := call.Params["text"]; got != "@All hi @7" {
		t.Errorf("text = %q, want %q", got, "@All hi @7")
	}
	entities := call.Params["entities"].([]messageEntity)
	if len(entities) != 1 {
		t.Fatalf("len(entities) = %d, want 1", len(entities))
	}
	// "@All " is 5 UTF-16 units, shifting the mention from 3 to 8.
	if entities[0].Offset != 8 {
		t.Errorf("entity offset = %d, want 8", entities[0].Offset)
	}
}

func TestTranslateModifierMentionsAppended(t *testing.T) {
	call := translateSegments("1", []onebot.Segment{
		onebot.Text("hey"),
	}, SendModifiers{AtUserIDs: []string{"42"}})

	if got := call.Params["text"]; got != "hey @42" {
		t.Errorf("text = %q, want %q", got, "hey @42")
	}
	entities := call.Params["entities"].([]messageEntity)
	if len(entities) != 1 {
		t.Fatalf("len(entities) = %d, want 1", len(entities))
	}
	// Offset is computed after the separating space.
	if entities[0].Offset != 4 || entities[0].Length != 3 {
		t.Errorf("entity span = (%d, %d), want (4, 3)", entities[0].Offset, entities[0].Length)
	}
}

func TestTranslateAtAllWithModifiers(t *testing.T) {
	call := translateSegments("1", nil, SendModifiers{AtAll: true, AtUserIDs: []string{"5"}})

	if got := call.Params["text"]; got != "@All @5" {
		t.Errorf("text = %q, want %q", got, "@All @5")
	}
	entities := call.Params["entities"].([]messageEntity)
	if entities[0].Offset != 5 {
		t.Errorf("entity offset = %d, want 5", entities[0].Offset)
	}
}

func TestTranslateReplySegmentBeatsModifier(t *testing.T) {
	call := translateSegments("1", []onebot.Segment{
		onebot.Reply("10", ""),
		onebot.Text("ok"),
	}, SendModifiers{ReplyMessageID: "20"})

	if got := call.Params["reply_to_message_id"]; got != int64(10) {
		t.Errorf("reply_to_message_id = %v, want 10", got)
	}
}

func TestTranslateReplyModifierUsedWhenNoSegment(t *testing.T) {
	call := translateSegments("1", []onebot.Segment{
		onebot.Text("ok"),
	}, SendModifiers{ReplyMessageID: "20"})

	if got := call.Params["reply_to_message_id"]; got != int64(20) {
		t.Errorf("reply_to_message_id = %v, want 20", got)
	}
}

// An unparseable reply id attaches no reply target and raises no error.
func TestTranslateUnparseableReplyDropped(t *testing.T) {
	call := translateSegments("1", []onebot.Segment{
		onebot.Reply("not-a-number", ""),
	}, SendModifiers{})

	if _, present := call.Params["reply_to_message_id"]; present {
		t.Error("reply_to_message_id set for unparseable id")
	}
}

// The wire API rejects empty text, so an empty send degrades to a single
// space rather than failing.
func TestTranslateEmptyTextPlaceholder(t *testing.T) {
	call := translateSegments("1", nil, SendModifiers{})

	if call.Endpoint != "sendMessage" {
		t.Errorf("Endpoint = %q, want sendMessage", call.Endpoint)
	}
	if got := call.Params["text"]; got != " " {
		t.Errorf("text = %q, want single space", got)
	}
	if _, present := call.Params["entities"]; present {
		t.Error("entities present on empty send")
	}
}

func TestTranslateDeterministic(t *testing.T) {
	segments := []onebot.Segment{
		onebot.Text("a"),
		onebot.At("3", ""),
		{Type: onebot.SegImage, Data: map[string]any{"file_id": "f"}},
	}
	mods := SendModifiers{AtAll: true, AtUserIDs: []string{"4"}, ReplyMessageID: "8"}

	first := translateSegments("1", segments, mods)
	for range 20 {
		if got := translateSegments("1", segments, mods); got.Endpoint != first.Endpoint ||
			got.Params["caption"] != first.Params["caption"] ||
			got.DroppedMedia != first.DroppedMedia {
			t.Fatalf("translateSegments not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestRenderMention(t *testing.T) {
	token, ent := renderMention("123", "", 10)
	if token != "@123" {
		t.Errorf("token = %q, want %q", token, "@123")
	}
	if ent.Type != "text_mention" || ent.User == nil || ent.User.ID != 123 {
		t.Errorf("entity = %+v, want resolved text_mention", ent)
	}

	token, ent = renderMention("", "@sam", 0)
	if token != "@sam" {
		t.Errorf("token = %q, want %q", token, "@sam")
	}
	if ent.Type != "mention" {
		t.Errorf("entity type = %q, want mention", ent.Type)
	}

	if token, _ := renderMention("", "", 0); token != "" {
		t.Errorf("token = %q, want empty for empty identifiers", token)
	}
}

func TestUTF16Len(t *testing.T) {
	tests := []struct {
		s    string
		want int
	}{
		{"", 0},
		{"abc", 3},
		{"😀", 2},
		{"a😀b", 4},
	}
	for _, tt := range tests {
		if got := utf16Len(tt.s); got != tt.want {
			t.Errorf("utf16Len(%q) = %d, want %d", tt.s, got, tt.want)
		}
	}
}

func TestDigitsToInt(t *testing.T) {
	if n, ok := digitsToInt("42"); !ok || n != 42 {
		t.Errorf("digitsToInt(42) = (%d, %v)", n, ok)
	}
	for _, s := range []string{"", "-1", "12a", "@x"} {
		if _, ok := digitsToInt(s); ok {
			t.Errorf("digitsToInt(%q) ok, want false", s)
		}
	}
}
