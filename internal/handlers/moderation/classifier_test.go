package moderation

import (
	"testing"

	api "github.com/OvyFlash/telegram-bot-api"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	named := &api.User{ID: 1, UserName: "someone"}
	anonymous := &api.User{ID: 2}

	for _, tt := range []struct {
		name string
		msg  *api.Message
		want Offense
	}{
		{
			name: "nil message",
			msg:  nil,
			want: OffenseNone,
		},
		{
			name: "plain text",
			msg:  &api.Message{From: named, Text: "good morning"},
			want: OffenseNone,
		},
		{
			name: "url entity",
			msg: &api.Message{
				From:     named,
				Text:     "look example.com",
				Entities: []api.MessageEntity{{Type: "url", Offset: 5, Length: 11}},
			},
			want: OffenseLink,
		},
		{
			name: "text link entity",
			msg: &api.Message{
				From:     named,
				Text:     "click here",
				Entities: []api.MessageEntity{{Type: "text_link", Offset: 6, Length: 4, URL: "https://example.com"}},
			},
			want: OffenseLink,
		},
		{
			name: "bare scheme link without entity",
			msg:  &api.Message{From: named, Text: "grab it at https://example.com/dl"},
			want: OffenseLink,
		},
		{
			name: "www link without entity",
			msg:  &api.Message{From: named, Text: "www.example.com has it"},
			want: OffenseLink,
		},
		{
			name: "telegram invite link",
			msg:  &api.Message{From: named, Text: "join t.me/somechannel"},
			want: OffenseLink,
		},
		{
			name: "link in caption",
			msg:  &api.Message{From: named, Caption: "source: https://example.com"},
			want: OffenseLink,
		},
		{
			name: "hidden text link in caption entity",
			msg: &api.Message{
				From:            named,
				Caption:         "nice photo",
				CaptionEntities: []api.MessageEntity{{Type: "text_link", Offset: 0, Length: 4, URL: "https://example.com"}},
			},
			want: OffenseLink,
		},
		{
			name: "bare host does not count",
			msg:  &api.Message{From: named, Text: "example.com is a domain"},
			want: OffenseNone,
		},
		{
			name: "forwarded content",
			msg:  &api.Message{From: named, ForwardOrigin: &api.MessageOrigin{Type: "user"}, Text: "whatever"},
			want: OffenseForwarded,
		},
		{
			name: "forwarded outranks link",
			msg: &api.Message{
				From:          named,
				ForwardOrigin: &api.MessageOrigin{Type: "channel"},
				Text:          "https://example.com",
			},
			want: OffenseForwarded,
		},
		{
			name: "missing username",
			msg:  &api.Message{From: anonymous, Text: "hi there"},
			want: OffenseMissingHandle,
		},
		{
			name: "link outranks missing username",
			msg:  &api.Message{From: anonymous, Text: "https://example.com"},
			want: OffenseLink,
		},
		{
			name: "whitespace username counts as missing",
			msg:  &api.Message{From: &api.User{ID: 3, UserName: "  "}, Text: "hi"},
			want: OffenseMissingHandle,
		},
		{
			name: "no sender no offense",
			msg:  &api.Message{Text: "service message"},
			want: OffenseNone,
		},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.msg); got != tt.want {
				t.Fatalf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOffenseDescribe(t *testing.T) {
	t.Parallel()

	for offense, want := range map[Offense]string{
		OffenseLink:          "posting links",
		OffenseForwarded:     "forwarding messages",
		OffenseMissingHandle: "writing without a username set",
		OffenseNone:          "",
	} {
		if got := offense.Describe(); got != want {
			t.Fatalf("Describe(%q) = %q, want %q", offense, got, want)
		}
	}
}
