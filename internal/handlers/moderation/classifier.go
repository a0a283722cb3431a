package moderation

import (
	"regexp"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
)

// Offense is the fixed taxonomy of infraction causes.
type Offense string

const (
	OffenseNone          Offense = ""
	OffenseLink          Offense = "link"
	OffenseForwarded     Offense = "forwarded"
	OffenseMissingHandle Offense = "missing_handle"
)

// Conservative on purpose: plain mentions of a host without a scheme,
// t.me or www prefix do not count.
var linkPattern = regexp.MustCompile(`(?i)(?:https?://|www\.|t\.me/)\S+`)

// Classify maps a message to its offense category. Forwarded content
// outranks links, links outrank a missing sender handle. Pure, never
// fails, nil-safe.
func Classify(msg *api.Message) Offense {
	if msg == nil {
		return OffenseNone
	}
	if msg.ForwardOrigin != nil {
		return OffenseForwarded
	}
	if containsLink(msg) {
		return OffenseLink
	}
	if msg.From != nil && strings.TrimSpace(msg.From.UserName) == "" {
		return OffenseMissingHandle
	}
	return OffenseNone
}

func containsLink(msg *api.Message) bool {
	for _, entities := range [][]api.MessageEntity{msg.Entities, msg.CaptionEntities} {
		for _, entity := range entities {
			if entity.IsURL() || entity.IsTextLink() {
				return true
			}
		}
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	return linkPattern.MatchString(text)
}

// Describe renders the offense for user-facing messages; the result is
// an i18n key.
func (o Offense) Describe() string {
	switch o {
	case OffenseLink:
		return "posting links"
	case OffenseForwarded:
		return "forwarding messages"
	case OffenseMissingHandle:
		return "writing without a username set"
	default:
		return ""
	}
}

func (o Offense) String() string {
	return string(o)
}
