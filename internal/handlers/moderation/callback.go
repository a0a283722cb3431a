package moderation

import (
	"fmt"
	"strconv"
	"strings"
)

// CallbackAction enumerates the privileged button actions this handler
// understands.
type CallbackAction string

const (
	ActionCancelWarn CallbackAction = "cancel_warn"
	ActionBanUser    CallbackAction = "ban_user"
)

// CallbackPayload is the parsed form of a moderation button payload.
// Payloads echo ids chosen by the bot itself, but arrive through the
// transport and are treated as untrusted until the clicking identity
// passes the live admin check.
type CallbackPayload struct {
	Action CallbackAction
	UserID int64
	ChatID int64
}

func (p CallbackPayload) Encode() string {
	return fmt.Sprintf("%s_%d_%d", p.Action, p.UserID, p.ChatID)
}

// ParseCallbackPayload parses "{action}_{userID}_{chatID}" into a typed
// payload. Malformed data yields ok == false and is dropped by callers.
func ParseCallbackPayload(data string) (CallbackPayload, bool) {
	var action CallbackAction
	switch {
	case strings.HasPrefix(data, string(ActionCancelWarn)+"_"):
		action = ActionCancelWarn
	case strings.HasPrefix(data, string(ActionBanUser)+"_"):
		action = ActionBanUser
	default:
		return CallbackPayload{}, false
	}

	rest := strings.TrimPrefix(data, string(action)+"_")
	parts := strings.Split(rest, "_")
	if len(parts) != 2 {
		return CallbackPayload{}, false
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return CallbackPayload{}, false
	}
	chatID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return CallbackPayload{}, false
	}
	return CallbackPayload{Action: action, UserID: userID, ChatID: chatID}, true
}
