package moderation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wardenbot/internal/i18n"
	"github.com/iamwavecut/wardenbot/internal/policy/permissions"
)

func isModerationCommand(command string) bool {
	switch command {
	case "warn", "unwarn", "unban", "warnings":
		return true
	}
	return false
}

// handleCommand serves the /warn, /unwarn, /unban and /warnings text
// commands. Every one of them requires the caller to be a current chat
// administrator.
func (m *Moderator) handleCommand(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) {
	entry := m.getLogEntry().WithFields(log.Fields{
		"method":  "handleCommand",
		"command": msg.Command(),
		"chat_id": chat.ID,
		"user_id": user.ID,
	})

	lang := m.s.GetLanguage(ctx, chat.ID, user)

	admins, ok := m.chatAdmins(ctx, chat.ID)
	if !ok {
		m.reply(ctx, msg, i18n.Get("Could not verify permissions, try again.", lang))
		return
	}
	caller := permissions.ChatAdminEntry(admins, user.ID)
	if caller == nil {
		m.reply(ctx, msg, i18n.Get("Only current chat administrators can do that.", lang))
		return
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		m.reply(ctx, msg, fmt.Sprintf(i18n.Get("Usage: /%s <userId>", lang), msg.Command()))
		return
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		m.reply(ctx, msg, i18n.Get("That does not look like a numeric user id.", lang))
		return
	}

	switch msg.Command() {
	case "warn":
		count := m.ledger.ManualWarn(ctx, chat.ID, targetID)
		text := fmt.Sprintf(i18n.Get("⚠️ Warning recorded for user %d, now at %d of %d.", lang), targetID, count, m.cfg.WarnThreshold)
		if reason := strings.Join(args[1:], " "); reason != "" {
			text += fmt.Sprintf(i18n.Get(" Reason: %s", lang), reason)
		}
		m.reply(ctx, msg, text)

	case "unwarn":
		if m.ledger.Clear(ctx, chat.ID, targetID) {
			m.reply(ctx, msg, fmt.Sprintf(i18n.Get("✅ Warnings cleared for user %d.", lang), targetID))
		} else {
			m.reply(ctx, msg, fmt.Sprintf(i18n.Get("No active warning for user %d.", lang), targetID))
		}

	case "unban":
		if !permissions.IsPrivilegedModerator(caller) {
			m.reply(ctx, msg, i18n.Get("You need the right to restrict members to do that.", lang))
			return
		}
		if err := m.s.GetTransport().UnbanMember(ctx, targetID, chat.ID); err != nil {
			entry.WithField("error", err.Error()).Error("cant unban user")
			m.reply(ctx, msg, fmt.Sprintf(i18n.Get("Failed to unban user %d: %s", lang), targetID, err.Error()))
		} else {
			m.reply(ctx, msg, fmt.Sprintf(i18n.Get("✅ User %d unbanned.", lang), targetID))
		}

	case "warnings":
		rec, found := m.ledger.Get(chat.ID, targetID)
		if !found {
			m.reply(ctx, msg, fmt.Sprintf(i18n.Get("No active warning for user %d.", lang), targetID))
			return
		}
		m.reply(ctx, msg, fmt.Sprintf(
			i18n.Get("User %d has %d of %d warnings, expiring %s.", lang),
			targetID, rec.Count, m.cfg.WarnThreshold, rec.ExpiresAt.Format(time.RFC3339),
		))
	}
}

func (m *Moderator) reply(ctx context.Context, msg *api.Message, text string) {
	response := api.NewMessage(msg.Chat.ID, text)
	response.ReplyParameters.MessageID = msg.MessageID
	response.ReplyParameters.ChatID = msg.Chat.ID
	response.ReplyParameters.AllowSendingWithoutReply = true
	response.DisableNotification = true
	if _, err := m.s.GetTransport().SendMessage(ctx, response); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Warn("cant send command reply")
	}
}
