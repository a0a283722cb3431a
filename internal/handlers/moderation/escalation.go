package moderation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wardenbot/internal/bot"
	"github.com/iamwavecut/wardenbot/internal/i18n"
	"github.com/iamwavecut/wardenbot/internal/observability"
)

// processOffense runs the escalation policy for one classified offense.
// Transport failures are logged and absorbed; nothing here may cross
// the handler boundary as an error.
func (m *Moderator) processOffense(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User, offense Offense) {
	entry := m.getLogEntry().WithFields(log.Fields{
		"method":         "processOffense",
		"chat_id":        chat.ID,
		"user_id":        user.ID,
		"offense":        offense.String(),
		"correlation_id": uuid.New(),
	})

	isAdmin, ok := m.isChatAdmin(ctx, chat.ID, user.ID)
	if !ok {
		entry.Warn("cant verify admin status, abandoning escalation")
		return
	}
	if isAdmin {
		entry.Debug("offense by administrator, skipping")
		return
	}

	observability.RecordOffense(offense.String())
	count, rec := m.ledger.Increment(ctx, chat.ID, user.ID, msg.MessageID)
	entry = entry.WithField("count", count)

	transport := m.s.GetTransport()
	if err := transport.DeleteMessage(ctx, chat.ID, msg.MessageID); err != nil {
		entry.WithField("error", err.Error()).Warn("cant delete offending message")
	}

	lang := m.s.GetLanguage(ctx, chat.ID, user)
	if count < m.cfg.WarnThreshold {
		m.sendWarning(ctx, chat.ID, user, offense, count, lang)
		observability.RecordEscalation("warn")
		return
	}

	m.applyConsequence(ctx, entry, chat, user, offense, count, rec.ExpiresAt, rec.LastOffenseMessageID, lang)
}

func (m *Moderator) sendWarning(ctx context.Context, chatID int64, user *api.User, offense Offense, count int, lang string) {
	remaining := m.cfg.WarnThreshold - count
	text := fmt.Sprintf(
		i18n.Get("⚠️ %s, %s is not allowed here. Warning %d of %d, %d left.", lang),
		bot.GetUN(user),
		i18n.Get(offense.Describe(), lang),
		count,
		m.cfg.WarnThreshold,
		remaining,
	)
	warning := api.NewMessage(chatID, text)
	warning.DisableNotification = true
	if _, err := m.s.GetTransport().SendMessage(ctx, warning); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Warn("cant send warning")
	}
}

func (m *Moderator) applyConsequence(ctx context.Context, entry *log.Entry, chat *api.Chat, user *api.User, offense Offense, count int, expiresAt time.Time, offenseMessageID int, lang string) {
	transport := m.s.GetTransport()

	// Private notice first, so the user learns the reason even if the
	// restriction call races their next message.
	var noticeText, confirmText, outcome string
	if m.cfg.BanAfterWarn {
		noticeText = fmt.Sprintf(
			i18n.Get("You have reached the warning limit in %s and are banned.", lang),
			chat.Title,
		)
		confirmText = fmt.Sprintf(i18n.Get("🚫 %s has been banned for repeated violations.", lang), bot.GetUN(user))
		outcome = "ban"
	} else {
		noticeText = fmt.Sprintf(
			i18n.Get("You have reached the warning limit in %s and are muted for %s.", lang),
			chat.Title,
			m.cfg.MuteDuration.String(),
		)
		confirmText = fmt.Sprintf(i18n.Get("🔇 %s has been muted for repeated violations.", lang), bot.GetUN(user))
		outcome = "mute"
	}

	if _, err := transport.SendMessage(ctx, api.NewMessage(user.ID, noticeText)); err != nil {
		entry.WithField("error", err.Error()).Warn("cant deliver private consequence notice")
	}

	var actionErr error
	if m.cfg.BanAfterWarn {
		actionErr = transport.BanMember(ctx, user.ID, chat.ID)
	} else {
		actionErr = transport.RestrictUntil(ctx, user.ID, chat.ID, time.Now().Add(m.cfg.MuteDuration))
	}
	if actionErr != nil {
		entry.WithField("error", actionErr.Error()).Error("cant apply consequence")
	} else {
		confirm := api.NewMessage(chat.ID, confirmText)
		confirm.DisableNotification = true
		if _, err := transport.SendMessage(ctx, confirm); err != nil {
			entry.WithField("error", err.Error()).Warn("cant send group confirmation")
		}
	}
	observability.RecordEscalation(outcome)

	m.notifyAdmins(ctx, entry, chat, user, offense, count, expiresAt, offenseMessageID, lang)
}

// notifyAdmins fans the alert out to every current administrator. It
// fires only at the threshold crossing, not on every warning.
func (m *Moderator) notifyAdmins(ctx context.Context, entry *log.Entry, chat *api.Chat, user *api.User, offense Offense, count int, expiresAt time.Time, offenseMessageID int, lang string) {
	admins, ok := m.chatAdmins(ctx, chat.ID)
	if !ok {
		return
	}

	payloadCancel := CallbackPayload{Action: ActionCancelWarn, UserID: user.ID, ChatID: chat.ID}
	payloadBan := CallbackPayload{Action: ActionBanUser, UserID: user.ID, ChatID: chat.ID}
	keyboard := api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData(i18n.Get("↩️ Cancel warning", lang), payloadCancel.Encode()),
			api.NewInlineKeyboardButtonData(i18n.Get("🚫 Ban user", lang), payloadBan.Encode()),
		),
	)

	text := fmt.Sprintf(
		i18n.Get("Threshold reached in %s\nUser: %s (%d)\nOffense: %s\nWarnings: %d\nExpires: %s\n%s", lang),
		chat.Title,
		bot.GetUN(user),
		user.ID,
		i18n.Get(offense.Describe(), lang),
		count,
		expiresAt.Format(time.RFC3339),
		messageDeepLink(chat.ID, offenseMessageID),
	)

	for _, admin := range admins {
		if admin.User == nil || admin.User.IsBot {
			continue
		}
		notice := api.NewMessage(admin.User.ID, text)
		notice.ReplyMarkup = keyboard
		if _, err := m.s.GetTransport().SendMessage(ctx, notice); err != nil {
			entry.WithFields(log.Fields{
				"admin_id": admin.User.ID,
				"error":    err.Error(),
			}).Warn("cant notify admin")
		}
	}
}

// messageDeepLink builds the t.me link to a supergroup message; for
// other chat types there is no stable deep link and the raw reference
// is shown instead.
func messageDeepLink(chatID int64, messageID int) string {
	if messageID == 0 {
		return ""
	}
	raw := strconv.FormatInt(chatID, 10)
	if strings.HasPrefix(raw, "-100") {
		return fmt.Sprintf("https://t.me/c/%s/%d", strings.TrimPrefix(raw, "-100"), messageID)
	}
	return fmt.Sprintf("message #%d", messageID)
}
