package moderation

import (
	"context"
	"fmt"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wardenbot/internal/i18n"
	"github.com/iamwavecut/wardenbot/internal/policy/permissions"
)

// handleOverride serves the cancel-warning and ban buttons from the
// admin fanout. The payload ids are untrusted; the clicking identity
// must be in the chat's current administrator list.
func (m *Moderator) handleOverride(ctx context.Context, cq *api.CallbackQuery, payload CallbackPayload) {
	entry := m.getLogEntry().WithFields(log.Fields{
		"method":  "handleOverride",
		"action":  string(payload.Action),
		"chat_id": payload.ChatID,
		"user_id": payload.UserID,
	})

	transport := m.s.GetTransport()
	lang := m.s.GetLanguage(ctx, payload.ChatID, cq.From)

	admins, ok := m.chatAdmins(ctx, payload.ChatID)
	if !ok {
		m.answerCallback(ctx, cq.ID, i18n.Get("Could not verify permissions, try again.", lang))
		return
	}
	clicker := permissions.ChatAdminEntry(admins, cq.From.ID)
	if clicker == nil {
		entry.WithField("clicker_id", cq.From.ID).Info("unauthorized override attempt")
		m.answerCallback(ctx, cq.ID, i18n.Get("Only current chat administrators can do that.", lang))
		return
	}
	if payload.Action == ActionBanUser && !permissions.IsPrivilegedModerator(clicker) {
		entry.WithField("clicker_id", cq.From.ID).Info("override attempt without restrict rights")
		m.answerCallback(ctx, cq.ID, i18n.Get("You need the right to restrict members to do that.", lang))
		return
	}

	var result string
	switch payload.Action {
	case ActionCancelWarn:
		if m.ledger.Clear(ctx, payload.ChatID, payload.UserID) {
			result = fmt.Sprintf(i18n.Get("✅ Warning cancelled for user %d.", lang), payload.UserID)
		} else {
			result = fmt.Sprintf(i18n.Get("No active warning for user %d.", lang), payload.UserID)
		}
	case ActionBanUser:
		if err := transport.BanMember(ctx, payload.UserID, payload.ChatID); err != nil {
			entry.WithField("error", err.Error()).Error("cant ban user")
			result = fmt.Sprintf(i18n.Get("Failed to ban user %d: %s", lang), payload.UserID, err.Error())
		} else {
			result = fmt.Sprintf(i18n.Get("🚫 User %d banned.", lang), payload.UserID)
		}
	}

	if cq.Message != nil {
		if err := transport.EditMessageText(ctx, cq.Message.Chat.ID, cq.Message.MessageID, result); err != nil {
			entry.WithField("error", err.Error()).Warn("cant edit override message")
		}
	}
	m.answerCallback(ctx, cq.ID, "")
}

func (m *Moderator) answerCallback(ctx context.Context, callbackID, text string) {
	if err := m.s.GetTransport().AnswerCallback(ctx, callbackID, text); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Debug("cant answer callback")
	}
}
