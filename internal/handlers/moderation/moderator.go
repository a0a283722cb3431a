package moderation

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wardenbot/internal/bot"
	"github.com/iamwavecut/wardenbot/internal/config"
	"github.com/iamwavecut/wardenbot/internal/ledger"
	"github.com/iamwavecut/wardenbot/internal/policy/permissions"
)

// Moderator owns the warn→mute/ban pipeline: it classifies offenses,
// escalates them against the ledger, serves the admin override buttons
// and the moderation commands.
type Moderator struct {
	s      bot.Service
	ledger *ledger.Ledger
	cfg    config.Moderation

	logger *log.Entry
}

func NewModerator(s bot.Service, warnLedger *ledger.Ledger, cfg config.Moderation) *Moderator {
	return &Moderator{
		s:      s,
		ledger: warnLedger,
		cfg:    cfg,
	}
}

func (m *Moderator) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	switch {
	case u.CallbackQuery != nil:
		payload, ok := ParseCallbackPayload(u.CallbackQuery.Data)
		if !ok {
			// Not ours, or malformed; either way it is dropped here
			// and other handlers may still claim it.
			return true, nil
		}
		m.handleOverride(ctx, u.CallbackQuery, payload)
		return false, nil

	case u.Message != nil && chat != nil && user != nil && isGroupChat(chat):
		if u.Message.IsCommand() {
			if !isModerationCommand(u.Message.Command()) {
				return true, nil
			}
			m.handleCommand(ctx, u.Message, chat, user)
			return false, nil
		}
		offense := Classify(u.Message)
		if offense == OffenseNone {
			return true, nil
		}
		m.processOffense(ctx, u.Message, chat, user, offense)
		return false, nil
	}

	return true, nil
}

func isGroupChat(chat *api.Chat) bool {
	return chat.IsGroup() || chat.IsSuperGroup()
}

// chatAdmins always asks the transport; admin status changes at any
// moment and a stale list would let a demoted admin act.
func (m *Moderator) chatAdmins(ctx context.Context, chatID int64) ([]api.ChatMember, bool) {
	admins, err := m.s.GetTransport().GetChatAdmins(ctx, chatID)
	if err != nil {
		m.getLogEntry().WithFields(log.Fields{
			"chat_id": chatID,
			"error":   err.Error(),
		}).Error("cant fetch chat administrators")
		return nil, false
	}
	return admins, true
}

func (m *Moderator) isChatAdmin(ctx context.Context, chatID, userID int64) (isAdmin, ok bool) {
	admins, ok := m.chatAdmins(ctx, chatID)
	if !ok {
		return false, false
	}
	return permissions.IsChatAdmin(admins, userID), true
}

func (m *Moderator) getLogEntry() *log.Entry {
	if m.logger == nil {
		m.logger = log.WithField("handler", "moderation")
	}
	return m.logger
}
