package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wardenbot/internal/bot"
	"github.com/iamwavecut/wardenbot/internal/i18n"
)

const (
	decisionAccept = "accept"
	decisionReject = "reject"
)

// Gatekeeper runs the join workflow: a rules DM with accept/reject
// buttons gates every join request. The workflow keeps no state across
// events; everything a decision needs rides in the button payload.
type Gatekeeper struct {
	s      bot.Service
	logger *log.Entry
}

func NewGatekeeper(s bot.Service) *Gatekeeper {
	return &Gatekeeper{s: s}
}

func (g *Gatekeeper) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	switch {
	case u.ChatJoinRequest != nil:
		g.handleJoinRequest(ctx, u.ChatJoinRequest)
		return false, nil
	case u.CallbackQuery != nil:
		decision, payloadUserID, payloadChatID, ok := parseDecisionPayload(u.CallbackQuery.Data)
		if !ok {
			return true, nil
		}
		g.handleDecision(ctx, u.CallbackQuery, decision, payloadUserID, payloadChatID)
		return false, nil
	}
	return true, nil
}

// parseDecisionPayload parses "accept_{userID}_{chatID}" and
// "reject_{userID}_{chatID}" button payloads.
func parseDecisionPayload(data string) (decision string, userID, chatID int64, ok bool) {
	parts := strings.Split(data, "_")
	if len(parts) != 3 {
		return "", 0, 0, false
	}
	if parts[0] != decisionAccept && parts[0] != decisionReject {
		return "", 0, 0, false
	}
	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, 0, false
	}
	chatID, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, 0, false
	}
	return parts[0], userID, chatID, true
}

func (g *Gatekeeper) handleJoinRequest(ctx context.Context, request *api.ChatJoinRequest) {
	entry := g.getLogEntry().WithFields(log.Fields{
		"method":  "handleJoinRequest",
		"chat_id": request.Chat.ID,
		"user_id": request.From.ID,
	})

	user := request.From
	lang := g.s.GetLanguage(ctx, request.Chat.ID, &user)

	rules := fmt.Sprintf(
		i18n.Get("👋 %s, please read the group rules:\n\n1. Don't spam or promote!\n2. No abusive language or stickers.\n3. Must have a username.\n4. Forwarded content is not welcome.\n\nDo you accept the rules?", lang),
		bot.GetFullName(&user),
	)
	keyboard := api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData(
				i18n.Get("❌ I don't accept", lang),
				fmt.Sprintf("%s_%d_%d", decisionReject, user.ID, request.Chat.ID),
			),
			api.NewInlineKeyboardButtonData(
				i18n.Get("✅ I accept", lang),
				fmt.Sprintf("%s_%d_%d", decisionAccept, user.ID, request.Chat.ID),
			),
		),
	)

	dm := api.NewMessage(user.ID, rules)
	dm.ReplyMarkup = keyboard
	if _, err := g.s.GetTransport().SendMessage(ctx, dm); err != nil {
		// No DM channel to the user means no way to ask; letting the
		// request rot would lock them out, so it is approved as is.
		entry.WithField("error", err.Error()).Info("cant deliver rules, auto-approving join request")
		if err := g.s.GetTransport().ApproveJoinRequest(ctx, user.ID, request.Chat.ID); err != nil && !isRequestAlreadyResolved(err) {
			entry.WithField("error", err.Error()).Error("cant auto-approve join request")
		}
		return
	}
	entry.Debug("rules delivered, awaiting response")
}

func (g *Gatekeeper) handleDecision(ctx context.Context, cq *api.CallbackQuery, decision string, userID, chatID int64) {
	entry := g.getLogEntry().WithFields(log.Fields{
		"method":   "handleDecision",
		"decision": decision,
		"chat_id":  chatID,
		"user_id":  userID,
	})

	if cq.From.ID != userID {
		entry.WithField("clicker_id", cq.From.ID).Debug("decision payload does not match the clicking user")
		return
	}

	transport := g.s.GetTransport()
	lang := g.s.GetLanguage(ctx, chatID, cq.From)

	switch decision {
	case decisionAccept:
		if err := transport.ApproveJoinRequest(ctx, userID, chatID); err != nil {
			if !isRequestAlreadyResolved(err) {
				entry.WithField("error", err.Error()).Error("cant approve join request")
				return
			}
			entry.Debug("join request already resolved")
		}
		if cq.Message != nil {
			if err := transport.EditMessageText(ctx, cq.Message.Chat.ID, cq.Message.MessageID, i18n.Get("✅ You accepted the rules. Welcome to the group!", lang)); err != nil {
				entry.WithField("error", err.Error()).Warn("cant edit rules message")
			}
		}
		g.sendWelcome(ctx, entry, chatID, cq.From, lang)
	case decisionReject:
		if err := transport.DeclineJoinRequest(ctx, userID, chatID); err != nil && !isRequestAlreadyResolved(err) {
			entry.WithField("error", err.Error()).Error("cant decline join request")
			return
		}
		if cq.Message != nil {
			if err := transport.EditMessageText(ctx, cq.Message.Chat.ID, cq.Message.MessageID, i18n.Get("❌ You did not accept the rules. Request declined.", lang)); err != nil {
				entry.WithField("error", err.Error()).Warn("cant edit rules message")
			}
		}
	}
}

func (g *Gatekeeper) sendWelcome(ctx context.Context, entry *log.Entry, chatID int64, user *api.User, lang string) {
	welcome := api.NewMessage(chatID, fmt.Sprintf(
		i18n.Get("🎉 %s accepted the rules, welcome!", lang),
		bot.GetUN(user),
	))
	welcome.DisableNotification = true
	welcome.ReplyMarkup = api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonURL(
				i18n.Get("👤 Say hello", lang),
				fmt.Sprintf("tg://user?id=%d", user.ID),
			),
		),
	)
	if _, err := g.s.GetTransport().SendMessage(ctx, welcome); err != nil {
		entry.WithField("error", err.Error()).Warn("cant send welcome message")
	}
}

// isRequestAlreadyResolved matches the transport errors Telegram
// returns for duplicate decisions on the same join request.
func isRequestAlreadyResolved(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "HIDE_REQUESTER_MISSING") ||
		strings.Contains(msg, "USER_ALREADY_PARTICIPANT") ||
		strings.Contains(msg, "USER_CHANNELS_TOO_MUCH")
}

func (g *Gatekeeper) getLogEntry() *log.Entry {
	if g.logger == nil {
		g.logger = log.WithField("handler", "gatekeeper")
	}
	return g.logger
}
