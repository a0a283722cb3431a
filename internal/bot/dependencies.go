package bot

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/wardenbot/internal/db"
)

// ServiceBot defines bot-specific operations
type ServiceBot interface {
	GetBot() *api.BotAPI
	GetTransport() Transport
}

// ServiceDB defines database-specific operations
type ServiceDB interface {
	GetDB() db.Client
}

// Service defines the core bot service interface
type Service interface {
	ServiceBot
	ServiceDB
	GetLanguage(ctx context.Context, chatID int64, user *api.User) string
}

// Handler defines the interface for all update handlers in the system
type Handler interface {
	Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error)
}

// Transport covers every side effect the moderation logic may request
// from Telegram. Handlers depend on this interface so tests can run
// against a fake.
type Transport interface {
	SendMessage(ctx context.Context, msg api.MessageConfig) (*api.Message, error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	ApproveJoinRequest(ctx context.Context, userID, chatID int64) error
	DeclineJoinRequest(ctx context.Context, userID, chatID int64) error
	RestrictUntil(ctx context.Context, userID, chatID int64, until time.Time) error
	BanMember(ctx context.Context, userID, chatID int64) error
	UnbanMember(ctx context.Context, userID, chatID int64) error
	GetChatAdmins(ctx context.Context, chatID int64) ([]api.ChatMember, error)
}
