package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/wardenbot/internal/config"
	"github.com/iamwavecut/wardenbot/internal/db"
)

type service struct {
	bot       *api.BotAPI
	transport Transport
	db        db.Client
	cfg       config.Config
}

func NewService(botAPI *api.BotAPI, dbClient db.Client, cfg config.Config) Service {
	return &service{
		bot:       botAPI,
		transport: NewTransport(botAPI),
		db:        dbClient,
		cfg:       cfg,
	}
}

func (s *service) GetBot() *api.BotAPI {
	return s.bot
}

func (s *service) GetTransport() Transport {
	return s.transport
}

func (s *service) GetDB() db.Client {
	return s.db
}

// GetLanguage prefers the user's client language when Telegram reports
// one, falling back to the configured default.
func (s *service) GetLanguage(_ context.Context, _ int64, user *api.User) string {
	if user != nil && user.LanguageCode != "" {
		return user.LanguageCode
	}
	return s.cfg.DefaultLanguage
}
