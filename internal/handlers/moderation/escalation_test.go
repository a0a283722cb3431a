package moderation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestOffenseByAdministratorIsIgnored(t *testing.T) {
	t.Parallel()

	m, transport, warnLedger := newTestModerator(testConfig())
	transport.admins = adminList(5)

	msg := groupMessage(-100200, 5, 10, "https://example.com")
	m.processOffense(context.Background(), msg, &msg.Chat, msg.From, OffenseLink)

	if _, found := warnLedger.Get(-100200, 5); found {
		t.Fatal("admin offense must not create a record")
	}
	if len(transport.deleted) != 0 {
		t.Fatal("admin message must not be deleted")
	}
	if len(transport.sent) != 0 {
		t.Fatal("no warning may be sent for an admin")
	}
}

func TestAdminFetchFailureAbandonsEscalation(t *testing.T) {
	t.Parallel()

	m, transport, warnLedger := newTestModerator(testConfig())
	transport.adminsErr = errors.New("telegram is down")

	msg := groupMessage(-100200, 5, 10, "https://example.com")
	m.processOffense(context.Background(), msg, &msg.Chat, msg.From, OffenseLink)

	if _, found := warnLedger.Get(-100200, 5); found {
		t.Fatal("record must not be created when admin status is unknown")
	}
	if len(transport.deleted) != 0 {
		t.Fatal("message must not be deleted when admin status is unknown")
	}
}

func TestEscalationWarnsThenMutes(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	m, transport, warnLedger := newTestModerator(cfg)
	transport.admins = adminList(1, 2)

	const chatID, userID = int64(-100200), int64(5)

	// First two offenses produce group warnings.
	for i, wantLeft := range []string{"2 left", "1 left"} {
		msg := groupMessage(chatID, userID, 10+i, "https://example.com")
		m.processOffense(context.Background(), msg, &msg.Chat, msg.From, OffenseLink)

		if len(transport.sent) != i+1 {
			t.Fatalf("offense %d: expected %d sends, got %d", i+1, i+1, len(transport.sent))
		}
		warning := transport.sent[i]
		if warning.ChatID != chatID {
			t.Fatalf("offense %d: warning went to chat %d", i+1, warning.ChatID)
		}
		if !strings.Contains(warning.Text, wantLeft) {
			t.Fatalf("offense %d: warning %q misses %q", i+1, warning.Text, wantLeft)
		}
		if len(transport.deleted) != i+1 {
			t.Fatalf("offense %d: offending message not deleted", i+1)
		}
		if len(transport.restricted) != 0 {
			t.Fatalf("offense %d: restricted too early", i+1)
		}
	}

	// Third offense crosses the threshold: mute, private notice, group
	// confirmation and one alert per human admin.
	before := time.Now()
	msg := groupMessage(chatID, userID, 12, "https://example.com")
	m.processOffense(context.Background(), msg, &msg.Chat, msg.From, OffenseLink)

	if len(transport.restricted) != 1 {
		t.Fatalf("expected one restriction, got %d", len(transport.restricted))
	}
	r := transport.restricted[0]
	if r.userID != userID || r.chatID != chatID {
		t.Fatalf("restricted wrong member: %+v", r)
	}
	if until := r.until; until.Before(before.Add(cfg.MuteDuration)) || until.After(time.Now().Add(cfg.MuteDuration)) {
		t.Fatalf("mute until %v not within expected window", until)
	}
	if len(transport.banned) != 0 {
		t.Fatal("default policy must mute, not ban")
	}

	var privateNotice, groupConfirm, adminAlerts int
	for _, sent := range transport.sent[2:] {
		switch {
		case sent.ChatID == userID:
			privateNotice++
		case sent.ChatID == chatID:
			groupConfirm++
			if !strings.Contains(sent.Text, "muted") {
				t.Fatalf("group confirmation %q does not mention the mute", sent.Text)
			}
		default:
			adminAlerts++
			if sent.ReplyMarkup == nil {
				t.Fatal("admin alert missing the override keyboard")
			}
			if !strings.Contains(sent.Text, "Threshold reached") {
				t.Fatalf("unexpected admin alert text %q", sent.Text)
			}
		}
	}
	if privateNotice != 1 || groupConfirm != 1 || adminAlerts != 2 {
		t.Fatalf("send fanout mismatch: private=%d confirm=%d admins=%d", privateNotice, groupConfirm, adminAlerts)
	}

	rec, found := warnLedger.Get(chatID, userID)
	if !found || rec.Count != 3 {
		t.Fatalf("expected count 3, got %+v found=%v", rec, found)
	}
}

func TestEscalationBansWhenConfigured(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.WarnThreshold = 1
	cfg.BanAfterWarn = true
	m, transport, _ := newTestModerator(cfg)
	transport.admins = adminList(1)

	msg := groupMessage(-100200, 5, 10, "https://example.com")
	m.processOffense(context.Background(), msg, &msg.Chat, msg.From, OffenseLink)

	if len(transport.banned) != 1 {
		t.Fatalf("expected one ban, got %d", len(transport.banned))
	}
	if len(transport.restricted) != 0 {
		t.Fatal("ban policy must not also mute")
	}
}

func TestFreshOffenseAfterCancelStartsAtOne(t *testing.T) {
	t.Parallel()

	m, transport, warnLedger := newTestModerator(testConfig())
	transport.admins = adminList(1)

	const chatID, userID = int64(-100200), int64(5)
	for i := 0; i < 2; i++ {
		msg := groupMessage(chatID, userID, 10+i, "https://example.com")
		m.processOffense(context.Background(), msg, &msg.Chat, msg.From, OffenseLink)
	}
	if !warnLedger.Clear(context.Background(), chatID, userID) {
		t.Fatal("expected an active record to clear")
	}

	msg := groupMessage(chatID, userID, 20, "https://example.com")
	m.processOffense(context.Background(), msg, &msg.Chat, msg.From, OffenseLink)

	rec, found := warnLedger.Get(chatID, userID)
	if !found || rec.Count != 1 {
		t.Fatalf("expected a fresh record at count 1, got %+v found=%v", rec, found)
	}
	last := transport.sent[len(transport.sent)-1]
	if !strings.Contains(last.Text, "Warning 1 of 3") {
		t.Fatalf("expected a first warning, got %q", last.Text)
	}
}

func TestBotAdminsAreSkippedInFanout(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.WarnThreshold = 1
	m, transport, _ := newTestModerator(cfg)
	transport.admins = adminList(1)
	transport.admins[0].User.IsBot = true

	msg := groupMessage(-100200, 5, 10, "https://example.com")
	m.processOffense(context.Background(), msg, &msg.Chat, msg.From, OffenseLink)

	for _, sent := range transport.sent {
		if sent.ChatID == int64(1) {
			t.Fatal("bot admin must not receive an alert")
		}
	}
}

func TestMessageDeepLink(t *testing.T) {
	t.Parallel()

	if got := messageDeepLink(-1001234567890, 42); got != "https://t.me/c/1234567890/42" {
		t.Fatalf("supergroup link = %q", got)
	}
	if got := messageDeepLink(-200, 42); got != "message #42" {
		t.Fatalf("plain group reference = %q", got)
	}
	if got := messageDeepLink(-1001234567890, 0); got != "" {
		t.Fatalf("zero message id must yield empty reference, got %q", got)
	}
}
