package moderation

import (
	"context"
	"errors"
	"strings"
	"testing"

	api "github.com/OvyFlash/telegram-bot-api"
)

func commandMessage(chatID, userID int64, text string) *api.Message {
	msg := groupMessage(chatID, userID, 33, text)
	length := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		length = i
	}
	msg.Entities = []api.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	return msg
}

func lastReply(t *testing.T, transport *fakeTransport) api.MessageConfig {
	t.Helper()
	if len(transport.sent) == 0 {
		t.Fatal("expected a reply")
	}
	return transport.sent[len(transport.sent)-1]
}

func TestCommandsRequireAdmin(t *testing.T) {
	t.Parallel()

	m, transport, warnLedger := newTestModerator(testConfig())
	transport.admins = adminList(1)

	msg := commandMessage(-100200, 99, "/warn 5")
	m.handleCommand(context.Background(), msg, &msg.Chat, msg.From)

	if _, found := warnLedger.Get(-100200, 5); found {
		t.Fatal("non-admin /warn must not create a record")
	}
	if reply := lastReply(t, transport); !strings.Contains(reply.Text, "administrators") {
		t.Fatalf("expected a rejection reply, got %q", reply.Text)
	}
}

func TestWarnCommandRecordsWithReason(t *testing.T) {
	t.Parallel()

	m, transport, warnLedger := newTestModerator(testConfig())
	transport.admins = adminList(1)

	msg := commandMessage(-100200, 1, "/warn 5 repeated spam")
	m.handleCommand(context.Background(), msg, &msg.Chat, msg.From)

	rec, found := warnLedger.Get(-100200, 5)
	if !found || rec.Count != 1 {
		t.Fatalf("expected a record at count 1, got %+v found=%v", rec, found)
	}
	if rec.LastOffenseMessageID != 0 {
		t.Fatalf("manual warning must not carry an offense reference, got %d", rec.LastOffenseMessageID)
	}
	reply := lastReply(t, transport)
	if !strings.Contains(reply.Text, "now at 1 of 3") || !strings.Contains(reply.Text, "repeated spam") {
		t.Fatalf("unexpected reply %q", reply.Text)
	}
	if reply.ReplyParameters.MessageID != msg.MessageID {
		t.Fatal("reply must reference the command message")
	}
}

func TestUnwarnCommandClears(t *testing.T) {
	t.Parallel()

	m, transport, warnLedger := newTestModerator(testConfig())
	transport.admins = adminList(1)
	warnLedger.Increment(context.Background(), -100200, 5, 10)

	msg := commandMessage(-100200, 1, "/unwarn 5")
	m.handleCommand(context.Background(), msg, &msg.Chat, msg.From)

	if _, found := warnLedger.Get(-100200, 5); found {
		t.Fatal("record must be cleared")
	}
	if reply := lastReply(t, transport); !strings.Contains(reply.Text, "cleared") {
		t.Fatalf("unexpected reply %q", reply.Text)
	}

	m.handleCommand(context.Background(), msg, &msg.Chat, msg.From)
	if reply := lastReply(t, transport); !strings.Contains(reply.Text, "No active warning") {
		t.Fatalf("unexpected reply %q", reply.Text)
	}
}

func TestUnbanCommandReportsFailure(t *testing.T) {
	t.Parallel()

	m, transport, _ := newTestModerator(testConfig())
	transport.admins = adminList(1)
	transport.unbanErr = errors.New("not enough rights")

	msg := commandMessage(-100200, 1, "/unban 5")
	m.handleCommand(context.Background(), msg, &msg.Chat, msg.From)

	if reply := lastReply(t, transport); !strings.Contains(reply.Text, "not enough rights") {
		t.Fatalf("unexpected reply %q", reply.Text)
	}
}

func TestUnbanCommandRequiresRestrictRights(t *testing.T) {
	t.Parallel()

	m, transport, _ := newTestModerator(testConfig())
	transport.admins = limitedAdminList(1)

	msg := commandMessage(-100200, 1, "/unban 5")
	m.handleCommand(context.Background(), msg, &msg.Chat, msg.From)

	if len(transport.unbanned) != 0 {
		t.Fatal("an admin without restrict rights must not unban")
	}
	if reply := lastReply(t, transport); !strings.Contains(reply.Text, "restrict members") {
		t.Fatalf("expected a rights rejection reply, got %q", reply.Text)
	}
}

func TestWarnCommandAllowedWithoutRestrictRights(t *testing.T) {
	t.Parallel()

	m, transport, warnLedger := newTestModerator(testConfig())
	transport.admins = limitedAdminList(1)

	msg := commandMessage(-100200, 1, "/warn 5")
	m.handleCommand(context.Background(), msg, &msg.Chat, msg.From)

	if rec, found := warnLedger.Get(-100200, 5); !found || rec.Count != 1 {
		t.Fatalf("ledger-only command must work for any admin, got %+v found=%v", rec, found)
	}
	if reply := lastReply(t, transport); !strings.Contains(reply.Text, "now at 1 of 3") {
		t.Fatalf("unexpected reply %q", reply.Text)
	}
}

func TestUnbanCommandDelegatesToTransport(t *testing.T) {
	t.Parallel()

	m, transport, _ := newTestModerator(testConfig())
	transport.admins = adminList(1)

	msg := commandMessage(-100200, 1, "/unban 5")
	m.handleCommand(context.Background(), msg, &msg.Chat, msg.From)

	if len(transport.unbanned) != 1 || transport.unbanned[0] != (memberRef{userID: 5, chatID: -100200}) {
		t.Fatalf("expected exactly the target unbanned, got %+v", transport.unbanned)
	}
}

func TestWarningsCommandReportsState(t *testing.T) {
	t.Parallel()

	m, transport, warnLedger := newTestModerator(testConfig())
	transport.admins = adminList(1)
	warnLedger.Increment(context.Background(), -100200, 5, 10)
	warnLedger.Increment(context.Background(), -100200, 5, 11)

	msg := commandMessage(-100200, 1, "/warnings 5")
	m.handleCommand(context.Background(), msg, &msg.Chat, msg.From)
	if reply := lastReply(t, transport); !strings.Contains(reply.Text, "2 of 3") {
		t.Fatalf("unexpected reply %q", reply.Text)
	}

	msg = commandMessage(-100200, 1, "/warnings 6")
	m.handleCommand(context.Background(), msg, &msg.Chat, msg.From)
	if reply := lastReply(t, transport); !strings.Contains(reply.Text, "No active warning") {
		t.Fatalf("unexpected reply %q", reply.Text)
	}
}

func TestCommandArgumentValidation(t *testing.T) {
	t.Parallel()

	m, transport, _ := newTestModerator(testConfig())
	transport.admins = adminList(1)

	msg := commandMessage(-100200, 1, "/warn")
	m.handleCommand(context.Background(), msg, &msg.Chat, msg.From)
	if reply := lastReply(t, transport); !strings.Contains(reply.Text, "Usage: /warn") {
		t.Fatalf("unexpected reply %q", reply.Text)
	}

	msg = commandMessage(-100200, 1, "/warn @someone")
	m.handleCommand(context.Background(), msg, &msg.Chat, msg.From)
	if reply := lastReply(t, transport); !strings.Contains(reply.Text, "numeric user id") {
		t.Fatalf("unexpected reply %q", reply.Text)
	}
}
