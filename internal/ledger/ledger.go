package ledger

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const snapshotKey = "warning_ledger"

// Record is one user's active infraction tally in one chat. A record
// with Count == 0 is never stored, it is deleted instead.
type Record struct {
	Count                int       `json:"count"`
	ExpiresAt            time.Time `json:"expires_at"`
	LastOffenseMessageID int       `json:"last_offense_message_id,omitempty"`
}

type kvStore interface {
	GetKV(ctx context.Context, key string) (string, error)
	SetKV(ctx context.Context, key string, value string) error
}

// Ledger is the single owner of warning state. Every read-modify-write
// runs under one mutex; persistence serializes a point-in-time copy
// outside the lock so disk latency never blocks event handling.
type Ledger struct {
	mu      sync.RWMutex
	records map[int64]map[int64]*Record
	store   kvStore
	ttl     time.Duration
}

func New(store kvStore, ttl time.Duration) *Ledger {
	return &Ledger{
		records: map[int64]map[int64]*Record{},
		store:   store,
		ttl:     ttl,
	}
}

// Increment bumps the count for (chat, user), creating the record when
// absent, and refreshes the expiry. The new count and a copy of the
// record are returned.
func (l *Ledger) Increment(ctx context.Context, chatID, userID int64, offenseMessageID int) (int, Record) {
	l.mu.Lock()
	users, ok := l.records[chatID]
	if !ok {
		users = map[int64]*Record{}
		l.records[chatID] = users
	}
	rec, ok := users[userID]
	if !ok {
		rec = &Record{}
		users[userID] = rec
	}
	rec.Count++
	rec.ExpiresAt = time.Now().Add(l.ttl)
	if offenseMessageID != 0 {
		rec.LastOffenseMessageID = offenseMessageID
	}
	snapshot := *rec
	l.mu.Unlock()

	l.persistBestEffort(ctx)
	return snapshot.Count, snapshot
}

// ManualWarn is Increment without an offense reference.
func (l *Ledger) ManualWarn(ctx context.Context, chatID, userID int64) int {
	count, _ := l.Increment(ctx, chatID, userID, 0)
	return count
}

// Clear removes the record for (chat, user) and reports whether one
// existed.
func (l *Ledger) Clear(ctx context.Context, chatID, userID int64) bool {
	l.mu.Lock()
	users, ok := l.records[chatID]
	if !ok {
		l.mu.Unlock()
		return false
	}
	_, existed := users[userID]
	delete(users, userID)
	if len(users) == 0 {
		delete(l.records, chatID)
	}
	l.mu.Unlock()

	if existed {
		l.persistBestEffort(ctx)
	}
	return existed
}

func (l *Ledger) Get(chatID, userID int64) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if rec, ok := l.records[chatID][userID]; ok {
		return *rec, true
	}
	return Record{}, false
}

// PurgeExpired removes every record whose expiry is strictly before now
// and any chat left without records, returning the removal count.
// It does not persist; the sweeper persists after each pass.
func (l *Ledger) PurgeExpired(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for chatID, users := range l.records {
		for userID, rec := range users {
			if rec.ExpiresAt.Before(now) {
				delete(users, userID)
				removed++
			}
		}
		if len(users) == 0 {
			delete(l.records, chatID)
		}
	}
	return removed
}

// Persist writes a consistent snapshot of the ledger to the backing
// store. The copy is taken under the lock, the round-trip is not.
func (l *Ledger) Persist(ctx context.Context) error {
	snapshot := l.snapshot()

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return errors.WithMessage(err, "cant marshal ledger snapshot")
	}
	if err := l.store.SetKV(ctx, snapshotKey, string(raw)); err != nil {
		return errors.WithMessage(err, "cant store ledger snapshot")
	}
	return nil
}

// Load replaces in-memory state with the persisted snapshot. An absent,
// empty or corrupt snapshot yields an empty ledger.
func (l *Ledger) Load(ctx context.Context) error {
	raw, err := l.store.GetKV(ctx, snapshotKey)
	if err != nil {
		return errors.WithMessage(err, "cant read ledger snapshot")
	}

	records := map[int64]map[int64]*Record{}
	if raw != "" {
		parsed := map[string]map[string]*Record{}
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			log.WithField("error", err.Error()).Warn("corrupt ledger snapshot, starting empty")
		} else {
			records = inflate(parsed)
		}
	}

	l.mu.Lock()
	l.records = records
	l.mu.Unlock()
	return nil
}

func (l *Ledger) persistBestEffort(ctx context.Context) {
	if err := l.Persist(ctx); err != nil {
		log.WithField("error", err.Error()).Error("cant persist warning ledger")
	}
}

// snapshot deep-copies state into the string-keyed shape JSON wants.
func (l *Ledger) snapshot() map[string]map[string]*Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]map[string]*Record, len(l.records))
	for chatID, users := range l.records {
		chatKey := strconv.FormatInt(chatID, 10)
		out[chatKey] = make(map[string]*Record, len(users))
		for userID, rec := range users {
			copied := *rec
			out[chatKey][strconv.FormatInt(userID, 10)] = &copied
		}
	}
	return out
}

func inflate(parsed map[string]map[string]*Record) map[int64]map[int64]*Record {
	records := map[int64]map[int64]*Record{}
	for chatKey, users := range parsed {
		chatID, err := strconv.ParseInt(chatKey, 10, 64)
		if err != nil {
			log.WithField("chat_key", chatKey).Warn("skipping malformed chat key in snapshot")
			continue
		}
		for userKey, rec := range users {
			userID, err := strconv.ParseInt(userKey, 10, 64)
			if err != nil {
				log.WithField("user_key", userKey).Warn("skipping malformed user key in snapshot")
				continue
			}
			if rec == nil || rec.Count <= 0 {
				continue
			}
			if records[chatID] == nil {
				records[chatID] = map[int64]*Record{}
			}
			copied := *rec
			records[chatID][userID] = &copied
		}
	}
	return records
}
