// Package store is the single authority for durable bot state. The in-memory
// users and conversations maps are the source of truth while the process
// lives; they are mirrored to two JSON documents on a timer, on write-through
// saves and during shutdown, and reloaded on the next start.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/Sokphirun99/Telegrambot-khmer/convo"
	"github.com/Sokphirun99/Telegrambot-khmer/internal/atomicfile"
)

const (
	usersFilename         = "users.json"
	conversationsFilename = "conversations.json"

	defaultFlushInterval = 5 * time.Minute
)

type Options struct {
	FlushInterval time.Duration
	// WriteThrough makes SaveUser flush synchronously, shrinking the
	// data-loss window to zero at the price of one file write per save.
	WriteThrough bool
	Logger       *slog.Logger
	Now          func() time.Time
}

type Store struct {
	dir          string
	flushEvery   time.Duration
	writeThrough bool
	logger       *slog.Logger
	now          func() time.Time

	mu            sync.Mutex
	users         map[int64]*User
	conversations map[int64]*convo.Conversation

	// entityLocks serializes all work on one user's record pair. The
	// handler pipeline holds the lock while mutating; the snapshot encoder
	// holds it while serializing, so neither sees the other mid-update.
	entityLocks map[int64]*sync.Mutex

	flushStop chan struct{}
	flushDone chan struct{}
}

func New(dir string, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	return &Store{
		dir:           dir,
		flushEvery:    opts.FlushInterval,
		writeThrough:  opts.WriteThrough,
		logger:        opts.Logger,
		now:           opts.Now,
		users:         map[int64]*User{},
		conversations: map[int64]*convo.Conversation{},
		entityLocks:   map[int64]*sync.Mutex{},
	}
}

func (s *Store) entityLock(id int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.entityLocks[id]
	if !ok {
		m = &sync.Mutex{}
		s.entityLocks[id] = m
	}
	return m
}

// LockEntities claims the per-user lock serializing handler work and
// snapshot encoding on one id's User and Conversation. The returned
// function releases it. Callers must release before triggering a flush,
// since the flush encoder takes the same lock.
func (s *Store) LockEntities(id int64) (unlock func()) {
	m := s.entityLock(id)
	m.Lock()
	return m.Unlock
}

func (s *Store) usersPath() string { return filepath.Join(s.dir, usersFilename) }
func (s *Store) conversationsPath() string {
	return filepath.Join(s.dir, conversationsFilename)
}

// usersDocument and conversationsDocument are the on-disk shapes: a single
// top-level object keyed by the decimal user id.
type usersDocument struct {
	Users map[string]*User `json:"users"`
}

type conversationRecord struct {
	UserID           int64          `json:"userId"`
	State            string         `json:"state"`
	Data             map[string]any `json:"data"`
	LastActivityTime string         `json:"lastActivityTime"`
}

type conversationsDocument struct {
	Conversations map[string]conversationRecord `json:"conversations"`
}

// Load reads both documents if present. Missing or malformed files are
// non-fatal: the store logs and starts empty.
func (s *Store) Load() error {
	if err := atomicfile.EnsureDir(s.dir); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var usersDoc usersDocument
	found, err := atomicfile.ReadJSON(s.usersPath(), &usersDoc)
	switch {
	case err != nil:
		s.logger.Error("store_load_users_failed", "path", s.usersPath(), "error", err.Error())
	case found && usersDoc.Users != nil:
		for key, u := range usersDoc.Users {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil || u == nil {
				s.logger.Warn("store_load_user_skipped", "key", key)
				continue
			}
			u.ID = id
			u.now = s.now
			s.users[id] = u
		}
		s.logger.Info("store_loaded_users", "count", len(s.users))
	default:
		s.logger.Info("store_users_file_absent", "path", s.usersPath())
	}

	var convDoc conversationsDocument
	found, err = atomicfile.ReadJSON(s.conversationsPath(), &convDoc)
	switch {
	case err != nil:
		s.logger.Error("store_load_conversations_failed", "path", s.conversationsPath(), "error", err.Error())
	case found && convDoc.Conversations != nil:
		for key, rec := range convDoc.Conversations {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				s.logger.Warn("store_load_conversation_skipped", "key", key)
				continue
			}
			c := convo.New(id)
			c.Now = s.now
			if rec.State != "" {
				c.State = convo.State(rec.State)
			}
			if rec.Data != nil {
				c.Data = rec.Data
			}
			ts, err := time.Parse(time.RFC3339, rec.LastActivityTime)
			if err != nil {
				ts = s.now()
			}
			c.LastActivityTime = ts
			c.LastUpdated = ts
			s.conversations[id] = c
		}
		s.logger.Info("store_loaded_conversations", "count", len(s.conversations))
	default:
		s.logger.Info("store_conversations_file_absent", "path", s.conversationsPath())
	}

	return nil
}

// Flush serializes a snapshot of both maps to disk. Expired conversations
// with empty scratch data are dropped from the document; an expired one that
// still carries data is kept. I/O failures are returned but the maps stay
// untouched, so a later flush can succeed.
func (s *Store) Flush() error {
	usersJSON, convJSON, err := s.snapshot()
	if err != nil {
		return err
	}

	if err := atomicfile.Write(s.usersPath(), usersJSON); err != nil {
		return fmt.Errorf("flush users: %w", err)
	}
	if err := atomicfile.Write(s.conversationsPath(), convJSON); err != nil {
		return fmt.Errorf("flush conversations: %w", err)
	}
	s.logger.Debug("store_flushed")
	return nil
}

// usersSnapshot and conversationsSnapshot are the encode-side documents:
// each record is pre-encoded to raw JSON under its entity lock, then the
// outer object is assembled lock-free.
type usersSnapshot struct {
	Users map[string]json.RawMessage `json:"users"`
}

type conversationsSnapshot struct {
	Conversations map[string]json.RawMessage `json:"conversations"`
}

// snapshot encodes both documents. The maps are copied under the store
// lock; each record is then encoded while holding its entity lock, so the
// encoder never observes a record mid-mutation. Only the file writes run
// with no lock at all.
func (s *Store) snapshot() (usersJSON, convJSON []byte, err error) {
	s.mu.Lock()
	users := make(map[int64]*User, len(s.users))
	for id, u := range s.users {
		users[id] = u
	}
	conversations := make(map[int64]*convo.Conversation, len(s.conversations))
	for id, c := range s.conversations {
		conversations[id] = c
	}
	s.mu.Unlock()

	usersDoc := usersSnapshot{Users: make(map[string]json.RawMessage, len(users))}
	for id, u := range users {
		lk := s.entityLock(id)
		lk.Lock()
		raw, merr := json.Marshal(u)
		lk.Unlock()
		if merr != nil {
			return nil, nil, fmt.Errorf("encode user %d: %w", id, merr)
		}
		usersDoc.Users[strconv.FormatInt(id, 10)] = raw
	}

	convDoc := conversationsSnapshot{
		Conversations: make(map[string]json.RawMessage, len(conversations)),
	}
	for id, c := range conversations {
		lk := s.entityLock(id)
		lk.Lock()
		if c.IsExpired() && len(c.Data) == 0 {
			lk.Unlock()
			continue
		}
		ts := c.LastActivityTime
		if ts.IsZero() {
			ts = s.now()
		}
		raw, merr := json.Marshal(conversationRecord{
			UserID:           c.UserID,
			State:            string(c.State),
			Data:             c.Data,
			LastActivityTime: ts.UTC().Format(time.RFC3339),
		})
		lk.Unlock()
		if merr != nil {
			return nil, nil, fmt.Errorf("encode conversation %d: %w", id, merr)
		}
		convDoc.Conversations[strconv.FormatInt(id, 10)] = raw
	}

	// MarshalIndent re-indents the embedded raw records along with the
	// outer object, so the files stay uniformly formatted.
	usersJSON, err = json.MarshalIndent(usersDoc, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode users: %w", err)
	}
	convJSON, err = json.MarshalIndent(convDoc, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode conversations: %w", err)
	}
	return append(usersJSON, '\n'), append(convJSON, '\n'), nil
}

// GetUser returns the stored record, or nil when the id is unseen.
func (s *Store) GetUser(id int64) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func (s *Store) IsNewUser(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[id]
	return !ok
}

// GetOrCreateUser resolves the record for id, refreshing the profile fields
// from the latest hints; accumulators and extensions are preserved. The
// boolean reports whether the record was created by this call.
func (s *Store) GetOrCreateUser(id int64, p Profile) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		u.refreshProfile(p)
		return u, false
	}
	u := newUser(id, p, s.now)
	s.users[id] = u
	return u, true
}

// SaveUser records the user in memory and, under write-through, flushes
// immediately. Flush failures are logged and swallowed: the in-memory copy
// stays authoritative and the next cycle retries.
func (s *Store) SaveUser(u *User) {
	if u == nil || u.ID == 0 {
		s.logger.Error("store_save_user_invalid")
		return
	}
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()

	if s.writeThrough {
		if err := s.Flush(); err != nil {
			s.logger.Error("store_flush_failed", "error", err.Error())
		}
	}
}

// Conversation returns the conversation for id, creating an idle one on
// first access. An expired conversation is reset in place before it is
// returned, so callers never act on stale state.
func (s *Store) Conversation(id int64) *convo.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		c = convo.New(id)
		c.Now = s.now
		s.conversations[id] = c
		return c
	}
	if c.IsExpired() {
		s.logger.Info("conversation_expired_reset", "user_id", id, "state", string(c.State))
		c.Reset()
	}
	return c
}

func (s *Store) SaveConversation(c *convo.Conversation) {
	if c == nil {
		return
	}
	s.mu.Lock()
	s.conversations[c.UserID] = c
	s.mu.Unlock()

	if s.writeThrough {
		if err := s.Flush(); err != nil {
			s.logger.Error("store_flush_failed", "error", err.Error())
		}
	}
}

// StartAutoFlush begins the background flush timer. Calling it twice is a
// no-op until StopAutoFlush runs.
func (s *Store) StartAutoFlush() {
	s.mu.Lock()
	if s.flushStop != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	s.flushStop = stop
	s.flushDone = done
	s.mu.Unlock()

	s.logger.Info("store_autoflush_started", "interval", s.flushEvery.String())
	go func() {
		defer close(done)
		ticker := time.NewTicker(s.flushEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.Flush(); err != nil {
					s.logger.Error("store_flush_failed", "error", err.Error())
				}
			case <-stop:
				return
			}
		}
	}()
}

func (s *Store) StopAutoFlush() {
	s.mu.Lock()
	stop, done := s.flushStop, s.flushDone
	s.flushStop, s.flushDone = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
	s.logger.Info("store_autoflush_stopped")
}

// Close stops the timer and performs the final flush. Part of the shutdown
// sequence: stop timer, flush, then release the instance lock.
func (s *Store) Close() error {
	s.StopAutoFlush()
	return s.Flush()
}
