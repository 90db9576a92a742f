package store

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sokphirun99/Telegrambot-khmer/convo"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return New(t.TempDir(), opts)
}

func TestGetOrCreateUserIdempotentOnIdentity(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{})
	first, created := s.GetOrCreateUser(77, Profile{FirstName: "Sok"})
	if !created {
		t.Fatalf("GetOrCreateUser() created = false on first sight")
	}
	first.RecordInteraction(InteractionCommand, "/start")

	second, created := s.GetOrCreateUser(77, Profile{FirstName: "Sokha"})
	if created {
		t.Fatalf("GetOrCreateUser() created = true on second call")
	}
	if first != second {
		t.Fatalf("GetOrCreateUser() produced two distinct records for one id")
	}
	if second.FirstName != "Sokha" {
		t.Fatalf("profile not refreshed: FirstName = %q, want Sokha", second.FirstName)
	}
	if second.Interactions.CommandCount != 1 {
		t.Fatalf("accumulator lost on refresh: CommandCount = %d, want 1", second.Interactions.CommandCount)
	}
}

func TestGetOrCreateUserKeepsLanguageOnEmptyHint(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{})
	u, _ := s.GetOrCreateUser(1, Profile{FirstName: "Sok", LanguageCode: "en"})
	if u.LanguageCode != "en" {
		t.Fatalf("LanguageCode = %q, want en", u.LanguageCode)
	}
	u, _ = s.GetOrCreateUser(1, Profile{FirstName: "Sok"})
	if u.LanguageCode != "en" {
		t.Fatalf("LanguageCode overwritten by empty hint: %q", u.LanguageCode)
	}
}

func TestConversationCreatesIdle(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{})
	c := s.Conversation(9)
	if c.State != convo.StateIdle {
		t.Fatalf("Conversation() state = %q, want idle", c.State)
	}
	if len(c.Data) != 0 {
		t.Fatalf("Conversation() data = %v, want empty", c.Data)
	}
	if s.Conversation(9) != c {
		t.Fatalf("Conversation() returned a new identity for a known id")
	}
}

func TestConversationExpiryResetsOnAccess(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }
	s := newTestStore(t, Options{Now: clock})

	c := s.Conversation(5)
	c.SetState(convo.StateQuiz)
	c.SetData("wordId", 7)

	current = current.Add(31 * time.Minute)
	again := s.Conversation(5)
	if again != c {
		t.Fatalf("expiry replaced the conversation instead of resetting in place")
	}
	if again.State != convo.StateIdle {
		t.Fatalf("expired conversation state = %q, want idle", again.State)
	}
	if len(again.Data) != 0 {
		t.Fatalf("expired conversation data = %v, want empty", again.Data)
	}
}

func TestFlushLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return fixed }

	s := New(dir, Options{Logger: logger, Now: clock})
	u, _ := s.GetOrCreateUser(101, Profile{FirstName: "Dara", Username: "dara_kh", LanguageCode: "km"})
	u.RecordInteraction(InteractionCommand, "/quiz")
	u.Statistics.Quizzes.Started = 2
	u.SetPreference("theme", "dark")
	s.SaveUser(u)

	c := s.Conversation(101)
	c.SetState(convo.StateQuiz)
	c.SetData("wordId", 7)
	s.SaveConversation(c)

	if err := s.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	reloaded := New(dir, Options{Logger: logger, Now: clock})
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	got := reloaded.GetUser(101)
	if got == nil {
		t.Fatalf("Load() lost user 101")
	}
	if got.FirstName != "Dara" || got.Username != "dara_kh" {
		t.Fatalf("user profile mismatch after reload: %+v", got)
	}
	if got.Interactions.CommandCount != 1 || got.Interactions.LastCommand != "/quiz" {
		t.Fatalf("interactions mismatch after reload: %+v", got.Interactions)
	}
	if got.Statistics.Quizzes.Started != 2 {
		t.Fatalf("statistics mismatch after reload: %+v", got.Statistics)
	}
	if got.Preferences["theme"] != "dark" {
		t.Fatalf("preferences mismatch after reload: %v", got.Preferences)
	}

	rc := reloaded.Conversation(101)
	if rc.State != convo.StateQuiz {
		t.Fatalf("conversation state after reload = %q, want quiz", rc.State)
	}
	// JSON numbers decode as float64 in a generic map.
	if v, _ := rc.GetData("wordId"); v != float64(7) {
		t.Fatalf("conversation data after reload = %v, want 7", v)
	}
	if !rc.LastActivityTime.Equal(fixed) {
		t.Fatalf("conversation timestamp after reload = %v, want %v", rc.LastActivityTime, fixed)
	}
}

func TestFlushFiltersExpiredEmptyConversations(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }
	s := newTestStore(t, Options{Now: clock})

	// Expired with data: must survive the flush.
	withData := s.Conversation(1)
	withData.SetState(convo.StateAwaitingFeedback)
	withData.SetData("feedback", "draft")

	// Expired and empty: must be filtered out.
	empty := s.Conversation(2)
	_ = empty

	current = current.Add(time.Hour)
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(s.dir, conversationsFilename))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var doc conversationsDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, ok := doc.Conversations["1"]; !ok {
		t.Fatalf("expired conversation with data was dropped")
	}
	if _, ok := doc.Conversations["2"]; ok {
		t.Fatalf("expired empty conversation was persisted")
	}
}

func TestLoadToleratesMalformedFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, usersFilename), []byte("{broken"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, conversationsFilename), []byte("also broken"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s := New(dir, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err := s.Load(); err != nil {
		t.Fatalf("Load() error = %v, want malformed files tolerated", err)
	}
	if s.GetUser(1) != nil {
		t.Fatalf("Load() conjured a user from a broken file")
	}
}

func TestLoadDefaultsMissingTimestampToNow(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := `{"conversations":{"3":{"userId":3,"state":"quiz","data":{"wordId":1}}}}`
	if err := os.WriteFile(filepath.Join(dir, conversationsFilename), []byte(doc), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := New(dir, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Now: func() time.Time { return fixed }})
	if err := s.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	c := s.Conversation(3)
	if !c.LastActivityTime.Equal(fixed) {
		t.Fatalf("missing timestamp defaulted to %v, want %v", c.LastActivityTime, fixed)
	}
	if c.State != convo.StateQuiz {
		t.Fatalf("state = %q, want quiz (not expired at load time)", c.State)
	}
}

func TestWriteThroughSaveUserFlushes(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{WriteThrough: true})
	u, _ := s.GetOrCreateUser(8, Profile{FirstName: "Sok"})
	s.SaveUser(u)

	raw, err := os.ReadFile(filepath.Join(s.dir, usersFilename))
	if err != nil {
		t.Fatalf("write-through SaveUser left no users file: %v", err)
	}
	var doc usersDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, ok := doc.Users["8"]; !ok {
		t.Fatalf("users document missing id 8: %s", raw)
	}
}

func TestGetOrCreateUserUsesInjectedClock(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, Options{Now: func() time.Time { return fixed }})

	u, _ := s.GetOrCreateUser(2, Profile{FirstName: "Sok"})
	if !u.RegistrationDate.Equal(fixed) {
		t.Fatalf("RegistrationDate = %v, want injected clock %v", u.RegistrationDate, fixed)
	}
	if !u.LastActive.Equal(fixed) {
		t.Fatalf("LastActive = %v, want injected clock %v", u.LastActive, fixed)
	}
	if !u.Interactions.LastInteraction.Equal(fixed) {
		t.Fatalf("LastInteraction = %v, want injected clock %v", u.Interactions.LastInteraction, fixed)
	}
}

// The background flusher encodes the same records the caller mutates; the
// entity lock is what keeps the encoder off a half-updated record. The race
// detector turns any regression here into a failure.
func TestSnapshotSafeDuringEntityMutation(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{FlushInterval: time.Millisecond})
	u, _ := s.GetOrCreateUser(31, Profile{FirstName: "Sok"})
	c := s.Conversation(31)

	s.StartAutoFlush()
	defer s.StopAutoFlush()

	for i := 0; i < 500; i++ {
		unlock := s.LockEntities(31)
		u.RecordInteraction(InteractionMessage, "m")
		c.SetState(convo.StateQuiz)
		c.SetData("wordId", i)
		unlock()
	}

	if err := s.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

func TestLockEntitiesSerializes(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{})
	unlock := s.LockEntities(9)

	acquired := make(chan struct{})
	go func() {
		inner := s.LockEntities(9)
		inner()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatalf("second LockEntities() acquired while the first was held")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatalf("second LockEntities() never acquired after release")
	}
}

func TestAutoFlushWritesPeriodically(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{FlushInterval: 20 * time.Millisecond})
	u, _ := s.GetOrCreateUser(4, Profile{FirstName: "Sok"})
	s.SaveUser(u)

	s.StartAutoFlush()
	defer s.StopAutoFlush()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(filepath.Join(s.dir, usersFilename)); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("auto-flush never wrote the users file")
}

func TestCloseStopsTimerAndFlushes(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{FlushInterval: time.Hour})
	s.StartAutoFlush()
	u, _ := s.GetOrCreateUser(6, Profile{FirstName: "Sok"})
	s.SaveUser(u)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.dir, usersFilename)); err != nil {
		t.Fatalf("Close() did not flush: %v", err)
	}
	// Stopping twice must not panic.
	s.StopAutoFlush()
}
