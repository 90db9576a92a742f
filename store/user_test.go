package store

import (
	"fmt"
	"testing"
	"time"
)

func TestNewUserDefaults(t *testing.T) {
	t.Parallel()

	u := NewUser(12, Profile{FirstName: "Sok", LastName: "Chan"})
	if u.ID != 12 {
		t.Fatalf("NewUser() id = %d, want 12", u.ID)
	}
	if u.LanguageCode != "km" {
		t.Fatalf("NewUser() language = %q, want km default", u.LanguageCode)
	}
	if u.RegistrationDate.IsZero() || u.LastActive.IsZero() {
		t.Fatalf("NewUser() timestamps not set")
	}
	if u.Interactions.CommandCount != 0 || u.Interactions.MessageCount != 0 {
		t.Fatalf("NewUser() counters not zeroed: %+v", u.Interactions)
	}
}

func TestFullName(t *testing.T) {
	t.Parallel()

	if got := NewUser(1, Profile{FirstName: "Sok"}).FullName(); got != "Sok" {
		t.Fatalf("FullName() = %q, want Sok", got)
	}
	if got := NewUser(1, Profile{FirstName: "Sok", LastName: "Chan"}).FullName(); got != "Sok Chan" {
		t.Fatalf("FullName() = %q, want Sok Chan", got)
	}
}

func TestRecordInteractionCounters(t *testing.T) {
	t.Parallel()

	u := NewUser(1, Profile{FirstName: "Sok"})
	before := u.LastActive

	u.RecordInteraction(InteractionCommand, "/help")
	u.RecordInteraction(InteractionMessage, "")
	u.RecordInteraction(InteractionMessage, "")

	if u.Interactions.CommandCount != 1 {
		t.Fatalf("CommandCount = %d, want 1", u.Interactions.CommandCount)
	}
	if u.Interactions.MessageCount != 2 {
		t.Fatalf("MessageCount = %d, want 2", u.Interactions.MessageCount)
	}
	if u.Interactions.LastCommand != "/help" {
		t.Fatalf("LastCommand = %q, want /help", u.Interactions.LastCommand)
	}
	if u.LastActive.Before(before) {
		t.Fatalf("LastActive went backwards")
	}
	if len(u.Interactions.History) != 3 {
		t.Fatalf("history length = %d, want 3", len(u.Interactions.History))
	}
	for _, entry := range u.Interactions.History {
		if entry.ID == "" {
			t.Fatalf("history entry missing id: %+v", entry)
		}
	}
}

func TestInteractionHistoryBounded(t *testing.T) {
	t.Parallel()

	u := NewUser(1, Profile{FirstName: "Sok"})
	tick := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	u.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	for i := 0; i < 120; i++ {
		u.RecordInteraction(InteractionMessage, fmt.Sprintf("m%d", i))
	}

	if len(u.Interactions.History) != historyCap {
		t.Fatalf("history length = %d, want %d", len(u.Interactions.History), historyCap)
	}
	// Oldest evicted first: the window holds the most recent 50 in order.
	if got := u.Interactions.History[0].Details; got != "m70" {
		t.Fatalf("history head = %q, want m70", got)
	}
	if got := u.Interactions.History[historyCap-1].Details; got != "m119" {
		t.Fatalf("history tail = %q, want m119", got)
	}
	for i := 1; i < len(u.Interactions.History); i++ {
		if u.Interactions.History[i].Timestamp.Before(u.Interactions.History[i-1].Timestamp) {
			t.Fatalf("history out of arrival order at %d", i)
		}
	}
}

func TestRecordLearnedWordBounded(t *testing.T) {
	t.Parallel()

	u := NewUser(1, Profile{FirstName: "Sok"})
	for i := 0; i < 60; i++ {
		u.RecordLearnedWord(i, "ពាក្យ")
	}
	if len(u.LearningHistory) != historyCap {
		t.Fatalf("learning history length = %d, want %d", len(u.LearningHistory), historyCap)
	}
	if u.LearningHistory[0].WordID != 10 {
		t.Fatalf("learning history head = %d, want 10", u.LearningHistory[0].WordID)
	}
}

func TestSetPreference(t *testing.T) {
	t.Parallel()

	u := NewUser(1, Profile{FirstName: "Sok"})
	u.Preferences = nil
	u.SetPreference("notify", true)
	if u.Preferences["notify"] != true {
		t.Fatalf("SetPreference() = %v", u.Preferences)
	}
}
