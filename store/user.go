package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// historyCap bounds the per-user interaction and learning histories.
	// Oldest entries are evicted first.
	historyCap = 50

	defaultLanguage = "km"
)

// Interaction kinds recorded against a user.
const (
	InteractionCommand  = "command"
	InteractionMessage  = "message"
	InteractionFeedback = "feedback"
)

// Profile carries the identity fields Telegram sends with every update.
type Profile struct {
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
}

type Interaction struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

type InteractionStats struct {
	CommandCount    int           `json:"commandCount"`
	MessageCount    int           `json:"messageCount"`
	LastCommand     string        `json:"lastCommand,omitempty"`
	LastInteraction time.Time     `json:"lastInteraction"`
	History         []Interaction `json:"history,omitempty"`
}

type QuizStats struct {
	Started   int `json:"started"`
	Completed int `json:"completed"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Total     int `json:"total"`
}

type Statistics struct {
	Quizzes QuizStats `json:"quizzes"`
}

type LearningEntry struct {
	WordID    int       `json:"wordId"`
	Khmer     string    `json:"khmer"`
	Timestamp time.Time `json:"timestamp"`
}

// User is the durable per-person record. The Telegram id is immutable after
// creation; profile fields are refreshed from upstream on every event while
// the accumulators survive.
type User struct {
	ID               int64           `json:"id"`
	FirstName        string          `json:"firstName"`
	LastName         string          `json:"lastName"`
	Username         string          `json:"username"`
	LanguageCode     string          `json:"languageCode"`
	RegistrationDate time.Time       `json:"registrationDate"`
	LastActive       time.Time       `json:"lastActive"`
	Preferences      map[string]any  `json:"preferences"`
	Interactions     InteractionStats `json:"interactions"`
	LearningHistory  []LearningEntry `json:"learningHistory,omitempty"`
	Statistics       Statistics      `json:"statistics"`

	now func() time.Time
}

func NewUser(id int64, p Profile) *User {
	return newUser(id, p, time.Now)
}

// newUser constructs the record with the given clock, so creation
// timestamps come from the same source as every later update.
func newUser(id int64, p Profile, now func() time.Time) *User {
	if now == nil {
		now = time.Now
	}
	lang := strings.TrimSpace(p.LanguageCode)
	if lang == "" {
		lang = defaultLanguage
	}
	u := &User{
		ID:           id,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Username:     p.Username,
		LanguageCode: lang,
		Preferences:  map[string]any{},
		now:          now,
	}
	ts := u.clock()
	u.RegistrationDate = ts
	u.LastActive = ts
	u.Interactions.LastInteraction = ts
	return u
}

func (u *User) clock() time.Time {
	if u.now != nil {
		return u.now()
	}
	return time.Now()
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// refreshProfile overwrites the upstream-owned fields with the freshest
// hints. The language code keeps its previous value when the hint is empty.
func (u *User) refreshProfile(p Profile) {
	u.FirstName = p.FirstName
	u.LastName = p.LastName
	u.Username = p.Username
	if lang := strings.TrimSpace(p.LanguageCode); lang != "" {
		u.LanguageCode = lang
	}
}

func (u *User) UpdateActivity() {
	now := u.clock()
	u.LastActive = now
	u.Interactions.LastInteraction = now
}

// RecordInteraction appends to the bounded history, bumps the matching
// counter and refreshes last-active.
func (u *User) RecordInteraction(kind, details string) {
	entry := Interaction{
		ID:        uuid.NewString(),
		Type:      kind,
		Timestamp: u.clock(),
		Details:   details,
	}
	u.Interactions.History = append(u.Interactions.History, entry)
	if n := len(u.Interactions.History); n > historyCap {
		u.Interactions.History = u.Interactions.History[n-historyCap:]
	}

	switch kind {
	case InteractionCommand:
		u.Interactions.CommandCount++
		u.Interactions.LastCommand = details
	default:
		u.Interactions.MessageCount++
	}
	u.UpdateActivity()
}

func (u *User) SetPreference(key string, value any) {
	if u.Preferences == nil {
		u.Preferences = map[string]any{}
	}
	u.Preferences[key] = value
}

// RecordLearnedWord appends to the learning history, evicting the oldest
// entry past the cap.
func (u *User) RecordLearnedWord(wordID int, khmerWord string) {
	u.LearningHistory = append(u.LearningHistory, LearningEntry{
		WordID:    wordID,
		Khmer:     khmerWord,
		Timestamp: u.clock(),
	})
	if n := len(u.LearningHistory); n > historyCap {
		u.LearningHistory = u.LearningHistory[n-historyCap:]
	}
}
