// Package convo tracks the per-user conversation: a small state machine plus
// scratch data that survives across the turns of a multi-step exchange.
package convo

import "time"

// State labels the point a user has reached in a multi-turn exchange.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingName     State = "awaiting_name"
	StateAwaitingFeedback State = "awaiting_feedback"
	StateQuiz             State = "quiz"
	StateNewsCategory     State = "news_category"
	StateAwaitingCategory State = "awaiting_category"
)

// ExpiryThreshold is how long a conversation may sit untouched before the
// next access resets it.
const ExpiryThreshold = 30 * time.Minute

// Conversation is keyed 1:1 by the Telegram user id. Mutations refresh both
// timestamps together, so a reader never sees a state change without the
// matching activity bump.
type Conversation struct {
	UserID           int64          `json:"userId"`
	State            State          `json:"state"`
	Data             map[string]any `json:"data"`
	LastUpdated      time.Time      `json:"-"`
	LastActivityTime time.Time      `json:"-"`

	// Now is swappable for tests; nil means time.Now.
	Now func() time.Time `json:"-"`
}

func New(userID int64) *Conversation {
	c := &Conversation{
		UserID: userID,
		State:  StateIdle,
		Data:   map[string]any{},
		Now:    time.Now,
	}
	now := c.now()
	c.LastUpdated = now
	c.LastActivityTime = now
	return c
}

func (c *Conversation) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Conversation) touch() {
	now := c.now()
	c.LastUpdated = now
	c.LastActivityTime = now
}

func (c *Conversation) SetState(s State) *Conversation {
	c.State = s
	c.touch()
	return c
}

func (c *Conversation) SetData(key string, value any) *Conversation {
	if c.Data == nil {
		c.Data = map[string]any{}
	}
	c.Data[key] = value
	c.touch()
	return c
}

func (c *Conversation) GetData(key string) (any, bool) {
	v, ok := c.Data[key]
	return v, ok
}

// Reset returns the conversation to idle with empty scratch data. The
// identity is kept; callers holding a reference keep the same object.
func (c *Conversation) Reset() *Conversation {
	c.State = StateIdle
	c.Data = map[string]any{}
	c.touch()
	return c
}

// IsExpired is a pure check of now minus the last update against
// ExpiryThreshold. It does not mutate.
func (c *Conversation) IsExpired() bool {
	last := c.LastUpdated
	if last.IsZero() {
		last = c.LastActivityTime
	}
	if last.IsZero() {
		return false
	}
	return c.now().Sub(last) > ExpiryThreshold
}
