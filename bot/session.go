package bot

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Sokphirun99/Telegrambot-khmer/catalog"
	"github.com/Sokphirun99/Telegrambot-khmer/convo"
	"github.com/Sokphirun99/Telegrambot-khmer/store"
)

// Session orchestrates one user turn: resolve the user and conversation,
// record the interaction, dispatch to a handler and persist what changed.
// Turns for one user are serialized on the store's entity lock, so a
// transport that delivers concurrently (webhook) still never interleaves
// two mutations of the same records.
type Session struct {
	store    *store.Store
	catalog  *catalog.Catalog
	logger   *slog.Logger
	commands map[string]commandFunc
	now      func() time.Time
}

type commandFunc func(s *Session, ev Event, u *store.User, c *convo.Conversation) Reply

func NewSession(st *store.Store, cat *catalog.Catalog, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		store:   st,
		catalog: cat,
		logger:  logger,
		now:     time.Now,
	}
	s.commands = commandRegistry()
	return s
}

// HandleEvent runs the full pipeline for one inbound event. The boolean is
// false when no reply should be sent (nothing to address).
func (s *Session) HandleEvent(ev Event) (Reply, bool) {
	if ev.ChatID == 0 || ev.UserID == 0 {
		s.logger.Warn("event_missing_identity", "chat_id", ev.ChatID, "user_id", ev.UserID)
		return Reply{}, false
	}

	correlationID := uuid.NewString()

	// Held for the whole mutation phase; released before the saves so a
	// write-through flush can take it for encoding.
	unlock := s.store.LockEntities(ev.UserID)

	u, created := s.store.GetOrCreateUser(ev.UserID, ev.Profile)
	if created {
		s.logger.Info("new_user", "user_id", u.ID, "name", u.FullName())
	}

	c := s.store.Conversation(ev.UserID)

	if ev.IsCommand {
		details := "/" + ev.Command
		if ev.Args != "" {
			details += " " + ev.Args
		}
		u.RecordInteraction(store.InteractionCommand, details)
	} else {
		u.RecordInteraction(store.InteractionMessage, "")
	}

	reply := s.dispatch(ev, u, c, correlationID)
	unlock()

	s.store.SaveUser(u)
	s.store.SaveConversation(c)

	return reply, true
}

// dispatch routes to the command registry or the state machine. A panicking
// handler is logged with its context and turned into the generic apology;
// the conversation goes back to idle so the user is never stuck.
func (s *Session) dispatch(ev Event, u *store.User, c *convo.Conversation, correlationID string) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler_panic",
				"correlation_id", correlationID,
				"user_id", ev.UserID,
				"command", ev.Command,
				"state", string(c.State),
				"panic", fmt.Sprint(r),
			)
			c.Reset()
			reply = Reply{Text: textApology}
		}
	}()

	if ev.IsCommand {
		s.logger.Info("command_received",
			"correlation_id", correlationID,
			"user_id", ev.UserID,
			"command", ev.Command,
		)
		handler, ok := s.commands[ev.Command]
		if !ok {
			return Reply{Text: textUnknownCommand}
		}
		return handler(s, ev, u, c)
	}

	s.logger.Info("message_received",
		"correlation_id", correlationID,
		"user_id", ev.UserID,
		"state", string(c.State),
		"text_len", len(ev.Text),
	)
	return s.handleMessage(ev, u, c)
}
