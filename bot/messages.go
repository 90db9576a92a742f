package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sokphirun99/Telegrambot-khmer/catalog"
	"github.com/Sokphirun99/Telegrambot-khmer/convo"
	"github.com/Sokphirun99/Telegrambot-khmer/internal/khmer"
	"github.com/Sokphirun99/Telegrambot-khmer/store"
)

// handleMessage routes free text on the conversation's current state.
func (s *Session) handleMessage(ev Event, u *store.User, c *convo.Conversation) Reply {
	switch c.State {
	case convo.StateAwaitingName:
		return s.handleAwaitingName(ev, u, c)
	case convo.StateAwaitingFeedback:
		return s.handleAwaitingFeedback(ev, u, c)
	case convo.StateQuiz:
		return s.handleQuizAnswer(ev, u, c)
	case convo.StateNewsCategory:
		return s.handleNewsCategory(ev, c)
	case convo.StateAwaitingCategory:
		return s.handleWordCategory(ev, c)
	default:
		return s.handleIdleMessage(ev, u)
	}
}

func (s *Session) handleAwaitingName(ev Event, u *store.User, c *convo.Conversation) Reply {
	name := strings.TrimSpace(ev.Text)
	c.SetData("name", name)
	c.SetState(convo.StateIdle)

	// Telegram did not supply a first name; the typed one fills the gap.
	if u.FirstName == "" {
		u.FirstName = name
	}
	return Reply{Text: fmt.Sprintf("សូមអរគុណ %s! អ្នកបានចុះឈ្មោះជាមួយ Bot របស់យើងដោយជោគជ័យ។", name)}
}

func (s *Session) handleAwaitingFeedback(ev Event, u *store.User, c *convo.Conversation) Reply {
	c.SetData("feedback", map[string]any{
		"text":      ev.Text,
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
	c.SetState(convo.StateIdle)
	u.RecordInteraction(store.InteractionFeedback, khmer.Truncate(ev.Text, 100))
	return Reply{Text: textThanksFeedback}
}

func (s *Session) handleQuizAnswer(ev Event, u *store.User, c *convo.Conversation) Reply {
	wordID, ok := intData(c, "wordId")
	if !ok {
		s.logger.Warn("quiz_word_missing", "user_id", u.ID)
		c.Reset()
		return Reply{Text: textApology}
	}

	correct, err := s.catalog.CheckAnswer(ev.Text, wordID)
	if err != nil {
		s.logger.Warn("quiz_word_unknown", "user_id", u.ID, "word_id", wordID)
		c.Reset()
		return Reply{Text: textApology}
	}
	w, _ := s.catalog.WordByID(wordID)

	u.Statistics.Quizzes.Completed++
	u.Statistics.Quizzes.Total++
	var text string
	if correct {
		u.Statistics.Quizzes.Correct++
		text = fmt.Sprintf("🎉 ត្រូវហើយ! «%s» មានន័យថា \"%s\"", w.Khmer, w.English)
	} else {
		u.Statistics.Quizzes.Incorrect++
		text = fmt.Sprintf("❌ មិនត្រូវទេ។ «%s» មានន័យថា \"%s\"", w.Khmer, w.English)
	}

	attempts, _ := c.GetData("quizAttempts")
	list, _ := attempts.([]any)
	list = append(list, map[string]any{
		"wordId":     wordID,
		"userAnswer": ev.Text,
		"correct":    correct,
		"timestamp":  s.now().UTC().Format(time.RFC3339),
	})
	c.SetData("quizAttempts", list)
	c.SetState(convo.StateIdle)

	return Reply{Text: text}
}

func (s *Session) handleNewsCategory(ev Event, c *convo.Conversation) Reply {
	category := strings.ToLower(strings.TrimSpace(ev.Text))
	c.SetState(convo.StateIdle)

	items := s.catalog.LatestNews(3, category)
	if len(items) == 0 {
		return Reply{Text: fmt.Sprintf("រកមិនឃើញព័ត៌មានក្នុងប្រភេទ \"%s\" ទេ។", category)}
	}
	return Reply{Text: formatNews(fmt.Sprintf("📰 ព័ត៌មានក្នុងប្រភេទ \"%s\":", category), items)}
}

func (s *Session) handleWordCategory(ev Event, c *convo.Conversation) Reply {
	category := strings.ToLower(strings.TrimSpace(ev.Text))
	c.SetState(convo.StateIdle)

	words := s.catalog.WordsByCategory(category)
	if len(words) == 0 {
		return Reply{Text: fmt.Sprintf("រកមិនឃើញប្រភេទ \"%s\" ទេ។ សូមជ្រើសរើសប្រភេទមួយផ្សេងទៀត។", category)}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📚 ពាក្យក្នុងប្រភេទ \"%s\":\n\n", category)
	for _, w := range words {
		fmt.Fprintf(&b, "• %s (%s) - %s\n", w.Khmer, w.Latin, w.English)
	}
	return Reply{Text: strings.TrimSpace(b.String())}
}

// handleIdleMessage inspects free text in the default state: fixed menu
// keywords first, then a Khmer echo, otherwise the menu prompt.
func (s *Session) handleIdleMessage(ev Event, u *store.User) Reply {
	switch ev.Text {
	case menuLearn:
		w := s.catalog.RandomWord()
		u.RecordLearnedWord(w.ID, w.Khmer)
		return Reply{Text: formatWordLesson(w.Khmer, w.Latin, w.English)}
	case menuNews:
		return Reply{Text: formatNews("📰 ព័ត៌មានថ្មីៗ:", s.catalog.LatestNews(3, ""))}
	case menuHoliday:
		var b strings.Builder
		b.WriteString("📅 បុណ្យជាតិខ្មែរឆាប់ៗខាងមុខ:\n\n")
		for _, h := range s.catalog.UpcomingHolidays() {
			fmt.Fprintf(&b, "%s (%s)\n📆 %s\n\n", h.Name, h.NameEn, h.ApproximateDate)
		}
		return Reply{Text: strings.TrimSpace(b.String())}
	case menuHelp:
		return Reply{Text: textMenuHelp}
	}

	if khmer.Contains(ev.Text) {
		return Reply{Text: textReceivedMsg + ev.Text}
	}
	return Reply{Text: textChooseOption, Keyboard: keyboardRows(mainMenuLabels())}
}

func formatNews(header string, items []catalog.NewsItem) string {
	var b strings.Builder
	b.WriteString(header + "\n\n")
	for _, n := range items {
		fmt.Fprintf(&b, "%s\n📝 %s\n\n", n.Title, n.Summary)
	}
	return strings.TrimSpace(b.String())
}

// intData reads a numeric scratch value. JSON round-trips turn ints into
// float64, so both shapes are accepted.
func intData(c *convo.Conversation, key string) (int, bool) {
	v, ok := c.GetData(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
