package bot

import (
	"fmt"
	"strings"

	"github.com/Sokphirun99/Telegrambot-khmer/convo"
	"github.com/Sokphirun99/Telegrambot-khmer/internal/khmer"
	"github.com/Sokphirun99/Telegrambot-khmer/store"
)

// commandRegistry maps command names to handlers. Adding a command is one
// entry here; unknown names never reach a handler.
func commandRegistry() map[string]commandFunc {
	return map[string]commandFunc{
		"start":           cmdStart,
		"help":            cmdHelp,
		"info":            cmdInfo,
		"register":        cmdRegister,
		"feedback":        cmdFeedback,
		"keyboard":        cmdKeyboard,
		"hide":            cmdHide,
		"learn":           cmdLearn,
		"quiz":            cmdQuiz,
		"dailyword":       cmdDailyWord,
		"categories":      cmdCategories,
		"news":            cmdNews,
		"news_categories": cmdNewsCategories,
		"holiday":         cmdHoliday,
	}
}

func cmdStart(s *Session, ev Event, u *store.User, c *convo.Conversation) Reply {
	greeting := khmer.Greeting(s.now().Hour())
	text := fmt.Sprintf("%s\n\nសួស្តី %s! អរគុណសម្រាប់ការប្រើប្រាស់ Bot របស់យើង។\n\nសូមប្រើប្រាស់ពាក្យបញ្ជា /help ដើម្បីមើលជំនួយ។",
		greeting, u.FullName())
	return Reply{Text: text, Keyboard: keyboardRows(startMenuLabels())}
}

func cmdHelp(s *Session, ev Event, u *store.User, c *convo.Conversation) Reply {
	return Reply{Text: textHelp}
}

func cmdInfo(s *Session, ev Event, u *store.User, c *convo.Conversation) Reply {
	return Reply{Text: textInfo}
}

func cmdRegister(s *Session, ev Event, u *store.User, c *convo.Conversation) Reply {
	c.SetState(convo.StateAwaitingName)
	return Reply{Text: textAskName}
}

func cmdFeedback(s *Session, ev Event, u *store.User, c *convo.Conversation) Reply {
	c.SetState(convo.StateAwaitingFeedback)
	return Reply{Text: textAskFeedback}
}

func cmdKeyboard(s *Session, ev Event, u *store.User, c *convo.Conversation) Reply {
	return Reply{Text: textChooseOption, Keyboard: keyboardRows(mainMenuLabels())}
}

func cmdHide(s *Session, ev Event, u *store.User, c *convo.Conversation) Reply {
	return Reply{Text: textKeyboardGone, RemoveKeyboard: true}
}

func cmdLearn(s *Session, ev Event, u *store.User, c *convo.Conversation) Reply {
	w := s.catalog.RandomWord()
	u.RecordLearnedWord(w.ID, w.Khmer)
	return Reply{Text: formatWordLesson(w.Khmer, w.Latin, w.English)}
}

func cmdQuiz(s *Session, ev Event, u *store.User, c *convo.Conversation) Reply {
	w := s.catalog.RandomWord()
	c.SetState(convo.StateQuiz)
	c.SetData("wordId", w.ID)
	u.Statistics.Quizzes.Started++
	text := fmt.Sprintf("📝 តេស្តភាសា\n\nតើពាក្យ «%s» (%s) មានន័យថាម៉េចជាភាសាអង់គ្លេស?", w.Khmer, w.Latin)
	return Reply{Text: text}
}

func cmdDailyWord(s *Session, ev Event, u *store.User, c *convo.Conversation) Reply {
	w := s.catalog.DailyWord(s.now())
	u.RecordLearnedWord(w.ID, w.Khmer)
	return Reply{Text: "📅 ពាក្យប្រចាំថ្ងៃ\n\n" + formatWordLesson(w.Khmer, w.Latin, w.English)}
}

func cmdCategories(s *Session, ev Event, u *store.User, c *convo.Conversation) Reply {
	cats := s.catalog.WordCategories()
	c.SetState(convo.StateAwaitingCategory)
	c.SetData("categories", cats)
	return Reply{Text: textChooseWordCat, Keyboard: keyboardRows(cats)}
}

func cmdNews(s *Session, ev Event, u *store.User, c *convo.Conversation) Reply {
	items := s.catalog.LatestNews(3, "")
	return Reply{Text: formatNews("📰 ព័ត៌មានថ្មីៗ:", items)}
}

func cmdNewsCategories(s *Session, ev Event, u *store.User, c *convo.Conversation) Reply {
	cats := s.catalog.NewsCategories()
	c.SetState(convo.StateNewsCategory)
	c.SetData("categories", cats)
	return Reply{Text: textChooseNewsCat, Keyboard: keyboardRows(cats)}
}

func cmdHoliday(s *Session, ev Event, u *store.User, c *convo.Conversation) Reply {
	var b strings.Builder
	b.WriteString("📅 បុណ្យជាតិខ្មែរឆាប់ៗខាងមុខ:\n\n")
	for _, h := range s.catalog.UpcomingHolidays() {
		fmt.Fprintf(&b, "%s (%s)\n📆 កាលបរិច្ឆេទ៖ %s\nℹ️ %s\n\n", h.Name, h.NameEn, h.ApproximateDate, h.Description)
	}
	return Reply{Text: strings.TrimSpace(b.String())}
}

func formatWordLesson(khmerWord, latin, english string) string {
	return fmt.Sprintf("📝 រៀនពាក្យថ្មី\n\nពាក្យខ្មែរ: %s\nការបញ្ចេញសំឡេង: %s\nអត្ថន័យជាអង់គ្លេស: %s", khmerWord, latin, english)
}
