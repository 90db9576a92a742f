package bot

// Reply texts, carried over from the original Khmer bot. User-visible
// failures always use textApology; internal detail never reaches the chat.
const (
	textApology        = "សូមអភ័យទោស មានបញ្ហាបច្ចេកទេសកើតឡើង។"
	textUnknownCommand = "សូមទោស ពាក្យបញ្ជានេះមិនត្រូវបានស្គាល់ទេ។ សូមប្រើ /help ដើម្បីមើលពាក្យបញ្ជាដែលអាចប្រើបាន។"

	textAskName     = "សូមវាយឈ្មោះពេញរបស់អ្នក:"
	textAskFeedback = "សូមវាយបញ្ចូលមតិកែលម្អរបស់អ្នកសម្រាប់ Bot របស់យើង:"

	textThanksFeedback = "សូមអរគុណសម្រាប់មតិរបស់អ្នក! យើងនឹងពិចារណាលើវា។"

	textInfo = "Bot នេះត្រូវបានបង្កើតឡើងដើម្បីជួយសម្រួលដល់ការរៀននិងប្រើប្រាស់ភាសាខ្មែរលើ Telegram។"

	textHelp = "ពាក្យបញ្ជាដែលអាចប្រើបាន:\n\n" +
		"/start - ចាប់ផ្តើមប្រើប្រាស់ Bot\n" +
		"/help - បង្ហាញជំនួយ\n" +
		"/info - ព័ត៌មានអំពី Bot\n" +
		"/register - ចុះឈ្មោះជាមួយ Bot\n" +
		"/feedback - ផ្ញើមតិកែលម្អ\n" +
		"/learn - រៀនពាក្យថ្មីមួយ\n" +
		"/quiz - ធ្វើតេស្តភាសា\n" +
		"/dailyword - ពាក្យប្រចាំថ្ងៃ\n" +
		"/categories - ប្រភេទពាក្យ\n" +
		"/news - ព័ត៌មានថ្មីៗ\n" +
		"/news_categories - ប្រភេទព័ត៌មាន\n" +
		"/holiday - បុណ្យជាតិខ្មែរ\n" +
		"/keyboard - បង្ហាញក្តារចុច\n" +
		"/hide - លាក់ក្តារចុច"

	textMenuHelp = "*បញ្ជីពាក្យបញ្ជាទាំងអស់៖*\n\n" +
		"📱 មូលដ្ឋាន: /start /help /info /register\n" +
		"📚 រៀនភាសា: /learn /quiz /dailyword /categories\n" +
		"📰 ព័ត៌មាននិងវប្បធម៌: /news /news_categories /holiday\n" +
		"💬 ផ្សេងៗ: /feedback"

	textChooseOption  = "សូមជ្រើសរើសជម្រើសមួយ:"
	textKeyboardGone  = "បានលាក់ក្តារចុច។"
	textReceivedMsg   = "បានទទួលសារ: "
	textChooseWordCat = "សូមជ្រើសរើសប្រភេទពាក្យមួយ:"
	textChooseNewsCat = "សូមជ្រើសរើសប្រភេទព័ត៌មានមួយ:"
)

// Menu button labels recognized in the idle state.
const (
	menuLearn   = "📚 រៀនភាសា"
	menuNews    = "📰 ព័ត៌មាន"
	menuHoliday = "📅 បុណ្យជាតិ"
	menuHelp    = "❓ ជំនួយ"
)

func mainMenuLabels() []string {
	return []string{menuLearn, menuNews, menuHoliday, menuHelp}
}

func startMenuLabels() []string {
	return []string{"ជំនួយ", "ព័ត៌មាន", "ការកំណត់", "ទំនាក់ទំនង"}
}
