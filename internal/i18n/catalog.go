package i18n

// Message catalog. English is complete; other languages may omit keys and
// fall back to English.
var catalog = map[Lang]map[string]string{
	EN: {
		"start": "👋 Hi! I track the status of MVCR residence applications.\n\n" +
			"Subscribe with /subscribe OAM-12345/TP-2023 and I will message you " +
			"whenever the status changes.",
		"help": "Commands:\n" +
			"/subscribe &lt;number&gt; — track an application, e.g. /subscribe OAM-12345/TP-2023\n" +
			"/unsubscribe &lt;number&gt; — stop tracking an application\n" +
			"/status — show current statuses of your applications\n" +
			"/force_refresh — re-check your applications now\n" +
			"/lang &lt;EN|RU|CZ|UA&gt; — change language",
		"status_changed": "📋 Application <b>{number}</b> status changed:\n" +
			"<s>{old_status}</s>\n<b>{new_status}</b>\n\nChecked at {timestamp}",
		"current_status_timestamp": "📋 <b>{number}</b>: {status}\nLast checked at {timestamp}",
		"current_status_empty":     "📋 <b>{number}</b>: not checked yet, hold on",
		"subscribed":               "✅ Now tracking <b>{number}</b>. I will notify you when the status changes.",
		"already_subscribed":       "⚠️ You are already tracking <b>{number}</b>.",
		"subscribe_failed":         "🚫 Could not subscribe, please try again later.",
		"unsubscribed":             "✅ Stopped tracking <b>{number}</b>.",
		"no_subscriptions":         "You are not tracking any applications yet. Use /subscribe to start.",
		"invalid_number": "🚫 That does not look like an application number.\n" +
			"Expected something like <b>OAM-12345/TP-2023</b>.",
		"unsubscribe_usage":  "Specify which application to drop, e.g. /unsubscribe OAM-12345/TP-2023.\nYou are tracking:\n{applications}",
		"force_refresh_done": "🔄 Refresh queued for {count} application(s). You will hear from me if anything changed.",
		"lang_set":           "✅ Language switched to {lang}.",
		"lang_usage":         "Usage: /lang EN|RU|CZ|UA",
		"rate_limited":       "⏳ Easy! Try again in a minute.",
		"admin_stats":        "Tracked applications: {count}",
		"unknown_command":    "❓ Unknown command. See /help.",
		"error_generic":      "🚫 Something went wrong, please try again.",
	},
	RU: {
		"start": "👋 Привет! Я отслеживаю статус заявлений МВД Чехии.\n\n" +
			"Подпишитесь командой /subscribe OAM-12345/TP-2023, и я напишу вам, " +
			"когда статус изменится.",
		"status_changed": "📋 Статус заявления <b>{number}</b> изменился:\n" +
			"<s>{old_status}</s>\n<b>{new_status}</b>\n\nПроверено в {timestamp}",
		"current_status_timestamp": "📋 <b>{number}</b>: {status}\nПоследняя проверка в {timestamp}",
		"current_status_empty":     "📋 <b>{number}</b>: ещё не проверялось, подождите",
		"subscribed":               "✅ Слежу за <b>{number}</b>. Сообщу, когда статус изменится.",
		"already_subscribed":       "⚠️ Вы уже отслеживаете <b>{number}</b>.",
		"subscribe_failed":         "🚫 Не удалось подписаться, попробуйте позже.",
		"unsubscribed":             "✅ Больше не слежу за <b>{number}</b>.",
		"no_subscriptions":         "Вы пока ничего не отслеживаете. Начните с /subscribe.",
		"invalid_number": "🚫 Это не похоже на номер заявления.\n" +
			"Ожидается что-то вроде <b>OAM-12345/TP-2023</b>.",
		"lang_set":      "✅ Язык переключён на {lang}.",
		"rate_limited":  "⏳ Не так быстро! Попробуйте через минуту.",
		"error_generic": "🚫 Что-то пошло не так, попробуйте ещё раз.",
	},
	CZ: {
		"status_changed": "📋 Stav žádosti <b>{number}</b> se změnil:\n" +
			"<s>{old_status}</s>\n<b>{new_status}</b>\n\nZkontrolováno v {timestamp}",
		"current_status_timestamp": "📋 <b>{number}</b>: {status}\nNaposledy zkontrolováno v {timestamp}",
		"current_status_empty":     "📋 <b>{number}</b>: zatím nezkontrolováno, vydržte",
		"subscribed":               "✅ Sleduji <b>{number}</b>. Ozvu se, až se stav změní.",
		"already_subscribed":       "⚠️ Žádost <b>{number}</b> už sledujete.",
		"unsubscribed":             "✅ Už nesleduji <b>{number}</b>.",
		"lang_set":                 "✅ Jazyk přepnut na {lang}.",
		"error_generic":            "🚫 Něco se pokazilo, zkuste to znovu.",
	},
	UA: {
		"status_changed": "📋 Статус заяви <b>{number}</b> змінився:\n" +
			"<s>{old_status}</s>\n<b>{new_status}</b>\n\nПеревірено о {timestamp}",
		"current_status_timestamp": "📋 <b>{number}</b>: {status}\nОстання перевірка о {timestamp}",
		"current_status_empty":     "📋 <b>{number}</b>: ще не перевірялося, зачекайте",
		"subscribed":               "✅ Стежу за <b>{number}</b>. Повідомлю, коли статус зміниться.",
		"already_subscribed":       "⚠️ Ви вже стежите за <b>{number}</b>.",
		"unsubscribed":             "✅ Більше не стежу за <b>{number}</b>.",
		"lang_set":                 "✅ Мову змінено на {lang}.",
		"error_generic":            "🚫 Щось пішло не так, спробуйте ще раз.",
	},
}
