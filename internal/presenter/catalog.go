package presenter

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"
)

// Message keys double as the English text.
const (
	msgSearchQuota  = "Search requests quota: %d of %d"
	msgGraphQLQuota = "GraphQL requests quota: %d of %d"
	msgCoreQuota    = "All other requests quota: %d of %d"
	msgResetsAt     = "Resets at %s"

	msgLoading      = "Loading %d repositories created within the last %d days"
	msgLoadingStars = "that collected the most stars..."

	msgOwner      = "Owner:"
	msgRepository = "Repository:"
	msgStars      = "Stars:"
	msgIssues     = "Open issues:"
	msgIssueLinks = "Issue links:"
	msgNoResults  = "No repositories found."

	msgSummary      = "Repositories: %d, open issues in total: %d"
	msgSummaryStats = "Stars: mean %.1f, median %.1f; open issues per repository: %.1f"

	msgQuotaExceeded = "The current API request quota is exceeded."
	msgConnection    = "Network connection error"
	msgTimeout       = "Timed out waiting for the server to respond"
	msgRedirects     = "Too many redirects"
	msgMalformed     = "The server returned a malformed response"
	msgStatus        = "The server returned an unsuccessful status: %s %d"
	msgGeneric       = "Error: %v"
	msgConfig        = "Invalid configuration: %v"

	msgCacheEmpty   = "Cache is empty"
	msgCacheCleared = "Cleared %d cached responses from %s"
)

var supported = []language.Tag{language.English, language.Russian}

var russian = map[string]string{
	msgSearchQuota:  "Ограничение поисковых запросов: %d из %d",
	msgGraphQLQuota: "Ограничение graphql запросов: %d из %d",
	msgCoreQuota:    "Лимит всех остальных запросов: %d из %d",
	msgResetsAt:     "Отмена ограничений на них в %s",

	msgLoading:      "Загружаем список %d репозиториев, созданных за последние %d дней",
	msgLoadingStars: "и набравших максимальное количество звёзд...",

	msgOwner:      "Владелец репо:",
	msgRepository: "Название репо:",
	msgStars:      "Звёзд:",
	msgIssues:     "Количество issue:",
	msgIssueLinks: "Ссылки на issue:",
	msgNoResults:  "Репозитории не найдены.",

	msgSummary:      "Репозиториев: %d, открытых issue всего: %d",
	msgSummaryStats: "Звёзд: в среднем %.1f, медиана %.1f; issue на репозиторий: %.1f",

	msgQuotaExceeded: "Превышен текущий лимит запросов к API.",
	msgConnection:    "Ошибка сетевого соединения",
	msgTimeout:       "Вышло время ожидания ответа от сервера",
	msgRedirects:     "Слишком много редиректов",
	msgMalformed:     "Сервер вернул некорректный ответ",
	msgStatus:        "Сервер вернул неудачный код статуса ответа: %s %d",
	msgGeneric:       "Ошибка: %v",
	msgConfig:        "Некорректная конфигурация: %v",

	msgCacheEmpty:   "Кеш пуст",
	msgCacheCleared: "Удалено %d сохранённых ответов из %s",
}

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, msg := range russian {
		// SetString only fails on malformed messages, which these are not.
		_ = b.SetString(language.Russian, key, msg)
	}
	return b
}

// matchLanguage picks the closest supported language for a BCP 47 tag;
// unknown or empty tags fall back to English.
func matchLanguage(lang string) language.Tag {
	if lang == "" {
		return language.English
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	_, index, _ := language.NewMatcher(supported).Match(tag)
	return supported[index]
}
