package domain

// Display labels for the two supported interface languages. The analyzer
// answers in kk/ru; these tables only matter for rendering, never for the
// wire schema.

var PriorityLabels = map[Language]map[Priority]string{
	LangKK: {
		PriorityLow:      "Төмен",
		PriorityMedium:   "Орташа",
		PriorityHigh:     "Жоғары",
		PriorityCritical: "Критикалық",
	},
	LangRU: {
		PriorityLow:      "Низкий",
		PriorityMedium:   "Средний",
		PriorityHigh:     "Высокий",
		PriorityCritical: "Критический",
	},
}

var AspectLabels = map[Language]map[string]string{
	LangKK: {
		"punctuality": "Уақыттылығы",
		"crowding":    "Толып кетуі",
		"safety":      "Қауіпсіздік",
		"staff":       "Қызметкерлер",
		"condition":   "Көліктің күйі",
		"payment":     "Төлем",
		"other":       "Басқа",
	},
	LangRU: {
		"punctuality": "Пунктуальность",
		"crowding":    "Переполненность",
		"safety":      "Безопасность",
		"staff":       "Персонал",
		"condition":   "Состояние транспорта",
		"payment":     "Оплата",
		"other":       "Другое",
	},
}

// PriorityLabel returns the localized label, falling back to the raw value
// for languages or priorities outside the tables.
func PriorityLabel(lang Language, p Priority) string {
	if label, ok := PriorityLabels[lang][p]; ok {
		return label
	}
	return string(p)
}

// AspectLabel falls back to the opaque aspect string itself, so labels
// outside the fixed vocabulary render unchanged.
func AspectLabel(lang Language, aspect string) string {
	if label, ok := AspectLabels[lang][aspect]; ok {
		return label
	}
	return aspect
}

// PickQuestion resolves the clarifying question in the user's active
// language, falling back to the other language when the preferred one is
// absent.
func PickQuestion(r AnalysisResult, lang Language) string {
	if lang == LangRU {
		if r.ClarifyingQuestionRU != "" {
			return r.ClarifyingQuestionRU
		}
		return r.ClarifyingQuestionKK
	}
	if r.ClarifyingQuestionKK != "" {
		return r.ClarifyingQuestionKK
	}
	return r.ClarifyingQuestionRU
}
