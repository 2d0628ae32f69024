package services

import "strings"

// Complaint classification is keyword-driven: ordered category rules, first
// match wins, with a catch-all. Priorities work the same way.

type complaintCategoryRule struct {
	category string
	markers  []string
}

var complaintCategories = []complaintCategoryRule{
	{"Мошенничество", []string{"обман", "мошенничество", "воровство", "кража", "подделка"}},
	{"Нарушение закона", []string{"незаконно", "нарушение закона", "противозаконно"}},
	{"Нарушение прав", []string{"дискриминация", "ущемляют права", "нарушают права"}},
	{"Качество услуг", []string{"некачественно", "плохая работа", "неэффективно"}},
	{"Отсутствие реакции", []string{"не отвечают", "игнорируют", "не реагируют"}},
	{"Отказ в рассмотрении", []string{"отклонили", "отказ", "не рассмотрели"}},
	{"Затягивание сроков", []string{"затягивают", "медленно", "долго"}},
}

var highPriorityMarkers = []string{
	"срочно", "немедленно", "критично", "критическая", "опасно", "опасная",
	"мошенничество", "воровство", "кража", "обман", "незаконно", "противозаконно",
	"дискриминация", "ущемляют права", "нарушают права", "неприемлемо",
}

var mediumPriorityMarkers = []string{"важно", "серьезно", "серьезная"}

func complaintCategory(message string) string {
	lower := strings.ToLower(message)
	for _, rule := range complaintCategories {
		for _, marker := range rule.markers {
			if strings.Contains(lower, marker) {
				return rule.category
			}
		}
	}
	return "Общая"
}

func complaintPriority(message string) string {
	lower := strings.ToLower(message)
	for _, marker := range highPriorityMarkers {
		if strings.Contains(lower, marker) {
			return "Высокий"
		}
	}
	for _, marker := range mediumPriorityMarkers {
		if strings.Contains(lower, marker) {
			return "Средний"
		}
	}
	return "Низкий"
}
