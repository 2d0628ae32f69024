package catalog

import (
	"fmt"
	"strings"

	"github.com/opora-ai/docforge/pkg/models"
)

// FieldDefinition describes one canonical document field: its key, the
// human-readable label used in questions and reports, the input kind, and
// the placeholder aliases that normalize to it during discovery.
type FieldDefinition struct {
	Key     string
	Label   string
	Kind    models.FieldKind
	Aliases []string
}

// fieldTable is the static field vocabulary shared read-only by all
// components. Declared order defines question priority: contact essentials
// first, long-tail questionnaire fields last.
var fieldTable = []FieldDefinition{
	{Key: "full_name", Label: "ФИО", Kind: models.FieldKindText, Aliases: []string{"name", "fio", "фио", "имя_полное"}},
	{Key: "last_name", Label: "Фамилия", Kind: models.FieldKindText, Aliases: []string{"фамилия"}},
	{Key: "first_name", Label: "Имя", Kind: models.FieldKindText, Aliases: []string{"имя"}},
	{Key: "middle_name", Label: "Отчество", Kind: models.FieldKindText, Aliases: []string{"отчество"}},
	{Key: "email", Label: "Email", Kind: models.FieldKindEmail, Aliases: []string{"mail", "почта", "электронная_почта"}},
	{Key: "phone", Label: "Телефон", Kind: models.FieldKindPhone, Aliases: []string{"tel", "телефон"}},
	{Key: "organization", Label: "Организация", Kind: models.FieldKindText, Aliases: []string{"org", "организация", "компания"}},
	{Key: "position", Label: "Должность", Kind: models.FieldKindText, Aliases: []string{"pos", "должность"}},
	{Key: "inn", Label: "ИНН", Kind: models.FieldKindNumber, Aliases: []string{"инн"}},
	{Key: "ogrn", Label: "ОГРН", Kind: models.FieldKindNumber, Aliases: []string{"огрн"}},
	{Key: "address", Label: "Адрес", Kind: models.FieldKindText, Aliases: []string{"addr", "адрес"}},
	{Key: "legal_address", Label: "Юридический адрес", Kind: models.FieldKindText, Aliases: []string{"юридический_адрес"}},
	{Key: "actual_address", Label: "Фактический адрес", Kind: models.FieldKindText, Aliases: []string{"фактический_адрес"}},
	{Key: "passport", Label: "Паспорт", Kind: models.FieldKindText, Aliases: []string{"pass", "паспорт"}},
	{Key: "birth_date", Label: "Дата рождения", Kind: models.FieldKindDate, Aliases: []string{"birth", "дата_рождения"}},
	{Key: "business_type", Label: "Тип бизнеса", Kind: models.FieldKindText, Aliases: []string{"biz_type", "тип_бизнеса", "вид_деятельности"}},
	{Key: "region", Label: "Регион", Kind: models.FieldKindText, Aliases: []string{"регион"}},
	{Key: "city", Label: "Город", Kind: models.FieldKindText, Aliases: []string{"город"}},
	{Key: "street", Label: "Улица", Kind: models.FieldKindText, Aliases: []string{"улица"}},
	{Key: "house", Label: "Дом", Kind: models.FieldKindText, Aliases: []string{"дом"}},
	{Key: "apartment", Label: "Квартира", Kind: models.FieldKindText, Aliases: []string{"квартира"}},
	{Key: "director_name", Label: "ФИО руководителя", Kind: models.FieldKindText, Aliases: []string{"руководитель"}},
	{Key: "education", Label: "Образование", Kind: models.FieldKindText, Aliases: []string{"образование"}},
	{Key: "work_info", Label: "Информация о работе", Kind: models.FieldKindText, Aliases: []string{"информация_о_работе"}},
	{Key: "activity_sphere", Label: "Сфера деятельности", Kind: models.FieldKindText, Aliases: []string{"сфера_деятельности"}},
	{Key: "business_experience", Label: "Опыт в бизнесе", Kind: models.FieldKindText, Aliases: []string{"опыт_в_бизнесе"}},
	{Key: "public_activity_experience", Label: "Опыт общественной деятельности", Kind: models.FieldKindText, Aliases: []string{"опыт_общественной_деятельности"}},
	{Key: "expertise_area", Label: "Область экспертизы", Kind: models.FieldKindText, Aliases: []string{"область_экспертизы"}},
	{Key: "elected_position", Label: "Выборная должность", Kind: models.FieldKindText, Aliases: []string{"выборная_должность"}},
	{Key: "employees_count", Label: "Количество сотрудников", Kind: models.FieldKindNumber, Aliases: []string{"количество_сотрудников"}},
	{Key: "annual_turnover", Label: "Годовой оборот", Kind: models.FieldKindText, Aliases: []string{"годовой_оборот"}},
	{Key: "additional_info", Label: "Дополнительная информация", Kind: models.FieldKindText, Aliases: []string{"дополнения", "дополнительная_информация"}},
	{Key: "date", Label: "Дата", Kind: models.FieldKindDate, Aliases: []string{"дата"}},
	{Key: "time", Label: "Время", Kind: models.FieldKindText, Aliases: []string{"время"}},
}

// fieldByKey and fieldByAlias index the table; built once at init.
var (
	fieldByKey   = make(map[string]*FieldDefinition, len(fieldTable))
	fieldByAlias = make(map[string]*FieldDefinition)
	fieldOrder   = make(map[string]int, len(fieldTable))
)

func init() {
	for i := range fieldTable {
		def := &fieldTable[i]
		fieldByKey[def.Key] = def
		fieldOrder[def.Key] = i
		for _, alias := range def.Aliases {
			fieldByAlias[alias] = def
		}
	}
}

// ResolveField maps a lower-cased placeholder token to its canonical field
// definition, resolving aliases. The second result is false for unknown
// tokens, which are still valid requirements (kept verbatim by the caller).
func ResolveField(token string) (FieldDefinition, bool) {
	if def, ok := fieldByKey[token]; ok {
		return *def, true
	}
	if def, ok := fieldByAlias[token]; ok {
		return *def, true
	}
	return FieldDefinition{}, false
}

// LabelFor returns the human label for a canonical key, or the key itself
// for unknown fields.
func LabelFor(key string) string {
	if def, ok := fieldByKey[key]; ok {
		return def.Label
	}
	return key
}

// KindFor returns the input kind for a field, defaulting to text.
func KindFor(key string) models.FieldKind {
	if def, ok := fieldByKey[key]; ok {
		return def.Kind
	}
	return models.FieldKindText
}

// questionTemplates maps field keys to follow-up question phrasings.
// Fields without an entry fall back to a generic phrasing over the label.
var questionTemplates = map[string]string{
	"full_name":     "Пожалуйста, укажите ваше полное ФИО для документа «%s»",
	"email":         "Укажите ваш email адрес для документа «%s»",
	"phone":         "Укажите ваш номер телефона для документа «%s»",
	"organization":  "Укажите название вашей организации для документа «%s»",
	"position":      "Укажите вашу должность для документа «%s»",
	"inn":           "Укажите ваш ИНН для документа «%s»",
	"address":       "Укажите ваш адрес для документа «%s»",
	"passport":      "Укажите ваши паспортные данные для документа «%s»",
	"birth_date":    "Укажите вашу дату рождения для документа «%s»",
	"business_type": "Укажите тип вашего бизнеса для документа «%s»",
}

// QuestionFor builds the follow-up question text for a missing field.
func QuestionFor(key, documentName string) string {
	if tmpl, ok := questionTemplates[key]; ok {
		return fmt.Sprintf(tmpl, documentName)
	}
	return fmt.Sprintf("Пожалуйста, укажите %s для документа «%s»", strings.ToLower(LabelFor(key)), documentName)
}

// orderIndex returns the declared position of a key, with unknown fields
// sorting after every known one.
func orderIndex(key string) int {
	if i, ok := fieldOrder[key]; ok {
		return i
	}
	return len(fieldTable)
}
