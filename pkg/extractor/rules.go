package extractor

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Deterministic extraction works in two layers. Composite patterns pull
// self-delimiting values out of free phrasing ("меня зовут ...", a bare
// email). Labeled extraction handles the questionnaire style ("Фамилия:
// Иванов Имя: Иван ...") by locating every known label occurrence and
// cutting each value at the start of the next label, which is what bounds
// free-text values without lookahead.

// compositeRule is a self-delimiting pattern with one capture group.
type compositeRule struct {
	key     string
	pattern *regexp.Regexp
}

// fullNameRules are tried first: a direct ФИО declaration wins over a name
// assembled from parts later.
var fullNameRules = []compositeRule{
	{"full_name", regexp.MustCompile(`(?i)(?:мо[её]\s+)?фио[\s:=]+([А-ЯЁ][а-яё]+\s+[А-ЯЁ][а-яё]+\s+[А-ЯЁ][а-яё]+)`)},
	{"full_name", regexp.MustCompile(`(?:[Мм]еня\s+)?зовут\s+([А-ЯЁ][а-яё]+(?:\s+[А-ЯЁ][а-яё]+){1,2})`)},
}

// namePartRules cover the conversational "зовут Лев фамилия Балакин
// отчество Михайлович" form. The trailing alternation consumes the next
// label, which is fine: only the capture group is used.
var namePartRules = []compositeRule{
	{"first_name", regexp.MustCompile(`(?i)(?:зовут|имя)\s+([А-ЯЁ][а-яё]+)(?:\s+(?:фамилия|отчество)|\s*$)`)},
	{"last_name", regexp.MustCompile(`(?i)фамилия\s+([А-ЯЁ][а-яё]+)`)},
	{"middle_name", regexp.MustCompile(`(?i)отчество\s+([А-ЯЁ][а-яё]+)`)},
}

// bareShapeRules find values recognizable without any label at all.
var bareShapeRules = []compositeRule{
	{"email", regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)},
	{"phone", regexp.MustCompile(`((?:\+7|8)[\s\(\)\-]*\d[\d\s\(\)\-]{8,})`)},
}

// labelDef binds one field key to the label spellings that introduce its
// value in questionnaire-style text.
type labelDef struct {
	key    string
	labels []string
}

var labelTable = []labelDef{
	{"last_name", []string{"фамилия"}},
	{"first_name", []string{"имя"}},
	{"middle_name", []string{"отчество"}},
	{"email", []string{"e-mail", "email", "электронная почта", "почта"}},
	{"phone", []string{"телефон"}},
	{"inn", []string{"инн"}},
	{"ogrn", []string{"огрн"}},
	{"organization", []string{"полное наименование юридического лица", "наименование организации", "организация", "компания"}},
	{"legal_address", []string{"юридический адрес"}},
	{"actual_address", []string{"фактический адрес"}},
	{"business_type", []string{"основной вид деятельности", "оквэд", "тип бизнеса", "вид деятельности"}},
	{"director_name", []string{"фио руководителя", "руководитель"}},
	{"position", []string{"должность"}},
	{"employees_count", []string{"количество сотрудников"}},
	{"annual_turnover", []string{"годовой оборот"}},
	{"birth_date", []string{"число, месяц, год рождения", "дата рождения"}},
	{"region", []string{"регион деятельности", "регион"}},
	{"city", []string{"город"}},
	{"street", []string{"улица"}},
	{"house", []string{"дом"}},
	{"apartment", []string{"квартира", "кв."}},
	{"passport", []string{"паспортные данные", "паспорт"}},
	{"education", []string{"образование"}},
	{"work_info", []string{"место работы"}},
	{"activity_sphere", []string{"сфера бизнеса", "сфера деятельности"}},
	{"business_experience", []string{"опыт предпринимательской деятельности", "опыт в бизнесе"}},
	{"public_activity_experience", []string{"опыт общественной деятельности"}},
	{"expertise_area", []string{"эксперт в отрасли", "область экспертизы"}},
	{"elected_position", []string{"выборные должности", "выборная должность"}},
	{"additional_info", []string{"дополнения", "дополнительная информация"}},
	{"address", []string{"адрес"}},
}

var (
	labelPattern *regexp.Regexp
	labelToKey   = make(map[string]string)
)

func init() {
	var spellings []string
	for _, def := range labelTable {
		for _, l := range def.labels {
			labelToKey[l] = def.key
			spellings = append(spellings, l)
		}
	}
	// Longest spellings first so "юридический адрес" wins over "адрес" at
	// the same position.
	sort.Slice(spellings, func(i, j int) bool { return len(spellings[i]) > len(spellings[j]) })
	quoted := make([]string, len(spellings))
	for i, s := range spellings {
		quoted[i] = regexp.QuoteMeta(s)
	}
	labelPattern = regexp.MustCompile(`(?i)(` + strings.Join(quoted, "|") + `)[\s:=\-]*`)
}

// labelOccurrence is one located label with the span it occupies, separator
// included.
type labelOccurrence struct {
	key        string
	start, end int
}

// findLabels locates every standalone known label in the text. Matches glued
// to surrounding letters ("дома", "прима") are discarded.
func findLabels(text string) []labelOccurrence {
	idx := labelPattern.FindAllStringSubmatchIndex(text, -1)
	occ := make([]labelOccurrence, 0, len(idx))
	for _, m := range idx {
		start, end := m[0], m[1]
		label := strings.ToLower(text[m[2]:m[3]])
		key, ok := labelToKey[label]
		if !ok {
			continue
		}
		if start > 0 && isLetterBefore(text, start) {
			continue
		}
		if end < len(text) && end == m[3] && isLetterAt(text, end) {
			// Label ran straight into a letter with no separator.
			continue
		}
		occ = append(occ, labelOccurrence{key: key, start: start, end: end})
	}
	return occ
}

func isLetterBefore(text string, pos int) bool {
	r := lastRune(text[:pos])
	return unicode.IsLetter(r)
}

func isLetterAt(text string, pos int) bool {
	for _, r := range text[pos:] {
		return unicode.IsLetter(r)
	}
	return false
}

func lastRune(s string) rune {
	var last rune
	for _, r := range s {
		last = r
	}
	return last
}

// labeledValues runs the boundary-based labeled pass: each label's value is
// the text between its separator and the next label or line end.
func labeledValues(text string) map[string]string {
	occ := findLabels(text)
	out := make(map[string]string, len(occ))
	for i, o := range occ {
		limit := len(text)
		if i+1 < len(occ) {
			limit = occ[i+1].start
		}
		value := text[o.end:limit]
		if nl := strings.IndexByte(value, '\n'); nl >= 0 {
			value = value[:nl]
		}
		value = normalizeValue(value)
		if value == "" {
			continue
		}
		if _, exists := out[o.key]; exists {
			continue
		}
		out[o.key] = value
	}
	return out
}

// normalizeValue trims edges of separators and punctuation and collapses
// internal whitespace runs.
func normalizeValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.Trim(v, ".,;:-–— \t")
	v = strings.Join(strings.Fields(v), " ")
	return v
}

// Shape validation for fields whose values have a fixed form. A labeled hit
// that fails its shape check is dropped rather than stored wrong.
var (
	emailShape     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	innShape       = regexp.MustCompile(`^(?:\d{10}|\d{12})$`)
	ogrnShape      = regexp.MustCompile(`^(?:\d{13}|\d{15})$`)
	houseShape     = regexp.MustCompile(`^\d+[А-Яа-яЁёa-zA-Z]?(?:/\d+)?$`)
	apartmentShape = regexp.MustCompile(`^\d+$`)
	nameShape      = regexp.MustCompile(`^[А-ЯЁ][а-яё]+(?:-[А-ЯЁ][а-яё]+)?$`)
	placeShape     = regexp.MustCompile(`^[А-ЯЁа-яё][А-ЯЁа-яё\s\-\.]*$`)
)

func validValue(key, value string) bool {
	switch key {
	case "email":
		return emailShape.MatchString(value)
	case "phone":
		digits := 0
		for _, r := range value {
			if unicode.IsDigit(r) {
				digits++
			}
		}
		return digits >= 10 && digits <= 15
	case "inn":
		return innShape.MatchString(value)
	case "ogrn":
		return ogrnShape.MatchString(value)
	case "house":
		return houseShape.MatchString(value)
	case "apartment":
		return apartmentShape.MatchString(value)
	case "last_name", "first_name", "middle_name":
		return nameShape.MatchString(value)
	case "region", "city", "street":
		return placeShape.MatchString(value)
	default:
		return value != ""
	}
}
