// Package intent classifies an inbound user message by what the user wants
// done: file a complaint, produce a document, get market analysis, or just
// talk. Classification is an ordered decision table over lower-cased message
// signals; the first matching rule wins, which makes precedence explicit
// and testable.
package intent

import (
	"strings"

	"github.com/opora-ai/docforge/pkg/models"
)

// Kind is the detected request class.
type Kind string

const (
	KindAnalysis  Kind = "analysis"
	KindComplaint Kind = "complaint"
	KindDocument  Kind = "document"
	KindChat      Kind = "chat"
)

// Intent is the classification result.
type Intent struct {
	Kind       Kind
	Category   models.DocumentCategory // set for document requests
	Confidence int                     // 0-100
	Rule       string                  // name of the matched rule
}

// actionVerbs are the explicit "do something with a document" markers. Their
// absence is what separates a question about documents from a request to
// produce one.
var actionVerbs = []string{
	"создай", "создать", "создайте",
	"заполни", "заполнить", "заполните",
	"оформи", "оформить", "оформите",
	"подготовь", "подготовить", "подготовьте",
	"сделай", "сделать", "сделайте",
	"нужен", "нужна", "нужно",
}

var membershipPhrases = []string{
	"подать заявку", "заявка на вступление", "вступление в опору",
	"вступить в опору", "хочу вступить", "помогите вступить",
	"подать заявление на вступление", "заявление на вступление",
}

var complaintMarkers = []string{"жалоб", "претензи"}

var complaintDataMarkers = []string{
	"фио", "телефон", "email", "адресат", "суть", "требования", "контактные данные",
}

// rule is one row of the decision table. A message matches when at least one
// entry of every group in all matches, no entry of none matches, and at
// least one entry of any matches (when any is non-empty).
type rule struct {
	name       string
	any        []string
	all        [][]string
	none       []string
	kind       Kind
	category   models.DocumentCategory
	confidence int
}

// rules are evaluated top to bottom. Analytical requests are suppressed
// first so "проанализируй динамику" never triggers generation; complaints
// outrank generic document requests; the catch-all chat row always matches.
var rules = []rule{
	{
		name:       "analysis",
		any:        []string{"анализ", "аналитика", "тренд", "статистика", "динамика рынка"},
		none:       actionVerbs,
		kind:       KindAnalysis,
		confidence: 80,
	},
	{
		name:       "complaint_with_data",
		all:        [][]string{complaintMarkers, complaintDataMarkers},
		kind:       KindComplaint,
		category:   models.CategoryComplaint,
		confidence: 95,
	},
	{
		name:       "complaint_action",
		all:        [][]string{complaintMarkers, append(append([]string{}, actionVerbs...), "подать")},
		kind:       KindComplaint,
		category:   models.CategoryComplaint,
		confidence: 85,
	},
	{
		name:       "membership",
		any:        membershipPhrases,
		kind:       KindDocument,
		category:   models.CategoryApplication,
		confidence: 90,
	},
	{
		name:       "questionnaire",
		all:        [][]string{actionVerbs, {"анкет"}},
		kind:       KindDocument,
		category:   models.CategoryQuestionnaire,
		confidence: 85,
	},
	{
		name:       "application",
		all:        [][]string{actionVerbs, {"заявлен"}},
		kind:       KindDocument,
		category:   models.CategoryApplication,
		confidence: 85,
	},
	{
		name:       "contract",
		all:        [][]string{actionVerbs, {"договор", "контракт"}},
		kind:       KindDocument,
		category:   models.CategoryContract,
		confidence: 85,
	},
	{
		name:       "certificate",
		all:        [][]string{actionVerbs, {"справк"}},
		kind:       KindDocument,
		category:   models.CategoryCertificate,
		confidence: 85,
	},
	{
		name:       "report",
		all:        [][]string{actionVerbs, {"отчет", "отчёт"}},
		kind:       KindDocument,
		category:   models.CategoryReport,
		confidence: 85,
	},
	{
		name:       "protocol",
		all:        [][]string{actionVerbs, {"протокол"}},
		kind:       KindDocument,
		category:   models.CategoryProtocol,
		confidence: 85,
	},
	{
		name:       "generic_document",
		all:        [][]string{actionVerbs, {"документ"}},
		kind:       KindDocument,
		category:   models.CategoryOther,
		confidence: 70,
	},
	{
		name:       "chat",
		kind:       KindChat,
		confidence: 50,
	},
}

// Detect classifies one message.
func Detect(message string) Intent {
	lower := strings.ToLower(message)
	for _, r := range rules {
		if r.matches(lower) {
			return Intent{
				Kind:       r.kind,
				Category:   r.category,
				Confidence: r.confidence,
				Rule:       r.name,
			}
		}
	}
	// The table ends with a catch-all; this is unreachable.
	return Intent{Kind: KindChat, Confidence: 50, Rule: "chat"}
}

func (r rule) matches(lower string) bool {
	for _, marker := range r.none {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	if len(r.any) > 0 && !containsAny(lower, r.any) {
		return false
	}
	for _, group := range r.all {
		if !containsAny(lower, group) {
			return false
		}
	}
	return true
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
