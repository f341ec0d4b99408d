package domain

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Priorities lists the four buckets in ascending order of severity.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type Language string

const (
	LangKK Language = "kk"
	LangRU Language = "ru"
)

func (l Language) Valid() bool {
	return l == LangKK || l == LangRU
}

// Aspect is a category of complaint substance. The analyzer may emit labels
// outside this vocabulary; those are carried through as opaque strings and
// never promoted into the fixed set.
type Aspect string

const (
	AspectPunctuality Aspect = "punctuality"
	AspectCrowding    Aspect = "crowding"
	AspectSafety      Aspect = "safety"
	AspectStaff       Aspect = "staff"
	AspectCondition   Aspect = "condition"
	AspectPayment     Aspect = "payment"
	AspectOther       Aspect = "other"
)

var KnownAspects = []Aspect{
	AspectPunctuality, AspectCrowding, AspectSafety,
	AspectStaff, AspectCondition, AspectPayment, AspectOther,
}

// Tuple object types as they appear on the wire.
const (
	ObjectRoute    = "route"
	ObjectBusPlate = "bus_plate"
)

// Place kinds.
const (
	PlaceStop      = "stop"
	PlaceStreet    = "street"
	PlaceCrossroad = "crossroad"
)

// TimeSubmission is the sentinel tuple time meaning "when the complaint was
// submitted". It is stored as-is and resolved to a concrete timestamp only at
// presentation time.
const TimeSubmission = "submission_time"

type TupleObject struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type TuplePlace struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Tuple is one structured fact extracted from a narrative: the objects
// involved, when, where, and which aspects it concerns.
type Tuple struct {
	Objects []TupleObject `json:"objects"`
	Time    string        `json:"time"`
	Place   *TuplePlace   `json:"place,omitempty"`
	Aspects []string      `json:"aspects"`
}

// ReportedAt returns the tuple's own concrete time if it carries one,
// otherwise the zero time. The "submission_time" sentinel is not concrete.
func (t Tuple) ReportedAt() (time.Time, bool) {
	if t.Time == "" || t.Time == TimeSubmission {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, t.Time)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

type ExtractedFields struct {
	RouteNumbers []string `json:"route_numbers"`
	BusPlates    []string `json:"bus_plates"`
	Places       []string `json:"places"`
}

// AnalysisResult is the analyzer's verdict for one (description, knownFields,
// submissionTime) triple. Field names match the wire schema exactly.
type AnalysisResult struct {
	NeedClarification    bool            `json:"need_clarification"`
	MissingSlots         []string        `json:"missing_slots"`
	Priority             Priority        `json:"priority"`
	Tuples               []Tuple         `json:"tuples"`
	AspectsCount         map[string]int  `json:"aspects_count"`
	RecommendationKK     string          `json:"recommendation_kk"`
	Language             Language        `json:"language"`
	ExtractedFields      ExtractedFields `json:"extracted_fields"`
	ClarifyingQuestionKK string          `json:"clarifying_question_kk,omitempty"`
	ClarifyingQuestionRU string          `json:"clarifying_question_ru,omitempty"`
}

// Actionable reports whether the result actually demands a clarification
// turn. need_clarification=true with no missing slots is treated as
// non-actionable and the session proceeds to a draft.
func (r AnalysisResult) Actionable() bool {
	return r.NeedClarification && len(r.MissingSlots) > 0
}

type Contact struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Empty reports whether the contact carries no usable field after trimming.
func (c Contact) Empty() bool {
	return strings.TrimSpace(c.Name) == "" &&
		strings.TrimSpace(c.Phone) == "" &&
		strings.TrimSpace(c.Email) == ""
}

type MediaRef struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	URL      string `json:"url,omitempty"`
}

// ComplaintDraft is the submittable payload built from a terminal analysis
// plus session context. Field names match the submit wire schema.
type ComplaintDraft struct {
	Description    string          `json:"description"`
	Priority       Priority        `json:"priority"`
	Tuples         []Tuple         `json:"tuples"`
	Analysis       *AnalysisResult `json:"analysis"`
	Media          []MediaRef      `json:"media"`
	IsAnonymous    bool            `json:"isAnonymous"`
	Contact        *Contact        `json:"contact,omitempty"`
	Source         string          `json:"source"`
	SubmissionTime time.Time       `json:"submissionTime"`
	ReportedTime   time.Time       `json:"reportedTime"`
	Status         string          `json:"status,omitempty"`
}

// Complaint statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusResolved = "resolved"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusResolved:
		return true
	}
	return false
}

// Complaint is a persisted, user-confirmed submission.
type Complaint struct {
	ID             int64
	Reference      string
	Description    string
	Priority       Priority
	Tuples         []Tuple
	Analysis       *AnalysisResult
	Media          []MediaRef
	IsAnonymous    bool
	Contact        *Contact
	Source         string
	Status         string
	AdminComment   string
	SubmissionTime time.Time
	ReportedTime   time.Time
	CreatedAt      time.Time
}

// Dictionary entry kinds.
const (
	DictRoute = "route"
	DictPlate = "plate"
	DictStop  = "stop"
	DictPlace = "place"
)

func ValidDictKind(k string) bool {
	switch k {
	case DictRoute, DictPlate, DictStop, DictPlace:
		return true
	}
	return false
}

// DictionaryEntry is a frequency counter for one observed (kind, value)
// pair. Values are stored trimmed; freq never decreases.
type DictionaryEntry struct {
	Kind     string    `json:"kind"`
	Value    string    `json:"value"`
	Freq     int       `json:"freq"`
	LastSeen time.Time `json:"lastSeen"`
}

type RouteCount struct {
	Route string `json:"route"`
	Count int    `json:"count"`
}

type AspectCount struct {
	Aspect string `json:"aspect"`
	Count  int    `json:"count"`
}

type PriorityDistribution struct {
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

type HeatmapBucket struct {
	Day   int `json:"day"` // 1 = Monday ... 7 = Sunday
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// AnalyticsSummary is derived on demand, never persisted.
type AnalyticsSummary struct {
	TopRoutes            []RouteCount         `json:"topRoutes"`
	PriorityDistribution PriorityDistribution `json:"priorityDistribution"`
	AspectFrequency      []AspectCount        `json:"aspectFrequency"`
	TimeOfDayHeatmap     []HeatmapBucket      `json:"timeOfDayHeatmap"`
}
