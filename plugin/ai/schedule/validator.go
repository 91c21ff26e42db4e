package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/hrygo/voicecal/server/timezone"
)

// Draft is an extracted schedule that has not been persisted.
type Draft struct {
	Title       string    `json:"title"`
	Category    Category  `json:"category"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	AllDay      bool      `json:"isAllDay"`
	Description string    `json:"description,omitempty"`
}

// StartTimeString formats the start in the local wire format.
func (d *Draft) StartTimeString(loc *time.Location) string {
	return timezone.FormatLocal(d.StartTime, loc)
}

// EndTimeString formats the end in the local wire format.
func (d *Draft) EndTimeString(loc *time.Location) string {
	return timezone.FormatLocal(d.EndTime, loc)
}

// llmDraft is the intermediate structure of the model output.
type llmDraft struct {
	Title       string
	Category    string
	StartTime   string
	EndTime     string
	IsAllDay    bool
	Description string
}

// draftFields maps the JSON keys of the model output to the concept reported when one is mistyped.
var draftFields = map[string]string{
	"title":       "title",
	"category":    "category",
	"startTime":   "time",
	"endTime":     "time",
	"isAllDay":    "time",
	"description": "description",
}

// fieldError reports a draft field present with the wrong JSON type.
type fieldError struct {
	concept string
	key     string
	value   any
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("field %q has unexpected type %T", e.key, e.value)
}

// draftFromObject reads the draft fields of a decoded JSON object. Absent and null
// fields are empty; any other type than the expected one is a *fieldError.
func draftFromObject(obj map[string]any) (*llmDraft, error) {
	var out llmDraft
	for key, dst := range map[string]*string{
		"title":       &out.Title,
		"category":    &out.Category,
		"startTime":   &out.StartTime,
		"endTime":     &out.EndTime,
		"description": &out.Description,
	} {
		switch v := obj[key].(type) {
		case nil:
		case string:
			*dst = v
		default:
			return nil, &fieldError{concept: draftFields[key], key: key, value: v}
		}
	}

	allDay, ok := parseFlexBool(obj["isAllDay"])
	if !ok {
		return nil, &fieldError{concept: draftFields["isAllDay"], key: "isAllDay", value: obj["isAllDay"]}
	}
	out.IsAllDay = allDay
	return &out, nil
}

// parseFlexBool accepts true/false as JSON booleans, numbers or strings.
func parseFlexBool(v any) (bool, bool) {
	switch b := v.(type) {
	case nil:
		return false, true
	case bool:
		return b, true
	case float64:
		return b != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no", "", "null":
			return false, true
		}
	}
	return false, false
}

// Validator turns raw completion output into a Draft. It performs no I/O.
type Validator struct {
	location *time.Location
}

// NewValidator creates a validator resolving local times in loc.
func NewValidator(loc *time.Location) *Validator {
	if loc == nil {
		loc = timezone.UTC
	}
	return &Validator{location: loc}
}

// Validate parses raw and enforces the draft schema. Failures are *ExtractionError
// of kind NonConformingOutput or SchemaInvalid.
func (v *Validator) Validate(raw string, reference time.Time) (*Draft, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, nonConforming(raw, err)
	}
	parsed, err := draftFromObject(obj)
	if err != nil {
		var fe *fieldError
		if errors.As(err, &fe) {
			return nil, schemaInvalid(fe.concept, err)
		}
		return nil, nonConforming(raw, err)
	}

	title := strings.TrimSpace(parsed.Title)
	if title == "" {
		return nil, schemaInvalid("title", nil)
	}
	if strings.TrimSpace(parsed.Category) == "" {
		return nil, schemaInvalid("category", nil)
	}
	category, ok := ParseCategory(parsed.Category)
	if !ok {
		return nil, schemaInvalid("category", fmt.Errorf("unknown category %q", parsed.Category))
	}

	draft := &Draft{
		Title:       title,
		Category:    category,
		Description: strings.TrimSpace(parsed.Description),
	}

	if strings.TrimSpace(parsed.StartTime) == "" {
		draft.StartTime = timezone.StartOfDay(reference, v.location)
		draft.EndTime = timezone.EndOfDay(reference, v.location)
		draft.AllDay = true
		return draft, nil
	}

	start, err := timezone.ParseLocal(parsed.StartTime, v.location)
	if err != nil {
		return nil, schemaInvalid("time", err)
	}
	var end time.Time
	hasEnd := strings.TrimSpace(parsed.EndTime) != ""
	if hasEnd {
		end, err = timezone.ParseLocal(parsed.EndTime, v.location)
		if err != nil {
			return nil, schemaInvalid("time", err)
		}
	}

	draft.AllDay = parsed.IsAllDay
	if draft.AllDay {
		start = timezone.StartOfDay(start, v.location)
		if !hasEnd || end.Before(start) {
			end = start
		}
		end = timezone.EndOfDay(end, v.location)
	} else if !hasEnd || end.Before(start) {
		end = start.Add(time.Hour)
	}

	draft.StartTime = start
	draft.EndTime = end
	return draft, nil
}

// decodeObject reads the first JSON object out of raw. Code fences are stripped and a
// brace-delimited object is repaired when it is almost valid JSON. A repaired object
// without any draft field was prose in braces, not a draft.
func decodeObject(raw string) (map[string]any, error) {
	cleaned := stripCodeFence(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("empty output")
	}

	var out map[string]any
	if strings.HasPrefix(cleaned, "{") {
		if err := json.Unmarshal([]byte(cleaned), &out); err == nil && out != nil {
			return out, nil
		}
	}

	begin := strings.Index(cleaned, "{")
	finish := strings.LastIndex(cleaned, "}")
	if begin < 0 || finish <= begin {
		return nil, fmt.Errorf("no JSON object in output")
	}
	candidate := cleaned[begin : finish+1]
	out = nil
	if err := json.Unmarshal([]byte(candidate), &out); err == nil && out != nil {
		return out, nil
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return nil, fmt.Errorf("repair JSON object: %w", err)
	}
	out = nil
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil, fmt.Errorf("decode repaired JSON object: %w", err)
	}
	for key := range draftFields {
		if _, ok := out[key]; ok {
			return out, nil
		}
	}
	return nil, fmt.Errorf("repaired JSON object has no draft fields")
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimPrefix(s, "JSON")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
