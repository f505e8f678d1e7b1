package thought

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// record is the loose shape used when validating imported data. Pointer
// fields distinguish missing keys from zero values, and keeping every
// field a string/slice lets a malformed record produce field-level
// messages instead of one opaque unmarshal error.
type record struct {
	ID          *string   `json:"id" validate:"required"`
	Title       *string   `json:"title" validate:"required"`
	Content     *string   `json:"content" validate:"required"`
	Connections *[]string `json:"connections" validate:"required"`
	CreatedAt   *string   `json:"createdAt" validate:"required"`
	UpdatedAt   *string   `json:"updatedAt" validate:"required"`
}

// CollectionResult is the outcome of validating an imported collection.
// Errors are human-readable and collected, never raised individually;
// the caller decides whether to accept the valid subset.
type CollectionResult struct {
	Valid      []Thought
	Errors     []string
	ValidCount int
	TotalCount int
}

// IsValid reports whether every record passed validation.
func (r CollectionResult) IsValid() bool {
	return len(r.Errors) == 0
}

// ValidateRecord checks a single raw record and returns the parsed
// thought plus any field-level problems.
func ValidateRecord(raw json.RawMessage) (Thought, []string) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Thought{}, []string{"thought must be an object with string fields"}
	}

	var errs []string
	if err := validate.Struct(rec); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Sprintf("missing required field: %s", jsonName(fe.Field())))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}
	if rec.ID != nil && strings.TrimSpace(*rec.ID) == "" {
		errs = append(errs, "id cannot be empty")
	}

	t := Thought{Connections: []string{}}
	if rec.ID != nil {
		t.ID = strings.TrimSpace(*rec.ID)
	}
	if rec.Title != nil {
		t.Title = strings.TrimSpace(*rec.Title)
	}
	if rec.Content != nil {
		t.Content = strings.TrimSpace(*rec.Content)
	}
	if rec.Connections != nil {
		for _, c := range *rec.Connections {
			if strings.TrimSpace(c) == "" {
				errs = append(errs, "all connections must be non-empty thought ids")
				continue
			}
			t.Connections = append(t.Connections, c)
		}
	}

	t.CreatedAt, errs = parseStamp(rec.CreatedAt, "createdAt", errs)
	t.UpdatedAt, errs = parseStamp(rec.UpdatedAt, "updatedAt", errs)

	return t, errs
}

// ValidateCollection validates a raw JSON array of thoughts. A non-array
// payload fails outright; individual bad records are reported by index
// while the valid subset is still returned.
func ValidateCollection(data []byte) CollectionResult {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return CollectionResult{Errors: []string{"data must be an array of thoughts"}}
	}

	result := CollectionResult{TotalCount: len(raws)}
	for i, raw := range raws {
		t, errs := ValidateRecord(raw)
		if len(errs) > 0 {
			result.Errors = append(result.Errors,
				fmt.Sprintf("thought at index %d: %s", i, strings.Join(errs, ", ")))
			continue
		}
		result.Valid = append(result.Valid, t)
	}
	result.ValidCount = len(result.Valid)
	return result
}

// Sanitize coerces a thought into a well-formed one, substituting safe
// defaults for anything unparseable.
func Sanitize(t Thought, now time.Time) Thought {
	s := t.Clone()
	s.ID = strings.TrimSpace(s.ID)
	s.Title = strings.TrimSpace(s.Title)
	s.Content = strings.TrimSpace(s.Content)

	conns := s.Connections[:0]
	for _, c := range s.Connections {
		if strings.TrimSpace(c) != "" {
			conns = append(conns, c)
		}
	}
	s.Connections = conns

	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	return s
}

// Repair sanitizes every thought and prunes connections that dangle
// (point at no surviving id) or point back at their owner.
func Repair(thoughts []Thought, now time.Time) []Thought {
	repaired := make([]Thought, 0, len(thoughts))
	for _, t := range thoughts {
		repaired = append(repaired, Sanitize(t, now))
	}

	ids := make(map[string]struct{}, len(repaired))
	for _, t := range repaired {
		ids[t.ID] = struct{}{}
	}

	for i, t := range repaired {
		kept := t.Connections[:0]
		for _, c := range t.Connections {
			if _, ok := ids[c]; ok && c != t.ID {
				kept = append(kept, c)
			}
		}
		repaired[i].Connections = kept
	}
	return repaired
}

func parseStamp(s *string, field string, errs []string) (time.Time, []string) {
	if s == nil {
		return time.Time{}, errs
	}
	ts, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return time.Time{}, append(errs, fmt.Sprintf("field '%s' must be a valid ISO date string", field))
	}
	return ts, errs
}

// jsonName maps the Go field names reported by the validator back to
// their wire names.
func jsonName(goField string) string {
	switch goField {
	case "ID":
		return "id"
	case "CreatedAt":
		return "createdAt"
	case "UpdatedAt":
		return "updatedAt"
	default:
		return strings.ToLower(goField[:1]) + goField[1:]
	}
}
