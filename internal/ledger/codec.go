package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	nestedEventsListKeyConstant       = "events"
	lineParseFailureTemplateConstant  = "line %d: %v"
	wholeParseFailureTemplateConstant = "unparsable content: %v"
)

// ParseFailure describes one codec-level problem inside a physical event file.
// Line is zero when the failure applies to the file as a whole.
type ParseFailure struct {
	Line    int
	Message string
}

// DecodeRecords parses raw event file content into untyped records.
//
// Three physical encodings are accepted: a single JSON object, a JSON array of
// objects, and JSON lines with one object per non-blank line. A whole-file
// parse is attempted first; on failure the content is re-read line by line,
// keeping every line that parses and surfacing the rest as failures. A
// top-level object whose "events" key holds a list is unwrapped to that list.
// Unreadable content never aborts: the caller receives whatever parsed plus
// the failure list.
func DecodeRecords(content []byte) ([]map[string]any, []ParseFailure) {
	trimmedContent := strings.TrimSpace(string(content))
	if len(trimmedContent) == 0 {
		return nil, nil
	}

	var decodedValue any
	wholeParseError := json.Unmarshal([]byte(trimmedContent), &decodedValue)
	if wholeParseError == nil {
		return flattenDecodedValue(decodedValue), nil
	}

	var records []map[string]any
	var failures []ParseFailure
	for lineIndex, rawLine := range strings.Split(trimmedContent, "\n") {
		trimmedLine := strings.TrimSpace(rawLine)
		if len(trimmedLine) == 0 {
			continue
		}

		var lineValue map[string]any
		lineParseError := json.Unmarshal([]byte(trimmedLine), &lineValue)
		if lineParseError != nil {
			failures = append(failures, ParseFailure{
				Line:    lineIndex + 1,
				Message: fmt.Sprintf(lineParseFailureTemplateConstant, lineIndex+1, lineParseError),
			})
			continue
		}
		records = append(records, lineValue)
	}

	if len(records) == 0 && len(failures) == 0 {
		failures = append(failures, ParseFailure{
			Message: fmt.Sprintf(wholeParseFailureTemplateConstant, wholeParseError),
		})
	}

	return records, failures
}

func flattenDecodedValue(decodedValue any) []map[string]any {
	switch typedValue := decodedValue.(type) {
	case map[string]any:
		if nestedList, nestedListPresent := typedValue[nestedEventsListKeyConstant].([]any); nestedListPresent {
			return collectObjectRecords(nestedList)
		}
		return []map[string]any{typedValue}
	case []any:
		return collectObjectRecords(typedValue)
	default:
		return nil
	}
}

func collectObjectRecords(rawValues []any) []map[string]any {
	records := make([]map[string]any, 0, len(rawValues))
	for _, rawValue := range rawValues {
		if objectValue, isObject := rawValue.(map[string]any); isObject {
			records = append(records, objectValue)
		}
	}
	return records
}
