package tools

import (
	"errors"
	"fmt"

	"github.com/roach88/tablebridge/internal/airtable"
)

// EmptyQueryText is returned when a filtered listing had no filter.
const EmptyQueryText = "Please say whose tasks to list, or ask for all tasks."

// Describe converts any error into display text for the agent.
// Every ErrorKind has its own phrasing.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	kind := airtable.KindOf(err)
	switch kind {
	case airtable.KindConfigurationMissing:
		return "The table service is not configured: " + message(err)
	case airtable.KindRemoteAPI:
		return fmt.Sprintf("The table service rejected the request (HTTP %d): %s", airtable.StatusCode(err), body(err))
	case airtable.KindNetwork:
		return "The table service could not be reached: " + message(err)
	case airtable.KindInvalidArgument:
		return "Invalid request: " + message(err)
	case airtable.KindEmptyQuery:
		return EmptyQueryText
	case airtable.KindUnknown:
		return "Unexpected error: " + err.Error()
	default:
		return fmt.Sprintf("Unexpected error (%s): %v", kind, err)
	}
}

// Failure converts err into a failed Result carrying both the structured
// payload and the Describe text.
func Failure(err error) *Result {
	re := resultError(err)
	payload := map[string]any{"kind": re.Kind, "message": re.Message}
	if re.StatusCode != 0 {
		payload["status_code"] = re.StatusCode
	}
	if re.Body != "" {
		payload["body"] = re.Body
	}

	return &Result{
		Success: false,
		Data:    map[string]any{"status": "error", "error": payload},
		Text:    Describe(err),
		Error:   re,
	}
}

// TextFailure converts err into a failed Result for tools whose output is
// rendered text. Data carries only the Describe text; the kind stays on
// Result.Error for logging and scenario checks.
func TextFailure(err error) *Result {
	text := Describe(err)
	return &Result{
		Success: false,
		Data:    map[string]any{"status": "error", "text": text},
		Text:    text,
		Error:   resultError(err),
	}
}

func resultError(err error) *ResultError {
	re := &ResultError{
		Kind:       string(airtable.KindOf(err)),
		StatusCode: airtable.StatusCode(err),
		Message:    message(err),
	}
	if re.Kind == string(airtable.KindRemoteAPI) {
		re.Body = body(err)
	}
	return re
}

// message extracts the human part of an error, without the kind prefix
// *airtable.Error adds.
func message(err error) string {
	var e *airtable.Error
	if errors.As(err, &e) {
		switch {
		case e.Message != "" && e.Err != nil:
			return e.Message + ": " + e.Err.Error()
		case e.Message != "":
			return e.Message
		case e.Err != nil:
			return e.Err.Error()
		case e.Kind == airtable.KindRemoteAPI:
			return fmt.Sprintf("remote API error %d", e.StatusCode)
		}
	}
	return err.Error()
}

func body(err error) string {
	var e *airtable.Error
	if errors.As(err, &e) {
		return e.Body
	}
	return ""
}
