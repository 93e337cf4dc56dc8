package authclient

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const maxErrorBody = 64 << 10

type apiErrorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type apiDetailEntry struct {
	Loc []json.RawMessage `json:"loc"`
	Msg string            `json:"msg"`
}

// decodeAPIError turns a non-2xx response into *ValidationError (detail array) or
// *StatusError (detail string, anything else). The body is consumed but not closed.
func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body apiErrorBody
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 {
		return &StatusError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(data))}
	}

	var entries []apiDetailEntry
	if err := json.Unmarshal(body.Detail, &entries); err == nil && resp.StatusCode < 500 {
		fields := make([]FieldError, 0, len(entries))
		for _, e := range entries {
			fields = append(fields, FieldError{Field: fieldName(e.Loc), Message: e.Msg})
		}
		return &ValidationError{StatusCode: resp.StatusCode, Fields: fields}
	}

	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err == nil {
		return &StatusError{StatusCode: resp.StatusCode, Detail: detail}
	}
	return &StatusError{StatusCode: resp.StatusCode, Detail: string(body.Detail)}
}

// fieldName picks the field out of a loc path such as ["body","email"]. The first
// element names the request part, so the second is preferred.
func fieldName(loc []json.RawMessage) string {
	switch len(loc) {
	case 0:
		return ""
	case 1:
		return locString(loc[0])
	default:
		return locString(loc[1])
	}
}

func locString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}
