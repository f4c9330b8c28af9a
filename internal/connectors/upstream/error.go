package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Error is a non-2xx provider response. Its text always carries the HTTP
// status line, e.g. "upstream api failed: 500 Internal Server Error".
type Error struct {
	StatusCode int
	Status     string
	Message    string
	URL        string
	RequestID  string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("upstream api failed: ")
	b.WriteString(e.Status)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	var details []string
	if e.URL != "" {
		details = append(details, "url="+e.URL)
	}
	if e.RequestID != "" {
		details = append(details, "request_id="+e.RequestID)
	}
	if len(details) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(details, ", "))
	}
	return b.String()
}

// StatusCode returns the HTTP status of an upstream failure, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func newError(reqURL string, resp *http.Response, body []byte) *Error {
	status := strings.TrimSpace(resp.Status)
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return &Error{
		StatusCode: resp.StatusCode,
		Status:     status,
		Message:    extractErrorMessage(body),
		URL:        safeURL(reqURL),
		RequestID:  headerAny(resp.Header, "x-request-id", "x-ms-request-id", "x-amzn-requestid"),
	}
}

func extractErrorMessage(body []byte) string {
	var payload struct {
		Error            json.RawMessage `json:"error"`
		ErrorDescription string          `json:"error_description"`
		Message          string          `json:"message"`
		Errors           []string        `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := nestedErrorMessage(payload.Error); msg != "" {
			if desc := strings.TrimSpace(payload.ErrorDescription); desc != "" {
				return msg + ": " + desc
			}
			return msg
		}
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return msg
		}
		if len(payload.Errors) > 0 {
			if first := strings.TrimSpace(payload.Errors[0]); first != "" {
				return first
			}
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return ""
	}
	if strings.HasPrefix(msg, "<!DOCTYPE html") || strings.HasPrefix(msg, "<html") {
		return ""
	}
	msg = strings.Join(strings.Fields(msg), " ")
	const maxLen = 300
	if len(msg) > maxLen {
		msg = msg[:maxLen] + "..."
	}
	return msg
}

// nestedErrorMessage accepts both "error":"text" and "error":{"message":"text"}.
func nestedErrorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if msg := strings.TrimSpace(obj.Message); msg != "" {
			return msg
		}
		return strings.TrimSpace(obj.Code)
	}
	return ""
}

func headerAny(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(h.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

// safeURL drops query string, fragment and userinfo.
func safeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
