package waf

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"governedchat/internal/config"
)

// RouteEnforced reports whether path is one of the WAF-enforced routes.
func RouteEnforced(path string, routes []string) bool {
	for _, r := range routes {
		if r == path {
			return true
		}
	}
	return false
}

type chatRequestBody struct {
	UserText string `json:"user_text"`
}

// ValidateRequest enforces content-type, payload-size, JSON well-formedness,
// and user_text length, returning the extracted user_text
// on success. It consumes and replaces req.Body so downstream handlers can
// still read it if needed.
func ValidateRequest(req *http.Request, settings config.WAFSettings) (string, *Error) {
	contentType := req.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "application/json") {
		return "", newError(http.StatusUnsupportedMediaType, "content_type_invalid", "Content-Type must be application/json")
	}

	if cl := req.Header.Get("Content-Length"); cl != "" {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil {
			return "", newError(http.StatusBadRequest, "invalid_content_length", "Invalid Content-Length header.")
		}
		if n > settings.MaxBodyBytes {
			return "", newError(http.StatusRequestEntityTooLarge, "payload_too_large", "Payload exceeds maximum size.")
		}
	}

	limited := io.LimitReader(req.Body, settings.MaxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return "", newError(http.StatusBadRequest, "invalid_payload", "Could not read request body.")
	}
	if int64(len(body)) > settings.MaxBodyBytes {
		return "", newError(http.StatusRequestEntityTooLarge, "payload_too_large", "Payload exceeds maximum size.")
	}
	req.Body = io.NopCloser(bytes.NewReader(body))

	var payload chatRequestBody
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if len(body) == 0 {
		return "", newError(http.StatusBadRequest, "invalid_payload", "user_text is required.")
	}
	if err := dec.Decode(&payload); err != nil {
		return "", newError(http.StatusBadRequest, "invalid_json", "Request body must be valid JSON.")
	}

	if payload.UserText == "" {
		return "", newError(http.StatusBadRequest, "invalid_payload", "user_text is required.")
	}
	if len(payload.UserText) > settings.MaxUserTextChars {
		return "", newError(http.StatusRequestEntityTooLarge, "user_text_too_long", "user_text exceeds maximum length.")
	}

	return payload.UserText, nil
}
