package backend

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError ist eine Nicht-2xx-Antwort des Backends
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// parseHTTPError zieht die Fehlermeldung aus dem Feld "message". Es darf ein
// String sein oder ein Objekt mit "message" bzw. "error"; sonst "HTTP <status>".
func parseHTTPError(status int, raw []byte) *APIError {
	e := &APIError{Status: status, Message: fmt.Sprintf("HTTP %d", status)}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return e
	}
	switch m := body["message"].(type) {
	case string:
		e.Message = m
	case map[string]any:
		if s, ok := m["message"].(string); ok {
			e.Message = s
		} else if s, ok := m["error"].(string); ok {
			e.Message = s
		}
	}
	return e
}

// Message liefert die eine menschenlesbare Meldung, die der Aufrufer anzeigt
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "request failed"
	}
	return msg
}
