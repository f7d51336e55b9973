package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

// Client-facing messages. All delivery failures are 500s with per-kind text.
const (
	msgNotFound         = "Not found"
	msgTooManyRequests  = "too many requests"
	msgTooLarge         = "request too large"
	msgInvalidJSON      = "invalid JSON"
	msgAuthFailure      = "failed to send message, please try again later"
	msgTransportFailure = "could not send message, please try again later"
	msgInternalError    = "internal server error"
)

type response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Service string `json:"service,omitempty"`
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, response{Status: statusError, Message: message})
}

// writeJSON writes v as UTF-8 JSON without HTML escaping.
func writeJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		code = http.StatusInternalServerError
		buf.Reset()
		buf.WriteString(`{"status":"error","message":"internal server error"}`)
	}
	body := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
