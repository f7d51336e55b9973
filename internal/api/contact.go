package api

import (
	"io"
	"net/http"

	"github.com/shineum/contact-api/internal/contact"
	"github.com/shineum/contact-api/internal/mailer"
	"github.com/shineum/contact-api/internal/stats"
)

// handleContact runs one submission through identify, rate check, ingest,
// honeypot, validate and dispatch. Each step either ends the request or
// hands over to the next one.
func (h *Handler) handleContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client := ClientIP(r)

	if !h.limiter.Allow(client) {
		h.throttleLog.Do(func() {
			h.logger.WarnContext(ctx, "rate limit exceeded", "client", client)
		})
		h.record(ctx, stats.RateLimited)
		writeError(w, http.StatusTooManyRequests, msgTooManyRequests)
		return
	}

	if r.ContentLength > h.maxBody {
		h.record(ctx, stats.TooLarge)
		writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
		return
	}

	// Bodies without a declared length are capped while reading.
	raw, err := io.ReadAll(io.LimitReader(r.Body, h.maxBody+1))
	if err != nil {
		h.logger.DebugContext(ctx, "failed to read request body", "client", client, "error", err)
		h.record(ctx, stats.InvalidJSON)
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if int64(len(raw)) > h.maxBody {
		h.record(ctx, stats.TooLarge)
		writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
		return
	}

	sub, err := contact.Decode(raw)
	if err != nil {
		h.record(ctx, stats.InvalidJSON)
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	// Bots get the same answer as a delivered message.
	if sub.IsBot() {
		h.logger.InfoContext(ctx, "honeypot triggered, message discarded", "client", client)
		h.record(ctx, stats.Honeypot)
		writeJSON(w, http.StatusOK, response{Status: statusOK})
		return
	}

	if msg := contact.Validate(sub); msg != "" {
		h.record(ctx, stats.Invalid)
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	sub = sub.Trimmed()
	out := h.dispatcher.Send(ctx, sub.Name, sub.Email, sub.Phone, sub.Message)

	switch out.Kind {
	case mailer.Success:
		h.logger.InfoContext(ctx, "contact message sent", "client", client)
		h.record(ctx, stats.Delivered)
		writeJSON(w, http.StatusOK, response{Status: statusOK})
	case mailer.AuthFailure:
		h.record(ctx, stats.AuthFailure)
		writeError(w, http.StatusInternalServerError, msgAuthFailure)
	case mailer.TransportFailure:
		h.record(ctx, stats.TransportFailure)
		writeError(w, http.StatusInternalServerError, msgTransportFailure)
	default:
		h.record(ctx, stats.UnknownFailure)
		writeError(w, http.StatusInternalServerError, msgInternalError)
	}
}
