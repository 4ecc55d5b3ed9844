package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"outlay/internal/core"
	applog "outlay/internal/log"
	"outlay/internal/observe"
)

// keepAlive keeps idle proxies from closing the event stream.
const keepAlive = 25 * time.Second

type expensesEvent struct {
	Count int    `json:"count"`
	Total string `json:"total"`
}

type settingsEvent struct {
	Theme    core.Theme    `json:"theme"`
	Currency core.Currency `json:"currency"`
	Limit    string        `json:"limit"`
}

// handleEvents streams change notifications as server-sent events. Both
// subscriptions live exactly as long as the request: when the client goes
// away the context is cancelled and the subscriptions with it.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	flusher, ok := w.(http.Flusher)
	if !ok {
		InternalServerError("Streaming unsupported").Write(w)
		return
	}

	expenses, err := observe.Stream(ctx, s.expenses.ExpenseFeed())
	if err != nil {
		s.storageFailure(w, r, "Error subscribing to expenses", err, applog.OpStream)
		return
	}

	prefs := make(chan core.Preferences, 1)
	sub, err := s.settings.Subscribe(ctx, func(p core.Preferences) {
		select {
		case <-prefs:
		default:
		}
		prefs <- p
	})
	if err != nil {
		s.storageFailure(w, r, "Error subscribing to settings", err, applog.OpStream)
		return
	}
	defer sub.Cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger := applog.FromContext(ctx)
	logger.DebugContext(ctx, "Event stream opened")
	defer logger.DebugContext(ctx, "Event stream closed")

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case items, ok := <-expenses:
			if !ok {
				return
			}
			var total core.Money
			for _, e := range items {
				total = total.Add(e.Amount)
			}
			err = writeEvent(w, "expenses", expensesEvent{Count: len(items), Total: total.String()})
		case p := <-prefs:
			err = writeEvent(w, "settings", settingsEvent{
				Theme:    p.Theme,
				Currency: p.Currency,
				Limit:    core.LimitDisplay(p),
			})
		case <-ticker.C:
			_, err = fmt.Fprint(w, ": ping\n\n")
		}
		if err != nil {
			logger.DebugContext(ctx, "Event stream write failed", applog.FieldError, err)
			return
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
