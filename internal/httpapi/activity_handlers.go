package httpapi

import (
	"net/http"
	"strings"
	"time"

	"userdesk.org/internal/activity"
)

func (a *API) handleActivityList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	q := r.URL.Query()
	page, err := parsePositiveInt(q.Get("page"), 1, 1, 1_000_000)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	limit, err := parsePositiveInt(q.Get("limit"), 20, 1, 100)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	filter := activity.Filter{
		UserID: strings.TrimSpace(q.Get("user")),
		Action: activity.Action(strings.TrimSpace(q.Get("action"))),
	}
	if filter.Action != "" && !filter.Action.Valid() {
		respondError(w, r, http.StatusBadRequest, "unknown action filter")
		return
	}
	if raw := strings.TrimSpace(q.Get("startDate")); raw != "" {
		start, err := parseDate(raw)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "startDate must be an RFC 3339 date")
			return
		}
		filter.Start = &start
	}
	if raw := strings.TrimSpace(q.Get("endDate")); raw != "" {
		end, err := parseDate(raw)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "endDate must be an RFC 3339 date")
			return
		}
		filter.End = &end
	}
	if filter.Start == nil && filter.End == nil {
		days, err := parsePositiveInt(q.Get("days"), 0, 1, 365)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "days must be between 1 and 365")
			return
		}
		filter.Days = days
	}

	entries, total, err := a.rec.Query(r.Context(), filter, activity.Page{Number: page, Size: limit})
	if err != nil {
		fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	respondPage(w, entries, newPagination(page, limit, total))
}

func (a *API) handleActivityStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	days, err := parsePositiveInt(r.URL.Query().Get("days"), 0, 1, 365)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "days must be between 1 and 365")
		return
	}

	stats, err := a.rec.Stats(r.Context(), days)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondData(w, http.StatusOK, stats)
}

// parseDate accepts a full RFC 3339 timestamp or a bare date.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
