package www

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/angas/fmi-go/database"
)

// NewLogHandler serves the log page, and with a page parameter the rows of
// that page. level is the minimum level and q filters on message or
// attributes, such as a station name.
func NewLogHandler(logger *slog.Logger, db *database.Database, tm *TemplateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "text/html")

		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			if err := tm.ExecuteToWriter("log.html", nil, w); err != nil {
				logger.Error("handling log request", slog.Any("error", err))
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}

		q := database.LogQuery{
			MinLevel: slog.LevelDebug,
			Text:     r.URL.Query().Get("q"),
			Page:     page,
			PageSize: intOrDefault(r.URL, "pageSize", 25),
		}
		if q.PageSize < 1 {
			q.PageSize = 25
		}
		level := strings.TrimSpace(r.URL.Query().Get("level"))
		if level != "" {
			if err := q.MinLevel.UnmarshalText([]byte(level)); err != nil {
				http.Error(w, "Unknown log level", http.StatusBadRequest)
				return
			}
		}

		entries, more, err := db.GetLogEntries(r.Context(), q)
		if err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		data := struct {
			Page     int
			PageSize int
			Level    string
			Text     string
			More     bool
			Entries  []database.LogEntryRow
		}{
			Page:     page + 1,
			PageSize: q.PageSize,
			Level:    level,
			Text:     q.Text,
			More:     more,
			Entries:  entries,
		}

		if err := tm.ExecuteToWriter("log_entries.html", data, w); err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
