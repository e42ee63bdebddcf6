package www

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/angas/fmi-go/database"
	"github.com/angas/fmi-go/slice"
)

type SysInfo struct {
	Version    string
	StartedAt  time.Time
	Database   string
	FmiBaseUrl string
	Stations   []string
}

func (s SysInfo) Uptime() time.Duration {
	return time.Since(s.StartedAt).Round(time.Second)
}

// NewSysInfoHandler shows the running version with the stations that have
// data stored. Stations removed from the configuration stay listed until their
// data is purged.
func NewSysInfoHandler(logger *slog.Logger, db *database.Database, tm *TemplateManager, sysInfo SysInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		stored, err := db.GetStations(r.Context())
		if err != nil {
			logger.Error("handling sys_info request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		data := struct {
			SysInfo
			Stored       []string
			Unconfigured []string
		}{
			SysInfo: sysInfo,
			Stored:  stored,
			Unconfigured: slice.Filter(stored, func(s string) bool {
				return !slices.Contains(sysInfo.Stations, s)
			}),
		}

		w.Header().Set("Content-Type", "text/html")

		if err := tm.ExecuteToWriter("sys_info.html", data, w); err != nil {
			logger.Error("handling sys_info request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
