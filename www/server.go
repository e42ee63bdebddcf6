package www

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/angas/fmi-go/config"
	"github.com/angas/fmi-go/database"
	"github.com/angas/fmi-go/slice"
	"github.com/angas/fmi-go/task"
	"github.com/angas/fmi-go/types"
)

// Provider is what the api endpoints proxy to, usually an *fmi.Client.
type Provider interface {
	types.ObservationProvider
	types.ForecastProvider
}

type Server struct {
	logger *slog.Logger
	config config.AppConfigApi
	db     *database.Database
	hub    *Hub
	tm     *TemplateManager
	rtm    *RealTimeManager
	mux    *http.ServeMux
}

//go:embed static
var embeddedStaticDir embed.FS

func StartServer(db *database.Database, tasks *task.Tasks, provider Provider, cnfg *config.AppConfig, version string) (*Server, error) {
	logger := slog.Default().With("module", "www")
	tm, err := NewTemplateManager(logger, cnfg.Api.WwwDir)
	if err != nil {
		return nil, fmt.Errorf("template manager initialization: %w", err)
	}

	stations := slice.Map(cnfg.Stations, config.AppConfigStation.Key)
	model := cnfg.Forecast.GetModel()

	s := &Server{
		logger: logger,
		config: cnfg.Api,
		db:     db,
		hub:    NewHub(logger),
		tm:     tm,
		rtm:    NewRealTimeManager(db, stations),
		mux:    http.NewServeMux(),
	}

	logReqMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.String("remoteAddr", r.RemoteAddr))
			next.ServeHTTP(w, r)
		})
	}

	s.mux.Handle("/", staticFilesHandler(cnfg.Api.WwwDir))

	s.mux.Handle("/observations", logReqMW(NewObservationsHandler(
		logger.With(slog.String("handler", "observations")),
		stations,
		s.db,
		s.tm,
		tasks.ObservationTask)))

	s.mux.Handle("/forecast", logReqMW(NewForecastHandler(
		logger.With(slog.String("handler", "forecast")),
		stations,
		model,
		s.db,
		s.tm,
		tasks.ForecastTask)))

	s.mux.Handle("/log", logReqMW(NewLogHandler(
		logger.With(slog.String("handler", "log")),
		s.db,
		s.tm)))

	s.mux.Handle("/chart", logReqMW(NewChartHandler(
		logger.With(slog.String("handler", "chart")),
		stations,
		model,
		s.db)))

	s.mux.Handle("/sys_info", logReqMW(NewSysInfoHandler(
		logger.With(slog.String("handler", "sys_info")),
		s.db,
		s.tm,
		SysInfo{
			Version:    version,
			StartedAt:  time.Now(),
			Database:   db.Path(),
			FmiBaseUrl: cnfg.Fmi.GetBaseUrl(),
			Stations:   stations,
		})))

	s.mux.Handle("/api/observations", logReqMW(NewApiObservationsHandler(
		logger.With(slog.String("handler", "api_observations")),
		provider)))

	s.mux.Handle("/api/forecast", logReqMW(NewApiForecastHandler(
		logger.With(slog.String("handler", "api_forecast")),
		provider)))

	s.mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		name := r.RemoteAddr + " " + r.Header.Get("User-Agent")
		client, err := NewClient(s.hub, w, r, name)
		if err != nil {
			s.logger.Error("new websocket client failed", slog.Any("error", err))
			return
		}
		if !s.hub.Join(client) {
			client.conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	})

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Run(ctx context.Context) {
	s.logger.Info("starting server...", "port", s.config.Port)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Address, s.config.Port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.hub.Run(ctx)

	srvErrors := make(chan error, 1)

	go func() {
		srvErrors <- srv.ListenAndServe()
	}()

	ticker := time.NewTicker(time.Second * 5)
	defer ticker.Stop()

	// Keeping state to avoid spamming logs
	fetchLatestErrorState := false

	for {
		select {
		case err := <-srvErrors:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("server error", slog.Any("error", err))
			}
			return

		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			err := srv.Shutdown(shutdownCtx)
			if err != nil {
				s.logger.Error("server shutdown failed", slog.Any("error", err))
			}
			return

		case <-ticker.C:
			data, err := s.rtm.Get(ctx)
			if err != nil {
				if !fetchLatestErrorState {
					fetchLatestErrorState = true
					s.logger.Warn("failed to get latest observations", slog.Any("error", err))
				}
				continue
			}
			fetchLatestErrorState = false

			buf, err := s.tm.Execute("latest.html", data)
			if err != nil {
				s.logger.Error("template execution failed", slog.Any("error", err))
				continue
			}

			select {
			case s.hub.Broadcast <- buf.Bytes():
			case <-ctx.Done():
			}
		}
	}
}

func staticFilesHandler(extDir *string) http.Handler {
	if extDir != nil && *extDir != "" {
		staticDir := path.Join(*extDir, "static")
		if _, err := os.Stat(staticDir); err == nil {
			return http.FileServer(http.Dir(staticDir))
		}
	}

	fsys, err := fs.Sub(embeddedStaticDir, "static")
	if err != nil {
		log.Panic(err)
	}
	return http.FileServer(http.FS(fsys))
}
