package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/homecage/reachscope/internal/db"
	"github.com/homecage/reachscope/internal/httputil"
	"github.com/homecage/reachscope/internal/reach"
	"github.com/homecage/reachscope/internal/reach/l3events"
	"github.com/homecage/reachscope/internal/reach/l4trajectory"
	"github.com/homecage/reachscope/internal/reach/l6metrics"
	"github.com/homecage/reachscope/internal/reach/report"
)

func handleServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBPath, "SQLite event store")
	listen := fs.String("listen", ":8080", "Listen address")
	assets := fs.String("assets", "", "Host serving the echarts scripts (default CDN)")
	fs.Parse(args)

	store, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	mux := newServeMux(store, *assets)
	store.AttachAdminRoutes(mux)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr: *listen,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("got request %s %q", r.Method, r.URL.Path)
			mux.ServeHTTP(w, r)
		}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()
	log.Printf("serving %s on %s", *dbPath, *listen)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("failed to shut down server: %v", err)
	}
}

type eventView struct {
	ID      string            `json:"id"`
	Index   int               `json:"index"`
	Span    l3events.Span     `json:"span"`
	Hand    l4trajectory.Hand `json:"hand"`
	Label   string            `json:"label"`
	Metrics l6metrics.Metrics `json:"metrics"`
}

func viewOf(ev *reach.Event) eventView {
	return eventView{ID: ev.ID, Index: ev.Index, Span: ev.Span, Hand: ev.Hand, Label: ev.Label, Metrics: ev.Metrics}
}

func storeError(err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return httputil.WithStatus(http.StatusNotFound, err)
	case errors.Is(err, db.ErrInvalidLabel):
		return httputil.WithStatus(http.StatusBadRequest, err)
	}
	return err
}

func newServeMux(store *db.DB, assetsHost string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /runs", httputil.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		runs, err := store.ListRuns(0)
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, runs)
		return nil
	}))

	mux.Handle("GET /runs/{id}/events", httputil.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		run, err := store.GetRun(r.PathValue("id"))
		if err != nil {
			return storeError(err)
		}
		events, err := store.Events(run.RunID, false)
		if err != nil {
			return err
		}
		views := make([]eventView, len(events))
		for i, ev := range events {
			views[i] = viewOf(ev)
		}
		httputil.WriteJSON(w, http.StatusOK, views)
		return nil
	}))

	mux.Handle("GET /runs/{id}/report", httputil.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		run, err := store.GetRun(r.PathValue("id"))
		if err != nil {
			return storeError(err)
		}
		events, err := store.Events(run.RunID, true)
		if err != nil {
			return err
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := report.WriteHTML(w, events, report.PageOptions{Title: run.Source, AssetsHost: assetsHost}); err != nil {
			log.Printf("failed to render report for run %s: %v", run.RunID, err)
		}
		return nil
	}))

	mux.Handle("POST /events/{id}/label", httputil.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		label := r.FormValue("label")
		if label == "" {
			return httputil.Errorf(http.StatusBadRequest, "missing label")
		}
		if err := store.UpdateLabel(r.PathValue("id"), label); err != nil {
			return storeError(err)
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	}))

	return mux
}
