// Package web is the operator surface: a small authenticated UI to set the
// captured session cookie, stage reservations, start the engine and watch
// the log tail. Access is gated by the daily code rather than a user store.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/securecookie"

	"github.com/example/court-scheduler/internal/booking"
	"github.com/example/court-scheduler/internal/dispatch"
	"github.com/example/court-scheduler/internal/gate"
	"github.com/example/court-scheduler/internal/logging"
)

//go:embed templates/*.html
var fs embed.FS

const sessionCookie = "courtsched_session"

// Server renders the operator UI over one engine/registry pair.
type Server struct {
	Gate     *gate.Gate
	Engine   *dispatch.Engine
	Registry *booking.Registry
	Ring     *logging.Ring

	sc *securecookie.SecureCookie
}

// New wires a Server; hashKey/blockKey feed the securecookie session.
func New(g *gate.Gate, e *dispatch.Engine, reg *booking.Registry, ring *logging.Ring, hashKey, blockKey []byte) *Server {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int((12 * time.Hour).Seconds()))
	return &Server{Gate: g, Engine: e, Registry: reg, Ring: ring, sc: sc}
}

type tmplData struct {
	Title string
	Flash string

	HasCredential bool
	Running       bool
	Pending       []booking.Reservation
	Slots         []string
	LogLines      []string
}

// slotOptions is the union of the summer and winter tables, what the
// original picker offered plus the winter-only blocks.
var slotOptions = []string{
	"06:00|08:00", "07:00|09:00", "08:00|10:00", "09:00|11:00",
	"10:00|12:00", "11:00|13:00", "12:00|14:00", "13:00|15:00",
	"14:00|16:00", "15:00|17:00", "16:00|18:00", "17:00|19:00",
	"18:00|20:00", "19:00|21:00", "20:00|22:00",
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/", s.handleHome)
		r.Post("/credential", s.handleCredential)
		r.Post("/reservations", s.handleCreate)
		r.Post("/reservations/{id}/cancel", s.handleCancel)
		r.Post("/start", s.handleStart)
	})

	return r
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authed(r) {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authed(r *http.Request) bool {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return false
	}
	val := map[string]any{}
	return s.sc.Decode(sessionCookie, c.Value, &val) == nil
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "templates/login.html", tmplData{Title: "Access"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.Gate.Verify(r.FormValue("code"), time.Now()) {
		s.render(w, "templates/login.html", tmplData{Title: "Access", Flash: "Wrong code for today"})
		return
	}
	encoded, err := s.sc.Encode(sessionCookie, map[string]any{"v": 1})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int((12 * time.Hour).Seconds()),
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.renderHome(w, "")
}

func (s *Server) renderHome(w http.ResponseWriter, flash string) {
	s.render(w, "templates/home.html", tmplData{
		Title:         "Reservations",
		Flash:         flash,
		HasCredential: s.Registry.Credential() != "",
		Running:       s.Engine.Running(),
		Pending:       s.Registry.Pending(),
		Slots:         slotOptions,
		LogLines:      s.Ring.Lines(),
	})
}

func (s *Server) handleCredential(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cookie := strings.TrimSpace(r.FormValue("cookie"))
	if cookie == "" || !strings.Contains(cookie, "JSESSIONID=") {
		s.renderHome(w, "Cookie must contain JSESSIONID=...")
		return
	}
	s.Registry.SetCredential(cookie)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	date := strings.ReplaceAll(strings.TrimSpace(r.FormValue("date")), "-", "")
	fromTime, toTime, ok := strings.Cut(r.FormValue("slot"), "|")
	if !ok {
		s.renderHome(w, "Pick a time slot")
		return
	}
	courtNo, err := strconv.Atoi(r.FormValue("court_no"))
	if err != nil || courtNo < 1 {
		s.renderHome(w, "Invalid court number")
		return
	}
	execAt, err := time.ParseInLocation("2006-01-02T15:04", r.FormValue("exec_at"), time.Local)
	if err != nil {
		s.renderHome(w, "Invalid execution time")
		return
	}

	var baseOverride *int
	if tb := strings.TrimSpace(r.FormValue("time_base")); tb != "" {
		n, err := strconv.Atoi(tb)
		if err != nil {
			s.renderHome(w, "Time base must be numeric (leave empty for automatic)")
			return
		}
		baseOverride = &n
	}

	if _, err := s.Registry.Create(date, fromTime, toTime, courtNo, execAt, baseOverride); err != nil {
		s.renderHome(w, err.Error())
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	if !s.Engine.Cancel(id) {
		s.renderHome(w, fmt.Sprintf("Reservation %d was not pending or queued", id))
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if s.Registry.Credential() == "" {
		s.renderHome(w, "Set the session cookie before starting")
		return
	}
	s.Engine.Start()
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) render(w http.ResponseWriter, name string, data tmplData) {
	t, err := template.ParseFS(fs, "templates/base.html", name)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
	}
}

// Start serves h until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv.ListenAndServe()
}
