// Package server provides the HTTP server and handlers.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/bryan-buckman/lolsync/internal/database"
	"github.com/bryan-buckman/lolsync/internal/fetch"
	"github.com/bryan-buckman/lolsync/internal/model"
	"github.com/bryan-buckman/lolsync/internal/opml"
	"github.com/bryan-buckman/lolsync/internal/query"
)

// DefaultLimit caps table views when no limit is given.
const DefaultLimit = 100

// Server is the main HTTP server.
type Server struct {
	env       fetch.Env
	account   fetch.Account
	addresses *fetch.AddressCache
	syncs     map[string]fetch.Updater
	poller    *fetch.Poller
	router    chi.Router
	log       logrus.FieldLogger

	mu   sync.Mutex
	book model.AddressBook
}

// New creates a new server. The directory, garden and status log syncs are
// available under /api/sync and polled in the background when auto-loading.
func New(ctx context.Context, env fetch.Env, account fetch.Account) (*Server, error) {
	if env.Log == nil {
		env.Log = logrus.StandardLogger()
	}
	book, err := fetch.LoadAddressBook(ctx, env, account)
	if err != nil {
		return nil, fmt.Errorf("load address book: %w", err)
	}

	s := &Server{
		env:       env,
		account:   account,
		addresses: fetch.NewAddressCache(env),
		syncs: map[string]fetch.Updater{
			fetch.DirectorySync: fetch.NewDirectorySync(env),
			fetch.GardenSync:    fetch.NewGardenFetcher(env),
			fetch.StatusLogSync: fetch.NewStatusLogFetcher(env),
		},
		log:  env.Log,
		book: book,
	}

	targets := []fetch.Updater{s.syncs[fetch.DirectorySync], s.syncs[fetch.GardenSync], s.syncs[fetch.StatusLogSync]}
	if book.Me != "" {
		targets = append(targets, ownAddress{s})
	}
	interval := model.DefaultReloadDuration
	if env.Prefs.ReloadDuration != nil {
		interval = *env.Prefs.ReloadDuration
	}
	s.poller = fetch.NewPoller(interval, env.Log, targets...)

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Route("/api", func(r chi.Router) {
		r.Get("/tables/{table}", s.handleTable)
		r.Get("/tables/{table}/{owner}/actions", s.handleActions)
		r.Get("/filters/{token}", s.handleFilter)
		r.Get("/address-book", s.handleAddressBook)
		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handleSaveSettings)
		r.Post("/address/{address}/refresh", s.handleRefreshAddress)
		r.Get("/address/{address}/state", s.handleAddressState)
		r.Post("/address/{address}/status/{id}/refresh", s.handleRefreshStatus)
		r.Post("/address/{address}/purl/{name}/refresh", s.handleRefreshPURL)
		r.Post("/sync/{name}", s.handleSync)
		r.Post("/import-opml", s.handleImportOPML)
		r.Get("/export-opml", s.handleExportOPML)
	})

	s.router = r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start starts the server and poller.
func (s *Server) Start(addr string) error {
	s.poller.Start()
	s.log.Infof("Server starting on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// Stop stops the poller.
func (s *Server) Stop() {
	s.poller.Stop()
}

// ownAddress polls the aggregate of the signed-in address. It resolves the
// fetcher against the current AddressBook on every pass, so a reloaded book
// switches polling to the recreated fetcher.
type ownAddress struct{ s *Server }

func (o ownAddress) Name() string   { return "address/" + o.s.currentBook().Me }
func (o ownAddress) AutoLoad() bool { return o.s.env.Prefs.AutoLoad }

func (o ownAddress) UpdateIfNeeded(ctx context.Context, force bool) error {
	book := o.s.currentBook()
	return o.s.addresses.Get(book.Me, book).UpdateIfNeeded(ctx, force)
}

func (s *Server) currentBook() model.AddressBook {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book
}

// reloadBook rebuilds the AddressBook after the social graph may have changed.
func (s *Server) reloadBook(ctx context.Context) model.AddressBook {
	book, err := fetch.LoadAddressBook(ctx, s.env, s.account)
	if err != nil {
		s.log.WithError(err).Warn("reload address book")
		return s.currentBook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.book = book
	return book
}

// --- API Handlers ---

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	table, ok := model.TableByName(chi.URLParam(r, "table"))
	if !ok {
		http.Error(w, "Unknown table", http.StatusNotFound)
		return
	}
	params := r.URL.Query()
	filters, ok := query.ParseFilters(params["filter"])
	if !ok {
		http.Error(w, "Invalid filter", http.StatusBadRequest)
		return
	}
	order := query.NewestFirst
	if raw := params.Get("sort"); raw != "" {
		if order, ok = query.ParseSort(raw); !ok {
			http.Error(w, "Invalid sort", http.StatusBadRequest)
			return
		}
	}
	limit := DefaultLimit
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	book := s.currentBook()
	rows, err := s.env.Store.Select(r.Context(), database.Query{
		Table: table,
		Where: query.Compile(filters, book, table, s.now()),
		Order: order,
		Limit: limit,
	})
	if err != nil {
		s.log.WithError(err).WithField("table", table.Name).Error("select failed")
		http.Error(w, "Query failed", http.StatusInternalServerError)
		return
	}

	records := make([]json.RawMessage, len(rows))
	for i, row := range rows {
		records[i] = row
	}
	writeJSON(w, map[string]any{
		"table":   table.Name,
		"sort":    order.String(),
		"count":   len(records),
		"records": records,
	})
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	table, ok := model.TableByName(chi.URLParam(r, "table"))
	if !ok {
		http.Error(w, "Unknown table", http.StatusNotFound)
		return
	}
	key := model.Key{Owner: chi.URLParam(r, "owner"), ID: r.URL.Query().Get("id")}
	rec, err := database.Lookup(r.Context(), s.env.Store, table, key)
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "Record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.WithError(err).WithField("table", table.Name).Error("lookup failed")
		http.Error(w, "Lookup failed", http.StatusInternalServerError)
		return
	}
	resp := map[string]any{
		"owner":   key.Owner,
		"id":      key.ID,
		"actions": model.Actions(rec, s.currentBook()),
	}
	if sh, ok := rec.(model.Shareable); ok {
		resp["share_url"] = sh.ShareURL()
	}
	writeJSON(w, resp)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	f, ok := query.ParseFilter(chi.URLParam(r, "token"))
	if !ok {
		http.Error(w, "Invalid filter", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{
		"token":  f.String(),
		"kind":   f.Kind().String(),
		"owners": f.Owners(),
		"age":    int64(f.Age() / time.Second),
		"text":   f.Text(),
	})
}

func (s *Server) handleAddressBook(w http.ResponseWriter, r *http.Request) {
	book := s.currentBook()
	writeJSON(w, map[string]any{
		"signed_in":       book.SignedIn(),
		"me":              book.Me,
		"mine":            book.Mine,
		"following":       book.Following,
		"followers":       book.Followers,
		"pinned":          book.Pinned,
		"blocked":         book.Blocked,
		"applied_blocked": book.AppliedBlocked,
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	book := s.currentBook()
	writeJSON(w, map[string]any{
		"pinned":  book.Pinned,
		"blocked": book.Blocked,
	})
}

// handleSaveSettings replaces the local pinned and blocked lists. Omitted fields
// are left alone.
func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pinned  *[]string `json:"pinned"`
		Blocked *[]string `json:"blocked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Pinned != nil {
		if err := fetch.SetPinned(r.Context(), s.env.Store, *req.Pinned); err != nil {
			http.Error(w, "Failed to save", http.StatusInternalServerError)
			return
		}
	}
	if req.Blocked != nil {
		if err := fetch.SetBlocked(r.Context(), s.env.Store, *req.Blocked); err != nil {
			http.Error(w, "Failed to save", http.StatusInternalServerError)
			return
		}
	}
	book := s.reloadBook(r.Context())
	writeJSON(w, map[string]any{
		"status":  "ok",
		"pinned":  book.Pinned,
		"blocked": book.Blocked,
	})
}

func (s *Server) handleRefreshAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	address := chi.URLParam(r, "address")
	force := r.URL.Query().Get("force") == "1"
	book := s.currentBook()
	f := s.addresses.Get(address, book)
	err := f.UpdateIfNeeded(ctx, force)
	if book.Owns(address) {
		s.reloadBook(ctx)
	}
	s.writeStates(w, f, err)
}

func (s *Server) handleAddressState(w http.ResponseWriter, r *http.Request) {
	f := s.addresses.Get(chi.URLParam(r, "address"), s.currentBook())
	s.writeStates(w, f, f.Snapshot().Err)
}

func (s *Server) handleRefreshStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f := s.addresses.Get(chi.URLParam(r, "address"), s.currentBook())
	s.refreshItem(w, r, f, "status/"+id, f.Status(id))
}

func (s *Server) handleRefreshPURL(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	f := s.addresses.Get(chi.URLParam(r, "address"), s.currentBook())
	s.refreshItem(w, r, f, "purl/"+name, f.PURL(name))
}

// refreshItem updates one memoized single-item fetcher of f.
func (s *Server) refreshItem(w http.ResponseWriter, r *http.Request, f *fetch.AddressFetcher, item string, req *fetch.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	err := req.UpdateIfNeeded(ctx, r.URL.Query().Get("force") == "1")
	resp := map[string]any{
		"address": f.Address(),
		"item":    item,
		"state":   req.State(),
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	writeJSON(w, resp)
}

func (s *Server) writeStates(w http.ResponseWriter, f *fetch.AddressFetcher, err error) {
	resp := map[string]any{
		"address": f.Address(),
		"states":  f.States(),
	}
	if snap := f.Snapshot(); snap.Loaded != nil {
		resp["loaded"] = snap.Loaded
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	writeJSON(w, resp)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	u, ok := s.syncs[name]
	if !ok {
		http.Error(w, "Unknown sync", http.StatusNotFound)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	err := u.UpdateIfNeeded(ctx, r.URL.Query().Get("force") == "1")
	resp := map[string]any{"sync": name, "status": "ok"}
	if b, ok := u.(*fetch.BulkSync); ok {
		resp["result"] = b.LastResult()
	}
	if err != nil {
		resp["status"] = "error"
		resp["error"] = err.Error()
		writeJSONStatus(w, http.StatusBadGateway, resp)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleImportOPML(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("opml")
	if err != nil {
		http.Error(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	entries, err := opml.Parse(file)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse OPML: %v", err), http.StatusBadRequest)
		return
	}

	book := s.currentBook()
	found := opml.Addresses(entries)
	imported := 0
	for _, addr := range found {
		if !book.IsPinned(addr) {
			imported++
		}
	}
	if err := fetch.SetPinned(r.Context(), s.env.Store, append(append([]string(nil), book.Pinned...), found...)); err != nil {
		s.log.WithError(err).Error("save pinned addresses")
		http.Error(w, "Failed to save", http.StatusInternalServerError)
		return
	}
	s.reloadBook(r.Context())

	writeJSON(w, map[string]any{
		"status":   "ok",
		"imported": imported,
		"total":    len(entries),
	})
}

func (s *Server) handleExportOPML(w http.ResponseWriter, r *http.Request) {
	data, err := opml.ExportFollowing(s.currentBook(), s.now())
	if err != nil {
		http.Error(w, "Failed to export", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", "attachment; filename=lolsync-following.opml")
	w.Write(data)
}

// --- Helpers ---

func (s *Server) now() time.Time {
	if s.env.Now != nil {
		return s.env.Now()
	}
	return time.Now()
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		logrus.WithError(err).Warn("encode response")
	}
}
