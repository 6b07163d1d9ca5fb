package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/allstar/stockwatch/pkg/auth"
	"github.com/allstar/stockwatch/pkg/domain"
	"github.com/allstar/stockwatch/pkg/limiter"
	"github.com/allstar/stockwatch/pkg/news"
	"github.com/allstar/stockwatch/pkg/repository"
)

// listWatchlistHandler returns the caller's watchlist, newest first
func (s *Server) listWatchlistHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, limiter.TierAPI)
	if !ok {
		return
	}

	entries, err := s.watchlist.List(r.Context(), user.ID)
	if err != nil {
		lgr.Printf("[ERROR] failed to list watchlist for %s: %v", user.ID, err)
		renderError(w, r, fmt.Errorf("failed to load watchlist"), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []domain.WatchlistEntry{}
	}

	renderData(w, r, http.StatusOK, entries)
}

// addWatchlistRequest is the POST /watchlist payload
type addWatchlistRequest struct {
	Symbol  string `json:"symbol"`
	Company string `json:"company"`
}

// addWatchlistHandler adds a symbol to the caller's watchlist
func (s *Server) addWatchlistHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, limiter.TierAPI)
	if !ok {
		return
	}

	var req addWatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		renderError(w, r, fmt.Errorf("symbol is required"), http.StatusBadRequest)
		return
	}

	entry, err := s.watchlist.Add(r.Context(), user.ID, req.Symbol, req.Company)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		renderError(w, r, fmt.Errorf("symbol already in watchlist"), http.StatusConflict)
		return
	case err != nil:
		lgr.Printf("[ERROR] failed to add %q to watchlist for %s: %v", req.Symbol, user.ID, err)
		renderError(w, r, fmt.Errorf("failed to add symbol"), http.StatusInternalServerError)
		return
	}

	renderData(w, r, http.StatusCreated, entry)
}

// removeWatchlistHandler deletes one symbol from the caller's watchlist
func (s *Server) removeWatchlistHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, limiter.TierAPI)
	if !ok {
		return
	}

	symbol := strings.TrimSpace(r.PathValue("symbol"))
	if symbol == "" {
		renderError(w, r, fmt.Errorf("symbol is required"), http.StatusBadRequest)
		return
	}

	err := s.watchlist.Remove(r.Context(), user.ID, symbol)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		renderError(w, r, fmt.Errorf("symbol not in watchlist"), http.StatusNotFound)
		return
	case err != nil:
		lgr.Printf("[ERROR] failed to remove %q from watchlist for %s: %v", symbol, user.ID, err)
		renderError(w, r, fmt.Errorf("failed to remove symbol"), http.StatusInternalServerError)
		return
	}

	renderJSON(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("%s removed from watchlist", strings.ToUpper(symbol)),
	})
}

// quoteHandler returns the current price snapshot for a symbol
func (s *Server) quoteHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, limiter.TierQuote)
	if !ok {
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		renderError(w, r, fmt.Errorf("symbol query parameter is required"), http.StatusBadRequest)
		return
	}

	quote, err := s.quotes.Quote(r.Context(), symbol)
	switch {
	case errors.Is(err, news.ErrNoQuote):
		renderError(w, r, fmt.Errorf("no quote data for %s", symbol), http.StatusNotFound)
		return
	case err != nil:
		lgr.Printf("[ERROR] quote fetch failed for %s (user %s): %v", symbol, user.ID, err)
		renderError(w, r, fmt.Errorf("failed to fetch quote"), http.StatusInternalServerError)
		return
	}

	renderData(w, r, http.StatusOK, quote)
}

// runDigestHandler triggers a digest batch immediately. Operational endpoint,
// strict rate limit keyed by caller.
func (s *Server) runDigestHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, limiter.TierStrict)
	if !ok {
		return
	}

	lgr.Printf("[INFO] digest run triggered via api by %s", user.Email)

	// digest outlives the request, its own context detaches from the client
	report := s.digest.DigestNow(context.WithoutCancel(r.Context()))

	code := http.StatusOK
	if !report.Success {
		code = http.StatusInternalServerError
	}
	renderJSON(w, r, code, report)
}

// userCreatedRequest is the user-created hook payload
type userCreatedRequest struct {
	Email   string `json:"email"`
	Profile string `json:"profile"`
}

// userCreatedHandler sends the welcome email for a freshly created user. The
// identity provider calls this after signup.
func (s *Server) userCreatedHandler(w http.ResponseWriter, r *http.Request) {
	var req userCreatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		renderError(w, r, fmt.Errorf("email is required"), http.StatusBadRequest)
		return
	}

	if res := s.limiter.CheckTier(limiter.TierStrict, req.Email); !res.Allowed {
		renderRateLimited(w, r, res)
		return
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		renderError(w, r, fmt.Errorf("user not found"), http.StatusNotFound)
		return
	case err != nil:
		lgr.Printf("[ERROR] user lookup failed for %s: %v", req.Email, err)
		renderError(w, r, fmt.Errorf("failed to look up user"), http.StatusInternalServerError)
		return
	}

	if err := s.digest.SendWelcome(context.WithoutCancel(r.Context()), *user, req.Profile); err != nil {
		lgr.Printf("[ERROR] welcome email failed for %s: %v", req.Email, err)
		renderError(w, r, fmt.Errorf("failed to send welcome email"), http.StatusInternalServerError)
		return
	}

	renderJSON(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "welcome email sent",
	})
}

// authorize authenticates the request and applies the given rate limit tier
// keyed by user id. On failure the response is already written.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, tier string) (*domain.User, bool) {
	user, err := s.auth.UserFromRequest(r)
	if err != nil {
		if !errors.Is(err, auth.ErrUnauthorized) {
			lgr.Printf("[WARN] auth failure: %v", err)
		}
		renderError(w, r, fmt.Errorf("unauthorized"), http.StatusUnauthorized)
		return nil, false
	}

	if res := s.limiter.CheckTier(tier, user.ID); !res.Allowed {
		renderRateLimited(w, r, res)
		return nil, false
	}

	return user, true
}
