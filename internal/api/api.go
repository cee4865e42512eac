// Package api exposes the Tally services over a JSON REST interface.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tallyup/tally/internal/auth"
	"github.com/tallyup/tally/internal/middleware"
	"github.com/tallyup/tally/internal/service"
)

// Server holds the services behind the HTTP surface.
type Server struct {
	auth     *service.AuthService
	groups   *service.GroupService
	ledger   *service.LedgerService
	comments *service.CommentService
	jwt      *auth.JWTManager
}

// NewServer creates an API server over the given services.
func NewServer(
	authService *service.AuthService,
	groupService *service.GroupService,
	ledgerService *service.LedgerService,
	commentService *service.CommentService,
	jwtManager *auth.JWTManager,
) *Server {
	return &Server{
		auth:     authService,
		groups:   groupService,
		ledger:   ledgerService,
		comments: commentService,
		jwt:      jwtManager,
	}
}

// Routes builds the route table. Registration and login are public; every
// other route requires a valid bearer token.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	authed := middleware.RequireAuth(s.jwt)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	mux.Handle("GET /api/me", authed(http.HandlerFunc(s.handleMe)))

	mux.Handle("POST /api/groups", authed(http.HandlerFunc(s.handleCreateGroup)))
	mux.Handle("GET /api/groups", authed(http.HandlerFunc(s.handleListGroups)))
	mux.Handle("POST /api/groups/join", authed(http.HandlerFunc(s.handleJoinGroup)))
	mux.Handle("GET /api/groups/{groupID}", authed(http.HandlerFunc(s.handleGetGroup)))
	mux.Handle("POST /api/groups/{groupID}/leave", authed(http.HandlerFunc(s.handleLeaveGroup)))
	mux.Handle("GET /api/groups/{groupID}/balances", authed(http.HandlerFunc(s.handleBalances)))
	mux.Handle("GET /api/groups/{groupID}/feed", authed(http.HandlerFunc(s.handleFeed)))

	mux.Handle("POST /api/groups/{groupID}/expenses", authed(http.HandlerFunc(s.handleCreateExpense)))
	mux.Handle("GET /api/expenses/{expenseID}", authed(http.HandlerFunc(s.handleGetExpense)))
	mux.Handle("PATCH /api/expenses/{expenseID}", authed(http.HandlerFunc(s.handleUpdateExpense)))
	mux.Handle("DELETE /api/expenses/{expenseID}", authed(http.HandlerFunc(s.handleDeleteExpense)))

	mux.Handle("POST /api/groups/{groupID}/payments", authed(http.HandlerFunc(s.handleCreatePayment)))
	mux.Handle("GET /api/payments/{paymentID}", authed(http.HandlerFunc(s.handleGetPayment)))
	mux.Handle("PATCH /api/payments/{paymentID}", authed(http.HandlerFunc(s.handleUpdatePayment)))
	mux.Handle("DELETE /api/payments/{paymentID}", authed(http.HandlerFunc(s.handleDeletePayment)))

	mux.Handle("POST /api/expenses/{expenseID}/comments", authed(http.HandlerFunc(s.handleAddExpenseComment)))
	mux.Handle("GET /api/expenses/{expenseID}/comments", authed(http.HandlerFunc(s.handleListExpenseComments)))
	mux.Handle("POST /api/payments/{paymentID}/comments", authed(http.HandlerFunc(s.handleAddPaymentComment)))
	mux.Handle("GET /api/payments/{paymentID}/comments", authed(http.HandlerFunc(s.handleListPaymentComments)))

	return mux
}

// writeJSON serializes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps a service error to an HTTP status and JSON body.
func writeError(w http.ResponseWriter, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody(ve.Msg))
	case errors.Is(err, auth.ErrWeakPassword):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		writeJSON(w, http.StatusUnauthorized, errorBody(err.Error()))
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, service.ErrUnsettledBalance),
		errors.Is(err, service.ErrAlreadyMember),
		errors.Is(err, auth.ErrEmailExists):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		slog.Error("Internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// decodeJSON parses the request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &service.ValidationError{Msg: "invalid JSON body"}
	}
	return nil
}
