package api

import (
	"net/http"

	"github.com/tallyup/tally/internal/middleware"
	"github.com/tallyup/tally/internal/service"
)

type commentRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in service.ExpenseInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	in.GroupID = r.PathValue("groupID")

	expense, err := s.ledger.CreateExpense(r.Context(), middleware.GetUserID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.ledger.GetExpense(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("expenseID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var upd service.ExpenseUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, err)
		return
	}

	expense, err := s.ledger.UpdateExpense(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("expenseID"), upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	err := s.ledger.DeleteExpense(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("expenseID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var in service.PaymentInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	in.GroupID = r.PathValue("groupID")

	payment, err := s.ledger.CreatePayment(r.Context(), middleware.GetUserID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := s.ledger.GetPayment(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("paymentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	var upd service.PaymentUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, err)
		return
	}

	payment, err := s.ledger.UpdatePayment(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("paymentID"), upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	err := s.ledger.DeletePayment(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("paymentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddExpenseComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	comment, err := s.comments.AddExpenseComment(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("expenseID"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleListExpenseComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.comments.ListExpenseComments(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("expenseID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handleAddPaymentComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	comment, err := s.comments.AddPaymentComment(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("paymentID"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleListPaymentComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.comments.ListPaymentComments(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("paymentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}
