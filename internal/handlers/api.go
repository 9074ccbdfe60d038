package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"fintrack/internal/access"
	"fintrack/internal/forms"
	"fintrack/internal/models"
	"fintrack/internal/storage"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// flexString unmarshals either a JSON string or a JSON number into a
// string, so clients may send `"amount": "100"` or `"amount": 100`.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type transactionRequest struct {
	Concept string     `json:"concept"`
	Amount  flexString `json:"amount"`
	Date    string     `json:"date"`
	Type    string     `json:"type"`
}

type paginationInfo struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type transactionListResponse struct {
	Transactions []models.Transaction `json:"transactions"`
	Pagination   paginationInfo       `json:"pagination"`
}

// ListTransactionsAPI handles GET /api/transactions with pagination and
// optional type/search filters. Non-admins only see their own rows.
func (h *Handlers) ListTransactionsAPI(w http.ResponseWriter, r *http.Request, user *models.User) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", defaultPageSize)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}

	filter := storage.TransactionFilter{
		Search: r.URL.Query().Get("search"),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if t := models.TransactionType(r.URL.Query().Get("type")); t.Valid() {
		filter.Type = t
	}
	filter = h.scopeFilter(user, filter)

	transactions, err := h.db.ListTransactions(filter)
	if err != nil {
		log.Error("listing transactions failed", "err", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	total, err := h.db.CountTransactions(filter)
	if err != nil {
		log.Error("counting transactions failed", "err", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if transactions == nil {
		transactions = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactionListResponse{
		Transactions: transactions,
		Pagination: paginationInfo{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	})
}

// CreateTransactionAPI handles POST /api/transactions. Admin only.
func (h *Handlers) CreateTransactionAPI(w http.ResponseWriter, r *http.Request, user *models.User) {
	if err := access.RequireAccess(user, access.TransactionsWrite); err != nil {
		jsonError(w, http.StatusForbidden, "only administrators can create transactions")
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res := forms.ValidateTransactionForm(forms.TransactionForm{
		Concept: req.Concept,
		Amount:  string(req.Amount),
		Date:    req.Date,
		Type:    req.Type,
	})
	if !res.Valid {
		writeJSON(w, http.StatusBadRequest, res)
		return
	}

	amount, _ := decimal.NewFromString(string(req.Amount))
	date, _ := forms.ParseDate(req.Date)
	transaction := &models.Transaction{
		Concept: req.Concept,
		Amount:  amount,
		Type:    models.TransactionType(req.Type),
		Date:    date,
		UserID:  user.ID,
	}
	if err := h.db.CreateTransaction(transaction); err != nil {
		log.Error("creating transaction failed", "err", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	created, err := h.db.GetTransaction(transaction.ID)
	if err != nil {
		log.Error("reading created transaction failed", "err", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetTransactionAPI handles GET /api/transactions/{id}. Regular users may
// only fetch their own rows.
func (h *Handlers) GetTransactionAPI(w http.ResponseWriter, r *http.Request, user *models.User) {
	transaction, err := h.db.GetTransaction(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "transaction not found")
			return
		}
		log.Error("fetching transaction failed", "err", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !access.CanViewTransaction(user, transaction.UserID) {
		jsonError(w, http.StatusForbidden, "access denied")
		return
	}
	writeJSON(w, http.StatusOK, transaction)
}

// UpdateTransactionAPI handles PUT /api/transactions/{id}. Admin only.
// Omitted fields keep their current values.
func (h *Handlers) UpdateTransactionAPI(w http.ResponseWriter, r *http.Request, user *models.User) {
	if !access.CanModifyTransaction(user, "") {
		jsonError(w, http.StatusForbidden, "only administrators can edit transactions")
		return
	}

	existing, err := h.db.GetTransaction(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "transaction not found")
			return
		}
		log.Error("fetching transaction failed", "err", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Merge the partial update over the existing row before validating.
	merged := forms.TransactionForm{
		Concept: existing.Concept,
		Amount:  existing.Amount.String(),
		Date:    existing.Date.Format("2006-01-02"),
		Type:    string(existing.Type),
	}
	if req.Concept != "" {
		merged.Concept = req.Concept
	}
	if req.Amount != "" {
		merged.Amount = string(req.Amount)
	}
	if req.Date != "" {
		merged.Date = req.Date
	}
	if req.Type != "" {
		merged.Type = req.Type
	}

	if res := forms.ValidateTransactionForm(merged); !res.Valid {
		writeJSON(w, http.StatusBadRequest, res)
		return
	}

	existing.Concept = merged.Concept
	existing.Amount, _ = decimal.NewFromString(merged.Amount)
	existing.Date, _ = forms.ParseDate(merged.Date)
	existing.Type = models.TransactionType(merged.Type)

	if err := h.db.UpdateTransaction(existing); err != nil {
		log.Error("updating transaction failed", "err", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	updated, err := h.db.GetTransaction(existing.ID)
	if err != nil {
		log.Error("reading updated transaction failed", "err", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteTransactionAPI handles DELETE /api/transactions/{id}. Admin only.
func (h *Handlers) DeleteTransactionAPI(w http.ResponseWriter, r *http.Request, user *models.User) {
	if !access.CanModifyTransaction(user, "") {
		jsonError(w, http.StatusForbidden, "only administrators can delete transactions")
		return
	}

	err := h.db.DeleteTransaction(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "transaction not found")
			return
		}
		log.Error("deleting transaction failed", "err", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "transaction deleted"})
}

// ProfileAPI handles GET /api/user/profile.
func (h *Handlers) ProfileAPI(w http.ResponseWriter, r *http.Request, user *models.User) {
	profile, err := h.db.GetUserByID(user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Error("fetching profile failed", "err", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// ListUsersAPI handles GET /api/admin/users. Role enforcement happens in
// the guard; this handler assumes an admin caller.
func (h *Handlers) ListUsersAPI(w http.ResponseWriter, r *http.Request, user *models.User) {
	users, err := h.db.ListUsers()
	if err != nil {
		log.Error("listing users failed", "err", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

type roleChangeRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// UpdateUserRoleAPI handles PATCH /api/admin/users.
func (h *Handlers) UpdateUserRoleAPI(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req roleChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Role == "" {
		jsonError(w, http.StatusBadRequest, "userId and role are required")
		return
	}
	if !models.Role(req.Role).Valid() {
		jsonError(w, http.StatusBadRequest, "role must be USER or ADMIN")
		return
	}

	updated, err := h.db.UpdateUserRole(req.UserID, models.Role(req.Role))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Error("updating role failed", "err", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	log.Info("role changed", "target", updated.ID, "role", updated.Role, "by", user.ID)
	writeJSON(w, http.StatusOK, updated)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
