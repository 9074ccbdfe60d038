package handlers

import (
	"net/http"

	"fintrack/internal/access"
	"fintrack/internal/finance"
	"fintrack/internal/models"
	"fintrack/internal/storage"

	"github.com/charmbracelet/log"
)

// HomeViewModel holds data for the landing page.
type HomeViewModel struct {
	User *models.User
}

// SignInViewModel holds data for the sign-in page.
type SignInViewModel struct {
	Error string
}

// DashboardViewModel holds data for the dashboard page.
type DashboardViewModel struct {
	User         *models.User
	Stats        finance.Stats
	Transactions []models.Transaction
}

// TransactionsViewModel holds data for the transactions page.
type TransactionsViewModel struct {
	User         *models.User
	Transactions []models.Transaction
	CanModify    bool
}

// ProfileViewModel holds data for the profile page.
type ProfileViewModel struct {
	User        *models.User
	Permissions []access.Resource
}

// UsersViewModel holds data for the admin user-management page.
type UsersViewModel struct {
	User  *models.User
	Users []models.User
}

// ReportsViewModel holds data for the admin reports page.
type ReportsViewModel struct {
	User *models.User
}

// Home renders the public landing page.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "home.html", HomeViewModel{User: h.currentUser(r)})
}

// SignInPage renders the sign-in page. Logged-in visitors go straight to
// the dashboard.
func (h *Handlers) SignInPage(w http.ResponseWriter, r *http.Request) {
	if h.currentUser(r) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	vm := SignInViewModel{}
	switch r.URL.Query().Get("error") {
	case "":
	case "denied":
		vm.Error = "GitHub sign-in was cancelled"
	case "state":
		vm.Error = "Sign-in session expired, please try again"
	default:
		vm.Error = "Sign-in failed, please try again"
	}
	h.render(w, r, "signin.html", vm)
}

// Dashboard renders the authenticated landing page with financial stats
// over the transactions the user may see.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request, user *models.User) {
	transactions, err := h.db.ListTransactions(h.scopeFilter(user, storage.TransactionFilter{}))
	if err != nil {
		log.Error("dashboard list failed", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.render(w, r, "dashboard.html", DashboardViewModel{
		User:         user,
		Stats:        finance.CalculateStats(transactions),
		Transactions: firstN(transactions, 10),
	})
}

// TransactionsPage renders the transaction list. Admins additionally get
// the create/edit controls.
func (h *Handlers) TransactionsPage(w http.ResponseWriter, r *http.Request, user *models.User) {
	transactions, err := h.db.ListTransactions(h.scopeFilter(user, storage.TransactionFilter{}))
	if err != nil {
		log.Error("transactions list failed", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.render(w, r, "transactions.html", TransactionsViewModel{
		User:         user,
		Transactions: transactions,
		CanModify:    access.CanModifyTransaction(user, user.ID),
	})
}

// ProfilePage renders the user's own profile and resolved permissions.
func (h *Handlers) ProfilePage(w http.ResponseWriter, r *http.Request, user *models.User) {
	h.render(w, r, "profile.html", ProfileViewModel{
		User:        user,
		Permissions: access.UserPermissions(user),
	})
}

// AdminUsersPage renders the user-management page.
func (h *Handlers) AdminUsersPage(w http.ResponseWriter, r *http.Request, user *models.User) {
	users, err := h.db.ListUsers()
	if err != nil {
		log.Error("user list failed", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "users.html", UsersViewModel{User: user, Users: users})
}

// AdminReportsPage renders the reports page; the data and chart come from
// the reports API.
func (h *Handlers) AdminReportsPage(w http.ResponseWriter, r *http.Request, user *models.User) {
	h.render(w, r, "reports.html", ReportsViewModel{User: user})
}

// Unauthorized renders the page shown after a role check fails.
func (h *Handlers) Unauthorized(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "unauthorized.html", HomeViewModel{User: h.currentUser(r)})
}

// APIDocs renders the public API documentation page.
func (h *Handlers) APIDocs(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "apidocs.html", HomeViewModel{User: h.currentUser(r)})
}

// scopeFilter restricts a transaction filter to the user's own rows unless
// the user is an admin.
func (h *Handlers) scopeFilter(user *models.User, f storage.TransactionFilter) storage.TransactionFilter {
	if !access.IsAdmin(user) {
		f.UserID = user.ID
	}
	return f
}

func firstN(transactions []models.Transaction, n int) []models.Transaction {
	if len(transactions) <= n {
		return transactions
	}
	return transactions[:n]
}
