package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'USER',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			expires_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			concept TEXT NOT NULL,
			amount TEXT NOT NULL,
			type TEXT NOT NULL,
			date DATETIME NOT NULL,
			user_id TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// UpsertUser creates a user on first login or refreshes name and avatar on
// subsequent logins. The role is set only at creation and never touched by
// the upsert; new accounts start as USER.
func (db *DB) UpsertUser(email, name, avatarURL string) (*models.User, error) {
	now := time.Now().UTC()
	_, err := db.conn.Exec(`
		INSERT INTO users (id, email, name, avatar_url, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			name = excluded.name,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at
	`, uuid.NewString(), email, name, avatarURL, models.RoleUser, now, now)
	if err != nil {
		return nil, err
	}
	return db.GetUserByEmail(email)
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(id string) (*models.User, error) {
	return db.scanUser(db.conn.QueryRow(
		"SELECT id, email, name, avatar_url, role, created_at, updated_at FROM users WHERE id = ?", id,
	))
}

// GetUserByEmail retrieves a user by email.
func (db *DB) GetUserByEmail(email string) (*models.User, error) {
	return db.scanUser(db.conn.QueryRow(
		"SELECT id, email, name, avatar_url, role, created_at, updated_at FROM users WHERE email = ?", email,
	))
}

// ListUsers retrieves all users, newest first.
func (db *DB) ListUsers() ([]models.User, error) {
	rows, err := db.conn.Query(
		"SELECT id, email, name, avatar_url, role, created_at, updated_at FROM users ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserRole changes a user's role and returns the updated record.
func (db *DB) UpdateUserRole(id string, role models.Role) (*models.User, error) {
	res, err := db.conn.Exec(
		"UPDATE users SET role = ?, updated_at = ? WHERE id = ?",
		role, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return db.GetUserByID(id)
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

func (db *DB) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateSession creates a new session for a user.
func (db *DB) CreateSession(token, userID string, expiresAt time.Time) (*models.Session, error) {
	s := &models.Session{
		ID:        uuid.NewString(),
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
	_, err := db.conn.Exec(
		"INSERT INTO sessions (token, id, user_id, expires_at) VALUES (?, ?, ?, ?)",
		s.Token, s.ID, s.UserID, s.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetSessionWithUser looks up a session by exact token match joined with
// its owning user. Expired rows are still returned; expiry handling is the
// caller's job so it can purge the dead row.
func (db *DB) GetSessionWithUser(token string) (*models.Session, *models.User, error) {
	row := db.conn.QueryRow(`
		SELECT s.id, s.user_id, s.expires_at,
		       u.id, u.email, u.name, u.avatar_url, u.role, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ?
	`, token)

	var s models.Session
	var u models.User
	err := row.Scan(&s.ID, &s.UserID, &s.ExpiresAt,
		&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	s.Token = token
	return &s, &u, nil
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(token string) error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE token = ?", token)
	return err
}

// DeleteExpiredSessions removes all expired sessions and reports how many
// rows went away.
func (db *DB) DeleteExpiredSessions() (int64, error) {
	res, err := db.conn.Exec("DELETE FROM sessions WHERE expires_at <= ?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TransactionFilter narrows ListTransactions and CountTransactions.
// Zero values mean "no constraint"; Limit 0 means no pagination.
type TransactionFilter struct {
	UserID string
	Type   models.TransactionType
	Search string
	Limit  int
	Offset int
}

func (f TransactionFilter) where() (string, []any) {
	var conds []string
	var args []any
	if f.UserID != "" {
		conds = append(conds, "t.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Type != "" {
		conds = append(conds, "t.type = ?")
		args = append(args, f.Type)
	}
	if f.Search != "" {
		conds = append(conds, "t.concept LIKE ? COLLATE NOCASE")
		args = append(args, "%"+f.Search+"%")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// CreateTransaction inserts a new transaction. A missing ID is assigned.
func (db *DB) CreateTransaction(t *models.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := db.conn.Exec(`
		INSERT INTO transactions (id, concept, amount, type, date, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Concept, t.Amount.String(), t.Type, t.Date, t.UserID, t.CreatedAt, t.UpdatedAt)
	return err
}

// GetTransaction retrieves a single transaction by ID with its owning user.
func (db *DB) GetTransaction(id string) (*models.Transaction, error) {
	row := db.conn.QueryRow(`
		SELECT t.id, t.concept, t.amount, t.type, t.date, t.user_id, t.created_at, t.updated_at,
		       u.id, u.name, u.email
		FROM transactions t
		JOIN users u ON t.user_id = u.id
		WHERE t.id = ?
	`, id)

	t, err := scanTransaction(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// UpdateTransaction updates concept, amount, type and date of a row.
func (db *DB) UpdateTransaction(t *models.Transaction) error {
	res, err := db.conn.Exec(`
		UPDATE transactions SET concept = ?, amount = ?, type = ?, date = ?, updated_at = ?
		WHERE id = ?
	`, t.Concept, t.Amount.String(), t.Type, t.Date, time.Now().UTC(), t.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTransaction removes a transaction by ID.
func (db *DB) DeleteTransaction(id string) error {
	res, err := db.conn.Exec("DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTransactions retrieves transactions matching the filter, newest
// first, with their owning users.
func (db *DB) ListTransactions(f TransactionFilter) ([]models.Transaction, error) {
	where, args := f.where()
	query := `
		SELECT t.id, t.concept, t.amount, t.type, t.date, t.user_id, t.created_at, t.updated_at,
		       u.id, u.name, u.email
		FROM transactions t
		JOIN users u ON t.user_id = u.id` + where + " ORDER BY t.date DESC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

// CountTransactions counts the rows matching the filter.
func (db *DB) CountTransactions(f TransactionFilter) (int, error) {
	where, args := f.where()
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM transactions t"+where, args...).Scan(&count)
	return count, err
}

// ListTransactionsByPeriod retrieves the transactions dated within
// [start, end], newest first, across all users.
func (db *DB) ListTransactionsByPeriod(start, end time.Time) ([]models.Transaction, error) {
	rows, err := db.conn.Query(`
		SELECT t.id, t.concept, t.amount, t.type, t.date, t.user_id, t.created_at, t.updated_at,
		       u.id, u.name, u.email
		FROM transactions t
		JOIN users u ON t.user_id = u.id
		WHERE t.date >= ? AND t.date <= ?
		ORDER BY t.date DESC
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

func scanTransaction(scan func(...any) error) (*models.Transaction, error) {
	var t models.Transaction
	var ref models.UserRef
	var amount string
	err := scan(&t.ID, &t.Concept, &amount, &t.Type, &t.Date, &t.UserID, &t.CreatedAt, &t.UpdatedAt,
		&ref.ID, &ref.Name, &ref.Email)
	if err != nil {
		return nil, err
	}
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount on transaction %s: %w", t.ID, err)
	}
	t.User = &ref
	return &t, nil
}
