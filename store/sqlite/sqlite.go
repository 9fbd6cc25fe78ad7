/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements sales.Store (which embeds the commission directories) and
  auth.AccountStore over a single SQLite database. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  commission.RoleDirectory:  role lookups by id
  commission.UserDirectory:  user lookups and manager chains
  commission.RuleSource:     active commission rules per project
  commission.AllocationSink: allocation persistence
  sales.Store:               the full lifecycle surface plus WithTx
  auth.AccountStore:         login credential lookups

MONEY:
  All monetary columns are stored as TEXT holding the decimal's exact
  string form. SQLite REAL would reintroduce the float rounding the
  engine exists to avoid.

TRANSACTIONS:
  WithTx hands the callback a transaction-scoped copy of the Store whose
  queries all run on the *sql.Tx. Confirming a sale reads rules and
  hierarchy and writes allocations through one such transaction.

CONCURRENCY:
  The connection pool is capped at one connection. SQLite serializes
  writers anyway; a single connection avoids SQLITE_BUSY under the
  write-heavy confirmation path.

USAGE:
  store, err := sqlite.New("./data/estate.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := sales.NewService(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - commission/loader.go: the directory contracts
  - sales/service.go:     the Store contract and WithTx semantics
  - commission/store:     in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/landmark/estate-engine/auth"
	"github.com/landmark/estate-engine/commission"
	"github.com/landmark/estate-engine/sales"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx, so every query method
// works unchanged inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	q  dbtx
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db, q: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Role hierarchy. Smaller level = more senior.
	CREATE TABLE IF NOT EXISTS roles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		level INTEGER NOT NULL
	);

	-- Users with their reporting edge.
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role_id TEXT NOT NULL,
		manager_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_users_manager ON users(manager_id);
	CREATE INDEX IF NOT EXISTS idx_users_role ON users(role_id);

	-- Login credentials, one account per user.
	CREATE TABLE IF NOT EXISTS accounts (
		user_id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Projects and their plot inventory.
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS plots (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		number TEXT NOT NULL,
		area_sqft TEXT NOT NULL,
		price TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'available',
		UNIQUE(project_id, number)
	);

	CREATE INDEX IF NOT EXISTS idx_plots_project ON plots(project_id);
	CREATE INDEX IF NOT EXISTS idx_plots_status ON plots(project_id, status);

	-- Commission rules. Exactly the targeting the engine expects:
	-- role_id for hierarchy rules, user_id for fixed-user overrides.
	CREATE TABLE IF NOT EXISTS commission_rules (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		role_id TEXT,
		user_id TEXT,
		type TEXT NOT NULL,
		value TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		effective_from TEXT,
		effective_to TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_rules_project_active
		ON commission_rules(project_id, active);

	-- Sales lifecycle.
	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		plot_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		buyer_name TEXT NOT NULL,
		buyer_phone TEXT,
		amount TEXT NOT NULL,
		area_sqft TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'reserved',
		created_by TEXT NOT NULL,
		confirmed_by TEXT,
		confirmed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sales_project ON sales(project_id);
	CREATE INDEX IF NOT EXISTS idx_sales_seller ON sales(seller_id);
	CREATE INDEX IF NOT EXISTS idx_sales_status ON sales(status);

	-- Allocations written at confirmation. One row per recipient per
	-- sale; a retried confirmation replaces the set rather than
	-- duplicating it.
	CREATE TABLE IF NOT EXISTS allocations (
		sale_id TEXT NOT NULL,
		recipient_user_id TEXT NOT NULL,
		role_id TEXT,
		percentage TEXT NOT NULL,
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(sale_id, recipient_user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_allocations_recipient
		ON allocations(recipient_user_id);

	-- Payment instalments against sales.
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		sale_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		method TEXT,
		reference TEXT,
		recorded_by TEXT NOT NULL,
		paid_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_sale ON payments(sale_id);

	-- Prospect site visits.
	CREATE TABLE IF NOT EXISTS site_visits (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		visitor_name TEXT NOT NULL,
		visitor_phone TEXT,
		escorted_by TEXT NOT NULL,
		scheduled_at TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled',
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_visits_project ON site_visits(project_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS (sales.Store WithTx)
// =============================================================================

// WithTx runs fn against a transaction-scoped copy of the store. Nested
// calls on an already-scoped store reuse the open transaction.
func (s *Store) WithTx(ctx context.Context, fn func(sales.Store) error) error {
	if _, nested := s.q.(*sql.Tx); nested {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// ROLE DIRECTORY (commission.RoleDirectory)
// =============================================================================

// SaveRole inserts or updates a role.
func (s *Store) SaveRole(ctx context.Context, role commission.Role) error {
	query := `
		INSERT INTO roles (id, name, level) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			level = excluded.level
	`
	_, err := s.q.ExecContext(ctx, query, role.ID, role.Name, role.Level)
	return err
}

// Role implements commission.RoleDirectory.
func (s *Store) Role(ctx context.Context, id commission.RoleID) (commission.Role, error) {
	var role commission.Role
	err := s.q.QueryRowContext(ctx,
		"SELECT id, name, level FROM roles WHERE id = ?", id,
	).Scan(&role.ID, &role.Name, &role.Level)

	if err == sql.ErrNoRows {
		return commission.Role{}, &commission.ReferenceNotFoundError{Kind: "role", ID: string(id)}
	}
	if err != nil {
		return commission.Role{}, err
	}
	return role, nil
}

// ListRoles returns all roles, most senior first.
func (s *Store) ListRoles(ctx context.Context) ([]commission.Role, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT id, name, level FROM roles ORDER BY level ASC, name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []commission.Role
	for rows.Next() {
		var role commission.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Level); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// =============================================================================
// USER DIRECTORY (commission.UserDirectory)
// =============================================================================

// SaveUser inserts or updates a user.
func (s *Store) SaveUser(ctx context.Context, user commission.User) error {
	query := `
		INSERT INTO users (id, name, role_id, manager_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role_id = excluded.role_id,
			manager_id = excluded.manager_id
	`
	_, err := s.q.ExecContext(ctx, query,
		user.ID, user.Name, user.RoleID, nullString(string(user.ManagerID)))
	return err
}

// User implements commission.UserDirectory.
func (s *Store) User(ctx context.Context, id commission.UserID) (commission.User, error) {
	var user commission.User
	var managerID sql.NullString
	err := s.q.QueryRowContext(ctx,
		"SELECT id, name, role_id, manager_id FROM users WHERE id = ?", id,
	).Scan(&user.ID, &user.Name, &user.RoleID, &managerID)

	if err == sql.ErrNoRows {
		return commission.User{}, &commission.ReferenceNotFoundError{Kind: "user", ID: string(id)}
	}
	if err != nil {
		return commission.User{}, err
	}
	user.ManagerID = commission.UserID(managerID.String)
	return user, nil
}

// AncestorChain follows manager_id links, immediate manager first. A
// broken link fails with ReferenceNotFound; a cycle terminates the walk.
func (s *Store) AncestorChain(ctx context.Context, id commission.UserID) ([]commission.User, error) {
	user, err := s.User(ctx, id)
	if err != nil {
		return nil, err
	}

	var chain []commission.User
	seen := map[commission.UserID]bool{id: true}
	for user.HasManager() {
		next, err := s.User(ctx, user.ManagerID)
		if err != nil {
			return nil, err
		}
		if seen[next.ID] {
			break
		}
		seen[next.ID] = true
		chain = append(chain, next)
		user = next
	}
	return chain, nil
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]commission.User, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, name, role_id, manager_id FROM users ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []commission.User
	for rows.Next() {
		var user commission.User
		var managerID sql.NullString
		if err := rows.Scan(&user.ID, &user.Name, &user.RoleID, &managerID); err != nil {
			return nil, err
		}
		user.ManagerID = commission.UserID(managerID.String)
		users = append(users, user)
	}
	return users, rows.Err()
}

// =============================================================================
// COMMISSION RULES (commission.RuleSource)
// =============================================================================

// SaveRule inserts or updates a commission rule.
func (s *Store) SaveRule(ctx context.Context, rule commission.CommissionRule) error {
	query := `
		INSERT INTO commission_rules
		(id, project_id, role_id, user_id, type, value, priority, active, effective_from, effective_to)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			role_id = excluded.role_id,
			user_id = excluded.user_id,
			type = excluded.type,
			value = excluded.value,
			priority = excluded.priority,
			active = excluded.active,
			effective_from = excluded.effective_from,
			effective_to = excluded.effective_to
	`
	_, err := s.q.ExecContext(ctx, query,
		rule.ID, rule.ProjectID,
		nullString(string(rule.RoleID)), nullString(string(rule.UserID)),
		string(rule.Type), rule.Value.String(), rule.Priority, rule.Active,
		nullTime(rule.EffectiveFrom), nullTime(rule.EffectiveTo),
	)
	return err
}

// DeactivateRule flags a rule inactive. Rules are never deleted so past
// confirmations stay explainable.
func (s *Store) DeactivateRule(ctx context.Context, id commission.RuleID) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE commission_rules SET active = 0 WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &commission.ReferenceNotFoundError{Kind: "rule", ID: string(id)}
	}
	return nil
}

// ActiveRules implements commission.RuleSource: active rules currently in
// effect, ordered by priority.
func (s *Store) ActiveRules(ctx context.Context, projectID commission.ProjectID) ([]commission.CommissionRule, error) {
	rules, err := s.queryRules(ctx, `
		SELECT id, project_id, role_id, user_id, type, value, priority, active, effective_from, effective_to
		FROM commission_rules
		WHERE project_id = ? AND active = 1
		ORDER BY priority ASC, id ASC
	`, projectID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	active := rules[:0]
	for _, rule := range rules {
		if rule.InEffect(now) {
			active = append(active, rule)
		}
	}
	return active, nil
}

// RulesByProject returns every rule for a project, active or not.
func (s *Store) RulesByProject(ctx context.Context, projectID commission.ProjectID) ([]commission.CommissionRule, error) {
	return s.queryRules(ctx, `
		SELECT id, project_id, role_id, user_id, type, value, priority, active, effective_from, effective_to
		FROM commission_rules
		WHERE project_id = ?
		ORDER BY priority ASC, id ASC
	`, projectID)
}

func (s *Store) queryRules(ctx context.Context, query string, args ...any) ([]commission.CommissionRule, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []commission.CommissionRule
	for rows.Next() {
		var (
			rule           commission.CommissionRule
			roleID, userID sql.NullString
			value          string
			from, to       sql.NullString
		)
		if err := rows.Scan(&rule.ID, &rule.ProjectID, &roleID, &userID,
			&rule.Type, &value, &rule.Priority, &rule.Active, &from, &to); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rule.RoleID = commission.RoleID(roleID.String)
		rule.UserID = commission.UserID(userID.String)
		rule.Value = parseDecimal(value)
		rule.EffectiveFrom = parseNullTime(from)
		rule.EffectiveTo = parseNullTime(to)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// =============================================================================
// ALLOCATIONS (commission.AllocationSink)
// =============================================================================

// SaveAllocations replaces the allocation set for each sale involved.
// Replacing rather than appending keeps a retried confirmation from
// double-crediting anyone.
func (s *Store) SaveAllocations(ctx context.Context, allocations []commission.Allocation) error {
	saleIDs := map[commission.SaleID]bool{}
	for _, a := range allocations {
		saleIDs[a.SaleID] = true
	}
	for saleID := range saleIDs {
		if _, err := s.q.ExecContext(ctx,
			"DELETE FROM allocations WHERE sale_id = ?", saleID); err != nil {
			return fmt.Errorf("failed to clear allocations: %w", err)
		}
	}

	query := `
		INSERT INTO allocations (sale_id, recipient_user_id, role_id, percentage, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC().Format(time.RFC3339)
	for _, a := range allocations {
		if _, err := s.q.ExecContext(ctx, query,
			a.SaleID, a.RecipientID, nullString(string(a.RoleID)),
			a.Percentage.String(), a.Amount.String(), now); err != nil {
			return fmt.Errorf("failed to insert allocation: %w", err)
		}
	}
	return nil
}

// AllocationsBySale returns the stored allocations for a sale.
func (s *Store) AllocationsBySale(ctx context.Context, saleID commission.SaleID) ([]commission.Allocation, error) {
	return s.queryAllocations(ctx, `
		SELECT sale_id, recipient_user_id, role_id, percentage, amount
		FROM allocations
		WHERE sale_id = ?
		ORDER BY rowid ASC
	`, saleID)
}

// AllocationsByUser returns everything a user has earned, newest first.
func (s *Store) AllocationsByUser(ctx context.Context, userID commission.UserID) ([]commission.Allocation, error) {
	return s.queryAllocations(ctx, `
		SELECT sale_id, recipient_user_id, role_id, percentage, amount
		FROM allocations
		WHERE recipient_user_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, userID)
}

func (s *Store) queryAllocations(ctx context.Context, query string, args ...any) ([]commission.Allocation, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var allocations []commission.Allocation
	for rows.Next() {
		var (
			a               commission.Allocation
			roleID          sql.NullString
			percentage, amt string
		)
		if err := rows.Scan(&a.SaleID, &a.RecipientID, &roleID, &percentage, &amt); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		a.RoleID = commission.RoleID(roleID.String)
		a.Percentage = parseDecimal(percentage)
		a.Amount = parseDecimal(amt)
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

// =============================================================================
// PROJECTS AND PLOTS
// =============================================================================

// SaveProject inserts or updates a project.
func (s *Store) SaveProject(ctx context.Context, p sales.Project) error {
	query := `
		INSERT INTO projects (id, name, location, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			location = excluded.location
	`
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx, query,
		p.ID, p.Name, p.Location, createdAt.Format(time.RFC3339))
	return err
}

// Project retrieves a project by id.
func (s *Store) Project(ctx context.Context, id commission.ProjectID) (sales.Project, error) {
	var p sales.Project
	var location sql.NullString
	var createdAt string
	err := s.q.QueryRowContext(ctx,
		"SELECT id, name, location, created_at FROM projects WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &location, &createdAt)

	if err == sql.ErrNoRows {
		return sales.Project{}, &commission.ReferenceNotFoundError{Kind: "project", ID: string(id)}
	}
	if err != nil {
		return sales.Project{}, err
	}
	p.Location = location.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return p, nil
}

// ListProjects returns all projects ordered by name.
func (s *Store) ListProjects(ctx context.Context) ([]sales.Project, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, name, location, created_at FROM projects ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []sales.Project
	for rows.Next() {
		var p sales.Project
		var location sql.NullString
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &location, &createdAt); err != nil {
			return nil, err
		}
		p.Location = location.String
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// SavePlot inserts or updates a plot.
func (s *Store) SavePlot(ctx context.Context, p sales.Plot) error {
	query := `
		INSERT INTO plots (id, project_id, number, area_sqft, price, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			number = excluded.number,
			area_sqft = excluded.area_sqft,
			price = excluded.price,
			status = excluded.status
	`
	_, err := s.q.ExecContext(ctx, query,
		p.ID, p.ProjectID, p.Number, p.AreaSqft.String(), p.Price.String(), string(p.Status))
	return err
}

// Plot retrieves a plot by id.
func (s *Store) Plot(ctx context.Context, id string) (sales.Plot, error) {
	var p sales.Plot
	var area, price, status string
	err := s.q.QueryRowContext(ctx,
		"SELECT id, project_id, number, area_sqft, price, status FROM plots WHERE id = ?", id,
	).Scan(&p.ID, &p.ProjectID, &p.Number, &area, &price, &status)

	if err == sql.ErrNoRows {
		return sales.Plot{}, &commission.ReferenceNotFoundError{Kind: "plot", ID: id}
	}
	if err != nil {
		return sales.Plot{}, err
	}
	p.AreaSqft = parseDecimal(area)
	p.Price = parseDecimal(price)
	p.Status = sales.PlotStatus(status)
	return p, nil
}

// PlotsByProject returns a project's plots ordered by plot number.
func (s *Store) PlotsByProject(ctx context.Context, projectID commission.ProjectID) ([]sales.Plot, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, project_id, number, area_sqft, price, status
		FROM plots WHERE project_id = ? ORDER BY number ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plots []sales.Plot
	for rows.Next() {
		var p sales.Plot
		var area, price, status string
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.Number, &area, &price, &status); err != nil {
			return nil, err
		}
		p.AreaSqft = parseDecimal(area)
		p.Price = parseDecimal(price)
		p.Status = sales.PlotStatus(status)
		plots = append(plots, p)
	}
	return plots, rows.Err()
}

// =============================================================================
// SALES
// =============================================================================

const saleColumns = `id, project_id, plot_id, seller_id, buyer_name, buyer_phone,
	amount, area_sqft, status, created_by, confirmed_by, confirmed_at, created_at`

// SaveSale inserts or updates a sale.
func (s *Store) SaveSale(ctx context.Context, sale sales.Sale) error {
	query := `
		INSERT INTO sales (` + saleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			buyer_name = excluded.buyer_name,
			buyer_phone = excluded.buyer_phone,
			amount = excluded.amount,
			status = excluded.status,
			confirmed_by = excluded.confirmed_by,
			confirmed_at = excluded.confirmed_at
	`
	_, err := s.q.ExecContext(ctx, query,
		sale.ID, sale.ProjectID, sale.PlotID, sale.SellerID,
		sale.BuyerName, nullString(sale.BuyerPhone),
		sale.Amount.String(), sale.AreaSqft.String(), string(sale.Status),
		sale.CreatedBy, nullString(string(sale.ConfirmedBy)),
		nullTime(sale.ConfirmedAt), sale.CreatedAt.Format(time.RFC3339),
	)
	return err
}

// Sale retrieves a sale by id.
func (s *Store) Sale(ctx context.Context, id commission.SaleID) (sales.Sale, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+saleColumns+" FROM sales WHERE id = ?", id)

	sale, err := scanSale(row)
	if err == sql.ErrNoRows {
		return sales.Sale{}, &commission.ReferenceNotFoundError{Kind: "sale", ID: string(id)}
	}
	if err != nil {
		return sales.Sale{}, err
	}
	return sale, nil
}

// ListSales returns all sales, newest first.
func (s *Store) ListSales(ctx context.Context) ([]sales.Sale, error) {
	return s.querySales(ctx,
		"SELECT "+saleColumns+" FROM sales ORDER BY created_at DESC")
}

// SalesBySeller returns a seller's sales, newest first.
func (s *Store) SalesBySeller(ctx context.Context, sellerID commission.UserID) ([]sales.Sale, error) {
	return s.querySales(ctx,
		"SELECT "+saleColumns+" FROM sales WHERE seller_id = ? ORDER BY created_at DESC", sellerID)
}

func (s *Store) querySales(ctx context.Context, query string, args ...any) ([]sales.Sale, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var result []sales.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sale)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (sales.Sale, error) {
	var (
		sale                     sales.Sale
		buyerPhone               sql.NullString
		amount, area, status     string
		confirmedBy, confirmedAt sql.NullString
		createdAt                string
	)
	err := row.Scan(
		&sale.ID, &sale.ProjectID, &sale.PlotID, &sale.SellerID,
		&sale.BuyerName, &buyerPhone, &amount, &area, &status,
		&sale.CreatedBy, &confirmedBy, &confirmedAt, &createdAt,
	)
	if err != nil {
		return sale, err
	}

	sale.BuyerPhone = buyerPhone.String
	sale.Amount = parseDecimal(amount)
	sale.AreaSqft = parseDecimal(area)
	sale.Status = sales.SaleStatus(status)
	sale.ConfirmedBy = commission.UserID(confirmedBy.String)
	sale.ConfirmedAt = parseNullTime(confirmedAt)
	sale.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return sale, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

// SavePayment inserts a payment.
func (s *Store) SavePayment(ctx context.Context, p sales.Payment) error {
	query := `
		INSERT INTO payments (id, sale_id, amount, method, reference, recorded_by, paid_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.q.ExecContext(ctx, query,
		p.ID, p.SaleID, p.Amount.String(),
		nullString(p.Method), nullString(p.Reference),
		p.RecordedBy, p.PaidAt.Format(time.RFC3339),
	)
	return err
}

// PaymentsBySale returns a sale's payments in the order received.
func (s *Store) PaymentsBySale(ctx context.Context, saleID commission.SaleID) ([]sales.Payment, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, sale_id, amount, method, reference, recorded_by, paid_at
		FROM payments WHERE sale_id = ? ORDER BY paid_at ASC, rowid ASC
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []sales.Payment
	for rows.Next() {
		var (
			p                 sales.Payment
			amount, paidAt    string
			method, reference sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.SaleID, &amount, &method, &reference, &p.RecordedBy, &paidAt); err != nil {
			return nil, err
		}
		p.Amount = parseDecimal(amount)
		p.Method = method.String
		p.Reference = reference.String
		p.PaidAt, _ = time.Parse(time.RFC3339, paidAt)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// SITE VISITS
// =============================================================================

// SaveSiteVisit inserts or updates a site visit.
func (s *Store) SaveSiteVisit(ctx context.Context, v sales.SiteVisit) error {
	query := `
		INSERT INTO site_visits
		(id, project_id, visitor_name, visitor_phone, escorted_by, scheduled_at, status, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			scheduled_at = excluded.scheduled_at,
			status = excluded.status,
			notes = excluded.notes
	`
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx, query,
		v.ID, v.ProjectID, v.VisitorName, nullString(v.VisitorPhone),
		v.EscortedBy, v.ScheduledAt.Format(time.RFC3339),
		string(v.Status), nullString(v.Notes), createdAt.Format(time.RFC3339),
	)
	return err
}

// VisitsByProject returns a project's site visits, soonest first.
func (s *Store) VisitsByProject(ctx context.Context, projectID commission.ProjectID) ([]sales.SiteVisit, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, project_id, visitor_name, visitor_phone, escorted_by, scheduled_at, status, notes, created_at
		FROM site_visits WHERE project_id = ? ORDER BY scheduled_at ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []sales.SiteVisit
	for rows.Next() {
		var (
			v                      sales.SiteVisit
			phone, notes           sql.NullString
			scheduledAt, createdAt string
			status                 string
		)
		if err := rows.Scan(&v.ID, &v.ProjectID, &v.VisitorName, &phone,
			&v.EscortedBy, &scheduledAt, &status, &notes, &createdAt); err != nil {
			return nil, err
		}
		v.VisitorPhone = phone.String
		v.Notes = notes.String
		v.Status = sales.VisitStatus(status)
		v.ScheduledAt, _ = time.Parse(time.RFC3339, scheduledAt)
		v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// =============================================================================
// ACCOUNTS (auth.AccountStore)
// =============================================================================

// SaveAccount inserts or updates an account.
func (s *Store) SaveAccount(ctx context.Context, a auth.Account) error {
	query := `
		INSERT INTO accounts (user_id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			email = excluded.email,
			password_hash = excluded.password_hash
	`
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx, query,
		a.UserID, a.Email, a.PasswordHash, createdAt.Format(time.RFC3339))
	return err
}

// AccountByEmail implements auth.AccountStore.
func (s *Store) AccountByEmail(ctx context.Context, email string) (auth.Account, error) {
	var a auth.Account
	var createdAt string
	err := s.q.QueryRowContext(ctx,
		"SELECT user_id, email, password_hash, created_at FROM accounts WHERE email = ?", email,
	).Scan(&a.UserID, &a.Email, &a.PasswordHash, &createdAt)

	if err == sql.ErrNoRows {
		return auth.Account{}, &commission.ReferenceNotFoundError{Kind: "account", ID: email}
	}
	if err != nil {
		return auth.Account{}, err
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return a, nil
}

// =============================================================================
// DASHBOARD AGGREGATES
// =============================================================================

// DashboardStats summarizes the business for the dashboard endpoint.
// Monetary sums are computed in Go over the exact decimal strings; SQL
// SUM over TEXT would silently coerce to float.
type DashboardStats struct {
	Projects         int
	PlotsAvailable   int
	PlotsSold        int
	SalesReserved    int
	SalesConfirmed   int
	RevenueConfirmed decimal.Decimal
	CommissionTotal  decimal.Decimal
	PaymentsReceived decimal.Decimal
}

// Dashboard computes the summary counters and sums.
func (s *Store) Dashboard(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM projects", &stats.Projects},
		{"SELECT COUNT(*) FROM plots WHERE status = 'available'", &stats.PlotsAvailable},
		{"SELECT COUNT(*) FROM plots WHERE status = 'sold'", &stats.PlotsSold},
		{"SELECT COUNT(*) FROM sales WHERE status = 'reserved'", &stats.SalesReserved},
		{"SELECT COUNT(*) FROM sales WHERE status = 'confirmed'", &stats.SalesConfirmed},
	}
	for _, c := range counts {
		if err := s.q.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return stats, err
		}
	}

	var err error
	stats.RevenueConfirmed, err = s.sumColumn(ctx,
		"SELECT amount FROM sales WHERE status = 'confirmed'")
	if err != nil {
		return stats, err
	}
	stats.CommissionTotal, err = s.sumColumn(ctx, "SELECT amount FROM allocations")
	if err != nil {
		return stats, err
	}
	stats.PaymentsReceived, err = s.sumColumn(ctx, "SELECT amount FROM payments")
	return stats, err
}

func (s *Store) sumColumn(ctx context.Context, query string) (decimal.Decimal, error) {
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(parseDecimal(value))
	}
	return total, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{
		"allocations", "payments", "site_visits", "sales", "plots",
		"commission_rules", "projects", "accounts", "users", "roles",
	}
	for _, table := range tables {
		if _, err := s.q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseDecimal(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}
