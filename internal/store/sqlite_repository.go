/**
 * @description
 * SQLite implementation of the `Repository` interface, used for local development
 * and for exercising the real SQL paths in tests without a PostgreSQL server.
 *
 * @dependencies
 * - modernc.org/sqlite: pure-Go SQLite driver registered as "sqlite".
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elllyers/ineza/internal/domain"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository is a concrete implementation of the Repository interface for SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens the database at dsn, enables foreign keys and applies the schema.
// A single connection is kept so ":memory:" databases survive between calls.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	for _, stmt := range splitStatements(sqliteSchema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute ddl: %w", err)
		}
	}
	return db, nil
}

// NewSQLiteRepository creates a new instance of SQLiteRepository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) ListServices(ctx context.Context, filter domain.ServiceFilter) ([]domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services`
	args := []interface{}{}
	if filter.Type != nil {
		query += ` WHERE type = ?`
		args = append(args, string(*filter.Type))
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := []domain.Service{}
	for rows.Next() {
		svc, err := scanSQLiteService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, *svc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	methodQuery := `
		SELECT pm.id, pm.service_id, pm.type, pm.name, pm.enabled
		FROM payment_methods pm
		JOIN services s ON s.id = pm.service_id
		WHERE 1 = 1
	`
	if filter.Type != nil {
		methodQuery += ` AND s.type = ?`
	}
	if !filter.IncludeDisabledMethods {
		methodQuery += ` AND pm.enabled = 1`
	}
	methodQuery += ` ORDER BY pm.service_id, ` + paymentMethodOrder

	methods, err := r.queryPaymentMethods(ctx, methodQuery, args...)
	if err != nil {
		return nil, err
	}
	groupPaymentMethods(services, methods)
	return services, nil
}

func (r *SQLiteRepository) GetService(ctx context.Context, serviceID uuid.UUID, includeDisabled bool) (*domain.Service, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = ?`, serviceID.String())
	svc, err := scanSQLiteService(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}

	methodQuery := `
		SELECT pm.id, pm.service_id, pm.type, pm.name, pm.enabled
		FROM payment_methods pm
		WHERE pm.service_id = ?
	`
	if !includeDisabled {
		methodQuery += ` AND pm.enabled = 1`
	}
	methodQuery += ` ORDER BY ` + paymentMethodOrder
	methods, err := r.queryPaymentMethods(ctx, methodQuery, serviceID.String())
	if err != nil {
		return nil, err
	}
	svc.PaymentMethods = methods
	return svc, nil
}

func (r *SQLiteRepository) CreateService(ctx context.Context, svc *domain.Service, methods []domain.PaymentMethod) (*domain.Service, error) {
	formFields, err := encodeFormFields(svc.FormFields)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().UnixNano()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO services (id, title, description, price, type, form_fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, svc.ID.String(), svc.Title, svc.Description, svc.Price.String(), string(svc.Type), formFields, now, now)
	if err != nil {
		return nil, translateSQLiteError(err)
	}
	for _, method := range methods {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO payment_methods (id, service_id, type, name, enabled)
			VALUES (?, ?, ?, ?, ?)
		`, method.ID.String(), svc.ID.String(), string(method.Type), method.Name, method.Enabled)
		if err != nil {
			return nil, translateSQLiteError(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetService(ctx, svc.ID, true)
}

func (r *SQLiteRepository) UpdateService(ctx context.Context, serviceID uuid.UUID, update domain.ServiceUpdate) (*domain.Service, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC().UnixNano()}
	if update.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	if update.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, update.Price.String())
	}
	if update.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, string(*update.Type))
	}
	if update.FormFields != nil {
		formFields, err := encodeFormFields(*update.FormFields)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "form_fields = ?")
		args = append(args, formFields)
	}
	args = append(args, serviceID.String())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE services SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, translateSQLiteError(err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if affected == 0 {
		return nil, ErrServiceNotFound
	}

	if update.EnabledMethods != nil {
		for _, methodType := range domain.PaymentMethodTypes {
			_, err := tx.ExecContext(ctx,
				`UPDATE payment_methods SET enabled = ? WHERE service_id = ? AND type = ?`,
				containsMethod(update.EnabledMethods, methodType), serviceID.String(), string(methodType),
			)
			if err != nil {
				return nil, translateSQLiteError(err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetService(ctx, serviceID, true)
}

func (r *SQLiteRepository) DeleteService(ctx context.Context, serviceID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE id = ?`, serviceID.String())
	if err != nil {
		return translateSQLiteError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrServiceNotFound
	}
	return nil
}

func (r *SQLiteRepository) SetPaymentMethodEnabled(ctx context.Context, serviceID uuid.UUID, methodType domain.PaymentMethodType, enabled bool) (*domain.PaymentMethod, error) {
	if _, err := r.GetService(ctx, serviceID, true); err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_methods SET enabled = ? WHERE service_id = ? AND type = ?`,
		enabled, serviceID.String(), string(methodType),
	)
	if err != nil {
		return nil, err
	}
	if affected, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if affected == 0 {
		return nil, ErrPaymentMethodNotFound
	}
	return r.findPaymentMethod(ctx, serviceID, methodType, false)
}

func (r *SQLiteRepository) FindEnabledPaymentMethod(ctx context.Context, serviceID uuid.UUID, methodType domain.PaymentMethodType) (*domain.PaymentMethod, error) {
	return r.findPaymentMethod(ctx, serviceID, methodType, true)
}

func (r *SQLiteRepository) CreateServiceRequest(ctx context.Context, req *domain.ServiceRequest) (*domain.ServiceRequest, error) {
	formData, err := encodeFormData(req.FormData)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().UnixNano()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO service_requests (
			id, service_id, user_id, form_data, status, payment_method,
			payment_status, amount, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		req.ID.String(),
		req.ServiceID.String(),
		req.UserID,
		formData,
		string(req.Status),
		string(req.PaymentMethod),
		string(req.PaymentStatus),
		req.Amount.String(),
		now,
		now,
	)
	if err != nil {
		return nil, translateSQLiteError(err)
	}
	return r.GetServiceRequest(ctx, req.ID)
}

func (r *SQLiteRepository) ListServiceRequests(ctx context.Context, opts domain.ServiceRequestListOptions) ([]domain.ServiceRequest, int, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}
	if opts.UserID != nil {
		where = append(where, "r.user_id = ?")
		args = append(args, *opts.UserID)
	}
	if opts.Status != nil {
		where = append(where, "r.status = ?")
		args = append(args, string(*opts.Status))
	}
	if opts.Query != "" {
		pattern := likePattern(opts.Query)
		where = append(where, `(s.title LIKE ? ESCAPE '\' OR s.description LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	from := `
		FROM service_requests r
		JOIN services s ON s.id = r.service_id
		WHERE ` + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) `+from, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + serviceRequestColumns + from + ` ` + orderByClause(opts.SortBy, opts.SortOrder) + ` LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	requests := []domain.ServiceRequest{}
	for rows.Next() {
		req, err := scanSQLiteServiceRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

func (r *SQLiteRepository) GetServiceRequest(ctx context.Context, requestID uuid.UUID) (*domain.ServiceRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+serviceRequestColumns+`
		FROM service_requests r
		JOIN services s ON s.id = r.service_id
		WHERE r.id = ?
	`, requestID.String())
	req, err := scanSQLiteServiceRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrServiceRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *SQLiteRepository) UpdateServiceRequest(ctx context.Context, requestID uuid.UUID, update domain.ServiceRequestUpdate) (*domain.ServiceRequest, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC().UnixNano()}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.PaymentStatus != nil {
		sets = append(sets, "payment_status = ?")
		args = append(args, string(*update.PaymentStatus))
	}
	args = append(args, requestID.String())

	res, err := r.db.ExecContext(ctx, `UPDATE service_requests SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, translateSQLiteError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrServiceRequestNotFound
	}
	return r.GetServiceRequest(ctx, requestID)
}

func (r *SQLiteRepository) DeleteServiceRequest(ctx context.Context, requestID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM service_requests WHERE id = ?`, requestID.String())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrServiceRequestNotFound
	}
	return nil
}

func (r *SQLiteRepository) CountServiceRequests(ctx context.Context, userID *string) (*domain.ServiceRequestStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'PENDING' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'PROCESSING' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'COMPLETED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'CANCELLED' THEN 1 ELSE 0 END), 0)
		FROM service_requests
	`
	args := []interface{}{}
	if userID != nil {
		query += ` WHERE user_id = ?`
		args = append(args, *userID)
	}
	var stats domain.ServiceRequestStats
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Processing,
		&stats.Completed,
		&stats.Cancelled,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *SQLiteRepository) findPaymentMethod(ctx context.Context, serviceID uuid.UUID, methodType domain.PaymentMethodType, enabledOnly bool) (*domain.PaymentMethod, error) {
	query := `
		SELECT id, service_id, type, name, enabled
		FROM payment_methods
		WHERE service_id = ? AND type = ?
	`
	if enabledOnly {
		query += ` AND enabled = 1`
	}
	var method domain.PaymentMethod
	err := r.db.QueryRowContext(ctx, query, serviceID.String(), string(methodType)).
		Scan(&method.ID, &method.ServiceID, &method.Type, &method.Name, &method.Enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, err
	}
	return &method, nil
}

func (r *SQLiteRepository) queryPaymentMethods(ctx context.Context, query string, args ...interface{}) ([]domain.PaymentMethod, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	methods := []domain.PaymentMethod{}
	for rows.Next() {
		var method domain.PaymentMethod
		if err := rows.Scan(&method.ID, &method.ServiceID, &method.Type, &method.Name, &method.Enabled); err != nil {
			return nil, err
		}
		methods = append(methods, method)
	}
	return methods, rows.Err()
}

func scanSQLiteService(row sqlScanner) (*domain.Service, error) {
	var svc domain.Service
	var formFields string
	var createdAt, updatedAt int64
	err := row.Scan(
		&svc.ID,
		&svc.Title,
		&svc.Description,
		&svc.Price,
		&svc.Type,
		&formFields,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if svc.FormFields, err = decodeFormFields([]byte(formFields)); err != nil {
		return nil, err
	}
	svc.CreatedAt = time.Unix(0, createdAt).UTC()
	svc.UpdatedAt = time.Unix(0, updatedAt).UTC()
	svc.PaymentMethods = []domain.PaymentMethod{}
	return &svc, nil
}

func scanSQLiteServiceRequest(row sqlScanner) (*domain.ServiceRequest, error) {
	var req domain.ServiceRequest
	var summary domain.ServiceSummary
	var formData string
	var createdAt, updatedAt int64
	err := row.Scan(
		&req.ID,
		&req.ServiceID,
		&req.UserID,
		&formData,
		&req.Status,
		&req.PaymentMethod,
		&req.PaymentStatus,
		&req.Amount,
		&createdAt,
		&updatedAt,
		&summary.Title,
		&summary.Description,
		&summary.Price,
		&summary.Type,
	)
	if err != nil {
		return nil, err
	}
	if req.FormData, err = decodeFormData([]byte(formData)); err != nil {
		return nil, err
	}
	req.CreatedAt = time.Unix(0, createdAt).UTC()
	req.UpdatedAt = time.Unix(0, updatedAt).UTC()
	req.Service = &summary
	return &req, nil
}

// translateSQLiteError maps SQLite constraint result codes onto the store's sentinel errors.
func translateSQLiteError(err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %s", ErrUniqueViolation, sqliteErr.Error())
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %s", ErrForeignKeyViolation, sqliteErr.Error())
	}
	if sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		switch {
		case strings.Contains(sqliteErr.Error(), "FOREIGN KEY"):
			return fmt.Errorf("%w: %s", ErrForeignKeyViolation, sqliteErr.Error())
		case strings.Contains(sqliteErr.Error(), "UNIQUE"):
			return fmt.Errorf("%w: %s", ErrUniqueViolation, sqliteErr.Error())
		}
	}
	return err
}
