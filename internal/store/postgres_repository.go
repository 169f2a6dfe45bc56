/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains the SQL for the service catalog, per-service payment methods and
 * customer service requests.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/elllyers/ineza/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const serviceColumns = `id, title, description, price, type, form_fields, created_at, updated_at`

// ListServices returns the catalog newest first, optionally narrowed to one type.
func (r *PostgresRepository) ListServices(ctx context.Context, filter domain.ServiceFilter) ([]domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services`
	args := []interface{}{}
	if filter.Type != nil {
		query += ` WHERE type = $1`
		args = append(args, string(*filter.Type))
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := []domain.Service{}
	for rows.Next() {
		svc, err := scanPostgresService(rows)
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
	methodArgs := []interface{}{}
	if filter.Type != nil {
		methodQuery += ` AND s.type = $1`
		methodArgs = append(methodArgs, string(*filter.Type))
	}
	if !filter.IncludeDisabledMethods {
		methodQuery += ` AND pm.enabled`
	}
	methodQuery += ` ORDER BY pm.service_id, ` + paymentMethodOrder

	methods, err := r.queryPaymentMethods(ctx, methodQuery, methodArgs...)
	if err != nil {
		return nil, err
	}
	groupPaymentMethods(services, methods)
	return services, nil
}

// GetService retrieves one service with its payment methods.
func (r *PostgresRepository) GetService(ctx context.Context, serviceID uuid.UUID, includeDisabled bool) (*domain.Service, error) {
	row := r.db.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, serviceID)
	svc, err := scanPostgresService(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}

	methodQuery := `
		SELECT pm.id, pm.service_id, pm.type, pm.name, pm.enabled
		FROM payment_methods pm
		WHERE pm.service_id = $1
	`
	if !includeDisabled {
		methodQuery += ` AND pm.enabled`
	}
	methodQuery += ` ORDER BY ` + paymentMethodOrder
	methods, err := r.queryPaymentMethods(ctx, methodQuery, serviceID)
	if err != nil {
		return nil, err
	}
	svc.PaymentMethods = methods
	return svc, nil
}

// CreateService inserts the service and its payment methods atomically.
func (r *PostgresRepository) CreateService(ctx context.Context, svc *domain.Service, methods []domain.PaymentMethod) (*domain.Service, error) {
	formFields, err := encodeFormFields(svc.FormFields)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO services (id, title, description, price, type, form_fields)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+serviceColumns,
		svc.ID, svc.Title, svc.Description, svc.Price, string(svc.Type), formFields,
	)
	created, err := scanPostgresService(row)
	if err != nil {
		return nil, translatePostgresError(err)
	}

	for _, method := range methods {
		_, err := tx.Exec(ctx, `
			INSERT INTO payment_methods (id, service_id, type, name, enabled)
			VALUES ($1, $2, $3, $4, $5)
		`, method.ID, created.ID, string(method.Type), method.Name, method.Enabled)
		if err != nil {
			return nil, translatePostgresError(err)
		}
		method.ServiceID = created.ID
		created.PaymentMethods = append(created.PaymentMethods, method)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateService applies a partial update and returns the service with all payment methods.
func (r *PostgresRepository) UpdateService(ctx context.Context, serviceID uuid.UUID, update domain.ServiceUpdate) (*domain.Service, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{serviceID}
	argPos := 2
	if update.Title != nil {
		sets = append(sets, fmt.Sprintf("title = $%d", argPos))
		args = append(args, *update.Title)
		argPos++
	}
	if update.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", argPos))
		args = append(args, *update.Description)
		argPos++
	}
	if update.Price != nil {
		sets = append(sets, fmt.Sprintf("price = $%d", argPos))
		args = append(args, *update.Price)
		argPos++
	}
	if update.Type != nil {
		sets = append(sets, fmt.Sprintf("type = $%d", argPos))
		args = append(args, string(*update.Type))
		argPos++
	}
	if update.FormFields != nil {
		formFields, err := encodeFormFields(*update.FormFields)
		if err != nil {
			return nil, err
		}
		sets = append(sets, fmt.Sprintf("form_fields = $%d", argPos))
		args = append(args, formFields)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE services SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return nil, translatePostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrServiceNotFound
	}

	if update.EnabledMethods != nil {
		for _, methodType := range domain.PaymentMethodTypes {
			_, err := tx.Exec(ctx,
				`UPDATE payment_methods SET enabled = $3 WHERE service_id = $1 AND type = $2`,
				serviceID, string(methodType), containsMethod(update.EnabledMethods, methodType),
			)
			if err != nil {
				return nil, translatePostgresError(err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetService(ctx, serviceID, true)
}

// DeleteService removes a service. Payment methods and requests cascade.
func (r *PostgresRepository) DeleteService(ctx context.Context, serviceID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM services WHERE id = $1`, serviceID)
	if err != nil {
		return translatePostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

// SetPaymentMethodEnabled toggles one payment method of a service.
func (r *PostgresRepository) SetPaymentMethodEnabled(ctx context.Context, serviceID uuid.UUID, methodType domain.PaymentMethodType, enabled bool) (*domain.PaymentMethod, error) {
	var method domain.PaymentMethod
	err := r.db.QueryRow(ctx, `
		UPDATE payment_methods SET enabled = $3
		WHERE service_id = $1 AND type = $2
		RETURNING id, service_id, type, name, enabled
	`, serviceID, string(methodType), enabled).Scan(&method.ID, &method.ServiceID, &method.Type, &method.Name, &method.Enabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM services WHERE id = $1)`, serviceID).Scan(&exists); err != nil {
				return nil, err
			}
			if !exists {
				return nil, ErrServiceNotFound
			}
			return nil, ErrPaymentMethodNotFound
		}
		return nil, err
	}
	return &method, nil
}

// FindEnabledPaymentMethod returns the method only when it exists and is enabled.
func (r *PostgresRepository) FindEnabledPaymentMethod(ctx context.Context, serviceID uuid.UUID, methodType domain.PaymentMethodType) (*domain.PaymentMethod, error) {
	var method domain.PaymentMethod
	err := r.db.QueryRow(ctx, `
		SELECT id, service_id, type, name, enabled
		FROM payment_methods
		WHERE service_id = $1 AND type = $2 AND enabled
	`, serviceID, string(methodType)).Scan(&method.ID, &method.ServiceID, &method.Type, &method.Name, &method.Enabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, err
	}
	return &method, nil
}

// CreateServiceRequest inserts a request and returns it with its service summary.
func (r *PostgresRepository) CreateServiceRequest(ctx context.Context, req *domain.ServiceRequest) (*domain.ServiceRequest, error) {
	formData, err := encodeFormData(req.FormData)
	if err != nil {
		return nil, err
	}
	query := `
		WITH r AS (
			INSERT INTO service_requests (id, service_id, user_id, form_data, status, payment_method, payment_status, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING *
		)
		SELECT ` + serviceRequestColumns + `
		FROM r
		JOIN services s ON s.id = r.service_id
	`
	row := r.db.QueryRow(ctx, query,
		req.ID,
		req.ServiceID,
		req.UserID,
		formData,
		string(req.Status),
		string(req.PaymentMethod),
		string(req.PaymentStatus),
		req.Amount,
	)
	created, err := scanPostgresServiceRequest(row)
	if err != nil {
		return nil, translatePostgresError(err)
	}
	return created, nil
}

// ListServiceRequests returns one page of requests and the total matching count.
func (r *PostgresRepository) ListServiceRequests(ctx context.Context, opts domain.ServiceRequestListOptions) ([]domain.ServiceRequest, int, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}
	argPos := 1
	if opts.UserID != nil {
		where = append(where, fmt.Sprintf("r.user_id = $%d", argPos))
		args = append(args, *opts.UserID)
		argPos++
	}
	if opts.Status != nil {
		where = append(where, fmt.Sprintf("r.status = $%d", argPos))
		args = append(args, string(*opts.Status))
		argPos++
	}
	if opts.Query != "" {
		where = append(where, fmt.Sprintf(`(s.title ILIKE $%d ESCAPE '\' OR s.description ILIKE $%d ESCAPE '\')`, argPos, argPos))
		args = append(args, likePattern(opts.Query))
		argPos++
	}
	from := `
		FROM service_requests r
		JOIN services s ON s.id = r.service_id
		WHERE ` + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) `+from, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + serviceRequestColumns + from + ` ` + orderByClause(opts.SortBy, opts.SortOrder) +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, argPos, argPos+1)
	args = append(args, opts.Limit, opts.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	requests := []domain.ServiceRequest{}
	for rows.Next() {
		req, err := scanPostgresServiceRequest(rows)
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

// GetServiceRequest retrieves a request with its service summary.
func (r *PostgresRepository) GetServiceRequest(ctx context.Context, requestID uuid.UUID) (*domain.ServiceRequest, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+serviceRequestColumns+`
		FROM service_requests r
		JOIN services s ON s.id = r.service_id
		WHERE r.id = $1
	`, requestID)
	req, err := scanPostgresServiceRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// UpdateServiceRequest sets status and/or payment status and returns the stored row.
func (r *PostgresRepository) UpdateServiceRequest(ctx context.Context, requestID uuid.UUID, update domain.ServiceRequestUpdate) (*domain.ServiceRequest, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{requestID}
	argPos := 2
	if update.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", argPos))
		args = append(args, string(*update.Status))
		argPos++
	}
	if update.PaymentStatus != nil {
		sets = append(sets, fmt.Sprintf("payment_status = $%d", argPos))
		args = append(args, string(*update.PaymentStatus))
	}
	query := `
		WITH r AS (
			UPDATE service_requests SET ` + strings.Join(sets, ", ") + `
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + serviceRequestColumns + `
		FROM r
		JOIN services s ON s.id = r.service_id
	`
	req, err := scanPostgresServiceRequest(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceRequestNotFound
		}
		return nil, translatePostgresError(err)
	}
	return req, nil
}

// DeleteServiceRequest removes a request by id.
func (r *PostgresRepository) DeleteServiceRequest(ctx context.Context, requestID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM service_requests WHERE id = $1`, requestID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrServiceRequestNotFound
	}
	return nil
}

// CountServiceRequests aggregates totals per status in one statement.
func (r *PostgresRepository) CountServiceRequests(ctx context.Context, userID *string) (*domain.ServiceRequestStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'PROCESSING'),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE status = 'CANCELLED')
		FROM service_requests
	`
	args := []interface{}{}
	if userID != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *userID)
	}
	var stats domain.ServiceRequestStats
	err := r.db.QueryRow(ctx, query, args...).Scan(
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

func (r *PostgresRepository) queryPaymentMethods(ctx context.Context, query string, args ...interface{}) ([]domain.PaymentMethod, error) {
	rows, err := r.db.Query(ctx, query, args...)
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

func scanPostgresService(row pgx.Row) (*domain.Service, error) {
	var svc domain.Service
	var formFields []byte
	err := row.Scan(
		&svc.ID,
		&svc.Title,
		&svc.Description,
		&svc.Price,
		&svc.Type,
		&formFields,
		&svc.CreatedAt,
		&svc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if svc.FormFields, err = decodeFormFields(formFields); err != nil {
		return nil, err
	}
	svc.PaymentMethods = []domain.PaymentMethod{}
	return &svc, nil
}

func scanPostgresServiceRequest(row pgx.Row) (*domain.ServiceRequest, error) {
	var req domain.ServiceRequest
	var summary domain.ServiceSummary
	var formData []byte
	err := row.Scan(
		&req.ID,
		&req.ServiceID,
		&req.UserID,
		&formData,
		&req.Status,
		&req.PaymentMethod,
		&req.PaymentStatus,
		&req.Amount,
		&req.CreatedAt,
		&req.UpdatedAt,
		&summary.Title,
		&summary.Description,
		&summary.Price,
		&summary.Type,
	)
	if err != nil {
		return nil, err
	}
	if req.FormData, err = decodeFormData(formData); err != nil {
		return nil, err
	}
	req.Service = &summary
	return &req, nil
}

// translatePostgresError maps constraint violations onto the store's sentinel errors.
func translatePostgresError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", ErrForeignKeyViolation, pgErr.ConstraintName)
		}
	}
	return err
}

func containsMethod(methods []domain.PaymentMethodType, target domain.PaymentMethodType) bool {
	for _, method := range methods {
		if method == target {
			return true
		}
	}
	return false
}
