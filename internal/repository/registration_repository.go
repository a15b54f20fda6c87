package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-event-registration/internal/model"
	"go-event-registration/pkg/app_errors"
)

// RegistrationRepository is the durable store for registrations. Mutations
// that must be indivisible (cancel + waitlist promotion, check-in races)
// run inside InTx; the Postgres implementation maps that to a transaction
// and the in-memory one to a global lock.
type RegistrationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Registration, error)
	// FindByIDForUpdate locks the row for the rest of the transaction so
	// concurrent transitions on one registration serialize.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Registration, error)
	// FindActiveByEventAndRegistrant ignores cancelled rows: that is the
	// uniqueness scope for the one-per-(event, registrant) invariant.
	FindActiveByEventAndRegistrant(ctx context.Context, eventID, registrantID uuid.UUID) (*model.Registration, error)
	FindActiveByEventAndEmail(ctx context.Context, eventID uuid.UUID, email string) (*model.Registration, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Registration, error)
	ListByRegistrantAndStatuses(ctx context.Context, registrantID uuid.UUID, statuses ...model.RegistrationStatus) ([]*model.Registration, error)
	// WaitlistPositions is the ordered read-only view of an event's
	// waitlist, FIFO by enqueue time with registration ID tie-break.
	WaitlistPositions(ctx context.Context, eventID uuid.UUID) ([]*model.Registration, error)
	CountWaitlisted(ctx context.Context, eventID uuid.UUID) (int, error)
	CountByEventAndStatuses(ctx context.Context, eventID uuid.UUID, statuses ...model.RegistrationStatus) (int, error)
	// NextWaitlisted returns the earliest-enqueued waitlisted
	// registration for the event, locked, or nil when the queue is empty.
	NextWaitlisted(ctx context.Context, eventID uuid.UUID) (*model.Registration, error)
	Create(ctx context.Context, reg *model.Registration) (*model.Registration, error)
	Update(ctx context.Context, reg *model.Registration) (*model.Registration, error)
	InTx(ctx context.Context, fn func(RegistrationRepository) error) error
}

type PostgresRegistrationRepository struct {
	pool *pgxpool.Pool
	db   DBTX
}

func NewPostgresRegistrationRepository(pool *pgxpool.Pool) *PostgresRegistrationRepository {
	return &PostgresRegistrationRepository{pool: pool, db: pool}
}

func (r *PostgresRegistrationRepository) InTx(ctx context.Context, fn func(RegistrationRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	txRepo := &PostgresRegistrationRepository{pool: r.pool, db: tx}
	if err := fn(txRepo); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const registrationColumns = `
	id, event_id, registrant_id, name, email, source, status,
	on_waitlist, waitlist_position, enqueued_at,
	checked_in, checked_in_at, check_in_method,
	registered_at, created_at, updated_at
`

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var reg model.Registration
	var method *string
	err := row.Scan(
		&reg.ID,
		&reg.EventID,
		&reg.RegistrantID,
		&reg.Name,
		&reg.Email,
		&reg.Source,
		&reg.Status,
		&reg.Waitlist.OnWaitlist,
		&reg.Waitlist.Position,
		&reg.Waitlist.EnqueuedAt,
		&reg.CheckIn.Done,
		&reg.CheckIn.At,
		&method,
		&reg.RegisteredAt,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if method != nil {
		reg.CheckIn.Method = model.CheckInMethod(*method)
	}
	return &reg, nil
}

func (r *PostgresRegistrationRepository) queryRegistrations(ctx context.Context, query string, args ...any) ([]*model.Registration, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []*model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return regs, nil
}

func (r *PostgresRegistrationRepository) Create(ctx context.Context, reg *model.Registration) (*model.Registration, error) {
	query := `
		INSERT INTO registrations (
			id, event_id, registrant_id, name, email, source, status,
			on_waitlist, waitlist_position, enqueued_at,
			checked_in, checked_in_at, check_in_method, registered_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + registrationColumns

	row := r.db.QueryRow(ctx, query,
		reg.ID, reg.EventID, reg.RegistrantID, reg.Name, reg.Email,
		reg.Source, reg.Status,
		reg.Waitlist.OnWaitlist, reg.Waitlist.Position, reg.Waitlist.EnqueuedAt,
		reg.CheckIn.Done, reg.CheckIn.At, nullableMethod(reg.CheckIn.Method),
		reg.RegisteredAt,
	)

	created, err := scanRegistration(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, app_errors.ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}

	return created, nil
}

func (r *PostgresRegistrationRepository) Update(ctx context.Context, reg *model.Registration) (*model.Registration, error) {
	query := `
		UPDATE registrations
		SET status = $1,
		    on_waitlist = $2, waitlist_position = $3, enqueued_at = $4,
		    checked_in = $5, checked_in_at = $6, check_in_method = $7,
		    updated_at = $8
		WHERE id = $9
		RETURNING ` + registrationColumns

	row := r.db.QueryRow(ctx, query,
		reg.Status,
		reg.Waitlist.OnWaitlist, reg.Waitlist.Position, reg.Waitlist.EnqueuedAt,
		reg.CheckIn.Done, reg.CheckIn.At, nullableMethod(reg.CheckIn.Method),
		time.Now().UTC(), reg.ID,
	)

	updated, err := scanRegistration(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, app_errors.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to update registration: %w", err)
	}

	return updated, nil
}

func (r *PostgresRegistrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE id = $1
	`
	return r.findOne(ctx, query, id)
}

func (r *PostgresRegistrationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE id = $1
		FOR UPDATE
	`
	return r.findOne(ctx, query, id)
}

func (r *PostgresRegistrationRepository) FindActiveByEventAndRegistrant(ctx context.Context, eventID, registrantID uuid.UUID) (*model.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1 AND registrant_id = $2 AND status != $3
	`
	return r.findOne(ctx, query, eventID, registrantID, model.RegistrationStatusCancelled)
}

func (r *PostgresRegistrationRepository) FindActiveByEventAndEmail(ctx context.Context, eventID uuid.UUID, email string) (*model.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1 AND lower(email) = lower($2) AND status != $3
	`
	return r.findOne(ctx, query, eventID, email, model.RegistrationStatusCancelled)
}

func (r *PostgresRegistrationRepository) findOne(ctx context.Context, query string, args ...any) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, app_errors.ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *PostgresRegistrationRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1
		ORDER BY registered_at
	`
	return r.queryRegistrations(ctx, query, eventID)
}

func (r *PostgresRegistrationRepository) ListByRegistrantAndStatuses(ctx context.Context, registrantID uuid.UUID, statuses ...model.RegistrationStatus) ([]*model.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE registrant_id = $1 AND status = ANY($2)
		ORDER BY registered_at
	`
	return r.queryRegistrations(ctx, query, registrantID, statusStrings(statuses))
}

func (r *PostgresRegistrationRepository) WaitlistPositions(ctx context.Context, eventID uuid.UUID) ([]*model.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1 AND on_waitlist AND status = $2
		ORDER BY enqueued_at, id
	`
	return r.queryRegistrations(ctx, query, eventID, model.RegistrationStatusRegistered)
}

func (r *PostgresRegistrationRepository) CountWaitlisted(ctx context.Context, eventID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM registrations
		WHERE event_id = $1 AND on_waitlist AND status = $2
	`

	var count int
	err := r.db.QueryRow(ctx, query, eventID, model.RegistrationStatusRegistered).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRegistrationRepository) CountByEventAndStatuses(ctx context.Context, eventID uuid.UUID, statuses ...model.RegistrationStatus) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM registrations
		WHERE event_id = $1 AND status = ANY($2) AND NOT on_waitlist
	`

	var count int
	err := r.db.QueryRow(ctx, query, eventID, statusStrings(statuses)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRegistrationRepository) NextWaitlisted(ctx context.Context, eventID uuid.UUID) (*model.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1 AND on_waitlist AND status = $2
		ORDER BY enqueued_at, id
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	reg, err := scanRegistration(r.db.QueryRow(ctx, query, eventID, model.RegistrationStatusRegistered))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return reg, nil
}

func statusStrings(statuses []model.RegistrationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func nullableMethod(m model.CheckInMethod) *string {
	if m == "" {
		return nil
	}
	s := string(m)
	return &s
}
