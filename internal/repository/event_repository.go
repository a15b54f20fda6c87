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

type EventRepository interface {
	List(ctx context.Context) ([]*model.Event, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	Update(ctx context.Context, id uuid.UUID, params model.UpdateEventParams) (*model.Event, error)
	SetLifecycleFlag(ctx context.Context, id uuid.UUID, flag model.LifecycleFlag) error
}

type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

const eventColumns = `
	id, title, description, start_date, start_time, end_time,
	max_participants, lifecycle_flag, organizer_id, created_at, updated_at
`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var ev model.Event
	err := row.Scan(
		&ev.ID,
		&ev.Title,
		&ev.Description,
		&ev.StartDate,
		&ev.StartTime,
		&ev.EndTime,
		&ev.MaxParticipants,
		&ev.LifecycleFlag,
		&ev.OrganizerID,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *PostgresEventRepository) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	query := `
		INSERT INTO events (
			id, title, description, start_date, start_time, end_time,
			max_participants, lifecycle_flag, organizer_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + eventColumns

	row := r.pool.QueryRow(ctx, query,
		event.ID, event.Title, event.Description, event.StartDate,
		event.StartTime, event.EndTime, event.MaxParticipants,
		event.LifecycleFlag, event.OrganizerID,
	)

	created, err := scanEvent(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return created, nil
}

func (r *PostgresEventRepository) List(ctx context.Context) ([]*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		ORDER BY start_date, start_time NULLS FIRST
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func (r *PostgresEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = $1
	`

	ev, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, app_errors.ErrEventNotFound
		}
		return nil, err
	}

	return ev, nil
}

func (r *PostgresEventRepository) Update(ctx context.Context, id uuid.UUID, params model.UpdateEventParams) (*model.Event, error) {
	query := `
		UPDATE events
		SET title = COALESCE($1, title),
		    description = COALESCE($2, description),
		    max_participants = COALESCE($3, max_participants),
		    updated_at = $4
		WHERE id = $5
		RETURNING ` + eventColumns

	row := r.pool.QueryRow(ctx, query,
		params.Title, params.Description, params.MaxParticipants,
		time.Now().UTC(), id,
	)

	ev, err := scanEvent(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, app_errors.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	return ev, nil
}

func (r *PostgresEventRepository) SetLifecycleFlag(ctx context.Context, id uuid.UUID, flag model.LifecycleFlag) error {
	query := `
		UPDATE events
		SET lifecycle_flag = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.pool.Exec(ctx, query, flag, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return app_errors.ErrEventNotFound
	}

	return nil
}
