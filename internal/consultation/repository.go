package consultation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	Save(ctx context.Context, c *Consultation) error
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	query := `SELECT id, patient_id, history, created_at, updated_at FROM consultations WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	var c Consultation
	var historyJSON []byte

	err := row.Scan(
		&c.ID,
		&c.PatientID,
		&historyJSON,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &c.History); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history: %w", err)
		}
	}

	return &c, nil
}

func (r *postgresRepo) Save(ctx context.Context, c *Consultation) error {
	historyJSON, err := json.Marshal(c.History)
	if err != nil {
		return err
	}

	touch(c)

	query := `
		INSERT INTO consultations (id, patient_id, history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			history = $3,
			updated_at = $5
	`
	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.PatientID, historyJSON, c.CreatedAt, c.UpdatedAt)
	return err
}

// memoryRepo keeps consultations in process. Used when no database is
// reachable and in tests.
type memoryRepo struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Consultation
}

func NewMemoryRepository() Repository {
	return &memoryRepo{items: make(map[uuid.UUID]Consultation)}
}

func (r *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.History = c.Transcript()
	return &c, nil
}

func (r *memoryRepo) Save(ctx context.Context, c *Consultation) error {
	touch(c)

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *c
	stored.History = c.Transcript()
	r.items[c.ID] = stored
	return nil
}

func touch(c *Consultation) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = time.Now()
}
