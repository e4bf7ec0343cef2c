package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"sorbet-validators/internal/model"
	"sorbet-validators/internal/repository"
)

var _ repository.CompilationRepository = (*repo)(nil)

// compilationRow - строка таблицы compilations
type compilationRow struct {
	ID         string `db:"id"`
	Title      string `db:"title"`
	CreatedAt  int64  `db:"created_at"` // UnixNano
	IR         []byte `db:"ir"`
	Options    string `db:"options"`
	Files      string `db:"files"`
	Validators string `db:"validators"`
}

type repo struct {
	db *sqlx.DB
	q  *queries
	// limit - максимум хранимых компиляций, 0 без ограничения
	limit int
}

// NewRepository создает репозиторий поверх открытой базы с примененными миграциями.
// При limit > 0 самые старые компиляции удаляются.
func NewRepository(db *sqlx.DB, limit int) (repository.CompilationRepository, error) {
	q, err := loadQueries()
	if err != nil {
		return nil, err
	}
	return &repo{db: db, q: q, limit: limit}, nil
}

func toRow(c model.Compilation) (compilationRow, error) {
	options, err := json.Marshal(c.Options)
	if err != nil {
		return compilationRow{}, fmt.Errorf("json.Marshal options: %w", err)
	}
	files, err := json.Marshal(c.Files)
	if err != nil {
		return compilationRow{}, fmt.Errorf("json.Marshal files: %w", err)
	}
	validators, err := json.Marshal(c.Validators)
	if err != nil {
		return compilationRow{}, fmt.Errorf("json.Marshal validators: %w", err)
	}

	ir := c.IR
	if ir == nil {
		ir = []byte{}
	}
	return compilationRow{
		ID:         c.ID,
		Title:      c.Title,
		CreatedAt:  c.CreatedAt.UnixNano(),
		IR:         ir,
		Options:    string(options),
		Files:      string(files),
		Validators: string(validators),
	}, nil
}

func (r compilationRow) toModel() (model.Compilation, error) {
	c := model.Compilation{
		ID:        r.ID,
		Title:     r.Title,
		CreatedAt: time.Unix(0, r.CreatedAt),
		IR:        r.IR,
	}
	if err := json.Unmarshal([]byte(r.Options), &c.Options); err != nil {
		return model.Compilation{}, fmt.Errorf("compilation %s: options: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Files), &c.Files); err != nil {
		return model.Compilation{}, fmt.Errorf("compilation %s: files: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Validators), &c.Validators); err != nil {
		return model.Compilation{}, fmt.Errorf("compilation %s: validators: %w", r.ID, err)
	}
	return c, nil
}

// Create сохраняет компиляцию, генерируя UUID и время создания при необходимости
func (r *repo) Create(ctx context.Context, c model.Compilation) (model.Compilation, error) {
	if err := c.Validate(); err != nil {
		return model.Compilation{}, err
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	row, err := toRow(c)
	if err != nil {
		return model.Compilation{}, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Compilation{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert, err := r.q.get(tx, "insert-compilation")
	if err != nil {
		return model.Compilation{}, err
	}
	if _, err := tx.ExecContext(ctx, insert,
		row.ID, row.Title, row.CreatedAt, row.IR, row.Options, row.Files, row.Validators,
	); err != nil {
		return model.Compilation{}, fmt.Errorf("failed to insert compilation: %w", err)
	}

	if r.limit > 0 {
		evict, err := r.q.get(tx, "evict-compilations")
		if err != nil {
			return model.Compilation{}, err
		}
		if _, err := tx.ExecContext(ctx, evict, r.limit); err != nil {
			return model.Compilation{}, fmt.Errorf("failed to evict compilations: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Compilation{}, fmt.Errorf("failed to commit compilation: %w", err)
	}
	return c, nil
}

// GetByID возвращает компиляцию по ее ID. Set не заполняется.
func (r *repo) GetByID(ctx context.Context, id string) (model.Compilation, error) {
	query, err := r.q.get(r.db, "get-compilation")
	if err != nil {
		return model.Compilation{}, err
	}

	var row compilationRow
	err = r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Compilation{}, repository.ErrCompilationNotFound
	}
	if err != nil {
		return model.Compilation{}, fmt.Errorf("failed to get compilation: %w", err)
	}
	return row.toModel()
}

// List возвращает все компиляции, старые первыми
func (r *repo) List(ctx context.Context) ([]model.Compilation, error) {
	query, err := r.q.get(r.db, "list-compilations")
	if err != nil {
		return nil, err
	}

	var rows []compilationRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list compilations: %w", err)
	}

	out := make([]model.Compilation, 0, len(rows))
	for _, row := range rows {
		c, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Delete удаляет компиляцию по ID
func (r *repo) Delete(ctx context.Context, id string) error {
	query, err := r.q.get(r.db, "delete-compilation")
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete compilation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrCompilationNotFound
	}
	return nil
}
