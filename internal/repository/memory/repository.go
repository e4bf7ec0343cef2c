package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sorbet-validators/internal/model"
	"sorbet-validators/internal/repository"
)

var _ repository.CompilationRepository = (*repo)(nil)

type repo struct {
	mu           sync.RWMutex
	compilations map[string]model.Compilation
	// limit - максимум хранимых компиляций, 0 без ограничения
	limit int
}

// NewRepository создает in-memory репозиторий на основе map.
// При limit > 0 самые старые компиляции вытесняются.
func NewRepository(limit int) repository.CompilationRepository {
	return &repo{
		compilations: make(map[string]model.Compilation),
		limit:        limit,
	}
}

// Create сохраняет компиляцию, генерируя UUID и время создания при необходимости
func (r *repo) Create(ctx context.Context, c model.Compilation) (model.Compilation, error) {
	if err := c.Validate(); err != nil {
		return model.Compilation{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	r.compilations[c.ID] = c
	r.evict()

	return c, nil
}

// evict удаляет самые старые компиляции сверх лимита. Вызывается под r.mu.
func (r *repo) evict() {
	if r.limit <= 0 || len(r.compilations) <= r.limit {
		return
	}
	all := r.sorted()
	for _, c := range all[:len(all)-r.limit] {
		delete(r.compilations, c.ID)
	}
}

// GetByID возвращает компиляцию по ее ID
func (r *repo) GetByID(ctx context.Context, id string) (model.Compilation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.compilations[id]
	if !exists {
		return model.Compilation{}, repository.ErrCompilationNotFound
	}
	return c, nil
}

// List возвращает все компиляции, старые первыми
func (r *repo) List(ctx context.Context) ([]model.Compilation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sorted(), nil
}

func (r *repo) sorted() []model.Compilation {
	out := make([]model.Compilation, 0, len(r.compilations))
	for _, c := range r.compilations {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Delete удаляет компиляцию по ID
func (r *repo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.compilations[id]; !exists {
		return repository.ErrCompilationNotFound
	}
	delete(r.compilations, id)

	return nil
}
