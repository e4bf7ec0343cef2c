package repository

import (
	"context"
	"errors"

	"sorbet-validators/internal/model"
)

// ErrCompilationNotFound возвращается, когда компиляция не найдена
var ErrCompilationNotFound = errors.New("compilation not found")

// CompilationRepository интерфейс для работы с компиляциями в хранилище
type CompilationRepository interface {
	// Create сохраняет компиляцию и возвращает ее с ID
	Create(ctx context.Context, c model.Compilation) (model.Compilation, error)

	// GetByID возвращает компиляцию по ее ID
	GetByID(ctx context.Context, id string) (model.Compilation, error)

	// List возвращает все компиляции, старые первыми
	List(ctx context.Context) ([]model.Compilation, error)

	// Delete удаляет компиляцию по ID
	Delete(ctx context.Context, id string) error
}
