package service

import (
	"context"
	"errors"

	"sorbet-validators/internal/guard"
	"sorbet-validators/internal/model"
)

var (
	// ErrEmptyIR - запрос без IR
	ErrEmptyIR = errors.New("ir cannot be empty")
	// ErrBadIR - IR не удалось разобрать или он невалиден
	ErrBadIR = errors.New("invalid ir")
	// ErrEmptyID - пустой ID компиляции
	ErrEmptyID = errors.New("id cannot be empty")
	// ErrFileNotFound - в компиляции нет файла с таким путем
	ErrFileNotFound = errors.New("file not found")
)

// CompilerService интерфейс бизнес-логики генерации валидаторов
type CompilerService interface {
	// Compile разбирает IR, генерирует файлы и сохраняет компиляцию
	Compile(ctx context.Context, req model.CompileRequest) (model.Compilation, error)

	// Get возвращает компиляцию по ее ID
	Get(ctx context.Context, id string) (model.Compilation, error)

	// List возвращает все сохраненные компиляции
	List(ctx context.Context) ([]model.Compilation, error)

	// File возвращает один файл компиляции
	File(ctx context.Context, id, path string) (model.GeneratedFile, error)

	// Check выполняет валидатор компиляции над input без Ruby
	Check(ctx context.Context, id, validator string, input any) ([]guard.ErrorRecord, error)

	// Subscribe подписывает на завершенные компиляции
	Subscribe() chan model.Compilation

	// Unsubscribe отменяет подписку и закрывает канал
	Unsubscribe(ch chan model.Compilation)
}
