package compiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"sorbet-validators/internal/dryrun"
	"sorbet-validators/internal/generator"
	"sorbet-validators/internal/guard"
	"sorbet-validators/internal/ir"
	"sorbet-validators/internal/model"
	"sorbet-validators/internal/repository"
	svc "sorbet-validators/internal/service"
	"sorbet-validators/internal/validators"
)

var _ svc.CompilerService = (*service)(nil)

// Defaults - настройки генерации, которые запрос может переопределить
type Defaults struct {
	Generator   generator.Config
	StrictRules bool
}

type service struct {
	repo     repository.CompilationRepository
	events   *Feed
	defaults Defaults
	log      logrus.FieldLogger
}

// NewCompilerService создает сервис генерации валидаторов
func NewCompilerService(
	repo repository.CompilationRepository,
	events *Feed,
	defaults Defaults,
	log logrus.FieldLogger,
) svc.CompilerService {
	return &service{
		repo:     repo,
		events:   events,
		defaults: defaults,
		log:      log,
	}
}

// Compile разбирает IR, генерирует файлы, сохраняет компиляцию и публикует событие
func (s *service) Compile(ctx context.Context, req model.CompileRequest) (model.Compilation, error) {
	if len(strings.TrimSpace(string(req.IR))) == 0 {
		return model.Compilation{}, svc.ErrEmptyIR
	}

	cfg, strict := s.options(req.Options)

	parsed, err := ir.Parse(req.IR, ir.LoadOptions{StrictRules: strict, Logger: s.log})
	if err != nil {
		return model.Compilation{}, fmt.Errorf("%w: %w", svc.ErrBadIR, err)
	}

	res, err := generator.Build(parsed, cfg)
	if err != nil {
		return model.Compilation{}, fmt.Errorf("%w: %w", svc.ErrBadIR, err)
	}

	c := model.Compilation{
		Title:      parsed.Title,
		Validators: res.Set.Names(),
		IR:         req.IR,
		Options:    req.Options,
		Set:        res.Set,
	}
	for _, f := range res.Files {
		c.Files = append(c.Files, model.GeneratedFile{Path: f.Name(), Contents: f.Contents})
	}

	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return model.Compilation{}, err
	}

	s.log.WithFields(logrus.Fields{
		"id":         created.ID,
		"title":      created.Title,
		"validators": len(created.Validators),
	}).Info("compilation finished")
	s.events.Publish(created)

	return created, nil
}

// options накладывает переопределения запроса на настройки по умолчанию
func (s *service) options(o model.CompileOptions) (generator.Config, bool) {
	cfg := s.defaults.Generator
	strict := s.defaults.StrictRules

	if o.Namespace != "" {
		cfg.Names.Namespace = o.Namespace
	}
	if o.Subfolder != "" {
		cfg.Names.Subfolder = o.Subfolder
	}
	if o.Runtime != nil {
		cfg.Guard = guard.Options{RuntimeChecks: *o.Runtime}
	}
	if o.StrictRules != nil {
		strict = *o.StrictRules
	}
	if len(o.RubocopDisable) > 0 {
		cfg.Files.RubocopDisable = o.RubocopDisable
	}
	if len(o.FileIncludes) > 0 {
		cfg.Files.FileIncludes = o.FileIncludes
	}
	if o.Source != "" {
		cfg.Files.Source = o.Source
	}
	return cfg, strict
}

// Get возвращает компиляцию по ее ID
func (s *service) Get(ctx context.Context, id string) (model.Compilation, error) {
	if id == "" {
		return model.Compilation{}, svc.ErrEmptyID
	}
	return s.repo.GetByID(ctx, id)
}

// List возвращает все сохраненные компиляции
func (s *service) List(ctx context.Context) ([]model.Compilation, error) {
	return s.repo.List(ctx)
}

// File возвращает один файл компиляции
func (s *service) File(ctx context.Context, id, path string) (model.GeneratedFile, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return model.GeneratedFile{}, err
	}

	f, ok := c.File(strings.TrimPrefix(path, "/"))
	if !ok {
		return model.GeneratedFile{}, fmt.Errorf("%w: %q", svc.ErrFileNotFound, path)
	}
	return f, nil
}

// Check выполняет валидатор компиляции над input
func (s *service) Check(ctx context.Context, id, validator string, input any) ([]guard.ErrorRecord, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	set := c.Set
	if set == nil {
		if set, err = s.rebuild(c); err != nil {
			return nil, err
		}
	}
	return dryrun.New(set).Run(validator, input)
}

// rebuild заново собирает валидаторы компиляции из сохраненных IR и опций
func (s *service) rebuild(c model.Compilation) (*validators.Set, error) {
	cfg, strict := s.options(c.Options)

	parsed, err := ir.Parse(c.IR, ir.LoadOptions{StrictRules: strict, Logger: s.log})
	if err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", c.ID, err)
	}
	res, err := generator.Build(parsed, cfg)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", c.ID, err)
	}

	s.log.WithField("id", c.ID).Debug("validators rebuilt from stored IR")
	return res.Set, nil
}

// Subscribe подписывает на завершенные компиляции
func (s *service) Subscribe() chan model.Compilation {
	return s.events.Subscribe()
}

// Unsubscribe отменяет подписку
func (s *service) Unsubscribe(ch chan model.Compilation) {
	s.events.Unsubscribe(ch)
}
