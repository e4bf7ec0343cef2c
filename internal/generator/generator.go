// Package generator собирает файлы Ruby из набора валидаторов:
// validation_error.rb с классом ошибки и validators.rb с модулем Validators.
package generator

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sorbet-validators/internal/guard"
	"sorbet-validators/internal/ir"
	"sorbet-validators/internal/layout"
	"sorbet-validators/internal/names"
	"sorbet-validators/internal/validators"
)

// Version попадает в заголовок файлов; переопределяется через -ldflags.
var Version = "dev"

// File - сгенерированный файл.
type File struct {
	// Path - сегменты пути относительно выходного каталога
	Path     []string `json:"path"`
	Contents string   `json:"contents"`
}

// Name - путь через "/".
func (f File) Name() string {
	return strings.Join(f.Path, "/")
}

// Options - косметические настройки файлов.
type Options struct {
	RubocopDisable []string
	FileIncludes   []string
	// Source - описание источника IR для заголовка (может быть пустым)
	Source string
}

// Config - все настройки генерации для одного IR.
type Config struct {
	Names names.Options
	Guard guard.Options
	Files Options
}

// Result - результат генерации.
type Result struct {
	Files []File
	Set   *validators.Set
}

// Build собирает валидаторы и файлы для сервиса.
func Build(svc *ir.Service, cfg Config) (*Result, error) {
	resolver := names.New(svc, cfg.Names)

	set, err := validators.Assemble(svc, resolver, cfg.Guard)
	if err != nil {
		return nil, fmt.Errorf("validators.Assemble: %w", err)
	}

	g := &fileBuilder{names: resolver, opts: cfg.Files}
	header, err := g.header()
	if err != nil {
		return nil, err
	}

	return &Result{
		Files: []File{
			{Path: resolver.ValidationErrorFilepath(), Contents: g.validationError(header)},
			{Path: resolver.ValidatorsFilepath(), Contents: g.validators(header, set)},
		},
		Set: set,
	}, nil
}

type fileBuilder struct {
	names *names.Resolver
	opts  Options
}

func (g *fileBuilder) header() (string, error) {
	var buf bytes.Buffer
	if err := headerTmpl.Execute(&buf, HeaderData{Version: Version, Source: g.opts.Source}); err != nil {
		return "", fmt.Errorf("header template: %w", err)
	}
	return buf.String(), nil
}

func (g *fileBuilder) preamble(header string) layout.Group {
	out := layout.Group{}
	for _, line := range strings.Split(header, "\n") {
		out = append(out, layout.Line(line))
	}
	return append(out, layout.Blank, layout.Line("# typed: strict"), layout.Blank)
}

func (g *fileBuilder) requires() layout.Group {
	if len(g.opts.FileIncludes) == 0 {
		return nil
	}
	var out layout.Group
	for _, include := range g.opts.FileIncludes {
		out = append(out, layout.Line("require "+guard.Quote(include)))
	}
	return append(out, layout.Blank)
}

func (g *fileBuilder) validationError(header string) string {
	return layout.Render(
		g.preamble(header),
		g.requires(),
		layout.Block("module "+g.names.ValidationErrorNamespace(),
			layout.Block("class "+g.names.ValidationErrorName()+" < T::Struct",
				layout.Line("const :code, T.nilable(String)"),
				layout.Line("const :title, T.nilable(String)"),
				layout.Line("const :path, T.nilable(String)"),
			),
		),
		layout.Blank,
	)
}

func (g *fileBuilder) validators(header string, set *validators.Set) string {
	var disable, enable layout.Group
	if len(g.opts.RubocopDisable) > 0 {
		enable = layout.Group{layout.Blank}
		for _, rule := range g.opts.RubocopDisable {
			disable = append(disable, layout.Line("# rubocop:disable "+rule))
			enable = append(enable, layout.Line("# rubocop:enable "+rule))
		}
		disable = append(disable, layout.Blank)
	}

	return layout.Render(
		g.preamble(header),
		disable,
		g.requires(),
		layout.Block("module "+g.names.ValidatorsNamespace(),
			layout.Block("module "+g.names.ValidatorsName(),
				layout.Line("extend T::Sig"),
				set.Fragment(),
			),
		),
		enable,
		layout.Blank,
	)
}

// WriteFiles записывает файлы в каталог dir, создавая подкаталоги.
func WriteFiles(dir string, files []File) error {
	for _, f := range files {
		path := filepath.Join(append([]string{dir}, f.Path...)...)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("os.MkdirAll: %w", err)
		}
		if err := os.WriteFile(path, []byte(f.Contents), 0o644); err != nil {
			return fmt.Errorf("os.WriteFile: %w", err)
		}
	}
	return nil
}
