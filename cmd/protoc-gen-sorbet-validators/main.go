// Package main содержит protoc плагин protoc-gen-sorbet-validators, который
// генерирует Ruby/Sorbet валидаторы по аннотациям validate.rules.
//
// Плагин строит IR из proto файлов (пакет protoir) и выпускает те же файлы,
// что и команда sorbet-validators generate: validation_error.rb и validators.rb.
//
// Использование:
//
//	# Установка плагина
//	go install ./cmd/protoc-gen-sorbet-validators
//
//	protoc --plugin=protoc-gen-sorbet-validators=./bin/protoc-gen-sorbet-validators \
//	       --sorbet-validators_out=lib \
//	       --sorbet-validators_opt=namespace=Acme::Notes,runtime=false \
//	       proto/notes/v1/notes.proto
//
// Параметры (--sorbet-validators_opt):
//
//	title=...             заголовок сервиса (по умолчанию proto package без версии)
//	namespace=...         базовый Ruby namespace
//	subfolder=...         подкаталог для файлов
//	runtime=true|false    рантайм проверки required/type
//	rubocop_disable=A+B   правила rubocop, отключаемые в validators.rb
//	file_includes=a+b     require в начале файлов
package main

import (
	"flag"
	"strings"

	"google.golang.org/protobuf/compiler/protogen"
	"google.golang.org/protobuf/types/pluginpb"

	"sorbet-validators/internal/generator"
	"sorbet-validators/internal/guard"
	"sorbet-validators/internal/names"
	"sorbet-validators/internal/protoir"
)

// listSeparator разделяет элементы списка внутри одного параметра;
// запятая уже занята protoc для разделения параметров.
const listSeparator = "+"

type params struct {
	title          string
	namespace      string
	subfolder      string
	runtime        bool
	rubocopDisable string
	fileIncludes   string
}

func (p *params) flags() *flag.FlagSet {
	fs := flag.NewFlagSet("protoc-gen-sorbet-validators", flag.ContinueOnError)
	fs.StringVar(&p.title, "title", "", "service title")
	fs.StringVar(&p.namespace, "namespace", "", "base Ruby namespace")
	fs.StringVar(&p.subfolder, "subfolder", "", "output subfolder")
	fs.BoolVar(&p.runtime, "runtime", true, "emit runtime required/type checks")
	fs.StringVar(&p.rubocopDisable, "rubocop_disable", "", "rubocop rules to disable, separated by +")
	fs.StringVar(&p.fileIncludes, "file_includes", "", "files to require, separated by +")
	return fs
}

func (p *params) config() generator.Config {
	return generator.Config{
		Names: names.Options{Namespace: p.namespace, Subfolder: p.subfolder},
		Guard: guard.Options{RuntimeChecks: p.runtime},
		Files: generator.Options{
			RubocopDisable: split(p.rubocopDisable),
			FileIncludes:   split(p.fileIncludes),
		},
	}
}

func split(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSeparator)
}

// main является точкой входа protoc плагина.
//
// Плагин читает CodeGeneratorRequest из stdin (через protogen), строит один
// IR по всем файлам для генерации и записывает два Ruby файла.
func main() {
	var p params
	fs := p.flags()

	protogen.Options{ParamFunc: fs.Set}.Run(func(gen *protogen.Plugin) error {
		gen.SupportedFeatures = uint64(pluginpb.CodeGeneratorResponse_FEATURE_PROTO3_OPTIONAL)
		return generate(gen, &p)
	})
}

// generate строит IR и добавляет сгенерированные файлы в ответ плагина.
func generate(gen *protogen.Plugin, p *params) error {
	svc, err := protoir.Build(gen.Files, protoir.Options{Title: p.title})
	if err != nil {
		return err
	}

	cfg := p.config()
	cfg.Files.Source = protoir.Describe(gen.Files)

	res, err := generator.Build(svc, cfg)
	if err != nil {
		return err
	}

	for _, f := range res.Files {
		g := gen.NewGeneratedFile(f.Name(), "")
		if _, err := g.Write([]byte(f.Contents)); err != nil {
			return err
		}
	}
	return nil
}
