package model

import (
	"errors"
	"time"

	"sorbet-validators/internal/validators"
)

// CompileOptions переопределяет настройки генерации из конфигурации для одного запроса.
// Пустые значения означают "взять из конфигурации".
type CompileOptions struct {
	Namespace      string   `json:"namespace,omitempty"`
	Subfolder      string   `json:"subfolder,omitempty"`
	Runtime        *bool    `json:"runtime,omitempty"`
	StrictRules    *bool    `json:"strict_rules,omitempty"`
	RubocopDisable []string `json:"rubocop_disable,omitempty"`
	FileIncludes   []string `json:"file_includes,omitempty"`
	Source         string   `json:"source,omitempty"`
}

// CompileRequest - запрос на генерацию валидаторов
type CompileRequest struct {
	IR      []byte // IR в YAML или JSON
	Options CompileOptions
}

// GeneratedFile - сгенерированный Ruby файл
type GeneratedFile struct {
	Path     string `json:"path"` // путь через "/"
	Contents string `json:"contents"`
}

// Compilation представляет результат генерации (доменная модель)
type Compilation struct {
	ID         string    // UUID компиляции
	Title      string    // Заголовок сервиса из IR
	CreatedAt  time.Time // Дата создания
	Files      []GeneratedFile
	Validators []string // Имена валидаторов в порядке генерации

	// IR и Options - исходные данные, по ним Set восстанавливается
	// для компиляций, прочитанных из базы
	IR      []byte
	Options CompileOptions

	// Set - собранные валидаторы для пробного запуска, не сериализуется
	Set *validators.Set
}

// Validate проверяет валидность компиляции
func (c *Compilation) Validate() error {
	if len(c.Files) == 0 {
		return errors.New("compilation has no files")
	}
	return nil
}

// File возвращает файл по пути
func (c *Compilation) File(path string) (GeneratedFile, bool) {
	for _, f := range c.Files {
		if f.Path == path {
			return f, true
		}
	}
	return GeneratedFile{}, false
}
