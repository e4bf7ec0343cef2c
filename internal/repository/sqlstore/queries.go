package sqlstore

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/qustavo/dotsql"
)

//go:embed queries/*.sql
var queriesFS embed.FS

// queries - именованные запросы из встроенных .sql файлов
type queries struct {
	dot *dotsql.DotSql
}

func loadQueries() (*queries, error) {
	var combined strings.Builder
	err := fs.WalkDir(queriesFS, "queries", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".sql" {
			return nil
		}
		content, err := queriesFS.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		combined.Write(content)
		combined.WriteString("\n")
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load query files: %w", err)
	}

	dot, err := dotsql.LoadFromString(combined.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse queries: %w", err)
	}
	return &queries{dot: dot}, nil
}

// get возвращает запрос с плейсхолдерами драйвера ($1 для PostgreSQL)
func (q *queries) get(ext sqlx.Ext, name string) (string, error) {
	raw, err := q.dot.Raw(name)
	if err != nil {
		return "", fmt.Errorf("query not found: %s", name)
	}
	return ext.Rebind(raw), nil
}
