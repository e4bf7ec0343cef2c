package generator

import (
	"sorbet-validators/internal/config"
	"sorbet-validators/internal/guard"
	"sorbet-validators/internal/names"
)

// FromConfig собирает настройки генерации из секций sorbet и basketry.
func FromConfig(cfg *config.Config) Config {
	out := Config{Guard: guard.Options{RuntimeChecks: cfg.Sorbet.RuntimeChecks()}}
	if s := cfg.Sorbet; s != nil {
		out.Names = names.Options{
			Namespace:        s.Namespace,
			TypesModule:      s.TypesModule,
			EnumsModule:      s.EnumsModule,
			InterfacesModule: s.InterfacesModule,
		}
		out.Files.RubocopDisable = s.RubocopDisable
		out.Files.FileIncludes = s.FileIncludes
	}
	if cfg.Basketry != nil {
		out.Names.Subfolder = cfg.Basketry.Subfolder
	}
	return out
}
