package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/linen/internal/config"
	"github.com/specialistvlad/linen/internal/ctxlog"
)

// ValidateDeclarations performs a strict parity check between the declared
// modules and the Go catalog. Every declaration must name a catalog entry,
// may list only dependencies the module itself declares, and every enabled
// module's dependencies must be enabled too.
func ValidateDeclarations(ctx context.Context, decls []config.ModuleDecl, catalog *Catalog) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	enabled := make(map[string]bool, len(decls))
	seen := make(map[string]bool, len(decls))
	for _, decl := range decls {
		if seen[decl.Name] {
			errs = append(errs, fmt.Sprintf("module '%s': declared more than once", decl.Name))
			continue
		}
		seen[decl.Name] = true
		enabled[decl.Name] = decl.Enabled
	}

	for _, decl := range decls {
		if !catalog.Has(decl.Name) {
			errs = append(errs, fmt.Sprintf("module '%s': declared, but no such module is compiled in (known: %s)", decl.Name, strings.Join(catalog.Names(), ", ")))
			continue
		}
		if !decl.Enabled {
			if decl.Autoload {
				logger.Warn("Module is disabled, autoload is ignored.", "module", decl.Name)
			}
			continue
		}

		m, err := catalog.Build(decl.Name, decl.Settings)
		if err != nil {
			errs = append(errs, fmt.Sprintf("module '%s': %v", decl.Name, err))
			continue
		}
		codeDeps := m.Dependencies()

		for _, dep := range decl.DependsOn {
			if !slices.Contains(codeDeps, dep) {
				errs = append(errs, fmt.Sprintf("module '%s': declaration depends on '%s', which the Go module does not declare", decl.Name, dep))
			}
		}
		for _, dep := range codeDeps {
			if !enabled[dep] {
				errs = append(errs, fmt.Sprintf("module '%s': depends on '%s', which is not an enabled module", decl.Name, dep))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
