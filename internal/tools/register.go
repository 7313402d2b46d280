package tools

import (
	"github.com/roach88/tablebridge/internal/catalog"
	"github.com/roach88/tablebridge/internal/formula"
)

// NewDefaultRegistry registers every low-level and high-level tool.
// A nil catalog uses catalog.Default(); a nil compiler uses
// formula.NewCompiler().
func NewDefaultRegistry(client TableClient, cat *catalog.Catalog, compiler *formula.Compiler, opts ...RegistryOption) *Registry {
	if cat == nil {
		cat = catalog.Default()
	}
	if compiler == nil {
		compiler = formula.NewCompiler()
	}

	r := NewRegistry(opts...)
	r.Register(GetRecordsTool{Client: client})
	r.Register(CreateRecordTool{Client: client})
	r.Register(UpdateRecordTool{Client: client})
	r.Register(DeleteRecordTool{Client: client})
	r.Register(ListTablesTool{Client: client})
	r.Register(CreateTableTool{Client: client})
	r.Register(UpdateTableTool{Client: client})
	r.Register(DeleteTableTool{Client: client})
	r.Register(TasksForTodayTool{Client: client, Catalog: cat, Compiler: compiler})
	r.Register(ListTasksTool{Client: client, Catalog: cat, Compiler: compiler})
	r.Register(SearchRecordsTool{Client: client, Catalog: cat, Compiler: compiler})
	return r
}
