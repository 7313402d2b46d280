package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

// Error codes for catalog loading.
const (
	ErrCodeNotFound = "E_CATALOG_NOT_FOUND"
	ErrCodeFormat   = "E_CATALOG_FORMAT"
	ErrCodeParse    = "E_CATALOG_PARSE"
	ErrCodeInvalid  = "E_CATALOG_INVALID"
)

// LoadError represents an error that occurred while loading a catalog.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load reads a catalog from path, choosing the decoder by extension:
// .yaml/.yml or .cue. An empty path returns Default().
// The result is validated before it is returned.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("cannot read catalog: %v", err)}
	}

	var cat *Catalog
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		cat, err = parseYAML(data, path)
	case ".cue":
		cat, err = parseCUE(data, path)
	default:
		return nil, &LoadError{Code: ErrCodeFormat, Message: fmt.Sprintf("unsupported catalog format %q (want .yaml, .yml or .cue)", ext)}
	}
	if err != nil {
		return nil, err
	}

	if err := cat.Validate(); err != nil {
		return nil, &LoadError{Code: ErrCodeInvalid, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	return cat, nil
}

func parseYAML(data []byte, name string) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("%s: %v", name, err)}
	}
	normalize(&cat)
	return &cat, nil
}

// parseCUE compiles a single CUE file and decodes its concrete value.
// CUE constraints in the file (e.g. max_records: >=0 & <=100) are
// checked during decoding.
func parseCUE(data []byte, name string) (*Catalog, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, cueError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(err)
	}

	var cat Catalog
	if err := v.Decode(&cat); err != nil {
		return nil, cueError(err)
	}
	normalize(&cat)
	return &cat, nil
}

func cueError(err error) *LoadError {
	le := &LoadError{Code: ErrCodeParse, Message: errors.Details(err, nil)}
	if cerrs := errors.Errors(err); len(cerrs) > 0 {
		le.Pos = cerrs[0].Position()
		le.Message = cerrs[0].Error()
	}
	return le
}

// normalize lower-cases entity keys so lookups are case-insensitive.
func normalize(cat *Catalog) {
	if len(cat.Entities) == 0 {
		return
	}
	out := make(map[string]EntityCatalog, len(cat.Entities))
	for name, e := range cat.Entities {
		out[strings.ToLower(name)] = e
	}
	cat.Entities = out
}
