// Package resolver maps a managed stack frame, given as class name,
// method name and IL offset, to the source file and line it was compiled
// from.
//
// A Resolver is built once from decoded symbols and is read-only
// afterwards; it is safe for concurrent use by any number of goroutines.
package resolver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/grafana/pdbresolve/pkg/pdb"
)

// ErrInvalidArgument is returned for missing arguments. It is a usage
// error, unlike a lookup that finds nothing.
var ErrInvalidArgument = errors.New("invalid argument")

// CodeLocation is a resolved source location.
type CodeLocation struct {
	FileName string
	// Line is the source line as recorded by the compiler. Accuracy depends
	// on the query: it may be the first line of the method or a line inside.
	Line     uint32
	Language string
}

func (l CodeLocation) String() string {
	return fmt.Sprintf("%s:%d", l.FileName, l.Line)
}

// MethodInfo summarizes one indexed method.
type MethodInfo struct {
	Module string
	Name   string
	Blocks int
}

// Resolver answers location queries over an immutable symbol index.
type Resolver struct {
	metrics *metrics

	index            map[methodKey]codeBlockTable
	id               pdb.DebugID
	sourceServerData string
}

// New builds a Resolver from decoded symbols. Functions are indexed in
// the order they were decoded.
func New(info *pdb.Info, opt ...Option) (*Resolver, error) {
	if info == nil {
		return nil, fmt.Errorf("%w: nil symbol info", ErrInvalidArgument)
	}
	b := NewBuilder(opt...)
	for _, fn := range info.Functions {
		b.Add(fn)
	}
	b.SetIdentity(info.DebugID(), info.SourceServerData)
	return b.Build(), nil
}

// Load decodes symbols from r and builds a Resolver. Decoder errors are
// returned unchanged.
func Load(r io.Reader, opt ...Option) (*Resolver, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil reader", ErrInvalidArgument)
	}
	o := newOptions(opt)
	info, err := o.decoder.Decode(r)
	if err != nil {
		return nil, err
	}
	return New(info, opt...)
}

// Open loads symbols from the file at path.
func Open(path string, opt ...Option) (*Resolver, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidArgument)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open symbol file: %w", err)
	}
	defer f.Close()
	return Load(f, opt...)
}

// FindLocation returns the location of the first line of a method. It is
// FindLocationAt with offset 0.
func (r *Resolver) FindLocation(className, methodName string) (*CodeLocation, error) {
	return r.FindLocationAt(className, methodName, 0)
}

// FindLocationAt returns the location of the instruction at IL offset
// within a method. className includes the namespace, e.g.
// "MyNamespace.MyClass". A nil location with a nil error means that the
// symbols hold no mapping for the method.
func (r *Resolver) FindLocationAt(className, methodName string, offset uint32) (*CodeLocation, error) {
	if className == "" {
		r.metrics.lookups.WithLabelValues(resultInvalid).Inc()
		return nil, fmt.Errorf("%w: empty class name", ErrInvalidArgument)
	}
	if methodName == "" {
		r.metrics.lookups.WithLabelValues(resultInvalid).Inc()
		return nil, fmt.Errorf("%w: empty method name", ErrInvalidArgument)
	}

	block, ok := r.index[methodKey{module: className, name: methodName}].find(offset)
	if !ok {
		r.metrics.lookups.WithLabelValues(resultMiss).Inc()
		return nil, nil
	}
	r.metrics.lookups.WithLabelValues(resultHit).Inc()
	return &CodeLocation{
		FileName: block.File,
		Line:     block.Line,
		Language: block.Language,
	}, nil
}

// Blocks returns a copy of the line table of a method, ordered by offset.
func (r *Resolver) Blocks(className, methodName string) []CodeBlock {
	t := r.index[methodKey{module: className, name: methodName}]
	if len(t) == 0 {
		return nil
	}
	res := make([]CodeBlock, len(t))
	copy(res, t)
	return res
}

// Methods lists all indexed methods ordered by module and name.
func (r *Resolver) Methods() []MethodInfo {
	res := lo.MapToSlice(r.index, func(k methodKey, t codeBlockTable) MethodInfo {
		return MethodInfo{Module: k.module, Name: k.name, Blocks: len(t)}
	})
	sort.Slice(res, func(i, j int) bool {
		if res[i].Module != res[j].Module {
			return res[i].Module < res[j].Module
		}
		return res[i].Name < res[j].Name
	})
	return res
}

// Len returns the number of indexed methods.
func (r *Resolver) Len() int {
	return len(r.index)
}

// Age of the PDB file, used to match the PDB against the PE binary.
func (r *Resolver) Age() uint32 { return r.id.Age }

// GUID of the PDB file, used to match the PDB against the PE binary.
func (r *Resolver) GUID() uuid.UUID { return r.id.GUID }

// DebugID of the PDB file, the key under which symbol stores keep it.
func (r *Resolver) DebugID() pdb.DebugID { return r.id }

// SourceServerData returns the source server stream, empty if none.
func (r *Resolver) SourceServerData() string { return r.sourceServerData }
