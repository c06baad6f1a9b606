package resolver

import (
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/grafana/pdbresolve/pkg/pdb"
)

type methodKey struct {
	module string
	name   string
}

// Builder accumulates decoded functions into a symbol index. Build hands
// the index over to an immutable Resolver.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	logger  log.Logger
	metrics *metrics

	index            map[methodKey]codeBlockTable
	id               pdb.DebugID
	sourceServerData string
	duplicates       int
	// set by the first Add after a reset
	start time.Time
}

// NewBuilder returns an empty Builder.
func NewBuilder(opt ...Option) *Builder {
	o := newOptions(opt)
	b := &Builder{
		logger:  o.logger,
		metrics: newMetrics(o.reg),
	}
	b.reset()
	return b
}

func (b *Builder) reset() {
	b.index = make(map[methodKey]codeBlockTable)
	b.id = pdb.DebugID{}
	b.sourceServerData = ""
	b.duplicates = 0
	b.start = time.Time{}
}

// Add indexes the line table of fn. A function with the same module and
// name as an earlier one replaces it.
func (b *Builder) Add(fn pdb.Function) {
	if b.start.IsZero() {
		b.start = time.Now()
	}
	key := methodKey{module: fn.Module, name: fn.Name}
	if _, ok := b.index[key]; ok {
		// TODO: check whether real PDB producers emit duplicate method
		// records or whether this only happens for malformed input.
		b.duplicates++
		level.Debug(b.logger).Log("msg", "duplicate method, keeping the later definition", "module", fn.Module, "method", fn.Name)
	}
	b.index[key] = newCodeBlockTable(&fn)
}

// SetIdentity records the symbol file identity and source server stream.
// Both are passed through to the Resolver unchanged.
func (b *Builder) SetIdentity(id pdb.DebugID, sourceServerData string) {
	b.id = id
	b.sourceServerData = sourceServerData
}

// Build returns a Resolver over everything added so far and resets the
// builder.
func (b *Builder) Build() *Resolver {
	r := &Resolver{
		metrics:          b.metrics,
		index:            b.index,
		id:               b.id,
		sourceServerData: b.sourceServerData,
	}

	var elapsed time.Duration
	if !b.start.IsZero() {
		elapsed = time.Since(b.start)
	}
	b.metrics.methods.Add(float64(len(b.index)))
	b.metrics.duplicates.Add(float64(b.duplicates))
	b.metrics.buildDuration.Observe(elapsed.Seconds())
	level.Debug(b.logger).Log(
		"msg", "symbol index built",
		"debug_id", b.id,
		"methods", len(b.index),
		"duplicates", b.duplicates,
		"duration", elapsed,
	)

	b.reset()
	return r
}
