// Package symbolizer resolves batches of managed stack frames against
// symbol files kept in object storage.
package symbolizer

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/go-multierror"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/grafana/pdbresolve/pdbx"
	"github.com/grafana/pdbresolve/pkg/pdb"
	"github.com/grafana/pdbresolve/pkg/resolver"
)

// loadTimeout bounds a shared symbol file load, which outlives the
// callers waiting on it.
const loadTimeout = 5 * time.Minute

type Config struct {
	CacheSize      int    `yaml:"cache_size"`
	MaxConcurrency int    `yaml:"max_concurrency" category:"advanced"`
	StorageDir     string `yaml:"storage_dir"`
	MaxFileSize    int64  `yaml:"max_file_size" category:"advanced"`
}

func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	f.IntVar(&cfg.CacheSize, "symbolizer.cache-size", 64, "Maximum number of symbol indexes kept in memory.")
	f.IntVar(&cfg.MaxConcurrency, "symbolizer.max-concurrency", 8, "Maximum number of symbol files loaded concurrently by one request.")
	f.Int64Var(&cfg.MaxFileSize, "symbolizer.max-file-size", pdbx.DefaultMaxSize, "Maximum size in bytes of an uploaded symbol file as received. 0 means the default.")
	f.StringVar(&cfg.StorageDir, "symbolizer.storage-dir", "", "Directory of the filesystem symbol store. Symbols are kept in memory when empty.")
}

func (cfg *Config) Validate() error {
	if cfg.CacheSize < 1 {
		return fmt.Errorf("invalid cache-size value, must be positive")
	}
	if cfg.MaxConcurrency < 1 {
		return fmt.Errorf("invalid max-concurrency value, must be positive")
	}
	if cfg.MaxFileSize < 0 {
		return fmt.Errorf("invalid max-file-size value, must not be negative")
	}
	return nil
}

type Symbolizer struct {
	logger  log.Logger
	reg     prometheus.Registerer
	store   SymbolStore
	cache   *lru.Cache[storeKey, *resolver.Resolver]
	metrics *metrics
	cfg     Config

	// Used to deduplicate concurrent loads of the same symbol file
	group singleflight.Group

	// Upload counts per key. A load only caches its result when no upload
	// of the same key happened while it ran.
	mu      sync.Mutex
	uploads map[storeKey]uint64
}

func New(logger log.Logger, cfg Config, reg prometheus.Registerer, store SymbolStore) (*Symbolizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if store == nil {
		store = NewNullSymbolStore()
	}

	m := newMetrics(reg)
	cache, err := lru.NewWithEvict(cfg.CacheSize, func(storeKey, *resolver.Resolver) {
		m.cacheEvictions.Inc()
	})
	if err != nil {
		return nil, fmt.Errorf("create symbol cache: %w", err)
	}

	return &Symbolizer{
		logger:  logger,
		reg:     reg,
		store:   store,
		cache:   cache,
		metrics: m,
		cfg:     cfg,
		uploads: make(map[storeKey]uint64),
	}, nil
}

// Upload validates a pdbx file and stores it under its own debug id.
// Cached and in-flight loads of the same file are invalidated.
func (s *Symbolizer) Upload(ctx context.Context, pdbName string, r io.Reader) (pdb.DebugID, error) {
	if err := validatePDBName(pdbName); err != nil {
		return pdb.DebugID{}, err
	}
	limit := s.cfg.MaxFileSize
	if limit == 0 {
		limit = pdbx.DefaultMaxSize
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return pdb.DebugID{}, fmt.Errorf("read symbol file: %w", err)
	}
	if int64(len(data)) > limit {
		return pdb.DebugID{}, fmt.Errorf("invalid symbol file: %w", pdbx.ErrTooLarge)
	}
	info, err := pdbx.Decode(bytes.NewReader(data), pdbx.WithCRC())
	if err != nil {
		return pdb.DebugID{}, fmt.Errorf("invalid symbol file: %w", err)
	}

	id := info.DebugID()
	if err := s.store.Put(ctx, pdbName, id, bytes.NewReader(data)); err != nil {
		return id, err
	}
	s.invalidate(storeKey{pdbName: pdbName, id: id})
	level.Debug(s.logger).Log("msg", "symbol file uploaded", "pdb", pdbName, "debug_id", id, "methods", len(info.Functions))
	return id, nil
}

func (s *Symbolizer) invalidate(key storeKey) {
	s.mu.Lock()
	s.uploads[key]++
	s.mu.Unlock()
	s.group.Forget(key.String())
	s.cache.Remove(key)
}

func (s *Symbolizer) uploadCount(key storeKey) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads[key]
}

// Resolver returns the symbol index of one symbol file, loading it from
// the store on a cache miss. The load is shared by concurrent callers and
// is not canceled with ctx; a canceled caller stops waiting for it.
func (s *Symbolizer) Resolver(ctx context.Context, pdbName string, id pdb.DebugID) (*resolver.Resolver, error) {
	key := storeKey{pdbName: pdbName, id: id}
	if r, ok := s.cache.Get(key); ok {
		s.metrics.cacheOperations.WithLabelValues("get", "hit").Inc()
		return r, nil
	}
	s.metrics.cacheOperations.WithLabelValues("get", "miss").Inc()

	ch := s.group.DoChan(key.String(), func() (interface{}, error) {
		if r, ok := s.cache.Get(key); ok {
			return r, nil
		}
		uploads := s.uploadCount(key)
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		r, err := s.load(loadCtx, key)
		if err != nil {
			return nil, err
		}
		if s.uploadCount(key) == uploads {
			s.cache.Add(key, r)
			s.metrics.cacheOperations.WithLabelValues("set", statusSuccess).Inc()
		}
		return r, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*resolver.Resolver), nil
	}
}

func (s *Symbolizer) load(ctx context.Context, key storeKey) (*resolver.Resolver, error) {
	start := time.Now()
	status := statusSuccess
	defer func() {
		s.metrics.loadDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}()

	rc, err := s.store.Get(ctx, key.pdbName, key.id)
	if err != nil {
		status = statusError
		if IsNotFound(err) {
			status = statusNotFound
		}
		return nil, err
	}
	defer rc.Close()

	r, err := resolver.Load(rc, resolver.WithLogger(s.logger), resolver.WithRegisterer(s.reg))
	if err != nil {
		status = statusError
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if r.DebugID() != key.id {
		level.Warn(s.logger).Log("msg", "stored symbol file has a different debug id", "key", key, "debug_id", r.DebugID())
	}
	return r, nil
}

// Symbolize resolves frames and returns one result per frame, in order.
// Frames without symbols get a fallback name. Failures to load symbol
// files other than missing symbols are returned as a multierror next to
// the complete results.
func (s *Symbolizer) Symbolize(ctx context.Context, frames []Frame) ([]SymbolizedFrame, error) {
	start := time.Now()
	defer func() {
		s.metrics.symbolizeDuration.Observe(time.Since(start).Seconds())
	}()

	results := make([]SymbolizedFrame, len(frames))
	framesByKey := make(map[storeKey][]int)
	for i, f := range frames {
		results[i].Frame = f
		key := storeKey{pdbName: f.PDBName, id: f.DebugID}
		framesByKey[key] = append(framesByKey[key], i)
	}

	var (
		mu   sync.Mutex
		errs *multierror.Error
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)
	for key, idx := range framesByKey {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := s.Resolver(ctx, key.pdbName, key.id)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if !IsNotFound(err) && !isInvalidPDBNameError(err) {
					level.Warn(s.logger).Log("msg", "failed to load symbols", "key", key, "err", err)
					mu.Lock()
					errs = multierror.Append(errs, err)
					mu.Unlock()
				}
				s.setFallback(results, idx, frameUnresolved)
				return nil
			}
			s.symbolizeWithResolver(r, results, idx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, errs.ErrorOrNil()
}

func (s *Symbolizer) symbolizeWithResolver(r *resolver.Resolver, results []SymbolizedFrame, idx []int) {
	for _, i := range idx {
		f := results[i].Frame
		loc, err := r.FindLocationAt(f.ClassName, f.MethodName, f.ILOffset)
		switch {
		case err != nil:
			s.setFallback(results, []int{i}, frameInvalid)
		case loc == nil:
			s.setFallback(results, []int{i}, frameUnresolved)
		default:
			results[i].Location = loc
			s.metrics.frames.WithLabelValues(frameResolved).Inc()
		}
	}
}

func (s *Symbolizer) setFallback(results []SymbolizedFrame, idx []int, result string) {
	for _, i := range idx {
		results[i].Fallback = results[i].Frame.String()
	}
	s.metrics.frames.WithLabelValues(result).Add(float64(len(idx)))
}
