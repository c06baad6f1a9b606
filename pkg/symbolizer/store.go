package symbolizer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/thanos-io/objstore"
	"github.com/thanos-io/objstore/providers/filesystem"

	"github.com/grafana/pdbresolve/pkg/pdb"
)

// SymbolStore keeps pdbx files addressed by PDB name and debug id.
type SymbolStore interface {
	Get(ctx context.Context, pdbName string, id pdb.DebugID) (io.ReadCloser, error)
	Put(ctx context.Context, pdbName string, id pdb.DebugID, r io.Reader) error
}

// ObjectPath returns the location of a pdbx file within a bucket. It
// follows the symbol server layout "<name>/<DEBUGID>/<file>", e.g.
// "MyLib.pdb/3F5162F807C611D3905300C04FA302A11/MyLib.pdbx".
func ObjectPath(pdbName string, id pdb.DebugID) (string, error) {
	if err := validatePDBName(pdbName); err != nil {
		return "", err
	}
	base := pdbName
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return pdbName + objstore.DirDelim + id.String() + objstore.DirDelim + base + ".pdbx", nil
}

func validatePDBName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return invalidPDBNameError{name: name}
	}
	return nil
}

// ObjstoreSymbolStore implements SymbolStore using object storage
type ObjstoreSymbolStore struct {
	bucket objstore.Bucket
}

func NewObjstoreSymbolStore(bucket objstore.Bucket) *ObjstoreSymbolStore {
	return &ObjstoreSymbolStore{bucket: bucket}
}

// NewBucket returns a filesystem bucket rooted at cfg.StorageDir, or an
// in-memory bucket when no directory is configured.
func NewBucket(cfg Config) (objstore.Bucket, error) {
	if cfg.StorageDir == "" {
		return objstore.NewInMemBucket(), nil
	}
	b, err := filesystem.NewBucket(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("create filesystem bucket: %w", err)
	}
	return b, nil
}

func (s *ObjstoreSymbolStore) Get(ctx context.Context, pdbName string, id pdb.DebugID) (io.ReadCloser, error) {
	name, err := ObjectPath(pdbName, id)
	if err != nil {
		return nil, err
	}
	reader, err := s.bucket.Get(ctx, name)
	if err != nil {
		if s.bucket.IsObjNotFoundErr(err) {
			return nil, symbolsNotFoundError{key: storeKey{pdbName: pdbName, id: id}}
		}
		return nil, fmt.Errorf("get from store: %w", err)
	}
	return reader, nil
}

func (s *ObjstoreSymbolStore) Put(ctx context.Context, pdbName string, id pdb.DebugID, r io.Reader) error {
	name, err := ObjectPath(pdbName, id)
	if err != nil {
		return err
	}
	if err := s.bucket.Upload(ctx, name, r); err != nil {
		return fmt.Errorf("upload to store: %w", err)
	}
	return nil
}

// NullSymbolStore implements SymbolStore but stores nothing
type NullSymbolStore struct{}

func NewNullSymbolStore() SymbolStore {
	return &NullSymbolStore{}
}

func (n *NullSymbolStore) Get(_ context.Context, pdbName string, id pdb.DebugID) (io.ReadCloser, error) {
	return nil, symbolsNotFoundError{key: storeKey{pdbName: pdbName, id: id}}
}

func (n *NullSymbolStore) Put(context.Context, string, pdb.DebugID, io.Reader) error {
	return nil
}
