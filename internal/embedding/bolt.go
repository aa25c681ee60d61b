package embedding

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var vectorsBucket = []byte("vectors")

// persist writes every (key, vector) pair in store to a fresh bbolt database
// at path, replacing whatever was there before (temp-then-rename, matching
// the write discipline the rest of this engine uses — see shardio.WriteShard
// and manifest.WriteSignalManifest).
func persist(path string, keys []string, vectors [][]float32) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("embedding: create index dir: %w", err)
	}
	tmp := path + ".tmp"
	os.Remove(tmp)

	db, err := bolt.Open(tmp, 0o644, nil)
	if err != nil {
		return fmt.Errorf("embedding: open index for write: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(vectorsBucket)
		if err != nil {
			return err
		}
		for i, k := range keys {
			if err := b.Put([]byte(k), encodeVector(vectors[i])); err != nil {
				return err
			}
		}
		return nil
	})
	closeErr := db.Close()
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("embedding: write index: %w", err)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("embedding: close index: %w", closeErr)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("embedding: rename index into place: %w", err)
	}
	return nil
}

// load reads every (key, vector) pair from the bbolt database at path into a
// fresh in-memory store.
func load(path string) (VectorStore, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("embedding: open index for read: %w", err)
	}
	defer db.Close()

	store := NewMemStore()
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(vectorsBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			vec, err := decodeVector(v)
			if err != nil {
				return err
			}
			return store.Add([]string{string(k)}, [][]float32{vec})
		})
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: read index: %w", err)
	}
	return store, nil
}

func encodeVector(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding: corrupt vector encoding: %d bytes", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}
