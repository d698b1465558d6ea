package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"

	"github.com/arloliu/structarray/column"
	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/format"
	"github.com/arloliu/structarray/internal/hash"
)

// Suffix is appended to a record file path to name its persistent cache.
const Suffix = ".cache"

var (
	fieldsBucket  = []byte("fields")
	columnsBucket = []byte("columns")
)

// columnTag prefixes stored column values so that empty columns are non-empty
// values.
const columnTag byte = 1

// entry is the msgpack value stored per field name.
type entry struct {
	Code uint8  `msgpack:"c"`
	Len  int    `msgpack:"n"`
	Key  []byte `msgpack:"k"`
}

// Bolt is a persistent field cache stored in a bbolt database.
//
// The "fields" bucket maps a field name to its entry; the "columns" bucket maps a
// content key (xxHash64 plus a probe counter on collision) to the packed column
// bytes, so identical columns are written once.
type Bolt struct {
	db *bbolt.DB
}

// PathFor returns the cache path of a record file.
func PathFor(dataPath string) string {
	return dataPath + Suffix
}

// OpenBolt opens or creates the cache database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o644, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errs.IO("open field cache", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{fieldsBucket, columnsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errs.IO("init field cache", err)
	}

	return &Bolt{db: db}, nil
}

// Close closes the database.
func (b *Bolt) Close() error {
	if err := b.db.Close(); err != nil {
		return errs.IO("close field cache", err)
	}

	return nil
}

// Path returns the database file path.
func (b *Bolt) Path() string {
	return b.db.Path()
}

// Load returns the column stored for name.
func (b *Bolt) Load(name string) (column.Column, bool, error) {
	var (
		col   column.Column
		found bool
	)

	err := b.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(fieldsBucket).Get([]byte(name))
		if raw == nil {
			return nil
		}

		var e entry
		if err := msgpack.Unmarshal(raw, &e); err != nil {
			return fmt.Errorf("decode cache entry: %w", err)
		}

		data := tx.Bucket(columnsBucket).Get(e.Key)
		if len(data) == 0 || data[0] != columnTag {
			return fmt.Errorf("%w: column %x of %q is missing", errs.ErrCorruptArchive, e.Key, name)
		}

		// bbolt memory is only valid inside the transaction
		c, err := column.FromBytes(format.Code(e.Code), bytes.Clone(data[1:]))
		if err != nil {
			return err
		}
		if c.Len() != e.Len {
			return fmt.Errorf("%w: cached %q has %d elements, entry says %d", errs.ErrRecordCountMismatch, name, c.Len(), e.Len)
		}

		col, found = c, true

		return nil
	})
	if err != nil {
		return column.Column{}, false, err
	}

	return col, found, nil
}

// Store records col under name.
func (b *Bolt) Store(name string, col column.Column) error {
	data := col.Bytes()
	h := hash.Bytes(data)

	err := b.db.Update(func(tx *bbolt.Tx) error {
		columns := tx.Bucket(columnsBucket)

		key, err := probe(columns, h, data)
		if err != nil {
			return err
		}

		raw, err := msgpack.Marshal(&entry{Code: uint8(col.Code()), Len: col.Len(), Key: key})
		if err != nil {
			return fmt.Errorf("encode cache entry: %w", err)
		}

		return tx.Bucket(fieldsBucket).Put([]byte(name), raw)
	})
	if err != nil {
		return errs.IO("store cached column", err)
	}

	return nil
}

// probe finds the key of data in the columns bucket, storing it under the first
// free key of its hash when absent.
func probe(columns *bbolt.Bucket, h uint64, data []byte) ([]byte, error) {
	for n := uint32(0); ; n++ {
		key := binary.BigEndian.AppendUint32(binary.BigEndian.AppendUint64(nil, h), n)

		stored := columns.Get(key)
		if len(stored) == 0 {
			value := make([]byte, 0, len(data)+1)
			value = append(value, columnTag)
			if err := columns.Put(key, append(value, data...)); err != nil {
				return nil, err
			}

			return key, nil
		}

		if bytes.Equal(stored[1:], data) {
			return key, nil
		}

		if n == ^uint32(0) {
			return nil, errors.New("column hash bucket is full")
		}
	}
}

// Stats reports the number of cached names and of distinct stored columns.
func (b *Bolt) Stats() (names, columns int, err error) {
	err = b.db.View(func(tx *bbolt.Tx) error {
		names = tx.Bucket(fieldsBucket).Stats().KeyN
		columns = tx.Bucket(columnsBucket).Stats().KeyN

		return nil
	})

	return names, columns, err
}
