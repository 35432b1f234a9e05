package kv

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

const (
	// minLevelDBCache is the minimum memory allocate to leveldb
	minLevelDBCache = 16 // 16 MiB

	// minLevelDBHandles is the minimum number of files handles to leveldb open files
	minLevelDBHandles = 16

	DefaultLevelDBBloomKeyBits = 2048
)

type LevelDBBuilder interface {
	SetCacheSize(int) LevelDBBuilder
	SetHandles(int) LevelDBBuilder
	SetNoSync(bool) LevelDBBuilder
	Build() (Store, error)
}

type leveldbBuilder struct {
	logger  zerolog.Logger
	path    string
	options *opt.Options
}

// NewLevelDBBuilder creates the leveldb storage builder
func NewLevelDBBuilder(logger zerolog.Logger, path string) LevelDBBuilder {
	return &leveldbBuilder{
		logger: logger,
		path:   path,
		options: &opt.Options{
			OpenFilesCacheCapacity: minLevelDBHandles,
			BlockCacheCapacity:     minLevelDBCache * opt.MiB,
			Filter:                 filter.NewBloomFilter(DefaultLevelDBBloomKeyBits),
			NoSync:                 false,
		},
	}
}

func (b *leveldbBuilder) SetCacheSize(cacheSize int) LevelDBBuilder {
	cacheSize = max(cacheSize, minLevelDBCache)
	b.options.BlockCacheCapacity = cacheSize * opt.MiB
	b.logger.Debug().Int("cache_mib", cacheSize).Msg("leveldb")
	return b
}

func (b *leveldbBuilder) SetHandles(handles int) LevelDBBuilder {
	b.options.OpenFilesCacheCapacity = max(handles, minLevelDBHandles)
	b.logger.Debug().Int("handles", b.options.OpenFilesCacheCapacity).Msg("leveldb")
	return b
}

func (b *leveldbBuilder) SetNoSync(noSync bool) LevelDBBuilder {
	b.options.NoSync = noSync
	b.logger.Debug().Bool("no_sync", noSync).Msg("leveldb")
	return b
}

func (b *leveldbBuilder) Build() (Store, error) {
	db, err := leveldb.OpenFile(b.path, b.options)
	if err != nil {
		return nil, err
	}
	return &levelDBKV{db: db}, nil
}

// levelDBKV is the leveldb implementation of the kv storage
type levelDBKV struct {
	db *leveldb.DB
}

func (kv *levelDBKV) Get(key []byte) ([]byte, bool, error) {
	data, err := kv.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (kv *levelDBKV) Set(key, value []byte) error {
	return kv.db.Put(key, value, nil)
}

func (kv *levelDBKV) Delete(key []byte) error {
	return kv.db.Delete(key, nil)
}

func (kv *levelDBKV) NewBatch() Batch {
	return &levelBatch{db: kv.db, batch: new(leveldb.Batch)}
}

func (kv *levelDBKV) Close() error {
	return kv.db.Close()
}

type levelBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *levelBatch) Set(key, value []byte) { b.batch.Put(key, value) }

func (b *levelBatch) Delete(key []byte) { b.batch.Delete(key) }

func (b *levelBatch) Write() error {
	if err := b.db.Write(b.batch, nil); err != nil {
		return err
	}
	b.batch.Reset()
	return nil
}
