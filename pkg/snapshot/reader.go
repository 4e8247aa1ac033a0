/*
 * Copyright 2021-present by Nedim Sabic Sabic
 * https://www.fibratus.io
 * All Rights Reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package snapshot

import (
	"encoding/binary"
	"expvar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/rabbitstack/etwscan/pkg/mem"
	pstypes "github.com/rabbitstack/etwscan/pkg/ps/types"
	"github.com/rabbitstack/etwscan/pkg/snapshot/section"
	"github.com/rabbitstack/etwscan/pkg/util/bytes"
	"github.com/rabbitstack/etwscan/pkg/util/va"
	log "github.com/sirupsen/logrus"
	zstd "github.com/valyala/gozstd"
)

// DefaultCacheSize is the default number of decompressed chunks kept in memory.
const DefaultCacheSize = 256

var (
	chunkCacheHits         = expvar.NewInt("snapshot.chunk.cache.hits")
	chunkCacheMisses       = expvar.NewInt("snapshot.chunk.cache.misses")
	chunkDecompressErrors  = expvar.NewInt("snapshot.chunk.decompress.errors")
	processUnmarshalErrors = expvar.NewInt("snapshot.process.unmarshal.errors")
	unknownSectionsSkipped = expvar.NewInt("snapshot.sections.skipped")
)

// chunk locates the compressed memory chunk inside the snapshot file.
type chunk struct {
	base  va.Address
	size  uint32
	off   int64
	csize uint32
}

func (c chunk) end() va.Address { return c.base.Inc(uint64(c.size)) }

// Option configures the snapshot reader.
type Option func(*Snapshot)

// WithCacheSize sets the number of decompressed chunks kept in the cache.
func WithCacheSize(n int) Option {
	return func(s *Snapshot) {
		if n > 0 {
			s.cacheSize = n
		}
	}
}

// Snapshot gives access to the captured kernel memory and the process directory.
// Memory chunks are decompressed lazily and kept in the LRU cache.
type Snapshot struct {
	f         *os.File
	meta      Meta
	chunks    []chunk
	procs     []*pstypes.PS
	cacheSize int
	stats     *Stats

	mu    sync.Mutex // guards the chunk cache
	cache *lru.Cache
}

// Open opens the snapshot file and indexes its sections. Memory chunks are not
// decompressed until they are read.
func Open(filename string, opts ...Option) (*Snapshot, error) {
	if filepath.Ext(filename) == "" {
		filename += Ext
	}
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%q snapshot file does not exist", filename)
		}
		return nil, err
	}
	s := &Snapshot{
		f:         f,
		cacheSize: DefaultCacheSize,
		chunks:    make([]chunk, 0),
		procs:     make([]*pstypes.PS, 0),
		stats:     &Stats{File: filename},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = lru.New(s.cacheSize)
	if err := s.index(); err != nil {
		f.Close()
		return nil, err
	}
	if fi, err := f.Stat(); err == nil {
		s.stats.Size = uint64(fi.Size())
	}
	return s, nil
}

func (s *Snapshot) index() error {
	hdr := make([]byte, headerSize)
	if _, err := io.ReadFull(s.f, hdr); err != nil {
		return errMagicMismatch
	}
	if binary.LittleEndian.Uint64(hdr) != magic && binary.BigEndian.Uint64(hdr) != magic {
		return errMagicMismatch
	}
	// from now on all byte reads use the endianness of the magic number
	bytes.InitNativeEndian(hdr[:8])
	if hdr[8] > major {
		return errMajorVer
	}

	off := int64(headerSize)
	for {
		var sec section.Section
		n, err := s.f.ReadAt(sec[:], off)
		if err == io.EOF && n == 0 {
			break
		}
		if err != nil {
			return fmt.Errorf("couldn't read section header at offset %d: %v", off, err)
		}
		off += section.Size
		size := int64(sec.Size())

		switch sec.Type() {
		case section.Meta:
			buf := make([]byte, size)
			if _, err := s.f.ReadAt(buf, off); err != nil {
				return errReadSection(section.Meta, err)
			}
			if err := s.meta.Unmarshal(buf); err != nil {
				return errReadSection(section.Meta, err)
			}
		case section.Memory:
			if size < 8 {
				return errReadSection(section.Memory, fmt.Errorf("chunk at offset %d is truncated", off))
			}
			var b [8]byte
			if _, err := s.f.ReadAt(b[:], off); err != nil {
				return errReadSection(section.Memory, err)
			}
			s.chunks = append(s.chunks, chunk{
				base:  va.Address(bytes.ReadUint64(b[:])),
				size:  sec.Len(),
				off:   off + 8,
				csize: uint32(size - 8),
			})
			s.stats.Chunks++
			s.stats.MemoryBytes += uint64(sec.Len())
			s.stats.CompressedBytes += uint64(size - 8)
		case section.Process:
			buf := make([]byte, size)
			if _, err := s.f.ReadAt(buf, off); err != nil {
				return errReadSection(section.Process, err)
			}
			ps, err := pstypes.NewFromSnapshot(buf)
			if err != nil {
				processUnmarshalErrors.Add(1)
				log.Warnf("skipping process at offset %d: %v", off, err)
				break
			}
			s.procs = append(s.procs, ps)
			s.stats.Processes++
			s.stats.countHandles(ps)
		default:
			unknownSectionsSkipped.Add(1)
			log.Debugf("skipping unknown section %s", sec)
		}
		off += size
	}

	if s.meta.Kernel == "" {
		return errReadSection(section.Meta, fmt.Errorf("missing metadata"))
	}
	sort.Slice(s.chunks, func(i, j int) bool { return s.chunks[i].base < s.chunks[j].base })
	s.stats.Kernel = s.meta.Kernel
	s.stats.Modules = len(s.meta.Modules)
	s.stats.Symbols = len(s.meta.Symbols)
	s.stats.Regions = countRegions(s.chunks)
	return nil
}

// Meta returns the snapshot metadata.
func (s *Snapshot) Meta() Meta { return s.meta }

// Processes returns the captured processes in the order they were written.
func (s *Snapshot) Processes() []*pstypes.PS { return s.procs }

// Stats returns the snapshot statistics.
func (s *Snapshot) Stats() *Stats { return s.stats }

// ReadMemory reads the captured kernel memory. Reads that cross chunk
// boundaries are satisfied if the chunks are contiguous.
func (s *Snapshot) ReadMemory(addr va.Address, b []byte) error {
	n := 0
	for n < len(b) {
		cur := addr.Inc(uint64(n))
		i := sort.Search(len(s.chunks), func(i int) bool { return s.chunks[i].end() > cur })
		if i >= len(s.chunks) || cur < s.chunks[i].base {
			return &mem.UnreadableError{Addr: addr, Size: len(b)}
		}
		data, err := s.load(i)
		if err != nil {
			return &mem.UnreadableError{Addr: addr, Size: len(b), Err: err}
		}
		n += copy(b[n:], data[cur-s.chunks[i].base:])
	}
	return nil
}

func (s *Snapshot) load(i int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data, ok := s.cache.Get(i); ok {
		chunkCacheHits.Add(1)
		return data.([]byte), nil
	}
	chunkCacheMisses.Add(1)
	c := s.chunks[i]
	comp := make([]byte, c.csize)
	if _, err := s.f.ReadAt(comp, c.off); err != nil {
		return nil, fmt.Errorf("couldn't read memory chunk at %s: %v", c.base.Hex(), err)
	}
	data, err := zstd.Decompress(make([]byte, 0, c.size), comp)
	if err != nil {
		chunkDecompressErrors.Add(1)
		return nil, fmt.Errorf("couldn't decompress memory chunk at %s: %v", c.base.Hex(), err)
	}
	if len(data) != int(c.size) {
		chunkDecompressErrors.Add(1)
		return nil, fmt.Errorf("memory chunk at %s has %d bytes but %d expected", c.base.Hex(), len(data), c.size)
	}
	s.cache.Add(i, data)
	return data, nil
}

// Close closes the snapshot file.
func (s *Snapshot) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Clear()
	return s.f.Close()
}

// countRegions returns the number of contiguous memory ranges.
func countRegions(chunks []chunk) int {
	n := 0
	for i, c := range chunks {
		if i == 0 || chunks[i-1].end() != c.base {
			n++
		}
	}
	return n
}
