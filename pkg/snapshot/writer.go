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
	"bufio"
	"expvar"
	"os"
	"path/filepath"

	pstypes "github.com/rabbitstack/etwscan/pkg/ps/types"
	"github.com/rabbitstack/etwscan/pkg/snapshot/section"
	"github.com/rabbitstack/etwscan/pkg/snapshot/version"
	"github.com/rabbitstack/etwscan/pkg/util/bytes"
	"github.com/rabbitstack/etwscan/pkg/util/va"
	zstd "github.com/valyala/gozstd"
)

var (
	chunkWriteErrors   = expvar.NewInt("snapshot.chunk.write.errors")
	processWriteErrors = expvar.NewInt("snapshot.process.write.errors")
)

// Writer produces snapshot files. The snapshot file format has the layout as
// depicted in the following diagram:
//
//	+-+-+-+-+-+-+-+-++-+-+-+-+-+-+-+-++-+-+-+
//	| Magic Number  | Major | Minor | Flags |
//	|----------------------------------------
//	| Meta Section  |        Meta           |
//	-----------------------------------------
//	| Memory Section | Base | zstd chunk    |
//	| ......................................|
//	| Memory Section n | Base | zstd chunk n|
//	-----------------------------------------
//	| Process Section | Process + Handles   |
//	| ......................................|
//	| Process Section n | Process n    EOF  |
//	+-+-+-+-+-+-+-+-++-+-+-+-+-+-+-+-++-+-+-+
//
// Memory chunks are compressed individually so the reader can
// decompress them on demand.
type Writer struct {
	f     *os.File
	bw    *bufio.Writer
	stats *Stats
}

// NewWriter creates the snapshot file and writes the header and the metadata section.
func NewWriter(filename string, meta Meta) (*Writer, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if filepath.Ext(filename) == "" {
		filename += Ext
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	w := &Writer{
		f:     f,
		bw:    bufio.NewWriterSize(f, 1<<20),
		stats: &Stats{File: filename, Kernel: meta.Kernel, Modules: len(meta.Modules), Symbols: len(meta.Symbols)},
	}
	if _, err := w.bw.Write(bytes.WriteUint64(magic)); err != nil {
		f.Close()
		return nil, errWriteMagic(err)
	}
	if _, err := w.bw.Write([]byte{major}); err != nil {
		f.Close()
		return nil, errWriteVersion("major", err)
	}
	if _, err := w.bw.Write([]byte{minor}); err != nil {
		f.Close()
		return nil, errWriteVersion("minor", err)
	}
	if _, err := w.bw.Write(bytes.WriteUint64(flags)); err != nil {
		f.Close()
		return nil, err
	}
	buf := meta.Marshal()
	if err := w.ws(section.Meta, version.MetaSecV1, 0, uint32(len(buf))); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := w.bw.Write(buf); err != nil {
		f.Close()
		return nil, errWriteSection(section.Meta, err)
	}
	return w, nil
}

// WriteRegion stores the contiguous range of kernel memory. The region is split
// into chunks that are compressed independently.
func (w *Writer) WriteRegion(base va.Address, data []byte) error {
	w.stats.Regions++
	for off := 0; off < len(data); off += ChunkSize {
		end := off + ChunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := w.writeChunk(base.Inc(uint64(off)), data[off:end]); err != nil {
			chunkWriteErrors.Add(1)
			return err
		}
	}
	return nil
}

func (w *Writer) writeChunk(base va.Address, raw []byte) error {
	comp := zstd.Compress(nil, raw)
	if err := w.ws(section.Memory, version.MemorySecV1, uint32(len(raw)), uint32(8+len(comp))); err != nil {
		return err
	}
	if _, err := w.bw.Write(bytes.WriteUint64(base.Uint64())); err != nil {
		return errWriteSection(section.Memory, err)
	}
	if _, err := w.bw.Write(comp); err != nil {
		return errWriteSection(section.Memory, err)
	}
	w.stats.Chunks++
	w.stats.MemoryBytes += uint64(len(raw))
	w.stats.CompressedBytes += uint64(len(comp))
	return nil
}

// WriteProcess stores the process state along with its handles.
func (w *Writer) WriteProcess(ps *pstypes.PS) error {
	buf := ps.Marshal()
	if err := w.ws(section.Process, version.ProcessSecV1, 0, uint32(len(buf))); err != nil {
		processWriteErrors.Add(1)
		return err
	}
	if _, err := w.bw.Write(buf); err != nil {
		processWriteErrors.Add(1)
		return errWriteSection(section.Process, err)
	}
	w.stats.Processes++
	w.stats.countHandles(ps)
	return nil
}

// Stats returns the statistics of the written snapshot.
func (w *Writer) Stats() *Stats { return w.stats }

// Close flushes the pending data and closes the snapshot file.
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return err
	}
	if err := w.f.Close(); err != nil {
		return err
	}
	if fi, err := os.Stat(w.stats.File); err == nil {
		w.stats.Size = uint64(fi.Size())
	}
	return nil
}

// ws writes the section block with the specified parameters.
func (w *Writer) ws(typ section.Type, ver version.Version, l, size uint32) error {
	sec := section.New(typ, ver, l, size)
	if _, err := w.bw.Write(sec[:]); err != nil {
		return errWriteSection(typ, err)
	}
	return nil
}
