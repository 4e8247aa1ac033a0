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

package ps

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	htypes "github.com/rabbitstack/etwscan/pkg/handle/types"
	pstypes "github.com/rabbitstack/etwscan/pkg/ps/types"
)

// Directory enumerates processes and the handles they hold.
type Directory interface {
	// Processes returns all processes in a stable order.
	Processes() ([]*pstypes.PS, error)
	// Handles returns the handles of the process with the given identifier.
	Handles(pid uint32) (htypes.Handles, error)
}

// ErrNoProcess is returned when the process is not present in the directory.
type ErrNoProcess uint32

func (e ErrNoProcess) Error() string { return fmt.Sprintf("process %d is not in the directory", uint32(e)) }

type directory struct {
	procs []*pstypes.PS
	byPID map[uint32]*pstypes.PS
}

// NewDirectory builds the process directory from the captured processes.
// The directory preserves the order of the given processes.
func NewDirectory(procs []*pstypes.PS) Directory {
	d := &directory{
		procs: procs,
		byPID: make(map[uint32]*pstypes.PS, len(procs)),
	}
	for _, ps := range procs {
		d.byPID[ps.PID] = ps
	}
	return d
}

func (d *directory) Processes() ([]*pstypes.PS, error) { return d.procs, nil }

func (d *directory) Handles(pid uint32) (htypes.Handles, error) {
	ps, ok := d.byPID[pid]
	if !ok {
		return nil, ErrNoProcess(pid)
	}
	return ps.Handles, nil
}

// Find returns the process with the given identifier.
func Find(d Directory, pid uint32) (*pstypes.PS, error) {
	procs, err := d.Processes()
	if err != nil {
		return nil, err
	}
	for _, ps := range procs {
		if ps.PID == pid {
			return ps, nil
		}
	}
	return nil, ErrNoProcess(pid)
}

// Select returns the processes whose image name matches the given name. Exact
// case-insensitive matches take precedence. If there are none, the processes
// are fuzzy matched and returned ranked by the match distance.
func Select(d Directory, name string) ([]*pstypes.PS, error) {
	procs, err := d.Processes()
	if err != nil {
		return nil, err
	}
	exact := make([]*pstypes.PS, 0)
	for _, ps := range procs {
		if strings.EqualFold(ps.Name, name) {
			exact = append(exact, ps)
		}
	}
	if len(exact) > 0 {
		return exact, nil
	}

	names := make([]string, len(procs))
	for i, ps := range procs {
		names[i] = ps.Name
	}
	ranks := fuzzy.RankFindFold(name, names)
	sort.Stable(ranks)
	matches := make([]*pstypes.PS, 0, len(ranks))
	for _, r := range ranks {
		matches = append(matches, procs[r.OriginalIndex])
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no process matches %q", name)
	}
	return matches, nil
}
