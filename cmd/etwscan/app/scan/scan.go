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

package scan

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/rabbitstack/etwscan/internal/bootstrap"
	"github.com/rabbitstack/etwscan/pkg/config"
	"github.com/rabbitstack/etwscan/pkg/ps"
	pstypes "github.com/rabbitstack/etwscan/pkg/ps/types"
	"github.com/rabbitstack/etwscan/pkg/report"
	"github.com/spf13/cobra"
)

// errNoSelection is returned when the process correlation command is not told which processes to inspect.
var errNoSelection = errors.New("specify the process with --pid or --name, or use --all")

// runner performs the scan over the bootstrapped application and renders the results.
type runner func(app *bootstrap.App, r *report.Report) error

func run(cfg *config.Config, fn runner) error {
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Shutdown()
	r, err := report.New(os.Stdout, cfg.Output)
	if err != nil {
		return err
	}
	return fn(app, r)
}

// pidValue is the process identifier flag. It tells the unset flag apart
// from the idle process with pid 0.
type pidValue struct {
	id  uint32
	set bool
}

func (p *pidValue) String() string {
	if !p.set {
		return ""
	}
	return strconv.FormatUint(uint64(p.id), 10)
}

func (p *pidValue) Set(s string) error {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid process identifier %q", s)
	}
	p.id, p.set = uint32(id), true
	return nil
}

func (p *pidValue) Type() string { return "uint32" }

// selector picks the processes whose handles are correlated.
type selector struct {
	pid  pidValue
	name string
	all  bool
}

func (s *selector) addFlags(cmd *cobra.Command) {
	cmd.Flags().VarP(&s.pid, "pid", "p", "Identifier of the process to inspect")
	cmd.Flags().StringVarP(&s.name, "name", "n", "", "Image name of the processes to inspect. Fuzzy matched if there are no exact matches")
	cmd.Flags().BoolVarP(&s.all, "all", "a", false, "Inspect all processes in the snapshot")
}

func (s *selector) validate() error {
	n := 0
	if s.pid.set {
		n++
	}
	if s.name != "" {
		n++
	}
	if s.all {
		n++
	}
	switch n {
	case 0:
		return errNoSelection
	case 1:
		return nil
	default:
		return fmt.Errorf("--pid, --name and --all are mutually exclusive")
	}
}

func (s *selector) processes(dir ps.Directory) ([]*pstypes.PS, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	switch {
	case s.all:
		return dir.Processes()
	case s.pid.set:
		p, err := ps.Find(dir, s.pid.id)
		if err != nil {
			return nil, err
		}
		return []*pstypes.PS{p}, nil
	default:
		return ps.Select(dir, s.name)
	}
}
