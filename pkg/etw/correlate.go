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

package etw

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rabbitstack/etwscan/pkg/handle"
	htypes "github.com/rabbitstack/etwscan/pkg/handle/types"
	"github.com/rabbitstack/etwscan/pkg/ps"
	pstypes "github.com/rabbitstack/etwscan/pkg/ps/types"
	"github.com/rabbitstack/etwscan/pkg/util/va"
)

// Provider is the provider registration held by the process.
type Provider struct {
	PID          uint32    `json:"pid"`
	ProcessName  string    `json:"process_name"`
	Handle       uint64    `json:"handle"`
	Registration *RegEntry `json:"registration"`
	GUID         GUID      `json:"guid"`
}

// ConsumerBinding is the realtime consumer held by the process along with
// the logger it consumes from.
type ConsumerBinding struct {
	PID         uint32         `json:"pid"`
	ProcessName string         `json:"process_name"`
	Handle      uint64         `json:"handle"`
	Consumer    *Consumer      `json:"consumer"`
	Logger      *LoggerContext `json:"logger"`
	Guids       []*GuidEntry   `json:"guids"`
}

// handleObject is the ETW object referenced by the handle. Exactly one
// of the members is set for provider and consumer handles.
type handleObject struct {
	kind     handle.Kind
	reg      *RegEntry
	consumer *Consumer
}

// Correlator maps the handles held by processes to the ETW objects they reference.
type Correlator struct {
	s   *Scanner
	dir ps.Directory
}

// NewCorrelator creates the correlator of the process handles.
func NewCorrelator(s *Scanner, dir ps.Directory) *Correlator {
	return &Correlator{s: s, dir: dir}
}

// resolve reinterprets the handle body according to the handle object type.
func (c *Correlator) resolve(h htypes.Handle, r reporter) (handleObject, error) {
	kind := handle.KindOf(h.Type)
	switch kind {
	case handle.Provider:
		obj, err := c.s.mem.TypedObjectAt(va.Address(h.Object), kernel, "_ETW_REG_ENTRY")
		if err != nil {
			return handleObject{}, err
		}
		reg, err := c.s.readRegEntry(obj, r)
		if err != nil {
			return handleObject{}, err
		}
		return handleObject{kind: kind, reg: reg}, nil
	case handle.Consumer:
		obj, err := c.s.mem.TypedObjectAt(va.Address(h.Object), kernel, "_ETW_REALTIME_CONSUMER")
		if err != nil {
			return handleObject{}, err
		}
		consumer, err := c.s.readConsumer(obj, r)
		if err != nil {
			return handleObject{}, err
		}
		return handleObject{kind: kind, consumer: consumer}, nil
	default:
		return handleObject{kind: handle.Other}, nil
	}
}

// handles returns the handles of the given kind held by the process. The failure
// to enumerate process handles is reported and yields no handles.
func (c *Correlator) handles(p *pstypes.PS, kind handle.Kind, r reporter) (htypes.Handles, error) {
	handles, err := c.dir.Handles(p.PID)
	if err != nil {
		return nil, c.s.fail(r, fmt.Sprintf("handles of %s (%d)", p.Name, p.PID), va.Address(p.Object), err)
	}
	hs := make(htypes.Handles, 0)
	for _, h := range handles {
		if handle.KindOf(h.Type) == kind {
			hs = append(hs, h)
		}
	}
	return hs, nil
}

// ProvidersForProcess returns the provider registrations held by the process.
func (c *Correlator) ProvidersForProcess(p *pstypes.PS) (*Result[*Provider], error) {
	res := newResult[*Provider]()
	handles, err := c.handles(p, handle.Provider, res)
	if err != nil {
		return nil, err
	}
	for _, h := range handles {
		obj, err := c.resolve(h, res)
		if err != nil {
			if err := c.s.fail(res, handleElement(p, h), va.Address(h.Object), err); err != nil {
				return nil, err
			}
			continue
		}
		res.add(&Provider{
			PID:          p.PID,
			ProcessName:  p.Name,
			Handle:       h.Num,
			Registration: obj.reg,
			GUID:         obj.reg.GUID,
		})
	}
	return res, nil
}

// ConsumersForProcess returns the realtime consumers held by the process. Each
// consumer is resolved to its logger and the trace GUIDs enabled for the logger.
func (c *Correlator) ConsumersForProcess(p *pstypes.PS) (*Result[*ConsumerBinding], error) {
	res := newResult[*ConsumerBinding]()
	handles, err := c.handles(p, handle.Consumer, res)
	if err != nil {
		return nil, err
	}
	for _, h := range handles {
		obj, err := c.resolve(h, res)
		if err != nil {
			if err := c.s.fail(res, handleElement(p, h), va.Address(h.Object), err); err != nil {
				return nil, err
			}
			continue
		}
		id := obj.consumer.LoggerID
		logger, ok, err := c.s.LookupLogger(id)
		if err == nil && !ok {
			err = errors.Wrapf(ErrStaleObject, "logger %d is not resident", id)
		}
		if err != nil {
			if err := c.s.fail(res, handleElement(p, h), va.Address(h.Object), err); err != nil {
				return nil, err
			}
			continue
		}
		guids, err := c.s.EnabledGuids(id)
		if err != nil {
			return nil, err
		}
		res.merge(guids.Diagnostics)
		res.add(&ConsumerBinding{
			PID:         p.PID,
			ProcessName: p.Name,
			Handle:      h.Num,
			Consumer:    obj.consumer,
			Logger:      logger,
			Guids:       guids.Items,
		})
	}
	return res, nil
}

// ProvidersForAll returns the provider registrations held by all processes
// in the order of the process directory.
func (c *Correlator) ProvidersForAll() (*Result[*Provider], error) {
	return forAll(c, c.ProvidersForProcess)
}

// ConsumersForAll returns the realtime consumers held by all processes
// in the order of the process directory.
func (c *Correlator) ConsumersForAll() (*Result[*ConsumerBinding], error) {
	return forAll(c, c.ConsumersForProcess)
}

// ProvidersFor returns the provider registrations held by the given processes.
func (c *Correlator) ProvidersFor(procs []*pstypes.PS) (*Result[*Provider], error) {
	return collect(procs, c.ProvidersForProcess)
}

// ConsumersFor returns the realtime consumers held by the given processes.
func (c *Correlator) ConsumersFor(procs []*pstypes.PS) (*Result[*ConsumerBinding], error) {
	return collect(procs, c.ConsumersForProcess)
}

func forAll[T any](c *Correlator, fn func(*pstypes.PS) (*Result[T], error)) (*Result[T], error) {
	procs, err := c.dir.Processes()
	if err != nil {
		return nil, errors.Wrap(err, "unable to enumerate processes")
	}
	return collect(procs, fn)
}

func collect[T any](procs []*pstypes.PS, fn func(*pstypes.PS) (*Result[T], error)) (*Result[T], error) {
	res := newResult[T]()
	for _, p := range procs {
		r, err := fn(p)
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, r.Items...)
		res.merge(r.Diagnostics)
	}
	return res, nil
}

func handleElement(p *pstypes.PS, h htypes.Handle) string {
	return fmt.Sprintf("%s handle %#x of %s (%d)", h.Type, h.Num, p.Name, p.PID)
}
