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

package report

import (
	"fmt"
	"io"

	"github.com/rabbitstack/etwscan/pkg/etw"
)

func writeGuids(w io.Writer, entries []*etw.GuidEntry) {
	for i, e := range entries {
		if i == 0 || entries[i-1].Type != e.Type {
			fmt.Fprintf(w, "Printing GUIDs for type %s:\n", e.Type.KernelName())
		}
		fmt.Fprintf(w, "\tETW Guid Entry: %s\n", e.Addr.Hex())
		fmt.Fprintf(w, "\tGuid: %s\n", e)
		fmt.Fprintf(w, "\tSecurity Descriptor: %s\n", e.SecurityDescriptor.Hex())
		fmt.Fprintf(w, "\tLogger ID: %d\n", e.LastEnable.LoggerID)
		if len(e.Registrations) > 0 {
			fmt.Fprintln(w, "\tRegistration entries:")
			for _, reg := range e.Registrations {
				writeRegEntry(w, reg)
			}
		}
		fmt.Fprintln(w)
	}
}

func writeRegEntry(w io.Writer, reg *etw.RegEntry) {
	fmt.Fprintf(w, "\t\tETW_REG_ENTRY: %s\n", reg.Addr.Hex())
	if reg.IsUserRegistration && reg.Process != nil {
		name := reg.Process.Path
		if name == "" {
			name = reg.Process.Name
		}
		fmt.Fprintf(w, "\t\t\tProcess: %s ID: %d\n", name, reg.Process.PID)
	}
	if reg.Callback.IsZero() {
		return
	}
	if reg.IsKernelRegistration {
		sym := reg.CallbackSymbol
		if sym == "" {
			sym = reg.Callback.Hex()
		}
		fmt.Fprintf(w, "\t\t\tKernel registration. Callback: %s\n", sym)
	} else {
		fmt.Fprintf(w, "\t\t\tCallback: %s\n", reg.Callback.Hex())
	}
}

func writeLogger(w io.Writer, l *etw.LoggerContext, indent string) {
	fmt.Fprintf(w, "%sName: %s\n", indent, l.Name)
	fmt.Fprintf(w, "%sLoggerId: %d\n", indent, l.ID)
	fmt.Fprintf(w, "%sInstance Guid: %s\n", indent, l.InstanceGUID)
	fmt.Fprintf(w, "%sRealtime Log File Name: %s\n", indent, l.RealtimeLogFileName)
	if l.LogFileName != "" {
		fmt.Fprintf(w, "%sLog File Name: %s\n", indent, l.LogFileName)
	}
	fmt.Fprintf(w, "%sMode: %s\n", indent, l.Mode)
	if l.IsSystemLogger() {
		fmt.Fprintf(w, "%s** This is a system trace logger **\n", indent)
	}
}

func writeLoggers(w io.Writer, loggers []*etw.LoggerContext) {
	for _, l := range loggers {
		fmt.Fprintf(w, "WMI Logger Context: %s\n", l.Addr.Hex())
		writeLogger(w, l, "\t")
		if len(l.Consumers) > 0 {
			fmt.Fprintln(w, "\tConsumers:")
			for _, c := range l.Consumers {
				if c.Process == nil {
					fmt.Fprintf(w, "\t\tConsumer: %s\n", c.Addr.Hex())
					continue
				}
				fmt.Fprintf(w, "\t\tName: %s\n", c.Process.Name)
				fmt.Fprintf(w, "\t\tId: %d\n", c.Process.PID)
			}
		}
		if len(l.EnabledGuids) > 0 {
			fmt.Fprintln(w, "\tGuids:")
			for _, e := range l.EnabledGuids {
				fmt.Fprintf(w, "\t\t%s\n", e)
			}
		}
		fmt.Fprintln(w)
	}
}

func writeConsumers(w io.Writer, bindings []*etw.ConsumerBinding) {
	for i, b := range bindings {
		if i == 0 || bindings[i-1].PID != b.PID {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "ETW consumers for process %s with ID %d:\n", b.ProcessName, b.PID)
		}
		fmt.Fprintf(w, "\tETW Realtime Consumer: %s\n", b.Consumer.Addr.Hex())
		fmt.Fprintf(w, "\t\tWMI Logger Context: %s\n", b.Logger.Addr.Hex())
		writeLogger(w, b.Logger, "\t\t")
		if len(b.Guids) == 0 {
			fmt.Fprintln(w, "\t\t** No provider GUIDs are registered for this logger **")
			continue
		}
		fmt.Fprintln(w, "\t\tProvider Guids:")
		for _, e := range b.Guids {
			fmt.Fprintf(w, "\t\t\t%s\n", e)
		}
	}
	if len(bindings) > 0 {
		fmt.Fprintln(w)
	}
}

func writeProviders(w io.Writer, providers []*etw.Provider) {
	for i, p := range providers {
		if i == 0 || providers[i-1].PID != p.PID {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "ETW providers for process %s with ID %d:\n", p.ProcessName, p.PID)
		}
		if name := p.GUID.Name(); name != "" {
			fmt.Fprintf(w, "\t%s (%s)\n", p.GUID, name)
		} else {
			fmt.Fprintf(w, "\t%s\n", p.GUID)
		}
	}
	if len(providers) > 0 {
		fmt.Fprintln(w)
	}
}

func writeDiagnostics(w io.Writer, diags []etw.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	fmt.Fprintf(w, "%d element(s) skipped:\n", len(diags))
	for _, d := range diags {
		fmt.Fprintf(w, "\t%s\n", d.Error())
	}
}
