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

package profile

import (
	"fmt"
	"os"

	"github.com/rabbitstack/etwscan/internal/bootstrap"
	"github.com/rabbitstack/etwscan/pkg/profile"
	"github.com/rabbitstack/etwscan/pkg/util/multierror"
	"github.com/spf13/cobra"
)

func validate(cmd *cobra.Command, args []string) error {
	if err := bootstrap.InitConfigAndLogger(cfg); err != nil {
		return err
	}
	return validateFiles(args)
}

func validateFiles(files []string) error {
	errs := make([]error, 0)
	for _, file := range files {
		p, err := profile.Load(file)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(os.Stdout, "%s: %s profile is valid\n", file, p.Name)
	}
	return multierror.Wrap(errs...)
}
