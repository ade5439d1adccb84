/*
Copyright 2025 Matchbook Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"
)

// importCommands defines the "import" command that loads invoices from a CSV
// file on disk.
func importCommands(b *matchbookInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "import invoices from a CSV file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			f, err := os.Open(args[0])
			if err != nil {
				log.Fatalf("could not open %s: %v", args[0], err)
			}
			defer f.Close()

			count, err := b.matchbook.ImportInvoicesCSV(context.Background(), f)
			if err != nil {
				log.Fatalf("import failed: %v", err)
			}

			log.Printf("imported %d invoice(s) from %s", count, args[0])
		},
	}

	return cmd
}
