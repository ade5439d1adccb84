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

	"github.com/spf13/cobra"
)

// reprocessCommands defines the "reprocess" command that re-queues matching
// for every transaction with no recorded match.
func reprocessCommands(b *matchbookInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reprocess",
		Short: "re-queue matching for unmatched transactions",
		Run: func(cmd *cobra.Command, args []string) {
			queued, err := b.matchbook.ReprocessUnmatched(context.Background())
			if err != nil {
				log.Fatalf("reprocess failed: %v", err)
			}

			log.Printf("queued %d transaction(s) for matching", queued)
		},
	}

	return cmd
}
