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
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/matchbookhq/matchbook"
	"github.com/matchbookhq/matchbook/config"
	"github.com/matchbookhq/matchbook/database"
	"github.com/matchbookhq/matchbook/internal/notification"
)

// Matchbook wraps the root Cobra command for the CLI.
type Matchbook struct {
	cmd *cobra.Command
}

// matchbookInstance carries the service and its configuration into the
// subcommands.
type matchbookInstance struct {
	matchbook *matchbook.Matchbook
	cnf       *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

func preRun(app *matchbookInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newMatchbook, err := setupMatchbook(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.matchbook = newMatchbook
		app.cnf = cnf

		return nil
	}
}

func setupMatchbook(cfg *config.Configuration) (*matchbook.Matchbook, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newMatchbook, err := matchbook.NewMatchbook(db)
	if err != nil {
		return nil, fmt.Errorf("error creating matchbook: %v", err)
	}
	return newMatchbook, nil
}

func NewCLI() *Matchbook {
	var configFile string
	b := &matchbookInstance{}

	var rootCmd = &cobra.Command{
		Use:   "matchbook",
		Short: "transaction to invoice matching",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./matchbook.json", "Configuration file for matchbook")
	rootCmd.PersistentPreRunE = preRun(b, &configFile)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(importCommands(b))
	rootCmd.AddCommand(reprocessCommands(b))

	return &Matchbook{cmd: rootCmd}
}

func (w Matchbook) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
