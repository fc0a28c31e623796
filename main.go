package main

import (
	"fmt"
	"os"
	"strings"

	"fjacquet/church-ledger/cmd/balance"
	"fjacquet/church-ledger/cmd/dues"
	"fjacquet/church-ledger/cmd/notifications"
	"fjacquet/church-ledger/cmd/pending"
	"fjacquet/church-ledger/cmd/reconcile"
	"fjacquet/church-ledger/cmd/root"
	"fjacquet/church-ledger/cmd/statement"
	"fjacquet/church-ledger/internal/config"

	"github.com/sirupsen/logrus"
)

func init() {
	// .env values must be visible before any logger is created
	config.LoadEnv()
	configureLogLevelDirectly()

	root.Init()

	root.Cmd.AddCommand(statement.Cmd)
	root.Cmd.AddCommand(pending.Cmd)
	root.Cmd.AddCommand(reconcile.Cmd)
	root.Cmd.AddCommand(reconcile.IgnoreCmd)
	root.Cmd.AddCommand(reconcile.ExpenseCmd)
	root.Cmd.AddCommand(balance.Cmd)
	root.Cmd.AddCommand(dues.Cmd)
	root.Cmd.AddCommand(notifications.Cmd)
}

// configureLogLevelDirectly sets the global logrus level from LEDGER_LOG_LEVEL
// so anything logged before the container exists is filtered too.
func configureLogLevelDirectly() {
	level, err := logrus.ParseLevel(strings.ToLower(config.GetEnv("LEDGER_LOG_LEVEL", "info")))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
