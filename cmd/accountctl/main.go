package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/accountkeeper/internal/admin"
	"github.com/dmitrijs2005/accountkeeper/internal/server"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
)

func main() {

	ctx := context.Background()
	global, cmd := admin.SplitArgs(os.Args[1:])

	cfg, err := config.Load(global, os.LookupEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if cfg.DatabaseDSN == "" {
		fmt.Fprintln(os.Stderr, "accountctl needs a database, set -d or ACCOUNTKEEPER_DATABASE_DSN")
		os.Exit(2)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer app.Close()

	c := admin.New(app.Accounts(), cfg.PasswordPolicy, os.Stdout, int(os.Stdin.Fd()))
	if err := c.Run(ctx, cmd); err != nil {
		fmt.Fprintln(os.Stderr, err)
		app.Close()
		os.Exit(1)
	}
}
