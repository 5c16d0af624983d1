package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/flagx"
)

// parseFlags populates selected fields from command-line flags.
//
//	-a string   HTTP bind address (e.g. ":4000")
//	-d string   PostgreSQL DSN; empty selects in-memory storage
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//
// Arguments meant for other flag sets (such as -c) are filtered out first.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.EndpointAddrHTTP, "a", cfg.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	access := fs.Int("t", int(cfg.AccessTokenTTL.Minutes()), "access token validity (in minutes)")
	refresh := fs.Int("r", int(cfg.RefreshTokenTTL.Minutes()), "refresh token validity (in minutes)")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-a", "-d", "-t", "-r"})); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.AccessTokenTTL = time.Duration(*access) * time.Minute
		case "r":
			cfg.RefreshTokenTTL = time.Duration(*refresh) * time.Minute
		}
	})
	return nil
}
