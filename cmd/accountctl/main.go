package main

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/realmd/internal/accountctl"
	"github.com/dmitrijs2005/realmd/internal/server/config"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := accountctl.NewRootCommand(cfg, accountctl.OpenDatabases).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
