package main

import (
	"flag"
	"fmt"
	"os"
)

type commandParams struct {
	url     string
	devKey  string
	envFile string
	author  string
	debug   bool
}

func (c *commandParams) Read(args []string) (command string, commandArgs []string, ok bool) {
	fs := flag.NewFlagSet("testlink-unit", flag.ExitOnError)
	fs.StringVar(&c.url, "url", "", "TestLink API endpoint URL (default: TESTLINK_URL)")
	fs.StringVar(&c.devKey, "devkey", "", "TestLink developer key (default: TESTLINK_DEVKEY)")
	fs.StringVar(&c.envFile, "env", "", "env file to load before reading the environment")
	fs.StringVar(&c.author, "author", "", "author login for created test cases (default: TESTLINK_AUTHOR)")
	fs.BoolVar(&c.debug, "debug", false, "log every remote operation")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, "Usage: testlink-unit [flags] <command> [args]\n\n"+
			"Commands:\n"+
			"  ping                  check connectivity with the server\n"+
			"  projects              list test projects\n"+
			"  create-project        create a test project\n"+
			"  import <file|dir>...  create test cases from manifest files\n\n"+
			"Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return "", nil, false
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "a command is required")
		fs.Usage()
		return "", nil, false
	}
	return rest[0], rest[1:], true
}
