// Command kvs-client issues get/set/rm commands against a running
// kvs-server.
package main

import (
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/termkv/termkv/client"
)

const defaultAddr = "127.0.0.1:4000"

const usage = `Usage:
  kvs-client get <key> [--addr IP:PORT]
  kvs-client set <key> <value> [--addr IP:PORT]
  kvs-client rm <key> [--addr IP:PORT]`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	flags := flag.NewFlagSet(cmd, flag.ExitOnError)
	addr := flags.String("addr", defaultAddr, "server address (IP:PORT)")
	_ = flags.Parse(os.Args[2:])
	args := flags.Args()

	if err := run(cmd, args, *addr); err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			// rm on a missing key prints the same text a missing get
			// does, but signals failure via the exit code.
			fmt.Println(err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(cmd string, args []string, addr string) error {
	switch cmd {
	case "get":
		if len(args) != 1 {
			return errors.New(usage)
		}
		c, err := client.Dial(addr)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()
		value, found, err := c.Get(args[0])
		if err != nil {
			return err
		}
		if !found {
			fmt.Println("Key not found")
		} else {
			fmt.Println(value)
		}
		return nil

	case "set":
		if len(args) != 2 {
			return errors.New(usage)
		}
		c, err := client.Dial(addr)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()
		return c.Set(args[0], args[1])

	case "rm":
		if len(args) != 1 {
			return errors.New(usage)
		}
		c, err := client.Dial(addr)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()
		return c.Remove(args[0])

	default:
		return errors.New(usage)
	}
}
