// cmd/cli/main.go
//
// Operator tool for poking at the bot's database without stopping the bot.
// Runs against the same environment (.env) as the bot itself.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Black1ssl/after2/internal/config"
	"github.com/Black1ssl/after2/internal/instance"
	"github.com/Black1ssl/after2/internal/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return usageErr()
	}

	cfg, err := config.New()
	if err != nil {
		return err
	}
	store, err := storage.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	switch args[0] {
	case "gender":
		if len(args) != 2 {
			return fmt.Errorf("usage: cli gender <user_id>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("user id must be a number")
		}
		g, err := store.GenderOf(id)
		if err != nil {
			return err
		}
		if g == "" {
			fmt.Println("not registered")
			return nil
		}
		fmt.Println(g)
	case "stats":
		users, welcomed, err := store.Stats()
		if err != nil {
			return err
		}
		running := "no"
		if instance.Active(cfg.DataDir) {
			if pid, err := instance.OwnerPID(cfg.DataDir); err == nil && pid > 0 {
				running = fmt.Sprintf("yes (pid %d)", pid)
			} else {
				running = "yes"
			}
		}
		fmt.Printf("registered users:  %d\nwelcomed members:  %d\nbot running:       %s\n", users, welcomed, running)
	default:
		return usageErr()
	}
	return nil
}

func usageErr() error {
	return fmt.Errorf("usage: cli <command>\n\ncommands:\n  gender <user_id>  show the recorded gender tag for a user\n  stats             show row counts and instance state")
}
