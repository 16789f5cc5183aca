package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dhawalhost/dirsync/pkg/client"
)

const defaultBaseURL = "http://localhost:8084"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = runList(os.Args[2:])
	case "get":
		err = runGet(os.Args[2:])
	case "add":
		err = runAdd(os.Args[2:])
	case "delete":
		err = runDelete(os.Args[2:])
	case "count":
		err = runCount(os.Args[2:])
	case "verify":
		err = runVerify(os.Args[2:])
	case "sync":
		err = runSync(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	c := addCommonFlags(fs)
	pattern := fs.String("search", "*", "Username search pattern")
	offset := fs.Int("offset", 0, "Result offset")
	limit := fs.Int("limit", 50, "Maximum number of results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	users, err := c().SearchUsers(context.Background(), *pattern, *offset, *limit)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println("No users matched", *pattern)
		return nil
	}

	for _, u := range users {
		fmt.Printf("- %s (%s) <%s>\n", u.Username, u.ID, u.Email)
		if u.Status != "" {
			fmt.Printf("  Status: %s\n", u.Status)
		}
	}
	return nil
}

func runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	c := addCommonFlags(fs)
	username := fs.String("username", "", "Username to fetch")
	id := fs.String("id", "", "Composite storage id to fetch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		user *client.User
		err  error
	)
	switch {
	case *username != "":
		user, err = c().GetUserByUsername(context.Background(), *username)
	case *id != "":
		user, err = c().GetUser(context.Background(), *id)
	default:
		return fmt.Errorf("username or id is required")
	}
	if err != nil {
		return err
	}
	prettyPrint(user)
	return nil
}

func runAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	c := addCommonFlags(fs)
	username := fs.String("username", "", "Username to register")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*username) == "" {
		return fmt.Errorf("username is required")
	}

	user, err := c().AddUser(context.Background(), *username)
	if err != nil {
		return err
	}
	fmt.Println("User created:")
	prettyPrint(user)
	return nil
}

func runDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	c := addCommonFlags(fs)
	id := fs.String("id", "", "Composite storage id to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("id is required")
	}

	if err := c().RemoveUser(context.Background(), *id); err != nil {
		return err
	}
	fmt.Println("User deleted")
	return nil
}

func runCount(args []string) error {
	fs := flag.NewFlagSet("count", flag.ExitOnError)
	c := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	count, err := c().CountUsers(context.Background())
	if err != nil {
		return err
	}
	fmt.Println(count)
	return nil
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	c := addCommonFlags(fs)
	username := fs.String("username", "", "Username")
	password := fs.String("password", "", "Password to check")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return fmt.Errorf("username and password are required")
	}

	valid, err := c().VerifyCredentials(context.Background(), *username, *password)
	if err != nil {
		return err
	}
	if valid {
		fmt.Println("valid")
	} else {
		fmt.Println("invalid")
	}
	return nil
}

func runSync(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	c := addCommonFlags(fs)
	mode := fs.String("mode", "changed", "Sync mode: full or changed")
	timeout := fs.Duration("timeout", 10*time.Minute, "Run timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var (
		res client.SyncResult
		err error
	)
	switch strings.ToLower(*mode) {
	case "full":
		res, err = c().SyncFull(ctx)
	case "changed":
		res, err = c().SyncChanged(ctx)
	default:
		return fmt.Errorf("mode must be full or changed")
	}
	if err != nil {
		return err
	}
	fmt.Printf("added=%d updated=%d failed=%d\n", res.Added, res.Updated, res.Failed)
	return nil
}

func addCommonFlags(fs *flag.FlagSet) func() *client.Client {
	baseURL := fs.String("base-url", defaultBaseURL, "Directory sync service base URL")
	return func() *client.Client {
		return client.New(client.Config{BaseURL: strings.TrimRight(*baseURL, "/")})
	}
}

func prettyPrint(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(data))
}

func usage() {
	fmt.Print(`Usage: dirsyncctl <command> [options]

Commands:
  list        List directory users matching a search pattern
  get         Fetch a single user by username or storage id
  add         Register a new directory user
  delete      Remove a user by storage id
  count       Print the total user count
  verify      Check a username/password pair
  sync        Trigger a synchronization run (full or changed)

Global options:
	-base-url   Directory sync service base URL (default http://localhost:8084)
`)
}
