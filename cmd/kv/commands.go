package kv

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [key] [value]",
		Short: "Stores the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			if err := kvClient.Put(key, value); err != nil {
				return err
			} else {
				fmt.Println("OK")
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if value, found, err := kvClient.Get(key); err != nil {
				return err
			} else if !found {
				fmt.Printf("Key not found: %s\n", key)
			} else {
				fmt.Println(value)
			}
			return nil
		},
	}
	shellCmd = &cobra.Command{
		Use:   "shell",
		Short: "Interactive client session",
		Long:  "Opens an interactive session against a running vrdb server. Each line is one command; the session ends on 'exit' or EOF.",
		RunE: func(cmd *cobra.Command, args []string) error {
			runShell()
			return nil
		},
	}
)

// runShell drives the interactive loop. It always exits cleanly; bad
// input prints a usage hint and the loop continues.
func runShell() {
	fmt.Println("vrdb client. Type 'help' for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			// EOF or read error ends the session
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, rest, _ := strings.Cut(line, " ")
		switch cmd {
		case "exit":
			return
		case "help":
			printShellHelp()
		case "put":
			key, value, ok := strings.Cut(rest, " ")
			if !ok || key == "" {
				fmt.Println("Usage: put <key> <value>")
				continue
			}
			if err := kvClient.Put(key, value); err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Println("OK")
		case "get":
			key := strings.TrimSpace(rest)
			if key == "" {
				fmt.Println("Usage: get <key>")
				continue
			}
			value, found, err := kvClient.Get(key)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			if !found {
				fmt.Printf("Key not found: %s\n", key)
				continue
			}
			fmt.Println(value)
		default:
			fmt.Printf("Unknown command: %s\n", cmd)
			printShellHelp()
		}
	}
}

func printShellHelp() {
	fmt.Println()
	fmt.Println("Available commands:")
	fmt.Println("  put <key> <value> - Stores a key-value pair.")
	fmt.Println("  get <key>         - Retrieves the value for a given key.")
	fmt.Println("  help              - Displays this help message.")
	fmt.Println("  exit              - Exits the client.")
	fmt.Println()
}
