// Package sst implements the offline inspector for table files. It
// operates directly on files and never talks to a running server. Tables
// are immutable, so the set command writes a new file next to the input
// instead of modifying it in place.
package sst

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/androidarduino/vrdb/lib/table"
)

var (
	// TableCommands represents the table inspector command group
	TableCommands = &cobra.Command{
		Use:   "sst",
		Short: "Inspect table files offline",
	}

	listCmd = &cobra.Command{
		Use:   "list [file]",
		Short: "List all key-value pairs in a table file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := table.LoadAll(args[0])
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Printf("Table %s is empty.\n", args[0])
				return nil
			}
			fmt.Printf("Contents of table: %s\n", args[0])
			for _, rec := range records {
				fmt.Printf("  Key: %s, Value: %s\n", rec.Key, rec.Value)
			}
			return nil
		},
	}

	getCmd = &cobra.Command{
		Use:   "get [file] [key]",
		Short: "Get the value for a specific key from a table file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := table.Open(args[0])
			if err != nil {
				return err
			}
			value, found, err := reader.Find(args[1])
			if err != nil {
				return err
			}
			if !found {
				fmt.Printf("Key %q not found in %s\n", args[1], args[0])
				return nil
			}
			fmt.Printf("Value for key %q in %s: %s\n", args[1], args[0], value)
			return nil
		},
	}

	setCmd = &cobra.Command{
		Use:   "set [file] [key] [value]",
		Short: "Set a key-value pair, writing a new updated table file",
		Long:  "Reads the table, applies the override and writes the result as a new file named <stem>_updated_<timestamp>.sst next to the input. The input file is left unchanged.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			updated, err := setValue(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Printf("Successfully set key %q in %s. New table created: %s\n", args[1], args[0], updated)
			return nil
		},
	}
)

func init() {
	TableCommands.AddCommand(listCmd)
	TableCommands.AddCommand(getCmd)
	TableCommands.AddCommand(setCmd)
}

// setValue merges the override into the records of path and writes them
// as a new table file. Returns the path of the new file.
func setValue(path, key, value string) (string, error) {
	records, err := table.LoadAll(path)
	if err != nil {
		return "", err
	}

	merged := make(map[string]string, len(records)+1)
	for _, rec := range records {
		merged[rec.Key] = rec.Value
	}
	merged[key] = value

	updated := make([]table.Record, 0, len(merged))
	for k, v := range merged {
		updated = append(updated, table.Record{Key: k, Value: v})
	}
	sort.Slice(updated, func(i, j int) bool { return updated[i].Key < updated[j].Key })

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := fmt.Sprintf("%s_updated_%d%s", stem, time.Now().Unix(), table.Extension)
	out := filepath.Join(filepath.Dir(path), name)

	if err := table.Write(out, updated); err != nil {
		return "", err
	}
	return out, nil
}
