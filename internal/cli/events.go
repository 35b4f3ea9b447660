package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eigerco/ledgerstore/pkg/store"
)

func newApplyCommand(opts *RootOptions) *cobra.Command {
	var at int64

	cmd := &cobra.Command{
		Use:   "apply <name> <item>=<json-value> | <item>:<op>[=<json-value>] [...]",
		Short: "Append events to an event-sourced dictionary",
		Long: `Append one event per update to the dictionary's log and print the
resulting current state.

A bare <item>=<value> pair is a replace. An explicit operator is given
as <item>:<op> with an optional =<value> operand:

  counters:add=5       add 5 to "counters"
  flag:not             invert boolean "flag"
  old:delete           remove "old"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var updates []store.Update
			for _, arg := range args[1:] {
				update, err := parseUpdate(arg)
				if err != nil {
					return err
				}
				updates = append(updates, update)
			}

			s, err := openStore(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			var state map[string]any
			if at != 0 {
				state, err = s.ApplyAt(args[0], at, updates...)
			} else {
				state, err = s.Apply(args[0], updates...)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, state)
		},
	}

	cmd.Flags().Int64Var(&at, "at", 0, "explicit event timestamp in milliseconds")
	return cmd
}

func parseUpdate(arg string) (store.Update, error) {
	target, rawValue, hasValue := strings.Cut(arg, "=")

	var value any
	if hasValue {
		if err := json.Unmarshal([]byte(rawValue), &value); err != nil {
			return store.Update{}, fmt.Errorf("parse update value %q: %w", rawValue, err)
		}
	}

	item, op, hasOp := strings.Cut(target, ":")
	if !hasOp {
		if !hasValue {
			return store.Update{}, fmt.Errorf("parse update %q: want <item>=<value> or <item>:<op>", arg)
		}
		return store.Assign(item, value), nil
	}
	return store.Update{Item: item, Op: store.OpKind(op), Value: value}, nil
}

func newCurrentCommand(opts *RootOptions) *cobra.Command {
	var at int64

	cmd := &cobra.Command{
		Use:   "current <name>",
		Short: "Print the current (or past) state of a dictionary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			var state map[string]any
			if at != 0 {
				state, err = s.Past(args[0], at)
			} else {
				state, err = s.Current(args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, state)
		},
	}

	cmd.Flags().Int64Var(&at, "at", 0, "state as of this timestamp in milliseconds")
	return cmd
}

func newEventsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Event log operations",
	}
	cmd.AddCommand(newEventsShowCommand(opts), newEventsListCommand(opts))
	return cmd
}

func newEventsShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print the raw ordered event log of a dictionary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			events, err := s.Events(args[0])
			if err != nil {
				return err
			}
			return printEvents(cmd, events)
		},
	}
}

func newEventsListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List dictionaries with a non-empty event log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			names, err := s.EventSources()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newPruneCommand(opts *RootOptions) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "prune <name>",
		Short: "Compact a dictionary's event log to a minimal equivalent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			events, err := s.Prune(args[0], remove)
			if err != nil {
				return err
			}
			return printEvents(cmd, events)
		},
	}

	cmd.Flags().BoolVar(&remove, "remove", false, "replace the stored log (default is a dry run)")
	return cmd
}

func printEvents(cmd *cobra.Command, events []store.Event) error {
	for _, ev := range events {
		data, err := json.Marshal(ev.Value)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\t%s\t%s\t%s\n", ev.Timestamp, ev.Seq, ev.Item, ev.Op, data)
	}
	return nil
}
