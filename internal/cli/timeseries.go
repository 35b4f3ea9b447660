package cli

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/eigerco/ledgerstore/pkg/store"
)

func newTSCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ts",
		Short: "Time-series operations",
	}
	cmd.AddCommand(
		newTSExtendCommand(opts),
		newTSRangeCommand(opts),
		newTSMissingCommand(opts),
		newTSRemoveCommand(opts),
		newTSListCommand(opts),
	)
	return cmd
}

func newTSExtendCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "extend <key> <timestamp>=<json-value> [...]",
		Short: "Add or replace data points of a series",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var points []store.Point
			for _, arg := range args[1:] {
				var t int64
				var raw string
				if _, err := fmt.Sscanf(arg, "%d=%s", &t, &raw); err != nil {
					return fmt.Errorf("parse point %q: want <timestamp>=<json-value>", arg)
				}
				var value any
				if err := json.Unmarshal([]byte(raw), &value); err != nil {
					return fmt.Errorf("parse point value %q: %w", raw, err)
				}
				points = append(points, store.Point{Timestamp: t, Value: value})
			}

			s, err := openStore(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			return s.Extend(args[0], points...)
		},
	}
}

func newTSRangeCommand(opts *RootOptions) *cobra.Command {
	var start, end int64
	var freq int64
	var n int

	cmd := &cobra.Command{
		Use:   "range <key>",
		Short: "Print data points of a series in ascending timestamp order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			points, err := s.RangeN(args[0], start, end, n, freq)
			if err != nil {
				return err
			}
			for _, p := range points {
				data, err := json.Marshal(p.Value)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", p.Timestamp, data)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&start, "start", math.MinInt64, "inclusive range start")
	cmd.Flags().Int64Var(&end, "end", math.MaxInt64, "inclusive range end")
	cmd.Flags().Int64Var(&freq, "freq", 0, "minimum spacing between returned points")
	cmd.Flags().IntVar(&n, "n", 0, "maximum number of points")
	return cmd
}

func newTSMissingCommand(opts *RootOptions) *cobra.Command {
	var freq int64

	cmd := &cobra.Command{
		Use:   "missing <key> <start> <end>",
		Short: "Print the expected-but-absent timestamps of a series",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("parse start: %w", err)
			}
			end, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("parse end: %w", err)
			}

			s, err := openStore(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			missing, err := s.Missing(args[0], freq, start, end)
			if err != nil {
				return err
			}
			for _, t := range missing {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&freq, "freq", 0, "expected inter-sample spacing (required)")
	_ = cmd.MarkFlagRequired("freq")
	return cmd
}

func newTSRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "Delete a whole series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			return s.Remove(args[0])
		},
	}
}

func newTSListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List time-series keys in the namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			keys, err := s.Timeseries()
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}
}
