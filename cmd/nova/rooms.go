package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teslashibe/nova-guide/internal/log"
	"github.com/teslashibe/nova-guide/pkg/rooms"
)

func roomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Manage learned rooms",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := openRooms(cmd.Context())
			if err != nil {
				return err
			}
			defer reg.Close()

			names := reg.Names()
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No rooms saved.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ROOM\tX\tY")
			for _, name := range names {
				p, _ := reg.Get(name)
				fmt.Fprintf(w, "%s\t%g\t%g\n", name, p.X, p.Y)
			}
			return w.Flush()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "save <name> <x> <y>",
		Short: "Save a room coordinate",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid x %q: %w", args[1], err)
			}
			y, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid y %q: %w", args[2], err)
			}

			reg, err := openRooms(cmd.Context())
			if err != nil {
				return err
			}
			defer reg.Close()

			p := rooms.Point{X: x, Y: y}
			if err := reg.Save(cmd.Context(), args[0], p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s at %s\n", rooms.NormalizeName(args[0]), p)
			return nil
		},
	})
	return cmd
}

func openRooms(ctx context.Context) (*rooms.Registry, error) {
	store, err := rooms.Open(cfg.Rooms.Path)
	if err != nil {
		return nil, fmt.Errorf("open room store %s: %w", cfg.Rooms.Path, err)
	}
	return rooms.NewRegistry(ctx, store, log.L()), nil
}
