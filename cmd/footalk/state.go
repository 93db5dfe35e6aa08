package main

import (
	"encoding/json"
	"os"

	"github.com/Bookaj/footalk/transport"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "state",
		Short: "Print the engine state of a running serve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			st, err := transport.NewClient("http://"+a.cfg.HTTP.Addr, nil).State(cmd.Context())
			if err != nil {
				return a.fail("state", err)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		},
	})
}
