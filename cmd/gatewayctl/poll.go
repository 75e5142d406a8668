package main

import (
	"github.com/spf13/cobra"
)

func newPollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll <order-id>...",
		Short: "Re-check Sokin for orders with a stored remote order id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer c.Close()

			type row struct {
				OrderID string `json:"order_id"`
				Action  string `json:"action"`
				Error   string `json:"error,omitempty"`
			}
			out := make([]row, 0, len(args))
			for _, id := range args {
				res, err := c.reconciler.Poll(cmd.Context(), id)
				if err != nil {
					out = append(out, row{OrderID: id, Error: err.Error()})
					continue
				}
				out = append(out, row{OrderID: id, Action: string(res.Action)})
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
