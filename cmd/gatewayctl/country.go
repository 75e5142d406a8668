package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmehra2102/sokinpay-gateway/pkg/isocountry"
)

func newCountryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "country <alpha-2>...",
		Short: "Show the ISO 3166-1 numeric code sent to Sokin for a country",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var unknown int
			for _, a := range args {
				code, ok := isocountry.Numeric(a)
				if !ok {
					unknown++
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t(omitted)\n", a)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", a, code)
			}
			if unknown > 0 {
				return fmt.Errorf("%d unknown country code(s)", unknown)
			}
			return nil
		},
	}
}
