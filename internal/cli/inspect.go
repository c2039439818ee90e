package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	pkgio "github.com/matzehuels/gridroute/pkg/io"
)

// inspectCommand prints a summary and per-net table of a routing result.
func (c *CLI) inspectCommand() *cobra.Command {
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "inspect [result]",
		Short: "Summarize a routing result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := pkgio.ImportResult(args[0])
			if err != nil {
				return err
			}
			p := printer{cmd.OutOrStdout()}
			p.summary(res)

			if failedOnly {
				kept := res.Nets[:0:0]
				for _, n := range res.Nets {
					if !n.Complete {
						kept = append(kept, n)
					}
				}
				res.Nets = kept
			}
			if len(res.Nets) == 0 {
				p.info("no nets to show")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), netTable(res))
			return nil
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "only list nets that are not fully routed")
	return cmd
}
