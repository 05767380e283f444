package main

import (
	"fmt"
	"os"
	"strings"

	"dirbuf/cmd/dirbuf/cli"
	"dirbuf/internal/page"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newLsCmd(opts *globalOptions) *cobra.Command {
	var expand bool

	cmd := &cobra.Command{
		Use:   "ls [directory]",
		Short: "Print the rows of a directory",
		Long: `Prints the rows dirbuf would show for a directory, honouring the ignore
patterns and hidden-file setting. With --expand every directory row is
expanded once.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := targetDir(args)
			if err != nil {
				return err
			}
			backend, err := newBackend(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			ignore, err := page.NewMatcher(opts.cfg.Ignore)
			if err != nil {
				return err
			}

			p, err := page.List(dir, backend, page.Options{Ignore: ignore})
			if err != nil {
				return err
			}
			if expand {
				// Walk backwards so splices do not shift rows not yet visited.
				for row := p.Len() - 1; row > 0; row-- {
					if _, err := p.ToggleExpand(row); err != nil {
						return err
					}
				}
			}

			out := cmd.OutOrStdout()
			cli.PrintHeader(out, p.Dir)
			for _, line := range p.Lines()[1:] {
				fmt.Fprintln(out, formatLine(line))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&expand, "expand", "e", false, "expand directories one level")
	return cmd
}

func formatLine(line page.Line) string {
	indent := strings.Repeat("  ", line.Level)
	if line.Category == page.Directory {
		return indent + cli.Dir(line.Name+"/")
	}

	size := ""
	if info, err := os.Lstat(line.Path); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	return fmt.Sprintf("%s%-40s %8s", indent, line.Name, size)
}
