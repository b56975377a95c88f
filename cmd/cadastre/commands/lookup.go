package commands

import (
	"fmt"
	"os"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/use-agent/cadastre/cadastral"
)

var subdivisionsCountyID string

func init() {
	subdivisionsCmd.Flags().StringVar(&subdivisionsCountyID, "county-id", "", "County id, as listed by `cadastre counties`.")
	_ = subdivisionsCmd.MarkFlagRequired("county-id")
	rootCmd.AddCommand(countiesCmd, subdivisionsCmd)
}

var countiesCmd = &cobra.Command{
	Use:   "counties",
	Short: "Lists the counties known to the cadastral API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		counties, err := cadastral.NewClient(cfg.Cadastral).Counties(cmd.Context())
		if err != nil {
			return err
		}
		tw := prettytable.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(prettytable.Row{"ID", "Name"})
		for _, c := range counties {
			tw.AppendRow(prettytable.Row{c.ID, c.Name})
		}
		tw.Render()
		return nil
	},
}

var subdivisionsCmd = &cobra.Command{
	Use:   "subdivisions --county-id <id>",
	Short: "Lists the subdivisions of a county.",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := cadastral.NewClient(cfg.Cadastral).Subdivisions(cmd.Context(), subdivisionsCountyID)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}
