package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/portal"
	"github.com/dvloznov/agricole-sync/internal/regions"
	"github.com/spf13/cobra"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List the regional banks and their ids",
	Long: `Without flags the table compiled into the binary is printed. With --discover the
public directory is scraped and the table is written as YAML, ready to replace
internal/regions/regions.yaml.`,
	RunE: runRegions,
}

func init() {
	regionsCmd.Flags().Bool(flagDiscover, false, "scrape the public directory instead of using the embedded table")
	regionsCmd.Flags().StringP(flagOutput, "o", "", "with --discover, write the YAML to this file instead of stdout")
}

func runRegions(ccmd *cobra.Command, args []string) error {
	discover, _ := ccmd.Flags().GetBool(flagDiscover)
	if !discover {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tURL")
		for _, r := range regions.Embedded().All() {
			fmt.Fprintf(w, "%d\t%s\t%s\n", r.ID, r.Name, r.URL)
		}
		return w.Flush()
	}

	cfg, err := loadConfig(ccmd)
	if err != nil {
		return err
	}
	ctx := commandContext(ccmd, cfg)

	client, err := portal.New()
	if err != nil {
		return err
	}
	found, err := regions.Discover(ctx, client)
	if err != nil {
		return err
	}
	out, err := regions.Marshal(found)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	log.Info().Int("regions", len(found)).Msg("regional banks discovered")

	path, _ := ccmd.Flags().GetString(flagOutput)
	if path == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
