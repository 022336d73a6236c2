package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	lua "github.com/yuin/gopher-lua"

	"github.com/haivivi/luasched/cmd/luasched/internal/build"
)

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := build.Get()
		out := cmd.OutOrStdout()
		switch versionFormat {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		case "", "text":
			fmt.Fprintln(out, info)
			if IsVerbose() {
				fmt.Fprintf(out, "  go:  %s\n", info.GoVersion)
				fmt.Fprintf(out, "  lua: %s\n", lua.LuaVersion)
			}
			return nil
		default:
			return fmt.Errorf("unknown format %q", versionFormat)
		}
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "text", "output format: text or json")
	rootCmd.AddCommand(versionCmd)
}
