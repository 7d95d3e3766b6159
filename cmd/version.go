package cmd

import (
	"fmt"
	"runtime"

	"github.com/Mohsinsiddi/h2o/internal/ui"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(ui.Banner(Version))
		fmt.Println(ui.Meta(fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)))
	},
}
