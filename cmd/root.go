package cmd

import (
	"fmt"
	r "runtime"

	c "github.com/btnalit/clash-cfg-edit/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use: "clash-cfg-edit",
}

func init() {
	cobra.OnInitialize(func() {
		fmt.Println(c.AppName, c.AppVersion, "(", r.Version(), r.Compiler, r.GOOS, "/", r.GOARCH, ")")
	})
}

func Execute() error {
	return rootCmd.Execute()
}
