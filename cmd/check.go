package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/EO-DataHub/eodhp-agent-runner/internal/settings"
	"github.com/spf13/cobra"
)

var (
	checkDir      string
	checkFunction string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the Functions project files the host needs to start the handler",
	Long: `Validate local.settings.json, host.json and the function's function.json in a Functions
project directory. Exits non-zero when the host would fail to start the custom handler.`,
	Run: func(cmd *cobra.Command, args []string) {

		setLogging(logLevel)

		if failed := runChecks(cmd.OutOrStdout(), checkDir, checkFunction); failed > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d check(s) failed\n", failed)
			os.Exit(1)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "\nall checks passed")
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkDir, "dir", ".", "Functions project directory")
	checkCmd.Flags().StringVar(&checkFunction, "function", "RunAgent", "name of the function directory")
}

// runChecks writes one line per checked file and returns the number of
// failed checks.
func runChecks(out io.Writer, dir, function string) int {
	failed := 0
	report := func(name string, err error) {
		if err == nil {
			fmt.Fprintf(out, "ok    %s\n", name)
			return
		}
		failed++
		fmt.Fprintf(out, "FAIL  %s\n", name)
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintf(out, "      - %s\n", line)
		}
	}

	localPath := filepath.Join(dir, "local.settings.json")
	localSettings, err := settings.LoadLocalSettings(localPath)
	if err == nil {
		err = localSettings.Validate()
	} else if errors.Is(err, os.ErrNotExist) {
		// Deployed apps keep their settings in the app configuration
		err = nil
	}
	report(localPath, err)

	hostPath := filepath.Join(dir, "host.json")
	hostCfg, err := settings.LoadHost(hostPath)
	if err == nil {
		err = hostCfg.Validate()
	}
	report(hostPath, err)

	if hostCfg != nil && hostCfg.CustomHandler.Description.DefaultExecutablePath != "" {
		exe := hostCfg.CustomHandler.Description.DefaultExecutablePath
		if !filepath.IsAbs(exe) {
			exe = filepath.Join(dir, exe)
		}
		_, err := os.Stat(exe)
		if err != nil {
			err = fmt.Errorf("custom handler executable not found; build it with GOOS=linux GOARCH=amd64 go build -o %s", hostCfg.CustomHandler.Description.DefaultExecutablePath)
		}
		report(exe, err)
	}

	functionPath := filepath.Join(dir, function, "function.json")
	fn, err := settings.LoadFunction(functionPath)
	if err == nil {
		err = fn.Validate()
	}
	report(functionPath, err)

	return failed
}
