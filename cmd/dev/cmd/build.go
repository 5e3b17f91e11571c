package cmd

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gophertribe/devtool/build"
)

// targets the compass binary is usually deployed to
var boardArch = map[string]string{
	"nanopi": "arm",
	"rpi":    "arm64",
}

func BuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the compass cli",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			version, _ := flags.GetString("version")
			goos, _ := flags.GetString("os")
			arch, _ := flags.GetString("arch")
			if board, _ := flags.GetString("board"); board != "" {
				a, ok := boardArch[board]
				if !ok {
					return fmt.Errorf("unknown board %q", board)
				}
				goos, arch = "linux", a
			}

			crossOS, _ := flags.GetString("cross-os")
			crossArch, _ := flags.GetString("cross-arch")

			// hid needs cgo, cross builds go through the docker toolchain
			if goos == runtime.GOOS && arch == runtime.GOARCH {
				if crossOS != "" && crossArch != "" {
					goos, arch = crossOS, crossArch
				}
				slog.Info("native build", "os", goos, "arch", arch, "version", version)
				return build.GoBuild("dist/compass", "./cmd/compass", build.GoBuildOpts{
					Version:       version,
					InjectVersion: true,
					ConfigPackage: "main",
					EnableCgo:     true,
					Arch:          arch,
					OS:            goos,
				})
			}
			noCache, err := flags.GetBool("no-cache")
			if err != nil {
				return fmt.Errorf("could not get no-cache flag: %w", err)
			}
			slog.Info("docker cross build", "os", goos, "arch", arch, "version", version)
			return build.Docker(cmd.Context(), fmt.Sprintf("./dev-%s-%s", runtime.GOOS, runtime.GOARCH), []string{"build", "--version", version, "--cross-os", goos, "--cross-arch", arch}, build.DockerBuildOpts{
				NoCache: noCache,
				Image:   "gophertribe/gobuild:1.25-bookworm",
			})
		},
	}
	cmd.Flags().Bool("no-cache", false, "do not use cache when building the app")
	cmd.Flags().String("version", "latest", "version of the cli")
	cmd.Flags().String("os", runtime.GOOS, "os to build for")
	cmd.Flags().String("arch", runtime.GOARCH, "arch to build for")
	cmd.Flags().String("cross-os", "", "os to cross-compile for inside the build image")
	cmd.Flags().String("cross-arch", "", "arch to cross-compile for inside the build image")
	cmd.Flags().String("board", "", "shortcut for a target board (nanopi, rpi)")
	return cmd
}
