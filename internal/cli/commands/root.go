// Copyright 2026 GLHost Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"glhost/internal/cache"
	"glhost/internal/common"
	"glhost/internal/config"
	"glhost/internal/hostgl"
	"glhost/internal/ldpath"
	"glhost/internal/patch"
	"glhost/internal/util"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// defaultPatchelf is the build-time patch tool location, empty when unset.
	defaultPatchelf string
)

// execProgram replaces the current process. Swapped out in tests.
var execProgram = util.ExecReplace

// SetVersion sets the version info for --version flag
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// SetDefaultPatchelf records the patch tool path injected at build time.
func SetDefaultPatchelf(path string) {
	defaultPatchelf = path
}

// getVersionString returns the version string with build info
func getVersionString() string {
	buildDate := formatBuildDate(date)
	if strings.HasSuffix(version, "-dev") {
		// Dev build: include epoch and commit for troubleshooting
		return fmt.Sprintf("%s (%s, epoch: %s, commit: %s)", version, buildDate, date, commit)
	}
	return fmt.Sprintf("%s (%s)", version, buildDate)
}

// formatBuildDate converts epoch timestamp to readable date
func formatBuildDate(epoch string) string {
	ts, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return epoch
	}
	return time.Unix(ts, 0).UTC().Format("2006-01-02")
}

// rootOptions holds the flag values of the root command.
type rootOptions struct {
	driverDir      string
	printPath      bool
	verbose        bool
	cacheDir       string
	settings       *config.Settings
	settingsLoaded bool
}

// loadSettings reads the settings file once per invocation.
func (o *rootOptions) loadSettings() (*config.Settings, error) {
	if o.settingsLoaded {
		return o.settings, nil
	}
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, err
	}
	o.settings = settings
	o.settingsLoaded = true
	return settings, nil
}

// NewRootCmd builds the glhost command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "glhost [flags] [program [args...]]",
		Short: "Run a program against the host GPU driver libraries",
		Long: `Run a program built against an isolated library set with the host's
OpenGL, EGL and CUDA driver libraries.

The driver libraries found on the host are copied into a cache, their runpath
is rewritten so they only depend on each other, and the program is executed
with an environment pointing the GL, EGL and CUDA loaders at the cache.

Examples:
  glhost blender
  glhost -d /usr/lib/x86_64-linux-gnu glxgears -info
  export LD_LIBRARY_PATH=$(glhost -p)`,
		Version:       getVersionString(),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			settings, err := opts.loadSettings()
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}
			setupLogging(cmd.ErrOrStderr(), opts.verbose, settings)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, opts, args)
		},
	}

	cmd.Flags().SetInterspersed(false)
	cmd.PersistentFlags().StringVarP(&opts.driverDir, "driver-directory", "d", "", "use the driver libraries of this directory instead of searching the host")
	cmd.Flags().BoolVarP(&opts.printPath, "print-ld-library-path", "p", false, "print the cache library search path and exit")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")
	cmd.PersistentFlags().StringVar(&opts.cacheDir, "cache-dir", "", "cache root (default $XDG_CACHE_HOME/glhost)")

	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetVersionTemplate("glhost version {{.Version}}\n")

	cmd.AddCommand(newCacheCmd(opts), newConfigCmd(opts))
	return cmd
}

// validateArgs checks that exactly one of print mode and a program is requested.
func validateArgs(printPath bool, args []string) error {
	if printPath && len(args) > 0 {
		return common.ErrConflictingArgs
	}
	if !printPath && len(args) == 0 {
		return common.ErrMissingProgram
	}
	return nil
}

// searchPaths returns the directories to scan: the driver directory override
// when set, otherwise the host loader search path.
func searchPaths(opts *rootOptions, settings *config.Settings) []string {
	if opts.driverDir != "" {
		log.WithField("dir", opts.driverDir).Info("Retrieving driver libraries from the driver directory flag")
		return []string{opts.driverDir}
	}
	log.Info("Searching for driver libraries in the host loader search path")
	return ldpath.Discover(ldpath.Options{
		LDLibraryPath: os.Getenv(hostgl.LDLibraryPathVar),
		Prefix:        os.Getenv("PREFIX"),
		Exclude:       settings.ExcludeDirs,
	})
}

func runRoot(cmd *cobra.Command, opts *rootOptions, args []string) error {
	if err := validateArgs(opts.printPath, args); err != nil {
		return err
	}
	start := time.Now()

	settings, err := opts.loadSettings()
	if err != nil {
		return err
	}
	vendor, err := settings.Vendor()
	if err != nil {
		return err
	}
	var patcher cache.Patcher
	tool, err := config.ResolvePatchTool(settings.Patchelf, defaultPatchelf)
	if err != nil {
		log.WithError(err).Debug("No usable patch tool, only an up-to-date cache can be used")
		patcher = patch.Unavailable{Err: err}
	} else {
		patcher = patch.New(tool)
	}
	cacheRoot := settings.CacheRoot(opts.cacheDir)
	log.WithField("path", cacheRoot).Info("Using cache dir")

	res, err := hostgl.Prepare(cmd.Context(), hostgl.Options{
		SearchPaths:            searchPaths(opts, settings),
		CacheRoot:              cacheRoot,
		InheritedLDLibraryPath: os.Getenv(hostgl.LDLibraryPathVar),
		Vendor:                 vendor,
		Patcher:                patcher,
	})
	if err != nil {
		return err
	}
	log.WithField("elapsed", time.Since(start)).Info("Environment ready")

	if opts.printPath {
		fmt.Fprintln(cmd.OutOrStdout(), res.SearchPath)
		return nil
	}
	return execProgram(args[0], args[1:], util.MergeEnv(os.Environ(), res.Env))
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
