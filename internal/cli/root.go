// Package cli wires the command line onto the scheduler: flag parsing,
// configuration loading and logger setup.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cperrin88/aclman/internal/logger"
	"github.com/cperrin88/aclman/pkg/backend"
	"github.com/cperrin88/aclman/pkg/config"
	"github.com/cperrin88/aclman/pkg/scheduler"
)

const rootLong = `aclman applies declarative ownership, mode and ACL policy to
directory trees. Policy lives in files whose names start with "..aclman";
every directory's effective policy is the merge of its own policy files with
the resolved policy of its parent.

Policy files are INI-style. Each section names a path pattern relative to
the directory the file lives in and carries directives:

  [/]            the directory itself and its direct children
  [/*]           everything below, at any depth
  [/name]        a child named "name"
  [/name/...]    patterns handed down into the child "name"
  [/*/...]       patterns handed down into any child
  [/*O/...]      as above, also making the child's name the owner
  [/*G/...]      ... the group
  [/*OG/...]     ... owner and group
  [/*P/...]      ... the group becomes the user's primary group
  [/*OP/...]     ... owner and primary group

  OWNER  = name        chown the matched paths to this user
  GROUP  = name        chgrp the matched paths to this group
  ACL    = entries     desired ACL (DIRACL, if set, is used for directories)
  FINAL  = true|false  descendants may not override this pattern
  IGNORE               leave matched paths completely alone

ACL entries use the setfacl syntax extended with '*' (leave unchanged),
'X' (execute for directories; for files follow the owner's execute bit),
'D' (execute/special for directories only) and, in the fourth position,
's'/'S'/'Z' for the setuid/setgid/sticky bits. A leading '+' on the ACL
value merges entries instead of replacing the whole list.

Without -R only the given paths are processed. Exit is non-zero when any
path fails; already issued changes are not rolled back.`

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	var (
		configPath string
		recursive  bool
		dryRun     bool
		verbosity  int
	)

	cmd := &cobra.Command{
		Use:          "aclman [flags] [path...]",
		Short:        "Apply declarative ownership, mode and ACL policy to directory trees",
		Long:         rootLong,
		Args:         cobra.ArbitraryArgs,
		Version:      Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.InitLogger(verbosity)

			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}

			starts := args
			if len(starts) == 0 {
				starts = []string{"."}
			}

			s := scheduler.New(backend.NewExec(), scheduler.Options{
				Recursive:         recursive,
				DryRun:            dryRun,
				Workers:           cfg.Settings.Workers,
				QueueTimeout:      cfg.Settings.QueueTimeout,
				PolicyFilePrefix:  cfg.Settings.PolicyFilePrefix,
				NonExecExtensions: cfg.Settings.NonExecExtensions,
			})
			return s.Run(cmd.Context(), starts)
		},
	}

	cmd.SetVersionTemplate(fmt.Sprintf(
		"aclman version {{.Version}}\nBuild date: %s\nGit commit: %s\n",
		BuildDate, GitCommit,
	))

	cmd.Flags().BoolVarP(&recursive, "recursive", "R", false, "descend into subdirectories")
	cmd.Flags().BoolVarP(&dryRun, "dry", "n", false, "only show what would change")
	cmd.Flags().CountVarP(&verbosity, "verbose", "v", "more output (repeat for more detail)")
	cmd.Flags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")

	return cmd
}
