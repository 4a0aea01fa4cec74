package deployconfig

import (
	"io"
	"time"

	"github.com/dahlia-labs/deployctl/configs"
	"github.com/dahlia-labs/deployctl/internal/envid"
	"github.com/dahlia-labs/deployctl/internal/infra/filesystem/yaml"
	"github.com/dahlia-labs/deployctl/internal/infra/git"
	"github.com/dahlia-labs/deployctl/internal/resolve"
)

// NewDefaultLoader wires a Loader reading cfg.ConfigFile from disk, deriving the
// environment from the git checkout in cfg.ProjectDir.
func NewDefaultLoader(cfg configs.Deploy, stdout, stderr io.Writer, now time.Time) *Loader {
	return NewLoader(
		cfg.ConfigFile,
		yaml.NewReader(),
		envid.NewResolver(git.NewClient(cfg.ProjectDir, stdout, stderr)),
		resolve.New(resolve.WithMaxPasses(cfg.MaxSubstitutionPasses)),
		now,
	)
}
