package opts

import (
	"context"
	"os"

	"github.com/walteh/repotext/pkg/config"
	"github.com/walteh/repotext/pkg/operation"
	"github.com/walteh/repotext/pkg/remote/github"
	"github.com/walteh/repotext/pkg/walk"
	"gitlab.com/tozd/go/errors"
)

// TokenEnv is read when no token flag is given.
const TokenEnv = "GITHUB_TOKEN"

// RootOpts contains shared options used by all commands
type RootOpts struct {
	ConfigFile string
	Debug      bool
	Verbose    bool
}

// LoadConfig loads the configuration file. The default file may be absent; a
// file named explicitly must exist.
func (o *RootOpts) LoadConfig(ctx context.Context) (*config.Config, error) {
	if o.ConfigFile == "" || o.ConfigFile == config.DefaultFile {
		cfg, err := config.LoadOrDefault(ctx, config.DefaultFile)
		if err != nil {
			return nil, errors.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.Load(ctx, o.ConfigFile)
	if err != nil {
		return nil, errors.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// Credential returns flag, falling back to the environment.
func Credential(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(TokenEnv)
}

// FetchOptions wires a configuration into operation options.
func FetchOptions(cfg *config.Config, locator, credential string, observer walk.Observer) (operation.Options, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return operation.Options{}, err
	}

	return operation.Options{
		Locator:     locator,
		Credential:  credential,
		Factory:     github.Factory(cfg.GitHubOptions()),
		Parser:      cfg.ReferenceParser(),
		Policy:      policy,
		Concurrency: cfg.Concurrency,
		Observer:    observer,
	}, nil
}
