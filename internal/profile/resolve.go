package profile

import "github.com/kvaesitso/kvs/internal/config"

const DefaultName = "main"

// Resolve determines the active profile name using precedence:
// 1. flagOverride (--profile flag)
// 2. config.toml default_profile
// 3. "main"
// The result is validated.
func Resolve(flagOverride string) (string, error) {
	name := DefaultName
	if flagOverride != "" {
		name = flagOverride
	} else if cfg, err := config.Load(ConfigPath()); err == nil && cfg.DefaultProfile != "" {
		name = cfg.DefaultProfile
	}
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}
