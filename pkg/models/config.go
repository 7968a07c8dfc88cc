package models

// AutoArchiveConfig controls the periodic archival sweep. Auto defaults to
// false so archival is always opt-in.
type AutoArchiveConfig struct {
	Auto       bool `yaml:"auto"`
	AgeDays    int  `yaml:"age_days"`
	KeepRecent int  `yaml:"keep_recent"`
}

// GitHubConfig configures the issue sync boundary. TokenEnv names the
// environment variable holding the API token; the token itself is never
// written to the config file.
type GitHubConfig struct {
	Repo     string `yaml:"repo"`
	TokenEnv string `yaml:"token_env"`
}

// GlobalConfig is the merged configuration read from .dexconfig.
type GlobalConfig struct {
	DefaultPriority int               `yaml:"default_priority"`
	AutoArchive     AutoArchiveConfig `yaml:"auto_archive"`
	GitHub          GitHubConfig      `yaml:"github"`
}

// DefaultGlobalConfig returns the configuration used when no .dexconfig
// exists.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		DefaultPriority: 2,
		AutoArchive: AutoArchiveConfig{
			Auto:       false,
			AgeDays:    90,
			KeepRecent: 50,
		},
		GitHub: GitHubConfig{
			TokenEnv: "GITHUB_TOKEN",
		},
	}
}
