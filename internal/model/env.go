package model

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding the configuration,
// e.g. BLASTWEB_SERVER_LISTEN overrides server.listen.
const EnvPrefix = "BLASTWEB"

// NewEnv returns a viper instance reading BLASTWEB_* environment variables
func NewEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyEnv overrides string settings which are set in the environment.
func ApplyEnv(cfg Config, v *viper.Viper) Config {
	overrides := []struct {
		key string
		dst *string
	}{
		{"server.listen", &cfg.Server.Listen},
		{"server.session_ttl", &cfg.Server.SessionTTL},
		{"blast.makeblastdb", &cfg.Blast.MakeBlastDB},
		{"blast.blastn", &cfg.Blast.BlastN},
		{"blast.launcher", &cfg.Blast.Launcher},
		{"blast.timeout", &cfg.Blast.Timeout},
		{"blast.temp_dir", &cfg.Blast.TempDir},
		{"service.log", &cfg.Service.Log},
	}
	for _, o := range overrides {
		if s := v.GetString(o.key); s != "" {
			*o.dst = s
		}
	}
	if n := v.GetInt("blast.threads"); n > 0 {
		cfg.Blast.Threads = n
	}
	return cfg
}
