package cli

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// configDir returns ~/.config/huddle (or %LOCALAPPDATA%\huddle on Windows)
func configDir() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
		if appData != "" {
			return filepath.Join(appData, "huddle"), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "huddle"), nil
}

// loadConfig reads the TOML config file, then HUDDLE_* environment variables.
// A missing file is not an error.
func loadConfig(path string) (*viper.Viper, string, error) {
	var dir string
	if path != "" {
		dir = filepath.Dir(path)
	} else {
		var err error
		if dir, err = configDir(); err != nil {
			return nil, "", err
		}
		path = filepath.Join(dir, "config.toml")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, "", err
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigFile(path)

	v.SetDefault("api.base_url", "http://localhost:8787")
	v.SetDefault("api.timeout", 30)
	v.SetDefault("relay.url", "")
	v.SetDefault("output.format", "text")
	v.SetDefault("log.file", filepath.Join(dir, "huddle-cli.log"))
	v.SetDefault("unread.interval", "30s")

	v.SetEnvPrefix("HUDDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	return v, dir, nil
}

// relayURL returns relay.url or derives it from api.base_url
func relayURL(v *viper.Viper) string {
	if u := v.GetString("relay.url"); u != "" {
		return u
	}
	base := strings.TrimRight(v.GetString("api.base_url"), "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/api/v1/ws"
}
