package config

import (
	"fmt"
	"os"

	pelletier "github.com/pelletier/go-toml/v2"
)

// Example is a complete configuration showing every section.
func Example() SessionConfig {
	cfg := Default()
	cfg.AllowedPackages = []string{}
	cfg.CorsOrigins = []string{"http://localhost:3000"}
	cfg.Commands = CommandsConfig{
		Session: []int{40010},
		Custom:  []string{"like", "shuffle_all"},
	}
	cfg.Buttons = ButtonsConfig{
		MediaButtonPreferences: []ButtonConfig{
			{DisplayName: "Previous", PlayerCommand: 7, Slots: []string{"back", "overflow"}},
			{DisplayName: "Next", PlayerCommand: 9, Slots: []string{"forward", "overflow"}},
			{DisplayName: "Like", CustomAction: "like", Slots: []string{"overflow"}},
		},
	}
	cfg.Player = PlayerConfig{
		State:         "ready",
		PlayWhenReady: true,
		MediaID:       "track-1",
		Title:         "Intro",
		Artist:        "Example",
		DurationMs:    180000,
		VolumePercent: 100,
	}
	cfg.Extras = map[string]string{"0": "example session"}
	return cfg
}

// Template renders Example as TOML.
func Template() ([]byte, error) {
	out, err := pelletier.Marshal(Example())
	if err != nil {
		return nil, fmt.Errorf("render config template: %w", err)
	}
	return out, nil
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, template, 0o600)
}
