package store

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ConfigFile holds persisted config (API key, model) for first boot and beyond.
// Stored in ConfigDir as config.json. Do not commit this file if it contains secrets.
type ConfigFile struct {
	OpenRouterAPIKey string `json:"openrouter_api_key,omitempty"`
	Model            string `json:"model,omitempty"`
	AgentName        string `json:"agent_name,omitempty"`
	AdminUserID      string `json:"admin_user_id,omitempty"`

	// Nextcloud (HattieBridge webhook)
	NextcloudURL              string `json:"nextcloud_url,omitempty"`
	HattieBridgeWebhookSecret string `json:"hattiebridge_webhook_secret,omitempty"`
	DefaultChannel            string `json:"default_channel,omitempty"`
}

// LoadConfigFile reads config from dir/config.json. Missing file returns nil, nil.
func LoadConfigFile(dir string) (*ConfigFile, error) {
	p := filepath.Join(dir, "config.json")
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var c ConfigFile
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveConfigFile writes config to dir/config.json.
func SaveConfigFile(dir string, c *ConfigFile) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	p := filepath.Join(dir, "config.json")
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0600)
}

