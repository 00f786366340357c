package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds runtime configuration. Secrets (e.g. API key) are read from
// the environment or from the config dir at runtime; never committed.
type Config struct {
	// OpenRouterAPIKey is set from env OPENROUTER_API_KEY or from config file.
	OpenRouterAPIKey string `json:"open_router_api_key"`
	// Model is the OpenRouter model id (e.g. moonshotai/kimi-k2.5).
	Model string `json:"model"`
	// EnvModel stores the value from HATTIEBOT_MODEL env var for fallback purposes.
	EnvModel string `json:"-"`
	
	// ConfigDir is where config file and system_purpose.txt live (e.g. ~/.config/hattiebot or .hattiebot).
	ConfigDir string `json:"-"` // set at runtime
	// DBPath is the path to hattiebot.db.
	DBPath string `json:"-"`
	// DocsDir is where architecture docs live (e.g. docs/).
	DocsDir string `json:"-"`
	// AgentName is the name of the bot (loaded from config file during onboarding).
	AgentName string `json:"agent_name"`
	// AdminUserID is the ID of the trusted admin user (e.g. Nextcloud uid or "admin").
	AdminUserID string `json:"admin_user_id"`

	// Nextcloud (HattieBridge webhook; optional Files/Passwords)
	NextcloudURL              string `json:"nextcloud_url"`
	HattieBridgeWebhookSecret string `json:"hattie_bridge_webhook_secret"`
	NextcloudBotUser          string `json:"nextcloud_bot_user"`
	NextcloudBotAppPassword   string `json:"nextcloud_bot_app_password"`
	// DefaultChannel is used for proactive routing when no user preference (e.g. "admin_term", "nextcloud_talk").
	DefaultChannel string `json:"default_channel"`

	// Discord channel adapter (C6).
	DiscordToken string `json:"discord_token"`
	DiscordAppID string `json:"discord_app_id"`

	// WebhookPort serves the local webhook endpoint (0 means the default port 8080).
	WebhookPort int `json:"webhook_port"`
	// AutoTunnel, when true, spawns a managed tunnel process so the webhook is reachable
	// without manually configuring port forwarding.
	AutoTunnel bool `json:"auto_tunnel"`

	// CheckinInactivityMinutes bounds how long a check-in flow may sit idle before it expires.
	CheckinInactivityMinutes int `json:"checkin_inactivity_minutes"`
	// AIMaxResponseLength caps the AI-enhanced reply length (chars) before smart truncation.
	AIMaxResponseLength int `json:"ai_max_response_length"`
	// MinCommandConfidence is the confidence floor below which the interaction manager falls
	// back to the AI chatbot instead of dispatching a structured command.
	MinCommandConfidence float64 `json:"min_command_confidence"`

	// DataRoot holds persisted JSON state (conversation_states.json and friends).
	DataRoot string `json:"-"`
	// ResourcesDir holds the default check-in catalog (questions.json/responses.json).
	ResourcesDir string `json:"-"`
}

// DefaultConfigDir returns the default config directory (project-local .hattiebot if present, else ~/.config/hattiebot).
func DefaultConfigDir() string {
	cwd, _ := os.Getwd()
	local := filepath.Join(cwd, ".hattiebot")
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "hattiebot")
}

// New builds config from env and optional config dir. ConfigDir can be empty to use default.
// In Docker, set HATTIEBOT_CONFIG_DIR=/data (or your mount) so DB and system_purpose.txt persist.
func New(configDir string) *Config {
	if configDir == "" {
		if d := os.Getenv("HATTIEBOT_CONFIG_DIR"); d != "" {
			configDir = d
		} else {
			configDir = DefaultConfigDir()
		}
	}
	dbPath := filepath.Join(configDir, "hattiebot.db")
	cwd, _ := os.Getwd()
	defaultCh := os.Getenv("HATTIEBOT_DEFAULT_CHANNEL")
	webhookPort := 0
	if v := os.Getenv("HATTIEBOT_WEBHOOK_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			webhookPort = n
		}
	}
	checkinInactivityMinutes := 30
	if v := os.Getenv("HATTIEBOT_CHECKIN_INACTIVITY_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			checkinInactivityMinutes = n
		}
	}
	aiMaxResponseLength := 600
	if v := os.Getenv("HATTIEBOT_AI_MAX_RESPONSE_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			aiMaxResponseLength = n
		}
	}
	minCommandConfidence := 0.3
	if v := os.Getenv("HATTIEBOT_MIN_COMMAND_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			minCommandConfidence = f
		}
	}
	cfg := &Config{
		OpenRouterAPIKey:        os.Getenv("OPENROUTER_API_KEY"),
		Model:                  os.Getenv("HATTIEBOT_MODEL"), // can be overridden by config file
		EnvModel:               os.Getenv("HATTIEBOT_MODEL"),
		ConfigDir:              configDir,
		DBPath:                 dbPath,
		DocsDir:                filepath.Join(cwd, "docs"),
		NextcloudURL:              os.Getenv("NEXTCLOUD_URL"),
		HattieBridgeWebhookSecret: os.Getenv("HATTIEBOT_WEBHOOK_SECRET"),
		NextcloudBotUser:          os.Getenv("NEXTCLOUD_BOT_USER"),
		NextcloudBotAppPassword: os.Getenv("NEXTCLOUD_BOT_APP_PASSWORD"),
		DefaultChannel:         defaultCh,
		AdminUserID:            os.Getenv("NEXTCLOUD_ADMIN_USER"),

		DiscordToken: os.Getenv("DISCORD_TOKEN"),
		DiscordAppID: os.Getenv("DISCORD_APP_ID"),

		WebhookPort: webhookPort,
		AutoTunnel:  os.Getenv("HATTIEBOT_AUTO_TUNNEL") == "true",

		CheckinInactivityMinutes: checkinInactivityMinutes,
		AIMaxResponseLength:      aiMaxResponseLength,
		MinCommandConfidence:     minCommandConfidence,

		DataRoot:     filepath.Join(configDir, "data"),
		ResourcesDir: filepath.Join(cwd, "resources"),
	}

	// Priority: Env < Config File.
	// We load config file (if exists) and OVERWRITE env vars.
	configPath := filepath.Join(configDir, "config.json")
	if data, err := os.ReadFile(configPath); err == nil {
		// Use a temporary map to check presence, or unmarshal into struct directly.
		// Unmarshal into struct works well: keys present in JSON will overwrite fields in struct.
		// Keys missing in JSON will simply leave struct fields untouched (keeping CLI/Env value).
		// Note: This relies on JSON having non-zero values. If JSON has "model": "", it wipes Env model.
		// Usually acceptable for config file.
		_ = json.Unmarshal(data, cfg)
	}

	return cfg
}
