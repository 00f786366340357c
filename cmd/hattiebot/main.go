// HattieBot is a personal-assistant message bot: it reaches users over Discord (and,
// optionally, Nextcloud Talk and an admin terminal as peer channels), classifies inbound text
// into structured intents, routes it into either a multi-turn flow (daily wellness check-in)
// or a single-turn handler (tasks, profile, schedule, analytics), and replies with rich
// structured content where the channel supports it.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hattiebot/hattiebot/internal/bootstrap"
	"github.com/hattiebot/hattiebot/internal/channels/admin_term"
	"github.com/hattiebot/hattiebot/internal/channels/custom_webhook"
	discordchannel "github.com/hattiebot/hattiebot/internal/channels/discord"
	"github.com/hattiebot/hattiebot/internal/channels/nextcloudtalk"
	"github.com/hattiebot/hattiebot/internal/channels/webhook"
	"github.com/hattiebot/hattiebot/internal/channels/zulip"
	"github.com/hattiebot/hattiebot/internal/checkin"
	"github.com/hattiebot/hattiebot/internal/commands"
	"github.com/hattiebot/hattiebot/internal/config"
	"github.com/hattiebot/hattiebot/internal/flow"
	"github.com/hattiebot/hattiebot/internal/gateway"
	"github.com/hattiebot/hattiebot/internal/handlers"
	"github.com/hattiebot/hattiebot/internal/health"
	"github.com/hattiebot/hattiebot/internal/identity"
	"github.com/hattiebot/hattiebot/internal/interaction"
	"github.com/hattiebot/hattiebot/internal/openrouter"
	"github.com/hattiebot/hattiebot/internal/reply"
	"github.com/hattiebot/hattiebot/internal/scheduler"
	"github.com/hattiebot/hattiebot/internal/store"
	"github.com/hattiebot/hattiebot/internal/webhookserver"
)

func main() {
	cfg := config.New("")
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if err := loadOrSeedConfigFile(cfg); err != nil {
		return err
	}
	if cfg.OpenRouterAPIKey == "" {
		return fmt.Errorf("OpenRouter API key not set: add to config or set OPENROUTER_API_KEY")
	}
	if cfg.Model == "" {
		return fmt.Errorf("model not set: add to config or set HATTIEBOT_MODEL")
	}

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if err := bootstrap.LoadContextDocs(ctx, db, filepath.Join(cfg.DocsDir, "context")); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load context docs: %v\n", err)
	}

	aiClient := openrouter.NewClient(cfg.OpenRouterAPIKey, cfg.Model)

	questionsPath := filepath.Join(cfg.ResourcesDir, "default_checkin", "questions.json")
	responsesPath := filepath.Join(cfg.ResourcesDir, "default_checkin", "responses.json")
	catalog, err := checkin.LoadCatalog(questionsPath, responsesPath)
	if err != nil {
		return fmt.Errorf("load check-in catalog: %w", err)
	}
	engine := checkin.NewEngine(catalog, rand.New(rand.NewSource(time.Now().UnixNano())))

	if err := os.MkdirAll(cfg.DataRoot, 0o755); err != nil {
		return fmt.Errorf("create data root: %w", err)
	}
	flowStore := flow.NewStore(filepath.Join(cfg.DataRoot, "conversation_states.json"))
	if err := flowStore.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: flow state file unreadable, starting empty: %v\n", err)
	}
	flowManager := flow.NewManager(flowStore, catalog, engine, db, flow.Config{
		InactivityTimeout: time.Duration(cfg.CheckinInactivityMinutes) * time.Minute,
	})
	flowManager.RegisterStarter("start_checkin", flowManager.StartCheckinForUser)
	flowManager.RegisterStarter("restart_checkin", flowManager.RestartCheckinForUser)
	flowManager.RegisterStarter("clear_stuck_flows", flowManager.ClearStuckFlowsForUser)

	parser := commands.New()
	taskHandler := handlers.NewTaskHandler(db)
	taskHandler.Flow = flowManager
	profileHandler := handlers.NewProfileHandler(db)
	scheduleHandler := handlers.NewScheduleHandler(db)
	analyticsHandler := handlers.NewAnalyticsHandler(db)
	checkinInfoHandler := handlers.NewCheckinInfoHandler(db)
	helpHandler := handlers.NewHelpHandler(taskHandler, profileHandler, scheduleHandler, analyticsHandler, checkinInfoHandler)
	dispatcher := handlers.NewDispatcher(taskHandler, profileHandler, scheduleHandler, analyticsHandler, checkinInfoHandler, helpHandler)

	interactionMgr := interaction.New(dispatcher, parser, flowManager, aiClient, interaction.Config{
		MinCommandConfidence: cfg.MinCommandConfidence,
		AIFallbackEnabled:    true,
		AIEnhanceEnabled:     true,
		AIMaxResponseLength:  cfg.AIMaxResponseLength,
	})
	interactionMgr.UserContext = func(ctx context.Context, userID string) commands.UserContext {
		active, _ := db.ListTasks(ctx, userID, "active")
		return commands.UserContext{
			HasActiveTasks:  len(active) > 0,
			CheckinsEnabled: flowManager.CheckinsEnabled(ctx, userID),
		}
	}

	idBridge := identity.New(db)

	healthRegistry := health.NewRegistry()

	var discordCh *discordchannel.Channel
	if cfg.DiscordToken != "" {
		discordCh = discordchannel.New(discordchannel.Config{
			Token: cfg.DiscordToken,
			AppID: cfg.DiscordAppID,
		}, db, idBridge, interactionMgr)
		healthRegistry.Register("discord", discordCh)
	} else {
		fmt.Fprintln(os.Stderr, "warning: DISCORD_TOKEN not set, Discord channel disabled")
	}

	// The generic gateway handler backs peer channels (admin terminal, Nextcloud Talk) that
	// only understand plain text; it flattens rich_data/suggestions into the message body since
	// those channels have no native embed/button rendering.
	gw := gateway.New(func(ctx context.Context, msg gateway.Message) (string, error) {
		resp := interactionMgr.Handle(ctx, msg.SenderID, msg.Content, msg.Channel)
		return flattenForPlainTextChannel(resp), nil
	})

	if discordCh != nil {
		gw.Register(discordCh)
	}
	gw.Register(adminterm.New())

	if siteURL, email, apiKey := os.Getenv("ZULIP_SITE_URL"), os.Getenv("ZULIP_EMAIL"), os.Getenv("ZULIP_API_KEY"); siteURL != "" && email != "" && apiKey != "" {
		gw.Register(zulip.New(zulip.Config{SiteURL: siteURL, Email: email, APIKey: apiKey}))
	}
	if url := os.Getenv("HATTIEBOT_OUTBOUND_WEBHOOK_URL"); url != "" {
		gw.Register(webhook.New(url))
	}

	if cfg.NextcloudURL != "" && cfg.HattieBridgeWebhookSecret != "" {
		gw.Register(nextcloudtalk.New(nextcloudtalk.Config{
			BaseURL: cfg.NextcloudURL,
			Secret:  cfg.HattieBridgeWebhookSecret,
		}))
		httpPort := cfg.WebhookPort
		if httpPort == 0 {
			httpPort = 8080
		}
		webhookSrv := &webhookserver.Server{
			Addr:               fmt.Sprintf(":%d", httpPort),
			HattieBridgeSecret: cfg.HattieBridgeWebhookSecret,
			PushIngress:        gw.PushIngress,
			ConfigDir:          cfg.ConfigDir,
		}
		defaultCh := webhookserver.NextcloudTalkChannel
		if cfg.DefaultChannel != "" {
			defaultCh = cfg.DefaultChannel
		}
		adminID := cfg.AdminUserID
		if adminID == "" {
			adminID = "admin"
		}
		gw.Register(custom_webhook.New(gw, defaultCh, adminID))
		go func() {
			if err := webhookSrv.Run(); err != nil {
				fmt.Fprintf(os.Stderr, "webhook server: %v\n", err)
			}
		}()
	}

	router := gateway.NewRouter(gw, db)
	if cfg.DefaultChannel != "" {
		router.DefaultChannel = cfg.DefaultChannel
	}

	schedRunner := scheduler.NewRunner(db)
	schedRunner.Router = router
	schedRunner.Start()
	defer schedRunner.Stop()

	escalationMonitor := &scheduler.EscalationMonitor{DB: db, Router: router}
	escalationMonitor.Start(ctx, 5*time.Minute)

	fmt.Println("HattieBot gateway starting...")
	return gw.StartAll(ctx)
}

// flattenForPlainTextChannel renders an InteractionResponse for channels with no native rich
// rendering: the message body, followed by any rich fields and suggestions as plain lines.
func flattenForPlainTextChannel(resp reply.InteractionResponse) string {
	var b strings.Builder
	b.WriteString(resp.Message)
	if resp.RichData != nil {
		for _, f := range resp.RichData.Fields {
			fmt.Fprintf(&b, "\n%s: %s", f.Name, f.Value)
		}
	}
	if len(resp.Suggestions) > 0 {
		b.WriteString("\n\nYou could also try: " + strings.Join(resp.Suggestions, " | "))
	}
	return b.String()
}

// loadOrSeedConfigFile mirrors the teacher's first-boot/compose-mode onboarding: load an
// existing config.json, or seed one from Compose-style env vars; if neither yields a config,
// it returns an error (there is no interactive first-boot flow).
func loadOrSeedConfigFile(cfg *config.Config) error {
	cf, _ := store.LoadConfigFile(cfg.ConfigDir)
	if cf == nil && os.Getenv("HATTIEBOT_COMPOSE_MODE") == "1" {
		if err := seedComposeConfig(cfg); err != nil {
			return err
		}
		cf, _ = store.LoadConfigFile(cfg.ConfigDir)
	}
	if cf == nil {
		return fmt.Errorf("no config at %s: set HATTIEBOT_COMPOSE_MODE=1 with the required env vars, or run first-boot setup", cfg.ConfigDir)
	}

	cfg.OpenRouterAPIKey = cf.OpenRouterAPIKey
	cfg.Model = cf.Model
	cfg.AgentName = cf.AgentName
	cfg.AdminUserID = cf.AdminUserID
	cfg.NextcloudURL = cf.NextcloudURL
	cfg.HattieBridgeWebhookSecret = cf.HattieBridgeWebhookSecret
	if cf.DefaultChannel != "" {
		cfg.DefaultChannel = cf.DefaultChannel
	}

	if cfg.OpenRouterAPIKey == "" {
		cfg.OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = os.Getenv("HATTIEBOT_MODEL")
	}
	if v := os.Getenv("HATTIEBOT_WEBHOOK_SECRET"); v != "" {
		cfg.HattieBridgeWebhookSecret = v
	}
	return nil
}

func seedComposeConfig(cfg *config.Config) error {
	apiKey := os.Getenv("OPENROUTER_API_KEY")
	model := os.Getenv("HATTIEBOT_MODEL")
	name := os.Getenv("HATTIEBOT_BOT_NAME")
	adminID := os.Getenv("HATTIEBOT_ADMIN_USER_ID")
	if adminID == "" {
		adminID = os.Getenv("NEXTCLOUD_ADMIN_USER")
	}
	if apiKey == "" || model == "" || name == "" {
		return fmt.Errorf("compose mode requires OPENROUTER_API_KEY, HATTIEBOT_MODEL, HATTIEBOT_BOT_NAME")
	}
	seed := &store.ConfigFile{
		OpenRouterAPIKey: apiKey,
		Model:            model,
		AgentName:        name,
		AdminUserID:      adminID,
	}
	if nextcloudURL := os.Getenv("NEXTCLOUD_URL"); nextcloudURL != "" {
		seed.NextcloudURL = nextcloudURL
		seed.HattieBridgeWebhookSecret = os.Getenv("HATTIEBOT_WEBHOOK_SECRET")
	}
	return store.SaveConfigFile(cfg.ConfigDir, seed)
}
