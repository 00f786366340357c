// Package discord implements the channel adapter (C6): connection lifecycle, health probes,
// the thread<->core queue bridge, and outbound rendering, backed by discordgo.
package discord

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/hattiebot/hattiebot/internal/gateway"
	"github.com/hattiebot/hattiebot/internal/health"
	"github.com/hattiebot/hattiebot/internal/identity"
	"github.com/hattiebot/hattiebot/internal/interaction"
	"github.com/hattiebot/hattiebot/internal/reply"
	"github.com/hattiebot/hattiebot/internal/store"
)

const (
	startupBudget      = 60 * time.Second
	defaultSendTimeout = 10 * time.Second
	tickInterval       = 100 * time.Millisecond
	maxReconnectTries  = 10
	reconnectCooldown  = 60 * time.Second
)

// Config bundles the adapter's connection settings.
type Config struct {
	Token       string
	AppID       string
	GuildID     string // optional: restrict slash command registration to one guild while testing
	SendTimeout time.Duration
}

// Channel is the Discord channel adapter implementing gateway.Channel.
type Channel struct {
	cfg Config

	DB         *store.DB
	Identity   *identity.Bridge
	Interaction *interaction.Manager

	session *discordgo.Session
	status  *Status
	health  *HealthChecker
	bridge  *bridge

	tunnelProc *os.Process // set by the caller if an external tunnel was spawned; killed on shutdown

	readyOnce sync.Once
	ready     chan struct{}
}

// New builds a Channel. The session is not opened until Start is called.
func New(cfg Config, db *store.DB, idBridge *identity.Bridge, mgr *interaction.Manager) *Channel {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	status := NewStatus()
	return &Channel{
		cfg:        cfg,
		DB:         db,
		Identity:   idBridge,
		Interaction: mgr,
		status:     status,
		health:     NewHealthChecker(status, "discord.com", 30*time.Second),
		bridge:     newBridge(64),
		ready:      make(chan struct{}),
	}
}

// Name identifies this channel to the gateway.
func (c *Channel) Name() string { return "discord" }

// Status exposes the connection state machine for health reporting (internal/health.Registry).
func (c *Channel) Status() *Status { return c.status }

// HealthCheck implements health.HealthChecker so the adapter can be registered with the
// process-wide health registry alongside the store and scheduler.
func (c *Channel) HealthCheck() health.ComponentHealth {
	ch := health.ComponentHealth{Name: "discord"}
	switch c.status.State() {
	case StateConnected:
		ch.Status = "ok"
		ch.LastOK = time.Now()
	case StateStopped, StateUninitialized:
		ch.Status = "degraded"
		ch.Message = string(c.status.State())
	default:
		ch.Status = "error"
		ch.Message = string(c.status.State())
		ch.LastError = time.Now()
	}
	return ch
}

// SetTunnelProcess records an externally managed tunnel process to be killed on shutdown.
func (c *Channel) SetTunnelProcess(p *os.Process) { c.tunnelProc = p }

// Start opens the Discord session, registers handlers, waits for readiness within the startup
// budget, then runs the worker loop until ctx is canceled.
func (c *Channel) Start(ctx context.Context, ingress chan<- gateway.Message) error {
	c.status.Transition(StateInitializing)

	if strings.TrimSpace(c.cfg.Token) == "" {
		c.status.RecordError(StateAuthFailure, ErrorInfo{Kind: "auth", Detail: "missing bot token"})
		return fmt.Errorf("discord: missing bot token")
	}

	session, err := discordgo.New("Bot " + c.cfg.Token)
	if err != nil {
		c.status.RecordError(StateAuthFailure, ErrorInfo{Kind: "auth", Detail: err.Error()})
		return fmt.Errorf("discord: creating session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	c.session = session

	session.AddHandler(c.onReady)
	session.AddHandler(c.onMessageCreate)
	session.AddHandler(c.onInteractionCreate)
	c.status.SetEventsRegistered(true)

	if err := session.Open(); err != nil {
		if !c.health.Check(ctx) {
			if !c.probeDNSOnly(ctx) {
				c.status.RecordError(StateDNSFailure, ErrorInfo{Kind: "dns", Detail: err.Error()})
			} else {
				c.status.RecordError(StateNetworkFailure, ErrorInfo{Kind: "network", Detail: err.Error()})
			}
		} else {
			c.status.RecordError(StateAuthFailure, ErrorInfo{Kind: "auth", Detail: err.Error()})
		}
		return fmt.Errorf("discord: opening session: %w", err)
	}
	c.status.SetCommandsRegistered(true)

	select {
	case <-c.ready:
	case <-time.After(startupBudget):
		c.status.RecordError(StateGatewayError, ErrorInfo{Kind: "gateway", Detail: "ready event not seen within startup budget"})
	case <-ctx.Done():
		c.shutdown()
		return nil
	}

	c.runWorker(ctx)
	c.shutdown()
	return nil
}

func (c *Channel) probeDNSOnly(ctx context.Context) bool {
	return c.health.probeDNS(ctx)
}

func (c *Channel) onReady(s *discordgo.Session, r *discordgo.Ready) {
	c.status.MarkReady()
	c.readyOnce.Do(func() { close(c.ready) })
	log.Printf("discord: ready as %s", r.User.String())
}

// runWorker interleaves draining the command queue and yielding to the provider, per spec
// §4.6.1: each tick drains everything pending (non-blocking), then sleeps ~100ms.
func (c *Channel) runWorker(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		for _, cmd := range c.bridge.drain() {
			if cmd.kind == cmdStop {
				return
			}
			ok := c.deliver(ctx, cmd.recipient, cmd.resp)
			select {
			case cmd.result <- ok:
			default:
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.health.Check(ctx)
			c.maybeReconnect(ctx)
		}
	}
}

func (c *Channel) maybeReconnect(ctx context.Context) {
	if c.status.State() != StateDisconnected {
		return
	}
	fresh := c.health.Check(ctx)
	if !c.status.ShouldAttemptReconnection(maxReconnectTries, reconnectCooldown, fresh) {
		return
	}
	c.status.RecordReconnectAttempt()
	log.Printf("discord: attempting manual reconnect (attempt recorded)")
}

// deliver resolves recipient and sends the rendered response. Resolution failure (unknown
// user/channel marker) returns false without panicking.
func (c *Channel) deliver(ctx context.Context, recipient string, resp reply.InteractionResponse) bool {
	channelID, ok := c.resolveRecipient(ctx, recipient)
	if !ok {
		return false
	}
	_, err := c.session.ChannelMessageSendComplex(channelID, renderOutbound(resp))
	return err == nil
}

// resolveRecipient handles the three recipient forms from spec §4.6.4: a bare channel id, a
// "user:<internal_id>" marker resolved through the store, and a "direct:<external_id>" marker
// used before an account is linked (opens/reuses a DM channel).
func (c *Channel) resolveRecipient(ctx context.Context, recipient string) (string, bool) {
	switch {
	case strings.HasPrefix(recipient, "user:"):
		internalID := strings.TrimPrefix(recipient, "user:")
		externalID, err := c.DB.ExternalIDFor(ctx, "discord", internalID)
		if err != nil || externalID == "" {
			return "", false
		}
		return c.dmChannelFor(externalID)
	case strings.HasPrefix(recipient, "direct:"):
		return c.dmChannelFor(strings.TrimPrefix(recipient, "direct:"))
	default:
		return recipient, recipient != ""
	}
}

func (c *Channel) dmChannelFor(externalUserID string) (string, bool) {
	ch, err := c.session.UserChannelCreate(externalUserID)
	if err != nil || ch == nil {
		return "", false
	}
	return ch.ID, true
}

// Send implements gateway.Channel: it is used for replies routed through the generic gateway
// path (as opposed to the direct interaction-manager path used for ordinary conversation).
func (c *Channel) Send(msg gateway.Message) error {
	recipient := msg.ThreadID
	if recipient == "" {
		recipient = msg.SenderID
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SendTimeout)
	defer cancel()
	if !c.bridge.enqueueSend(ctx, recipient, reply.Done(msg.Content), c.cfg.SendTimeout) {
		return fmt.Errorf("discord: send to %s timed out or failed", recipient)
	}
	return nil
}

// SendProactive implements gateway.Channel for scheduler-originated messages (e.g. reminders).
func (c *Channel) SendProactive(userID, content string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SendTimeout)
	defer cancel()
	if !c.bridge.enqueueSend(ctx, "user:"+userID, reply.Done(content), c.cfg.SendTimeout) {
		return fmt.Errorf("discord: proactive send to %s timed out or failed", userID)
	}
	return nil
}

// shutdown kills the managed tunnel process, enqueues Stop for the worker, waits a fixed 50ms
// for the worker to notice it, closes the discordgo session, and sets the status to STOPPED.
// It does not join the worker goroutine, cancel pending tasks, or stop a webhook server. Each
// step tolerates partial initialization (nil tunnel or session).
func (c *Channel) shutdown() {
	if c.tunnelProc != nil {
		_ = c.tunnelProc.Kill()
	}
	c.bridge.enqueueStop()

	done := make(chan struct{})
	go func() {
		// The worker loop observes cmdStop via drain(); this goroutine just bounds how long we
		// wait for it to have had a chance to notice before we move on regardless.
		time.Sleep(50 * time.Millisecond)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
	}

	if c.session != nil {
		grace, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = grace
		cancel()
		_ = c.session.Close()
	}

	c.status.Transition(StateStopped)
}
