package discord

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/hattiebot/hattiebot/internal/commands"
	"github.com/hattiebot/hattiebot/internal/reply"
)

const channelKind = "discord"

// onMessageCreate implements the C7 welcome bridge plus, for already-linked users, the normal
// message pipeline (C2-C5 via the interaction manager).
func (c *Channel) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}
	if strings.TrimSpace(m.Content) == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	isDM := m.GuildID == ""
	userID, found, err := c.Identity.Resolve(ctx, channelKind, m.Author.ID)
	if err != nil {
		log.Printf("discord: resolving identity for %s: %v", m.Author.ID, err)
		return
	}
	if !found {
		c.welcomeInbound(ctx, m.Author.ID, m.ChannelID, isDM, false)
		return
	}

	resp := c.Interaction.Handle(ctx, userID, m.Content, channelKind)
	if _, err := s.ChannelMessageSendComplex(m.ChannelID, renderOutbound(resp)); err != nil {
		log.Printf("discord: sending reply to %s: %v", m.ChannelID, err)
	}
}

// welcomeInbound sends the one-time welcome message: DM first, falling back to the channel the
// message arrived on, per spec §4.7.
func (c *Channel) welcomeInbound(ctx context.Context, externalID, fallbackChannelID string, isDM, explicitStart bool) {
	sendDM := func(text string) error {
		dmChannelID, ok := c.dmChannelFor(externalID)
		if !ok {
			return errDMUnavailable
		}
		_, err := c.session.ChannelMessageSend(dmChannelID, text)
		return err
	}
	sendChannel := func(text string) error {
		_, err := c.session.ChannelMessageSend(fallbackChannelID, text)
		return err
	}
	if _, err := c.Identity.WelcomeAndLink(ctx, channelKind, externalID, isDM, explicitStart, sendDM, sendChannel); err != nil {
		log.Printf("discord: welcoming %s: %v", externalID, err)
	}
}

var errDMUnavailable = &dmUnavailableError{}

type dmUnavailableError struct{}

func (e *dmUnavailableError) Error() string { return "could not open DM channel" }

// onInteractionCreate handles both message-component (button) interactions and application
// (slash) command invocations, per spec §4.6.5.
func (c *Channel) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		c.handleComponentInteraction(s, i)
	case discordgo.InteractionApplicationCommand:
		c.handleSlashCommand(s, i)
	}
}

func (c *Channel) handleComponentInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch {
	case strings.HasPrefix(customID, "welcome_create_"):
		externalID := interactionAuthorID(i)
		c.welcomeInbound(ctx, externalID, i.ChannelID, i.GuildID == "", true)
		ackInteraction(s, i, "You're all set up!")
	case strings.HasPrefix(customID, "welcome_link_"):
		ackInteraction(s, i, "Account linking from an existing session isn't available yet.")
	case strings.HasPrefix(customID, "checkin_"), strings.HasPrefix(customID, "task_"):
		// Owned by the view attached to the originating message; the adapter just passes
		// the interaction through rather than interpreting it itself.
		ackInteraction(s, i, "")
	default:
		ackInteraction(s, i, "")
	}
}

func (c *Channel) handleSlashCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	externalID := interactionAuthorID(i)
	name := i.ApplicationCommandData().Name

	userID, found, err := c.Identity.Resolve(ctx, channelKind, externalID)
	if err != nil {
		respondText(s, i, "Something went wrong looking up your account.")
		return
	}
	if !found {
		isDM := i.GuildID == ""
		if name == "start" {
			c.welcomeInbound(ctx, externalID, i.ChannelID, isDM, true)
			respondText(s, i, "Welcome! Check your DMs.")
			return
		}
		c.welcomeInbound(ctx, externalID, i.ChannelID, isDM, false)
		userID, found, err = c.Identity.Resolve(ctx, channelKind, externalID)
		if err != nil || !found {
			respondText(s, i, "Something went wrong setting up your account.")
			return
		}
	}

	cd := commands.LookupCommand(name)
	message := name
	if cd != nil {
		message = cd.MappedMessage
	}
	resp := c.Interaction.Handle(ctx, userID, message, channelKind)
	respondRich(s, i, resp)
}

func interactionAuthorID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func ackInteraction(s *discordgo.Session, i *discordgo.InteractionCreate, text string) {
	resp := &discordgo.InteractionResponseData{}
	if text != "" {
		resp.Content = text
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: resp,
	})
}

func respondText(s *discordgo.Session, i *discordgo.InteractionCreate, text string) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: text},
	})
}

func respondRich(s *discordgo.Session, i *discordgo.InteractionCreate, resp reply.InteractionResponse) {
	send := renderOutbound(resp)
	data := &discordgo.InteractionResponseData{
		Content:    send.Content,
		Embeds:     send.Embeds,
		Components: send.Components,
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}
