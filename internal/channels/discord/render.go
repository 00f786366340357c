package discord

import (
	"fmt"
	"hash/fnv"

	"github.com/bwmarrin/discordgo"
	"github.com/hattiebot/hattiebot/internal/reply"
)

// embedColors maps a RichPayload's Type to a Discord embed color, per spec §4.6.4.
var embedColors = map[string]int{
	"success":   0x2ecc71,
	"error":     0xe74c3c,
	"warning":   0xf1c40f,
	"info":      0x3498db,
	"task":      0x9b59b6,
	"profile":   0xe67e22,
	"schedule":  0x3498db,
	"analytics": 0x2ecc71,
}

const defaultEmbedColor = 0x3498db

// buildEmbed renders a RichPayload as a discordgo embed.
func buildEmbed(rd *reply.RichPayload) *discordgo.MessageEmbed {
	if rd == nil {
		return nil
	}
	color, ok := embedColors[rd.Type]
	if !ok {
		color = defaultEmbedColor
	}
	embed := &discordgo.MessageEmbed{
		Title:       rd.Title,
		Description: rd.Description,
		Color:       color,
	}
	for _, f := range rd.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: f.Name, Value: f.Value, Inline: f.Inline,
		})
	}
	if rd.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: rd.Footer}
	}
	if rd.Timestamp != nil {
		embed.Timestamp = rd.Timestamp.Format("2006-01-02T15:04:05Z07:00")
	}
	return embed
}

// suggestionCustomID builds the stable custom id "suggestion_<i>_<hash(text)%10000>".
func suggestionCustomID(i int, text string) string {
	h := fnv.New32a()
	h.Write([]byte(text))
	return fmt.Sprintf("suggestion_%d_%d", i, h.Sum32()%10000)
}

// buildActionRow renders up to 5 suggestions as a single action row of buttons, each with an
// 80-char-truncated label and a stable custom id.
func buildActionRow(suggestions []string) *discordgo.ActionsRow {
	if len(suggestions) == 0 {
		return nil
	}
	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}
	row := &discordgo.ActionsRow{}
	for i, s := range suggestions {
		label := s
		if len(label) > 80 {
			label = label[:80]
		}
		row.Components = append(row.Components, discordgo.Button{
			Label:    label,
			Style:    discordgo.SecondaryButton,
			CustomID: suggestionCustomID(i, s),
		})
	}
	return row
}

// renderOutbound turns an InteractionResponse into the discordgo send parameters.
func renderOutbound(resp reply.InteractionResponse) *discordgo.MessageSend {
	send := &discordgo.MessageSend{Content: resp.Message}
	if embed := buildEmbed(resp.RichData); embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{embed}
	}
	if row := buildActionRow(resp.Suggestions); row != nil {
		send.Components = []discordgo.MessageComponent{row}
	}
	return send
}
