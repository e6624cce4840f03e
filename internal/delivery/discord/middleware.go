package discord

import (
	"github.com/bwmarrin/discordgo"
)

func (b *Bot) isAdmin(userID string) bool {
	_, ok := b.adminIDs[userID]
	return ok
}

// callerID works for guild interactions and DMs alike.
func callerID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func (b *Bot) respondMessage(s *discordgo.Session, i *discordgo.Interaction, msg string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: truncate(msg),
			Flags:   flags,
		},
	}); err != nil {
		b.logger.Error("failed to respond to interaction: %v", err)
	}
}

func (b *Bot) respondEmbed(s *discordgo.Session, i *discordgo.Interaction, embed *discordgo.MessageEmbed) {
	if err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	}); err != nil {
		b.logger.Error("failed to respond to interaction: %v", err)
	}
}

// respondError replies privately with a readable message for err.
func (b *Bot) respondError(s *discordgo.Session, i *discordgo.Interaction, err error) {
	msg, known := errorMessage(err)
	if !known {
		b.logger.Error("interaction %s failed: %v", routeKey(i.ApplicationCommandData()), err)
	}
	b.respondMessage(s, i, msg, true)
}

func (b *Bot) deferResponse(s *discordgo.Session, i *discordgo.Interaction) {
	if err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		b.logger.Error("failed to defer interaction: %v", err)
	}
}

func (b *Bot) editResponse(s *discordgo.Session, i *discordgo.Interaction, msg string, files ...*discordgo.File) {
	if _, err := s.InteractionResponseEdit(i, &discordgo.WebhookEdit{
		Content: &msg,
		Files:   files,
	}); err != nil {
		b.logger.Error("failed to edit interaction response: %v", err)
	}
}

func (b *Bot) ensureAdmin(s *discordgo.Session, i *discordgo.Interaction, handler func(*discordgo.Session, *discordgo.Interaction)) {
	if !b.isAdmin(callerID(i)) {
		b.respondMessage(s, i, "У вас нет прав.", true)
		return
	}
	handler(s, i)
}
