package discord

import (
	"context"
	"fmt"
	"strings"

	"clubbot/internal/application"
	"clubbot/pkg/config"

	"github.com/bwmarrin/discordgo"
)

type route struct {
	handler func(s *discordgo.Session, i *discordgo.Interaction)
	admin   bool
}

type Bot struct {
	session  *discordgo.Session
	services *application.Service
	logger   application.Logger

	adminIDs         map[string]struct{}
	allowedChannelID string
	guildID          string
	routes           map[string]route
}

func NewBot(cfg *config.Config, services *application.Service, logger application.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	b := newBot(services, logger, cfg.AdminUserIDs)
	b.session = s
	b.allowedChannelID = cfg.AllowedChannelID
	b.guildID = cfg.GuildID
	return b, nil
}

func newBot(services *application.Service, logger application.Logger, adminIDs []string) *Bot {
	admins := make(map[string]struct{})
	for _, id := range adminIDs {
		cleanID := strings.TrimSpace(id)
		if cleanID != "" {
			admins[cleanID] = struct{}{}
		}
	}

	b := &Bot{
		services: services,
		logger:   logger,
		adminIDs: admins,
	}
	b.routes = b.buildRoutes()
	return b
}

func (b *Bot) buildRoutes() map[string]route {
	return map[string]route{
		"tournament create":  {b.handleTournamentCreate, true},
		"tournament list":    {b.handleTournamentList, false},
		"tournament info":    {b.handleTournamentInfo, false},
		"tournament join":    {b.handleTournamentJoin, false},
		"tournament leave":   {b.handleTournamentLeave, false},
		"tournament confirm": {b.handleTournamentConfirm, false},
		"tournament add":     {b.handleTournamentAdd, true},
		"tournament kick":    {b.handleTournamentKick, true},
		"tournament start":   {b.handleTournamentStart, true},
		"tournament pairs":   {b.handleTournamentPairs, false},
		"tournament result":  {b.handleTournamentResult, true},
		"tournament advance": {b.handleTournamentAdvance, true},
		"tournament finish":  {b.handleTournamentFinish, true},
		"tournament delete":  {b.handleTournamentDelete, true},
		"tournament export":  {b.handleTournamentExport, true},

		"bet place":  {b.handleBetPlace, false},
		"bet modify": {b.handleBetModify, false},
		"bet cancel": {b.handleBetCancel, false},
		"bet list":   {b.handleBetList, false},
		"bet bank":   {b.handleBetBank, false},
		"bet payout": {b.handleBetPayout, true},
		"bet refund": {b.handleBetRefund, true},

		cmdBalance:     {b.handleBalance, false},
		cmdHistory:     {b.handleHistory, false},
		cmdTickets:     {b.handleTickets, false},
		cmdLeaderboard: {b.handleLeaderboard, false},
		cmdBank:        {b.handleBank, false},
		cmdAdjust:      {b.handleAdjust, true},
		cmdUndo:        {b.handleUndo, true},
		cmdBankAdd:     {b.handleBankAdd, true},
		cmdExport:      {b.handleExportBalances, true},
		cmdSyncSheet:   {b.handleSyncSheet, true},
	}
}

func (b *Bot) Init() error {
	b.session.AddHandler(b.onInteraction)
	return nil
}

// Run opens the gateway, registers the slash commands and blocks until ctx
// is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	b.logger.Info("Discord Bot Started. Registering slash commands...")

	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.guildID, b.commands())
	if err != nil {
		b.logger.Error("Failed to register commands: %v", err)
	} else {
		b.logger.Info("Slash commands registered successfully")
	}

	<-ctx.Done()
	return nil
}

func (b *Bot) Stop() {
	if err := b.session.Close(); err != nil {
		b.logger.Warn("discord session close: %v", err)
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	if b.allowedChannelID != "" && i.ChannelID != b.allowedChannelID {
		b.respondMessage(s, i.Interaction, "Бот работает только в отведённом канале.", true)
		return
	}

	key := routeKey(i.ApplicationCommandData())
	r, ok := b.routes[key]
	if !ok {
		b.logger.Warn("unknown command %q", key)
		b.respondMessage(s, i.Interaction, "Неизвестная команда.", true)
		return
	}

	if r.admin {
		b.ensureAdmin(s, i.Interaction, r.handler)
		return
	}
	r.handler(s, i.Interaction)
}
