// Package discord is the transport edge: it owns the gateway session, turns
// Discord events into lifecycle requests, and implements the chat surfaces
// the core notifies on. No other package imports the Discord SDK.
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/fmueller/voxbot/internal/bot"
	"github.com/fmueller/voxbot/internal/chat"
	"github.com/fmueller/voxbot/internal/notify"
	"go.uber.org/zap"
)

// Context-menu entries registered on the command tree. The names are part of
// the deployed UX and must stay stable across releases.
const (
	commandTranscribePublic  = "Transcribe Memo (public)"
	commandTranscribePrivate = "Transcribe Memo (private)"
	commandTranscode         = "Convert Memo To Mp3"
)

// syncCommand is the owner-only text command that re-registers the
// context-menu entries without restarting the bot.
const syncCommand = "!synctree"

var commandTree = []*discordgo.ApplicationCommand{
	{Name: commandTranscribePublic, Type: discordgo.MessageApplicationCommand},
	{Name: commandTranscribePrivate, Type: discordgo.MessageApplicationCommand},
	{Name: commandTranscode, Type: discordgo.MessageApplicationCommand},
}

// Bot connects the lifecycle manager to the Discord gateway.
type Bot struct {
	session *discordgo.Session
	logger  *zap.Logger
}

// New builds the gateway session. The connection is not opened until Run.
func New(token string, logger *zap.Logger) (*Bot, error) {
	if token == "" {
		return nil, errors.New("bot token is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	return &Bot{session: session, logger: logger}, nil
}

// Message implements chat.History against the channel message endpoint, so
// the manager can confirm a recorded result still exists.
func (b *Bot) Message(ctx context.Context, channelID, messageID string) (chat.MessageRef, error) {
	msg, err := b.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return chat.MessageRef{}, err
	}
	return chat.MessageRef{ID: msg.ID, URL: jumpURL(msg.GuildID, msg.ChannelID, msg.ID)}, nil
}

// Run opens the gateway, registers the command tree, and serves events until
// ctx is cancelled. In-flight requests drain before the session closes.
func (b *Bot) Run(ctx context.Context, manager *bot.Manager) error {
	b.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.onMessageCreate(manager, m)
	})
	b.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.onInteractionCreate(manager, i)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	b.logger.Info("gateway connected", zap.String("user", b.session.State.User.Username))

	if err := b.syncCommandTree(); err != nil {
		// The previously registered tree keeps working; a restart or
		// !synctree can retry.
		b.logger.Warn("failed to sync command tree", zap.Error(err))
	}

	<-ctx.Done()
	b.logger.Info("shutting down, draining in-flight requests")
	manager.Drain()
	return b.session.Close()
}

func (b *Bot) syncCommandTree() error {
	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, "", commandTree)
	return err
}

func (b *Bot) onMessageCreate(manager *bot.Manager, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	if m.Content == syncCommand {
		b.handleSyncTree(manager, m)
		return
	}

	msg := messageFromDiscord(m.Message)
	if manager.AutoTranscribe(msg, b.replyTarget(m.Message)) {
		b.logger.Debug("auto transcription admitted", zap.String("message", m.ID))
	}
}

func (b *Bot) handleSyncTree(manager *bot.Manager, m *discordgo.MessageCreate) {
	var roles []string
	if m.Member != nil {
		roles = m.Member.Roles
	}
	if !manager.IsManager(m.Author.ID, roles) {
		b.logger.Info("synctree denied", zap.String("user", m.Author.ID))
		return
	}

	reply := "Sync received. Syncing can take up to an hour for discord servers to propagate the bot's commands."
	if err := b.syncCommandTree(); err != nil {
		b.logger.Error("synctree failed", zap.Error(err))
		reply = "Command tree sync failed."
	}
	_, err := b.session.ChannelMessageSendReply(m.ChannelID, reply, m.Reference())
	if err != nil {
		b.logger.Warn("failed to answer synctree", zap.Error(err))
	}
}

func (b *Bot) onInteractionCreate(manager *bot.Manager, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()

	var op bot.Operation
	var private bool
	switch data.Name {
	case commandTranscribePublic:
		op, private = bot.OpTranscribe, false
	case commandTranscribePrivate:
		op, private = bot.OpTranscribe, true
	case commandTranscode:
		op, private = bot.OpTranscode, false
	default:
		b.logger.Warn("unknown command", zap.String("name", data.Name))
		return
	}

	source, ok := data.Resolved.Messages[data.TargetID]
	if !ok {
		b.logger.Error("interaction carried no resolved message", zap.String("target", data.TargetID))
		return
	}

	// Interactions must be acknowledged within seconds, well before the
	// pipeline finishes. The acknowledgement doubles as the waiting notice
	// and is always ephemeral; a public result replaces it later.
	placeholder, err := b.acknowledge(i.Interaction, notify.WaitingEmbed(op.Activity()))
	if err != nil {
		b.logger.Error("failed to acknowledge interaction", zap.Error(err))
		return
	}

	manager.Submit(bot.Request{
		Source:      messageFromDiscord(source),
		Op:          op,
		Interaction: true,
		Private:     private,
		Target:      b.interactionTarget(i.Interaction, source),
		Placeholder: placeholder,
	})
}

func (b *Bot) acknowledge(interaction *discordgo.Interaction, embed chat.Embed) (chat.MessageRef, error) {
	err := b.session.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embedToDiscord(embed)},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		return chat.MessageRef{}, err
	}

	msg, err := b.session.InteractionResponse(interaction)
	if err != nil {
		return chat.MessageRef{}, err
	}
	return chat.MessageRef{ID: msg.ID, URL: jumpURL(msg.GuildID, msg.ChannelID, msg.ID)}, nil
}
