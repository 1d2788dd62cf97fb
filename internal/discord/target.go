package discord

import (
	"bytes"
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/fmueller/voxbot/internal/chat"
)

// replyTarget delivers notifications as regular replies under the source
// message. Used by the automatic trigger, where everything is public.
type replyTarget struct {
	session *discordgo.Session
	source  *discordgo.Message
}

func (b *Bot) replyTarget(source *discordgo.Message) chat.Target {
	return &replyTarget{session: b.session, source: source}
}

func (t *replyTarget) Create(ctx context.Context, embed chat.Embed) (chat.MessageRef, error) {
	msg, err := t.session.ChannelMessageSendComplex(t.source.ChannelID, &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{embedToDiscord(embed)},
		Reference:       t.source.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return chat.MessageRef{}, err
	}
	return refFromMessage(msg), nil
}

func (t *replyTarget) Edit(ctx context.Context, ref chat.MessageRef, embed chat.Embed) error {
	edit := discordgo.NewMessageEdit(t.source.ChannelID, ref.ID)
	edit.Embeds = &[]*discordgo.MessageEmbed{embedToDiscord(embed)}
	_, err := t.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return err
}

func (t *replyTarget) Discard(ctx context.Context, ref chat.MessageRef) error {
	return t.session.ChannelMessageDelete(t.source.ChannelID, ref.ID, discordgo.WithContext(ctx))
}

func (t *replyTarget) Publish(ctx context.Context, embed chat.Embed) (chat.MessageRef, error) {
	return t.Create(ctx, embed)
}

func (t *replyTarget) Attach(ctx context.Context, ref chat.MessageRef, file chat.File) (chat.MessageRef, []chat.Attachment, error) {
	edit := discordgo.NewMessageEdit(t.source.ChannelID, ref.ID)
	edit.Files = []*discordgo.File{fileToDiscord(file)}
	edit.Attachments = &[]*discordgo.MessageAttachment{}
	msg, err := t.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	if err != nil {
		return chat.MessageRef{}, nil, err
	}
	return refFromMessage(msg), attachmentsFromDiscord(msg.Attachments), nil
}

// interactionTarget delivers notifications through an interaction's ephemeral
// response; Publish escapes it with a regular public reply to the source.
type interactionTarget struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
	source      *discordgo.Message
}

func (b *Bot) interactionTarget(interaction *discordgo.Interaction, source *discordgo.Message) chat.Target {
	return &interactionTarget{session: b.session, interaction: interaction, source: source}
}

func (t *interactionTarget) Create(ctx context.Context, embed chat.Embed) (chat.MessageRef, error) {
	// The acknowledgement already posted the response; creating means
	// shaping it.
	err := t.Edit(ctx, chat.MessageRef{}, embed)
	if err != nil {
		return chat.MessageRef{}, err
	}
	msg, err := t.session.InteractionResponse(t.interaction, discordgo.WithContext(ctx))
	if err != nil {
		return chat.MessageRef{}, err
	}
	return refFromMessage(msg), nil
}

func (t *interactionTarget) Edit(ctx context.Context, _ chat.MessageRef, embed chat.Embed) error {
	_, err := t.session.InteractionResponseEdit(t.interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embedToDiscord(embed)},
	}, discordgo.WithContext(ctx))
	return err
}

func (t *interactionTarget) Discard(ctx context.Context, _ chat.MessageRef) error {
	return t.session.InteractionResponseDelete(t.interaction, discordgo.WithContext(ctx))
}

func (t *interactionTarget) Publish(ctx context.Context, embed chat.Embed) (chat.MessageRef, error) {
	msg, err := t.session.ChannelMessageSendComplex(t.source.ChannelID, &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{embedToDiscord(embed)},
		Reference:       t.source.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return chat.MessageRef{}, err
	}
	return refFromMessage(msg), nil
}

func (t *interactionTarget) Attach(ctx context.Context, _ chat.MessageRef, file chat.File) (chat.MessageRef, []chat.Attachment, error) {
	msg, err := t.session.InteractionResponseEdit(t.interaction, &discordgo.WebhookEdit{
		Files:       []*discordgo.File{fileToDiscord(file)},
		Attachments: &[]*discordgo.MessageAttachment{},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return chat.MessageRef{}, nil, err
	}
	return refFromMessage(msg), attachmentsFromDiscord(msg.Attachments), nil
}

func embedToDiscord(embed chat.Embed) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       embed.Title,
		Description: embed.Description,
		URL:         embed.URL,
		Color:       embed.Color,
	}
}

func fileToDiscord(file chat.File) *discordgo.File {
	return &discordgo.File{
		Name:        file.Name,
		ContentType: file.ContentType,
		Reader:      bytes.NewReader(file.Data),
	}
}

func messageFromDiscord(m *discordgo.Message) chat.Message {
	msg := chat.Message{
		ID:           m.ID,
		ChannelID:    m.ChannelID,
		GuildID:      m.GuildID,
		Content:      m.Content,
		VoiceMessage: m.Flags&discordgo.MessageFlagsIsVoiceMessage != 0,
		Attachments:  attachmentsFromDiscord(m.Attachments),
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
	}
	return msg
}

func attachmentsFromDiscord(attachments []*discordgo.MessageAttachment) []chat.Attachment {
	if len(attachments) == 0 {
		return nil
	}
	out := make([]chat.Attachment, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, chat.Attachment{
			ID:          a.ID,
			URL:         a.URL,
			Filename:    a.Filename,
			ContentType: a.ContentType,
		})
	}
	return out
}

func refFromMessage(m *discordgo.Message) chat.MessageRef {
	return chat.MessageRef{ID: m.ID, URL: jumpURL(m.GuildID, m.ChannelID, m.ID)}
}

// jumpURL builds the canonical message link; direct messages live under the
// "@me" pseudo-guild.
func jumpURL(guildID, channelID, messageID string) string {
	if guildID == "" {
		guildID = "@me"
	}
	return "https://discord.com/channels/" + guildID + "/" + channelID + "/" + messageID
}
