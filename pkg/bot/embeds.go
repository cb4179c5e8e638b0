package bot

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	colourRed   = 0xff5959
	colourGreen = 0x00ff40
	colourBlue  = 0x0080c0
)

func newEmbed(title, description string, colour int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       colour,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "warden | " + time.Now().UTC().Format("02/January/2006 15:04:05 UTC"),
		},
	}
}

func successEmbed(title, description string) *discordgo.MessageEmbed {
	return newEmbed(title, description, colourGreen)
}

func errorEmbed(description string) *discordgo.MessageEmbed {
	return newEmbed("__Error__", description, colourRed)
}

func infoEmbed(title, description string) *discordgo.MessageEmbed {
	return newEmbed(title, description, colourBlue)
}
