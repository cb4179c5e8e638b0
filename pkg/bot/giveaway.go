package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/logging"
)

const giveawayEmoji = "🎉"

var (
	// ErrGiveawayNotFound is returned when rerolling a message that is not a
	// finished giveaway.
	ErrGiveawayNotFound = errors.New("giveaway not found")

	// ErrNoEntrants is returned when a giveaway ends without reactions.
	ErrNoEntrants = errors.New("no entrants")
)

// giveaway is a single running draw.
type giveaway struct {
	channelID string
	messageID string
	prize     string
	cancel    context.CancelFunc
}

// finishedGiveaway remembers where a draw ran so rerolls target the original
// message in its original channel.
type finishedGiveaway struct {
	channelID string
	prize     string
}

// giveawayRunner owns the in-flight giveaway timers. Draws do not survive a
// restart; they are bounded, short-lived tasks.
type giveawayRunner struct {
	l     *slog.Logger
	s     Session
	botID func() string

	mu       sync.Mutex
	running  map[string]*giveaway        // keyed by message ID
	finished map[string]finishedGiveaway // keyed by message ID, for rerolls
}

func newGiveawayRunner(l *slog.Logger, s Session, botID func() string) *giveawayRunner {
	return &giveawayRunner{
		l:        l,
		s:        s,
		botID:    botID,
		running:  make(map[string]*giveaway),
		finished: make(map[string]finishedGiveaway),
	}
}

// Start posts the giveaway message and schedules the draw. The returned message
// ID identifies the giveaway for Reroll.
func (g *giveawayRunner) Start(channelID, prize string, duration time.Duration) (string, error) {
	embed := infoEmbed("**__Giveaway__** "+giveawayEmoji,
		fmt.Sprintf("**Prize:** %s\n**Ends in:** %s\nReact with %s to enter!", prize, duration, giveawayEmoji))
	msg, err := g.s.ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		return "", fmt.Errorf("error sending giveaway message: %w", err)
	}
	if err := g.s.MessageReactionAdd(channelID, msg.ID, giveawayEmoji); err != nil {
		g.l.Error("Error seeding giveaway reaction", slog.String(logging.KeyError, err.Error()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	gw := &giveaway{
		channelID: channelID,
		messageID: msg.ID,
		prize:     prize,
		cancel:    cancel,
	}
	g.mu.Lock()
	g.running[msg.ID] = gw
	g.mu.Unlock()

	go g.wait(ctx, gw, duration)
	return msg.ID, nil
}

func (g *giveawayRunner) wait(ctx context.Context, gw *giveaway, duration time.Duration) {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		g.mu.Lock()
		delete(g.running, gw.messageID)
		g.mu.Unlock()
		return
	case <-timer.C:
	}

	g.mu.Lock()
	delete(g.running, gw.messageID)
	g.finished[gw.messageID] = finishedGiveaway{channelID: gw.channelID, prize: gw.prize}
	g.mu.Unlock()

	if err := g.draw(gw.channelID, gw.messageID, gw.prize); err != nil {
		g.l.Error("Error drawing giveaway winner",
			slog.String(logging.KeyError, err.Error()),
			slog.String(logging.KeyChannel, gw.channelID),
		)
	}
}

// draw picks a winner from the reactions and announces it.
func (g *giveawayRunner) draw(channelID, messageID, prize string) error {
	winner, err := g.pickWinner(channelID, messageID)
	switch {
	case errors.Is(err, ErrNoEntrants):
		_, serr := g.s.ChannelMessageSendEmbed(channelID,
			errorEmbed(fmt.Sprintf("Nobody entered the giveaway for **%s**.", prize)))
		return serr
	case err != nil:
		return err
	}

	_, err = g.s.ChannelMessageSendEmbed(channelID, successEmbed("**__Giveaway Ended__** "+giveawayEmoji,
		fmt.Sprintf("Congratulations <@%s>! You won **%s**!", winner.ID, prize)))
	if err != nil {
		return fmt.Errorf("error announcing winner: %w", err)
	}
	return nil
}

func (g *giveawayRunner) pickWinner(channelID, messageID string) (*discordgo.User, error) {
	users, err := g.s.MessageReactions(channelID, messageID, giveawayEmoji, 100, "", "")
	if err != nil {
		return nil, fmt.Errorf("error fetching giveaway reactions: %w", err)
	}

	entrants := make([]*discordgo.User, 0, len(users))
	for _, u := range users {
		if u.ID == g.botID() || u.Bot {
			continue
		}
		entrants = append(entrants, u)
	}
	if len(entrants) == 0 {
		return nil, ErrNoEntrants
	}
	return entrants[rand.Intn(len(entrants))], nil
}

// Reroll draws a new winner for a finished giveaway. The draw always happens
// in the channel the giveaway originally ran in, even if the configured
// giveaways channel has changed since.
func (g *giveawayRunner) Reroll(messageID string) error {
	g.mu.Lock()
	fin, ok := g.finished[messageID]
	g.mu.Unlock()
	if !ok {
		return ErrGiveawayNotFound
	}
	return g.draw(fin.channelID, messageID, fin.prize)
}

// StopAll cancels every pending draw. Used on shutdown.
func (g *giveawayRunner) StopAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, gw := range g.running {
		gw.cancel()
		delete(g.running, id)
	}
}
