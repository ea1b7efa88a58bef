package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/domino14/gridwar/move"
)

// Mover is anything that can ask a remote bot for a move.
type Mover interface {
	RequestMove(ctx context.Context, req *Request) (*move.Move, error)
}

const (
	defaultRequestTimeout = 10 * time.Second
	defaultAttempts       = 3
)

// Client asks a bot listening on a NATS subject for moves.
type Client struct {
	nc       *nats.Conn
	channel  string
	timeout  time.Duration
	attempts uint
}

func NewClient(nc *nats.Conn, channel string) *Client {
	return &Client{nc: nc, channel: channel, timeout: defaultRequestTimeout,
		attempts: defaultAttempts}
}

// moveFromResponse decodes a bot reply into the move it carries.
func moveFromResponse(data []byte) (*move.Move, error) {
	resp := Response{}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrBotFailed, resp.Error)
	}
	if resp.Move == nil {
		return nil, fmt.Errorf("%w: no move in response", ErrBotFailed)
	}
	return resp.Move, nil
}

// RequestMove sends a game to the bot and gets a move back. Transport
// errors are retried with backoff; an error reported by the bot is not.
func (c *Client) RequestMove(ctx context.Context, req *Request) (*move.Move, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	res, err := retry.DoWithData(
		func() (*nats.Msg, error) {
			rctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			return c.nc.RequestWithContext(rctx, c.channel, data)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			log.Err(err).Uint("n", n).Msg("bot-request-failed-try-again")
			return retry.BackOffDelay(n, err, config)
		}),
	)
	if err != nil {
		if c.nc.LastError() != nil {
			log.Error().Err(c.nc.LastError()).Msg("nats-last-error")
		}
		return nil, err
	}
	log.Debug().Int("bytes", len(res.Data)).Msg("bot-response")
	return moveFromResponse(res.Data)
}

// Main answers bot requests on channel until ctx is done.
func Main(ctx context.Context, channel string, bot *Bot, nc *nats.Conn) error {
	sub, err := nc.Subscribe(channel, func(m *nats.Msg) {
		log.Info().Int("bytes", len(m.Data)).Msg("bot-request")
		resp := bot.Handle(ctx, m.Data)
		data, err := json.Marshal(resp)
		if err != nil {
			// Should never happen, but the requester still needs an answer.
			m.Respond([]byte(err.Error()))
			return
		}
		if err := m.Respond(data); err != nil {
			log.Err(err).Msg("bot-respond")
		}
	})
	if err != nil {
		return err
	}
	if err := nc.Flush(); err != nil {
		return err
	}
	if err := nc.LastError(); err != nil {
		return err
	}
	log.Info().Str("channel", channel).Msg("bot-listening")
	<-ctx.Done()
	return sub.Unsubscribe()
}
