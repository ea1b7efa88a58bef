package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/domino14/gridwar/board"
	"github.com/domino14/gridwar/game"
	"github.com/domino14/gridwar/move"
)

const wsIdlePingInterval = 30 * time.Second

var errNoGame = errors.New("no game in progress; send a new message first")

// wsMessage is every message exchanged on a session, in both directions.
// Clients send "new" and "move"; the server sends "state", "error" and
// "ping".
type wsMessage struct {
	Type       string              `json:"type"`
	Config     *game.VariantConfig `json:"config,omitempty"`
	Difficulty Difficulty          `json:"difficulty,omitempty"`
	BotPlays   board.Cell          `json:"botPlays,omitempty"`
	Move       *move.Move          `json:"move,omitempty"`
	State      *game.GameState     `json:"state,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// session is one human playing the bot over a websocket.
type session struct {
	bot        *Bot
	state      *game.GameState
	difficulty Difficulty
	botPlays   board.Cell
	send       chan []byte
	// closed when the writer stops
	done chan struct{}
}

func (s *session) sendJSON(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Err(err).Msg("session-marshal")
		return
	}
	select {
	case s.send <- data:
	case <-s.done:
	}
}

func (s *session) sendError(err error) {
	s.sendJSON(wsMessage{Type: "error", Error: err.Error()})
}

// botTurn lets the bot move if it is on turn. It returns the bot's move,
// if any.
func (s *session) botTurn(ctx context.Context) (*move.Move, error) {
	if !s.state.Playing() || s.state.Current != s.botPlays {
		return nil, nil
	}
	m, err := s.bot.ChooseMove(ctx, s.state, s.difficulty)
	if err != nil {
		return nil, err
	}
	next, err := game.ApplyMove(s.state, m)
	if err != nil {
		return nil, err
	}
	s.state = next
	return next.LastMove, nil
}

func (s *session) handleNew(ctx context.Context, msg wsMessage) error {
	d, err := ParseDifficulty(string(msg.Difficulty))
	if err != nil {
		return err
	}
	botPlays := board.O
	if msg.BotPlays == board.X {
		botPlays = board.X
	}
	st, err := s.bot.newGame(msg.Config)
	if err != nil {
		return err
	}
	s.state, s.difficulty, s.botPlays = st, d, botPlays
	m, err := s.botTurn(ctx)
	if err != nil {
		return err
	}
	s.sendJSON(wsMessage{Type: "state", State: s.state, Move: m})
	return nil
}

func (s *session) handleMove(ctx context.Context, msg wsMessage) error {
	if s.state == nil {
		return errNoGame
	}
	if msg.Move == nil {
		return fmt.Errorf("%w: move message without a move", game.ErrIllegalMove)
	}
	if s.state.Playing() && s.state.Current == s.botPlays {
		return fmt.Errorf("%w: it is the bot's turn", game.ErrIllegalMove)
	}
	next, err := game.ApplyMove(s.state, msg.Move)
	if err != nil {
		return err
	}
	s.state = next
	m, err := s.botTurn(ctx)
	if err != nil {
		return err
	}
	s.sendJSON(wsMessage{Type: "state", State: s.state, Move: m})
	return nil
}

func (s *session) writeLoop(conn *websocket.Conn) error {
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()
	ping, _ := json.Marshal(wsMessage{Type: "ping"})

	for {
		select {
		case msg, ok := <-s.send:
			if !ok {
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func serveSession(b *Bot, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Err(err).Msg("websocket-upgrade")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{bot: b, send: make(chan []byte, 16), done: make(chan struct{})}
	go func() {
		defer close(s.done)
		if err := s.writeLoop(conn); err != nil {
			log.Debug().Err(err).Msg("session-write")
			cancel()
		}
	}()
	defer func() {
		cancel()
		close(s.send)
		<-s.done
		conn.Close()
	}()

	log.Debug().Str("remote", r.RemoteAddr).Msg("session-started")
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Msg("session-ended")
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(err)
			continue
		}
		switch msg.Type {
		case "new":
			err = s.handleNew(ctx, msg)
		case "move":
			err = s.handleMove(ctx, msg)
		case "state":
			if s.state == nil {
				err = errNoGame
			} else {
				s.sendJSON(wsMessage{Type: "state", State: s.state})
			}
		default:
			err = fmt.Errorf("unknown message type %q", msg.Type)
		}
		if err != nil {
			s.sendError(err)
		}
	}
}
