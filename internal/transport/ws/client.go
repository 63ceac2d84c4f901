package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"aphangman.ai/internal/catalog"
	"aphangman.ai/internal/protocol"
	"aphangman.ai/internal/session"
	"aphangman.ai/internal/trace"
)

var ErrNotConnected = errors.New("ws: not connected")

// RefusedError is a ConnectionRefused from the server.
type RefusedError struct {
	Codes []string
}

func (e *RefusedError) Error() string {
	return "ws: connection refused: " + strings.Join(e.Codes, ",")
}

// Permanent reports whether reconnecting with the same settings is pointless.
func (e *RefusedError) Permanent() bool {
	return protocol.IsPermanentRefusal(e.Codes)
}

type Handler interface {
	Handle(ctx context.Context, ev session.Event) error
}

type Recorder interface {
	Record(dir string, frame []byte) error
}

type Config struct {
	URL      string
	Game     string
	Slot     string
	Password string
	Tags     []string

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	BackoffMin       time.Duration
	BackoffMax       time.Duration
}

type Client struct {
	cfg  Config
	log  zerolog.Logger
	uuid string

	handler Handler
	rec     Recorder

	mu      sync.RWMutex
	conn    *websocket.Conn
	players map[int]string

	writeMu sync.Mutex
}

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Game == "" {
		cfg.Game = "Hangman"
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 90 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = 200 * time.Millisecond
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = 5 * time.Second
	}
	return &Client{
		cfg:     cfg,
		log:     logger.With().Str("component", "ws").Str("url", cfg.URL).Logger(),
		uuid:    uuid.NewString(),
		players: map[int]string{},
	}
}

// SetHandler must be called before Run.
func (c *Client) SetHandler(h Handler) { c.handler = h }

// SetRecorder must be called before Run.
func (c *Client) SetRecorder(r Recorder) { c.rec = r }

// Run keeps a connection open until ctx ends or the server permanently
// refuses the slot. Session state lives in the handler and survives
// reconnects.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.cfg.BackoffMin
	for {
		connected, err := c.connectAndReadLoop(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var refused *RefusedError
		if errors.As(err, &refused) && refused.Permanent() {
			return err
		}
		if connected {
			backoff = c.cfg.BackoffMin
			c.notify(ctx, session.Disconnected{Err: err})
		}
		c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("connection lost")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < c.cfg.BackoffMax {
			backoff *= 2
			if backoff > c.cfg.BackoffMax {
				backoff = c.cfg.BackoffMax
			}
		}
	}
}

func (c *Client) connectAndReadLoop(ctx context.Context) (connected bool, err error) {
	d := websocket.Dialer{
		HandshakeTimeout:  c.cfg.HandshakeTimeout,
		EnableCompression: true,
	}
	conn, resp, err := d.DialContext(ctx, c.cfg.URL, http.Header{})
	if err != nil {
		return false, err
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.log.Info().Msg("socket open")

	stop := make(chan struct{})
	defer func() {
		close(stop)
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		_ = conn.Close()
	}()
	// Wake a blocked ReadMessage when ctx ends.
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return connected, err
		}
		pkts, err := protocol.DecodeFrame(msg)
		if err != nil {
			c.log.Warn().Err(err).Msg("bad frame")
			continue
		}
		c.record(trace.DirIn, msg)
		for _, raw := range pkts {
			ok, err := c.dispatch(ctx, raw)
			if ok {
				connected = true
			}
			if err != nil {
				return connected, err
			}
		}
	}
}

// dispatch routes one packet. ok is true for Connected.
func (c *Client) dispatch(ctx context.Context, raw json.RawMessage) (ok bool, err error) {
	base, err := protocol.DecodeBase(raw)
	if err != nil {
		c.log.Warn().Err(err).Msg("bad packet")
		return false, nil
	}

	var ev session.Event
	switch base.Cmd {
	case protocol.CmdRoomInfo:
		var m protocol.RoomInfoMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return false, fmt.Errorf("room info: %w", err)
		}
		c.notify(ctx, session.RoomInfo{SeedName: m.SeedName})
		return false, c.sendConnect()

	case protocol.CmdConnectionRefused:
		var m protocol.ConnectionRefusedMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return false, fmt.Errorf("connection refused: %w", err)
		}
		for _, code := range m.Errors {
			if !protocol.IsKnownRefusal(code) {
				c.log.Warn().Str("code", code).Msg("unknown refusal code; will retry")
			}
		}
		return false, &RefusedError{Codes: m.Errors}

	case protocol.CmdConnected:
		var m protocol.ConnectedMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return false, fmt.Errorf("connected: %w", err)
		}
		c.mu.Lock()
		for _, p := range m.Players {
			c.players[p.Slot] = p.Alias
		}
		c.mu.Unlock()
		c.log.Info().Int("slot", m.Slot).Int("team", m.Team).Msg("slot connected")
		ev = session.Connected{
			Slot:     m.Slot,
			Missing:  m.MissingLocations,
			Checked:  m.CheckedLocations,
			SlotData: m.SlotData,
		}
		ok = true

	case protocol.CmdReceivedItems:
		var m protocol.ReceivedItemsMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			c.log.Warn().Err(err).Msg("bad ReceivedItems")
			return false, nil
		}
		items := make([]session.GrantedItem, 0, len(m.Items))
		for _, it := range m.Items {
			items = append(items, session.GrantedItem{Item: it.Item, Location: it.Location, Player: it.Player, Flags: it.Flags})
		}
		ev = session.ItemsGranted{Index: m.Index, Items: items}

	case protocol.CmdDataPackage:
		var m protocol.DataPackageMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			c.log.Warn().Err(err).Msg("bad DataPackage")
			return false, nil
		}
		gd, found := m.Data.Games[c.cfg.Game]
		if !found {
			c.log.Debug().Str("game", c.cfg.Game).Msg("data package without our game")
			return false, nil
		}
		ev = session.CatalogReceived{Payload: catalog.Payload{
			ItemNameToID:     gd.ItemNameToID,
			LocationNameToID: gd.LocationNameToID,
		}}

	case protocol.CmdLocationInfo:
		var m protocol.LocationInfoMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			c.log.Warn().Err(err).Msg("bad LocationInfo")
			return false, nil
		}
		objs := make([]session.ScoutedObjective, 0, len(m.Locations))
		for _, it := range m.Locations {
			objs = append(objs, session.ScoutedObjective{Location: it.Location, Item: it.Item, Player: it.Player, Flags: it.Flags})
		}
		ev = session.ScoutInfo{Objectives: objs}

	case protocol.CmdPrintJSON:
		var m protocol.PrintJSONMsg
		if err := json.Unmarshal(raw, &m); err != nil || m.Message == "" {
			return false, nil
		}
		c.mu.RLock()
		sender := c.players[m.Slot]
		c.mu.RUnlock()
		ev = session.ChatMessage{Sender: sender, Text: m.Message}

	default:
		c.log.Debug().Str("cmd", base.Cmd).Msg("ignored packet")
		return false, nil
	}

	c.notify(ctx, ev)
	return ok, nil
}

func (c *Client) notify(ctx context.Context, ev session.Event) {
	if c.handler == nil {
		return
	}
	if err := c.handler.Handle(ctx, ev); err != nil {
		c.log.Warn().Err(err).Str("event", fmt.Sprintf("%T", ev)).Msg("handler")
	}
}

func (c *Client) record(dir string, frame []byte) {
	if c.rec == nil {
		return
	}
	if err := c.rec.Record(dir, frame); err != nil {
		c.log.Warn().Err(err).Msg("trace")
	}
}

func (c *Client) send(pkts ...any) error {
	b, err := protocol.EncodeFrame(pkts...)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return err
	}
	c.record(trace.DirOut, b)
	return nil
}

func (c *Client) sendConnect() error {
	tags := c.cfg.Tags
	if tags == nil {
		tags = []string{}
	}
	return c.send(protocol.ConnectMsg{
		Cmd:           protocol.CmdConnect,
		Password:      c.cfg.Password,
		Game:          c.cfg.Game,
		Name:          c.cfg.Slot,
		UUID:          c.uuid,
		Version:       protocol.ClientVersion,
		ItemsHandling: protocol.ItemsAll,
		Tags:          tags,
		SlotData:      true,
	})
}

func (c *Client) RequestCatalog(ctx context.Context, game string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.send(protocol.GetDataPackageMsg{Cmd: protocol.CmdGetDataPackage, Games: []string{game}})
}

func (c *Client) ReportObjectives(ctx context.Context, ids []int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.send(protocol.LocationChecksMsg{Cmd: protocol.CmdLocationChecks, Locations: ids})
}

func (c *Client) ReportGoal(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.send(protocol.StatusUpdateMsg{Cmd: protocol.CmdStatusUpdate, Status: protocol.ClientStatusGoal})
}

func (c *Client) Say(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.send(protocol.SayMsg{Cmd: protocol.CmdSay, Text: text})
}

func (c *Client) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.send(protocol.SyncMsg{Cmd: protocol.CmdSync})
}

var _ session.Outbound = (*Client)(nil)
