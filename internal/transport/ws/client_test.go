package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"aphangman.ai/internal/catalog"
	"aphangman.ai/internal/protocol"
	"aphangman.ai/internal/session"
)

type fakeConn struct {
	ws *websocket.Conn
	in chan json.RawMessage
}

type fakeServer struct {
	srv   *httptest.Server
	conns chan *fakeConn
}

func newFakeServer(t *testing.T, seed string) *fakeServer {
	t.Helper()
	fs := &fakeServer{conns: make(chan *fakeConn, 4)}
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		hello, _ := protocol.EncodeFrame(protocol.RoomInfoMsg{Cmd: protocol.CmdRoomInfo, Version: protocol.ClientVersion, SeedName: seed})
		if err := ws.WriteMessage(websocket.TextMessage, hello); err != nil {
			return
		}
		fc := &fakeConn{ws: ws, in: make(chan json.RawMessage, 256)}
		fs.conns <- fc

		defer close(fc.in)
		for {
			_, msg, err := ws.ReadMessage()
			if err != nil {
				return
			}
			pkts, err := protocol.DecodeFrame(msg)
			if err != nil {
				return
			}
			for _, p := range pkts {
				fc.in <- p
			}
		}
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

func (fs *fakeServer) accept(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case fc := <-fs.conns:
		return fc
	case <-time.After(5 * time.Second):
		t.Fatalf("no connection")
		return nil
	}
}

func (fc *fakeConn) send(t *testing.T, pkts ...any) {
	t.Helper()
	b, err := protocol.EncodeFrame(pkts...)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := fc.ws.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// expect skips packets until one with cmd arrives.
func (fc *fakeConn) expect(t *testing.T, cmd string) json.RawMessage {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case p, ok := <-fc.in:
			if !ok {
				t.Fatalf("connection closed waiting for %s", cmd)
			}
			base, err := protocol.DecodeBase(p)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if base.Cmd == cmd {
				return p
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %s", cmd)
		}
	}
}

func letterItems() map[string]int64 {
	m := make(map[string]int64, len(catalog.Alphabet))
	for i, r := range catalog.Alphabet {
		m[string(r)] = 1000 + int64(i)
	}
	return m
}

func connectedFor(t *testing.T, word string, checked []int64) protocol.ConnectedMsg {
	t.Helper()
	objs, err := catalog.ForPuzzle(word)
	if err != nil {
		t.Fatalf("ForPuzzle: %v", err)
	}
	done := map[int64]bool{}
	for _, id := range checked {
		done[id] = true
	}
	missing := []int64{}
	for _, o := range objs {
		if !done[o.ID] {
			missing = append(missing, o.ID)
		}
	}
	if checked == nil {
		checked = []int64{}
	}
	return protocol.ConnectedMsg{
		Cmd:              protocol.CmdConnected,
		Slot:             1,
		Players:          []protocol.NetworkPlayer{{Slot: 1, Alias: "Player1", Name: "Player1"}},
		MissingLocations: missing,
		CheckedLocations: checked,
		SlotData:         json.RawMessage(`{"word":"` + word + `"}`),
	}
}

func dataPackage() protocol.DataPackageMsg {
	return protocol.DataPackageMsg{
		Cmd: protocol.CmdDataPackage,
		Data: protocol.DataPackageData{Games: map[string]protocol.GameData{
			"Hangman": {ItemNameToID: letterItems(), LocationNameToID: catalog.Theoretical()},
		}},
	}
}

func received(index int, letters ...string) protocol.ReceivedItemsMsg {
	items := letterItems()
	m := protocol.ReceivedItemsMsg{Cmd: protocol.CmdReceivedItems, Index: index}
	for _, l := range letters {
		m.Items = append(m.Items, protocol.NetworkItem{Item: items[l], Location: -1, Player: 0})
	}
	return m
}

func startClient(t *testing.T, url string) (*Client, *session.Session, chan error, context.CancelFunc) {
	t.Helper()
	c := NewClient(Config{
		URL:        url,
		Slot:       "Player1",
		BackoffMin: 10 * time.Millisecond,
		BackoffMax: 50 * time.Millisecond,
	}, zerolog.Nop())
	sess := session.New(session.Config{Slot: "Player1"}, c, zerolog.Nop())
	c.SetHandler(sess)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { _ = sess.Run(ctx) }()
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		sess.Wait()
	})
	return c, sess, done, cancel
}

func TestClient_FullFlowReportsUnlockedObjectives(t *testing.T) {
	fs := newFakeServer(t, "seed-1")
	startClient(t, fs.url())

	fc := fs.accept(t)
	var connect protocol.ConnectMsg
	if err := json.Unmarshal(fc.expect(t, protocol.CmdConnect), &connect); err != nil {
		t.Fatalf("unmarshal connect: %v", err)
	}
	if connect.Game != "Hangman" || connect.Name != "Player1" {
		t.Fatalf("connect: %+v", connect)
	}
	if connect.ItemsHandling != 0b111 || !connect.SlotData || connect.UUID == "" {
		t.Fatalf("connect flags: %+v", connect)
	}

	fc.send(t, connectedFor(t, "GARDEN", nil))
	var gdp protocol.GetDataPackageMsg
	if err := json.Unmarshal(fc.expect(t, protocol.CmdGetDataPackage), &gdp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(gdp.Games, []string{"Hangman"}) {
		t.Fatalf("games: %v", gdp.Games)
	}

	fc.send(t, dataPackage(), received(0, "G"))

	var checks protocol.LocationChecksMsg
	if err := json.Unmarshal(fc.expect(t, protocol.CmdLocationChecks), &checks); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if want := []int64{1, 21, 41, 61, 81}; !reflect.DeepEqual(checks.Locations, want) {
		t.Fatalf("locations: got %v want %v", checks.Locations, want)
	}
}

func TestClient_ChatStatusCommandAnswers(t *testing.T) {
	fs := newFakeServer(t, "seed-1")
	startClient(t, fs.url())

	fc := fs.accept(t)
	fc.expect(t, protocol.CmdConnect)
	fc.send(t, connectedFor(t, "GARDEN", nil))
	fc.expect(t, protocol.CmdGetDataPackage)

	fc.send(t, protocol.PrintJSONMsg{
		Cmd:     protocol.CmdPrintJSON,
		Type:    "Chat",
		Data:    []protocol.JSONMessagePart{{Text: "Player1: @Player1 status"}},
		Message: "@Player1 status",
		Slot:    1,
	})
	var say protocol.SayMsg
	if err := json.Unmarshal(fc.expect(t, protocol.CmdSay), &say); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if say.Text != "_ _ _ _ _ _" {
		t.Fatalf("say: %q", say.Text)
	}
}

func TestClient_PermanentRefusalStops(t *testing.T) {
	fs := newFakeServer(t, "seed-1")
	_, _, done, _ := startClient(t, fs.url())

	fc := fs.accept(t)
	fc.expect(t, protocol.CmdConnect)
	fc.send(t, protocol.ConnectionRefusedMsg{Cmd: protocol.CmdConnectionRefused, Errors: []string{protocol.RefusedInvalidSlot}})

	select {
	case err := <-done:
		var refused *RefusedError
		if !errors.As(err, &refused) || !refused.Permanent() {
			t.Fatalf("want permanent refusal, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return")
	}
}

func TestClient_UnknownRefusalRetries(t *testing.T) {
	fs := newFakeServer(t, "seed-1")
	_, _, done, _ := startClient(t, fs.url())

	fc := fs.accept(t)
	fc.expect(t, protocol.CmdConnect)
	fc.send(t, protocol.ConnectionRefusedMsg{Cmd: protocol.CmdConnectionRefused, Errors: []string{"ServerBusy"}})

	fc2 := fs.accept(t)
	fc2.expect(t, protocol.CmdConnect)
	select {
	case err := <-done:
		t.Fatalf("Run returned after a retryable refusal: %v", err)
	default:
	}
}

func TestClient_ReconnectKeepsProgress(t *testing.T) {
	fs := newFakeServer(t, "seed-1")
	startClient(t, fs.url())

	fc := fs.accept(t)
	fc.expect(t, protocol.CmdConnect)
	fc.send(t, connectedFor(t, "GARDEN", nil))
	fc.expect(t, protocol.CmdGetDataPackage)
	fc.send(t, dataPackage(), received(0, "G"))
	fc.expect(t, protocol.CmdLocationChecks)

	// Drop the socket; the client dials again.
	_ = fc.ws.Close()

	fc2 := fs.accept(t)
	fc2.expect(t, protocol.CmdConnect)
	fc2.send(t, connectedFor(t, "GARDEN", []int64{1, 21, 41, 61, 81}))
	fc2.expect(t, protocol.CmdGetDataPackage)
	fc2.send(t, dataPackage(), received(0, "G"), received(1, "A"))

	var checks protocol.LocationChecksMsg
	if err := json.Unmarshal(fc2.expect(t, protocol.CmdLocationChecks), &checks); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if want := []int64{2, 22, 42, 62, 82}; !reflect.DeepEqual(checks.Locations, want) {
		t.Fatalf("locations after reconnect: got %v want %v", checks.Locations, want)
	}
}

func TestClient_SendWithoutConnection(t *testing.T) {
	c := NewClient(Config{URL: "ws://127.0.0.1:1"}, zerolog.Nop())
	if err := c.Say(context.Background(), "hi"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("want ErrNotConnected, got %v", err)
	}
}

func TestRefusedError_Permanent(t *testing.T) {
	if (&RefusedError{Codes: []string{protocol.RefusedInvalidItemsHandling}}).Permanent() {
		t.Fatalf("items handling refusal should be retryable")
	}
	if !(&RefusedError{Codes: []string{protocol.RefusedInvalidPassword}}).Permanent() {
		t.Fatalf("password refusal should be permanent")
	}
}
