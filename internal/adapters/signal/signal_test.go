package signal_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	router "github.com/huddlehq/relay/internal/adapters/http"
	signalws "github.com/huddlehq/relay/internal/adapters/signal"
	"github.com/huddlehq/relay/internal/app"
	"github.com/huddlehq/relay/internal/app/relay"
	"github.com/huddlehq/relay/internal/auth"
	"github.com/huddlehq/relay/internal/config"
	"github.com/huddlehq/relay/internal/domain"
	"github.com/huddlehq/relay/internal/storage/sqlite"
	"github.com/huddlehq/relay/internal/wire"
)

const testSecret = "integration-secret"

func startServer(t *testing.T) (*httptest.Server, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	for _, u := range []domain.User{{ID: "u-alice", Username: "alice"}, {ID: "u-bob", Username: "bob"}} {
		if err := store.PutUser(ctx, u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	if err := store.PutRoom(ctx, domain.Room{ID: "r1", Name: "standup"}); err != nil {
		t.Fatalf("seed room: %v", err)
	}

	coordinator := relay.NewCoordinator(app.NewRegistry(), app.NewRoomIndex(), store, time.Second)
	ctl := &signalws.Controller{
		Coordinator: coordinator,
		Verifier:    auth.NewVerifier(testSecret, store),
		ReadLimit:   32768,
		PingPeriod:  30 * time.Second,
		SendBuffer:  32,
	}

	cfg := &config.Config{Mode: "release"}
	srv := httptest.NewServer(router.SetupRouter(context.Background(), cfg, ctl))
	t.Cleanup(srv.Close)
	return srv, store
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + token
}

func dial(t *testing.T, srv *httptest.Server, user domain.User) *websocket.Conn {
	t.Helper()
	token, err := auth.Sign(testSecret, user, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readEnvelope reads frames until one of the wanted kind arrives.
func readEnvelope(t *testing.T, conn *websocket.Conn, kind string) wire.Envelope {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read waiting for %q: %v", kind, err)
		}
		var env wire.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		if env.Type == kind {
			return env
		}
	}
	t.Fatalf("no %q frame arrived", kind)
	return wire.Envelope{}
}

func TestWSRejectsInvalidToken(t *testing.T) {
	srv, _ := startServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "not-a-token"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		t.Fatalf("expected a close error, got %v", err)
	}
	if closeErr.Code != websocket.ClosePolicyViolation {
		t.Fatalf("expected close code %d, got %d", websocket.ClosePolicyViolation, closeErr.Code)
	}
}

func TestWSRejectsMissingToken(t *testing.T) {
	srv, _ := startServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) || closeErr.Code != websocket.ClosePolicyViolation {
		t.Fatalf("expected policy-violation close, got %v", err)
	}
}

func TestWSConnectJoinAndChat(t *testing.T) {
	srv, store := startServer(t)

	alice := dial(t, srv, domain.User{ID: "u-alice", Username: "alice"})
	env := readEnvelope(t, alice, wire.TypeConnectionEstablished)
	var hello wire.ConnectionEstablished
	if err := json.Unmarshal(env.Payload, &hello); err != nil {
		t.Fatal(err)
	}
	if hello.UserID != "u-alice" || hello.Username != "alice" {
		t.Fatalf("unexpected greeting %+v", hello)
	}

	join := `{"type":"join-room","payload":{"roomId":"r1"}}`
	if err := alice.WriteMessage(websocket.TextMessage, []byte(join)); err != nil {
		t.Fatalf("write join: %v", err)
	}
	env = readEnvelope(t, alice, wire.TypeRoomJoined)
	var snap wire.RoomJoined
	if err := json.Unmarshal(env.Payload, &snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Users) != 0 {
		t.Fatalf("alice should see an empty room, got %v", snap.Users)
	}

	bob := dial(t, srv, domain.User{ID: "u-bob", Username: "bob"})
	readEnvelope(t, bob, wire.TypeConnectionEstablished)
	if err := bob.WriteMessage(websocket.TextMessage, []byte(join)); err != nil {
		t.Fatalf("write join: %v", err)
	}
	readEnvelope(t, bob, wire.TypeRoomJoined)

	env = readEnvelope(t, alice, wire.TypeRoomUpdate)
	var up wire.RoomUpdate
	if err := json.Unmarshal(env.Payload, &up); err != nil {
		t.Fatal(err)
	}
	if up.Action != wire.ActionJoined || up.UserID != "u-bob" {
		t.Fatalf("unexpected room update %+v", up)
	}

	chat := `{"type":"chat-message","payload":{"content":"hi"}}`
	if err := alice.WriteMessage(websocket.TextMessage, []byte(chat)); err != nil {
		t.Fatalf("write chat: %v", err)
	}
	for _, conn := range []*websocket.Conn{alice, bob} {
		env = readEnvelope(t, conn, wire.TypeChatMessage)
		var msg wire.ChatBroadcast
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			t.Fatal(err)
		}
		if msg.Content != "hi" || msg.ID == "" || msg.Sender.ID != "u-alice" {
			t.Fatalf("unexpected chat broadcast %+v", msg)
		}
	}

	msgs, err := store.MessagesByRoom(context.Background(), "r1", 10)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hi" {
		t.Fatalf("chat must be persisted, got %+v", msgs)
	}
}

func TestWSUnknownKindIsIgnored(t *testing.T) {
	srv, _ := startServer(t)

	alice := dial(t, srv, domain.User{ID: "u-alice", Username: "alice"})
	readEnvelope(t, alice, wire.TypeConnectionEstablished)

	if err := alice.WriteMessage(websocket.TextMessage, []byte(`{"type":"mystery","payload":{}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	// The connection stays healthy and no error event is surfaced.
	if err := alice.WriteMessage(websocket.TextMessage, []byte(`{"type":"join-room","payload":{"roomId":"r1"}}`)); err != nil {
		t.Fatalf("write join: %v", err)
	}
	env := readEnvelope(t, alice, wire.TypeRoomJoined)
	if env.Type != wire.TypeRoomJoined {
		t.Fatal("join after an unknown kind must still work")
	}
}
