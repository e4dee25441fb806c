// SPDX-License-Identifier: MPL-2.0

package terminal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jamesyoung-15/SudoOpsCode/internal/container"
	"github.com/jamesyoung-15/SudoOpsCode/internal/session"
)

type fakeVerifier struct {
	userID string
	err    error
}

func (f *fakeVerifier) Verify(token string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.userID, nil
}

type fakeSessionLookup struct {
	sess session.Session
	err  error
}

func (f *fakeSessionLookup) Get(id session.ID) (session.Session, error) { return f.sess, f.err }
func (f *fakeSessionLookup) UpdateActivity(id session.ID)               {}

type fakePTYAttacher struct {
	stream *container.HijackedStream
	err    error
}

func (f *fakePTYAttacher) AttachPTY(ctx context.Context, containerID string) (string, *container.HijackedStream, error) {
	return "exec-1", f.stream, f.err
}

func newTestGateway(verifier TokenVerifier, sessions SessionLookup, ptys PTYAttacher) *Gateway {
	return NewGateway(Config{}, verifier, sessions, ptys)
}

func wsURL(httpURL, token, sessionID string) string {
	u, _ := url.Parse(httpURL)
	u.Scheme = "ws"
	q := u.Query()
	if token != "" {
		q.Set("token", token)
	}
	if sessionID != "" {
		q.Set("sessionId", sessionID)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func TestHandleUpgrade_InvalidTokenRejected(t *testing.T) {
	g := newTestGateway(&fakeVerifier{err: errors.New("bad token")}, &fakeSessionLookup{}, &fakePTYAttacher{})
	srv := httptest.NewServer(http.HandlerFunc(g.handleUpgrade))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?token=x&sessionId=" + uuid.New().String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestHandleUpgrade_MalformedSessionIDRejected(t *testing.T) {
	g := newTestGateway(&fakeVerifier{userID: "u1"}, &fakeSessionLookup{}, &fakePTYAttacher{})
	srv := httptest.NewServer(http.HandlerFunc(g.handleUpgrade))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?token=x&sessionId=not-a-uuid")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHandleUpgrade_UnknownSessionRejected(t *testing.T) {
	g := newTestGateway(&fakeVerifier{userID: "u1"}, &fakeSessionLookup{err: session.ErrNotFound}, &fakePTYAttacher{})
	srv := httptest.NewServer(http.HandlerFunc(g.handleUpgrade))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?token=x&sessionId=" + uuid.New().String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHandleUpgrade_WrongOwnerRejected(t *testing.T) {
	sess := session.Session{ID: uuid.New(), UserID: "owner", Status: session.StatusActive}
	g := newTestGateway(&fakeVerifier{userID: "intruder"}, &fakeSessionLookup{sess: sess}, &fakePTYAttacher{})
	srv := httptest.NewServer(http.HandlerFunc(g.handleUpgrade))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?token=x&sessionId=" + sess.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestHandleUpgrade_InactiveSessionRejected(t *testing.T) {
	sess := session.Session{ID: uuid.New(), UserID: "u1", Status: session.StatusEnded}
	g := newTestGateway(&fakeVerifier{userID: "u1"}, &fakeSessionLookup{sess: sess}, &fakePTYAttacher{})
	srv := httptest.NewServer(http.HandlerFunc(g.handleUpgrade))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?token=x&sessionId=" + sess.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

// TestHandleUpgrade_ValidUpgradeStreamsBothWays exercises the S1 happy
// path end to end: authenticate, authorize, attach, and relay a byte
// round trip over the upgraded socket.
func TestHandleUpgrade_ValidUpgradeStreamsBothWays(t *testing.T) {
	sess := session.Session{ID: uuid.New(), UserID: "u1", ContainerID: "cont1", Status: session.StatusActive}
	pr, pw := io.Pipe()
	stream := &container.HijackedStream{Reader: pr, Conn: pw, Close: func() error { return pw.Close() }}

	g := newTestGateway(&fakeVerifier{userID: "u1"}, &fakeSessionLookup{sess: sess}, &fakePTYAttacher{stream: stream})
	srv := httptest.NewServer(http.HandlerFunc(g.handleUpgrade))
	defer srv.Close()

	target := wsURL(srv.URL, "good-token", sess.ID.String())
	client, resp, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer resp.Body.Close()
	defer client.Close()

	if err := client.WriteMessage(websocket.BinaryMessage, []byte("echo ok\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "echo ok\n" {
		t.Fatalf("expected echoed bytes, got %q", data)
	}

	g.CloseSession(sess.ID)
}

func TestWSURLHelper(t *testing.T) {
	u := wsURL("http://example.com", "tok", "sid")
	if !strings.HasPrefix(u, "ws://example.com") {
		t.Fatalf("expected ws scheme, got %s", u)
	}
}
