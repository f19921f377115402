// Package clustertest connects a content app to a casting session over an
// in-memory link, for cluster client tests.
package clustertest

import (
	"context"
	"testing"
	"time"

	"github.com/backkem/matter-tv/pkg/casting"
	"github.com/backkem/matter-tv/pkg/contentapp"
	"github.com/backkem/matter-tv/pkg/datamodel"
	"github.com/backkem/matter-tv/pkg/link"
	"github.com/backkem/matter-tv/pkg/transport"
)

// Endpoint is the endpoint NewApp hosts apps on.
const Endpoint datamodel.EndpointID = 4

// Pair is a content app reachable from a casting session.
type Pair struct {
	App      *contentapp.App
	Session  *casting.Session
	Endpoint *casting.Endpoint
	Server   *link.Server
}

// NewApp creates a content app on Endpoint and closes it when the test ends.
func NewApp(t testing.TB) *contentapp.App {
	t.Helper()
	app, err := contentapp.New(contentapp.Config{
		Endpoint:        Endpoint,
		VendorID:        datamodel.TestVendorID,
		ProductID:       0x8001,
		VendorName:      "Test Vendor",
		ApplicationName: "Test App",
		ApplicationID:   "com.example.app",
	})
	if err != nil {
		t.Fatalf("contentapp.New() error = %v", err)
	}
	t.Cleanup(func() { app.Close() })
	return app
}

// Connect serves app over a pipe and connects a casting session to it.
// Install cluster handlers on app before calling Connect so the session
// sees them in the endpoint list.
func Connect(t testing.TB, app *contentapp.App) *Pair {
	t.Helper()

	pipe := transport.NewPipe()
	serverConn, clientConn := pipe.PacketConns(transport.DefaultPort)

	server, err := link.NewServer(link.ServerConfig{Conn: serverConn})
	if err != nil {
		t.Fatalf("link.NewServer() error = %v", err)
	}
	if err := server.AddApp(app); err != nil {
		t.Fatalf("AddApp() error = %v", err)
	}
	if err := server.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	client, err := link.Dial(link.ClientConfig{
		Conn:           clientConn,
		Peer:           clientConn.PeerAddr(),
		RequestTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("link.Dial() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	session, err := casting.Connect(ctx, casting.SessionConfig{
		Player:    &casting.Player{ID: "test-tv", DeviceName: "Test TV", VendorID: datamodel.TestVendorID},
		Transport: client,
	})
	if err != nil {
		t.Fatalf("casting.Connect() error = %v", err)
	}

	ep, err := session.Endpoint(casting.ByID(app.Endpoint()))
	if err != nil {
		t.Fatalf("Endpoint() error = %v", err)
	}

	t.Cleanup(func() {
		session.Close()
		server.Close()
		pipe.Close()
	})

	return &Pair{App: app, Session: session, Endpoint: ep, Server: server}
}

// Context returns a context that ends with the test or after a few seconds.
func Context(t testing.TB) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// Flush waits until the app's worker has delivered pending reports.
func Flush(t testing.TB, app *contentapp.App) {
	t.Helper()
	if err := app.Worker().Flush(Context(t)); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

// WaitFor polls cond until it holds or the test times out.
func WaitFor(t testing.TB, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
