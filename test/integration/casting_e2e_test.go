package integration

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/backkem/matter-tv/examples/common"
	"github.com/backkem/matter-tv/pkg/async"
	"github.com/backkem/matter-tv/pkg/casting"
	"github.com/backkem/matter-tv/pkg/clusters/contentlauncher"
	"github.com/backkem/matter-tv/pkg/clusters/mediaplayback"
	"github.com/backkem/matter-tv/pkg/clusters/targetnavigator"
	"github.com/backkem/matter-tv/pkg/datamodel"
	"github.com/backkem/matter-tv/pkg/link"
	"github.com/backkem/matter-tv/pkg/mqttbridge"
	"github.com/backkem/matter-tv/pkg/transport"
)

// stateRecorder collects playback state reports and errors.
type stateRecorder struct {
	mu     sync.Mutex
	states []mediaplayback.PlaybackState
	errs   []error
}

func (r *stateRecorder) OnUpdate(s mediaplayback.PlaybackState) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *stateRecorder) OnError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *stateRecorder) updates() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *stateRecorder) last() (mediaplayback.PlaybackState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return 0, false
	}
	return r.states[len(r.states)-1], true
}

func (r *stateRecorder) errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

var _ async.Callback[mediaplayback.PlaybackState] = (*stateRecorder)(nil)

// TestE2E_PlaybackCommands drives the player's transport controls from the
// casting client and checks the player's state.
func TestE2E_PlaybackCommands(t *testing.T) {
	pair := NewTestPair(t, DefaultTestPairConfig())
	s, ep := pair.Session()
	mp := mediaplayback.NewClient(s, ep)
	handler := pair.App().Playback
	ctx := pair.Context()

	steps := []struct {
		name  string
		send  func() *async.Future[mediaplayback.PlaybackResponse]
		want  mediaplayback.Status
		state mediaplayback.PlaybackState
	}{
		{"Pause while stopped", func() *async.Future[mediaplayback.PlaybackResponse] { return mp.Pause(ctx) }, mediaplayback.StatusInvalidStateForCommand, mediaplayback.PlaybackStateNotPlaying},
		{"Play", func() *async.Future[mediaplayback.PlaybackResponse] { return mp.Play(ctx) }, mediaplayback.StatusSuccess, mediaplayback.PlaybackStatePlaying},
		{"Pause", func() *async.Future[mediaplayback.PlaybackResponse] { return mp.Pause(ctx) }, mediaplayback.StatusSuccess, mediaplayback.PlaybackStatePaused},
		{"StartOver", func() *async.Future[mediaplayback.PlaybackResponse] { return mp.StartOver(ctx) }, mediaplayback.StatusSuccess, mediaplayback.PlaybackStatePlaying},
		{"Stop", func() *async.Future[mediaplayback.PlaybackResponse] { return mp.Stop(ctx) }, mediaplayback.StatusSuccess, mediaplayback.PlaybackStateNotPlaying},
	}
	for _, step := range steps {
		resp, err := step.send().Await(ctx)
		if err != nil {
			t.Fatalf("%s: error = %v", step.name, err)
		}
		if resp.Status != step.want {
			t.Errorf("%s: Status = %v, want %v", step.name, resp.Status, step.want)
		}
		if got := handler.State(); got != step.state {
			t.Errorf("%s: State() = %v, want %v", step.name, got, step.state)
		}
	}

	state, err := mp.CurrentState(ctx).Await(ctx)
	if err != nil {
		t.Fatalf("CurrentState() error = %v", err)
	}
	if state != mediaplayback.PlaybackStateNotPlaying {
		t.Errorf("CurrentState() = %v, want NotPlaying", state)
	}
}

// TestE2E_CapabilityNotFound checks that a command for a cluster the
// endpoint lacks fails without reaching the player.
func TestE2E_CapabilityNotFound(t *testing.T) {
	pair := NewTestPair(t, DefaultTestPairConfig())
	s, ep := pair.Session()
	ctx := pair.Context()

	const onOff datamodel.ClusterID = 0x0006
	f := s.Dispatcher().Invoke(ctx, ep, onOff, 0x01, datamodel.Absent())
	if _, err := f.Result(); !errors.Is(err, casting.ErrCapabilityNotFound) {
		t.Errorf("Invoke() result = %v, want ErrCapabilityNotFound without waiting", err)
	}

	if _, err := s.Subscriptions().Subscribe(ctx, ep, onOff, 0, 0, time.Second, nil); !errors.Is(err, casting.ErrCapabilityNotFound) {
		t.Errorf("Subscribe() error = %v, want ErrCapabilityNotFound", err)
	}
	if n := s.Subscriptions().Len(); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
}

// TestE2E_SubscriptionLifecycle follows a subscription from Requested to
// Cancelled and checks no report arrives after shutdown.
func TestE2E_SubscriptionLifecycle(t *testing.T) {
	pair := NewTestPair(t, DefaultTestPairConfig())
	s, ep := pair.Session()
	handler := pair.App().Playback
	ctx := pair.Context()

	rec := &stateRecorder{}
	sub, err := mediaplayback.NewClient(s, ep).SubscribeCurrentState(ctx, 0, 5*time.Second, rec)
	if err != nil {
		t.Fatalf("SubscribeCurrentState() error = %v", err)
	}

	waitFor(t, "priming report", func() bool {
		st, ok := rec.last()
		return ok && st == mediaplayback.PlaybackStateNotPlaying
	})
	waitFor(t, "active subscription", func() bool { return sub.State() == casting.SubscriptionActive })

	if err := handler.SetState(mediaplayback.PlaybackStatePlaying); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	waitFor(t, "Playing report", func() bool {
		st, _ := rec.last()
		return st == mediaplayback.PlaybackStatePlaying
	})

	s.Subscriptions().ShutdownAll()
	if sub.State() != casting.SubscriptionCancelled {
		t.Errorf("State() = %v, want Cancelled", sub.State())
	}
	waitFor(t, "player drops the subscription", func() bool {
		return pair.Device.Server.SubscriptionCount() == 0
	})

	seen := rec.updates()
	if err := handler.SetState(mediaplayback.PlaybackStatePaused); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if n := rec.updates(); n != seen {
		t.Errorf("updates after shutdown = %d, want %d", n, seen)
	}

	// Idempotent on an empty set.
	s.Subscriptions().ShutdownAll()
	if len(rec.errors()) != 0 {
		t.Errorf("errors = %v, want none", rec.errors())
	}
}

// TestE2E_HeartbeatMissed cuts the link under an active subscription and
// expects heartbeat errors while the subscription stays active.
func TestE2E_HeartbeatMissed(t *testing.T) {
	config := DefaultTestPairConfig()
	config.HeartbeatGrace = 50 * time.Millisecond
	pair := NewTestPair(t, config)
	s, ep := pair.Session()
	ctx := pair.Context()

	rec := &stateRecorder{}
	sub, err := mediaplayback.NewClient(s, ep).SubscribeCurrentState(ctx, 0, 100*time.Millisecond, rec)
	if err != nil {
		t.Fatalf("SubscribeCurrentState() error = %v", err)
	}
	waitFor(t, "active subscription", func() bool { return sub.State() == casting.SubscriptionActive })
	waitFor(t, "heartbeat", func() bool { return rec.updates() >= 2 })
	if errs := rec.errors(); len(errs) != 0 {
		t.Fatalf("errors on a healthy link = %v", errs)
	}

	pair.Pipe.SetCondition(transport.NetworkCondition{DropRate: 1})
	waitFor(t, "missed heartbeat", func() bool { return len(rec.errors()) > 0 })

	err = rec.errors()[0]
	if !errors.Is(err, link.ErrHeartbeatMissed) {
		t.Errorf("error = %v, want ErrHeartbeatMissed", err)
	}
	var te *casting.TransportError
	if !errors.As(err, &te) {
		t.Errorf("error = %T, want *casting.TransportError", err)
	}
	if sub.State() != casting.SubscriptionActive {
		t.Errorf("State() = %v, want Active", sub.State())
	}

	pair.Pipe.SetCondition(transport.NetworkCondition{})
	seen := rec.updates()
	waitFor(t, "heartbeat after recovery", func() bool { return rec.updates() > seen })
}

// TestE2E_LaunchContent searches the player's catalog and expects playback
// to start.
func TestE2E_LaunchContent(t *testing.T) {
	pair := NewTestPair(t, DefaultTestPairConfig())
	s, ep := pair.Session()
	ctx := pair.Context()

	rec := &stateRecorder{}
	if _, err := mediaplayback.NewClient(s, ep).SubscribeCurrentState(ctx, 0, 5*time.Second, rec); err != nil {
		t.Fatalf("SubscribeCurrentState() error = %v", err)
	}

	cl := contentlauncher.NewClient(s, ep)
	req := contentlauncher.LaunchContentRequest{
		Search: contentlauncher.Search{Parameters: []contentlauncher.Parameter{
			{Type: contentlauncher.ParameterGenre, Value: "animation"},
		}},
		AutoPlay: true,
		Data:     "session=42",
	}
	resp, err := cl.LaunchContent(ctx, req).Await(ctx)
	if err != nil {
		t.Fatalf("LaunchContent() error = %v", err)
	}
	if resp.Status != contentlauncher.StatusSuccess {
		t.Fatalf("Status = %v, want Success", resp.Status)
	}

	launch, ok := pair.App().ContentLauncher.Last()
	if !ok || launch.Title != "Big Buck Bunny" {
		t.Errorf("Last() = %+v, %v, want Big Buck Bunny", launch, ok)
	}
	waitFor(t, "Playing report", func() bool {
		st, _ := rec.last()
		return st == mediaplayback.PlaybackStatePlaying
	})

	resp, err = cl.LaunchURL(ctx, "ftp://example.com/movie", "").Await(ctx)
	if err != nil {
		t.Fatalf("LaunchURL() error = %v", err)
	}
	if resp.Status != contentlauncher.StatusURLNotAvailable {
		t.Errorf("LaunchURL(ftp) Status = %v, want URLNotAvailable", resp.Status)
	}
}

// TestE2E_SelectByVendor hosts two apps and checks the client picks the
// configured vendor's app.
func TestE2E_SelectByVendor(t *testing.T) {
	config := DefaultTestPairConfig()
	other := config.Player.Apps[0]
	other.Endpoint = 5
	other.VendorID = 0x1234
	other.ApplicationID = "com.other.app"
	other.Targets = []common.TargetFile{{ID: 7, Name: "Guide"}}
	config.Player.Apps = append(config.Player.Apps, other)
	config.Casting.TargetVendor = 0x1234
	pair := NewTestPair(t, config)

	s, ep := pair.Session()
	if ep.ID != 5 {
		t.Fatalf("selected endpoint = %d, want 5", ep.ID)
	}
	if len(s.Player().Endpoints()) != 2 {
		t.Errorf("Endpoints() = %d, want 2", len(s.Player().Endpoints()))
	}

	ctx := pair.Context()
	targets, err := targetnavigator.NewClient(s, ep).TargetList(ctx).Await(ctx)
	if err != nil {
		t.Fatalf("TargetList() error = %v", err)
	}
	if len(targets) != 1 || targets[0].Name != "Guide" {
		t.Errorf("TargetList() = %v, want [Guide]", targets)
	}

	if err := pair.Controller.Select(4); err != nil {
		t.Fatalf("Select(4) error = %v", err)
	}
	if _, ep = pair.Session(); ep.ID != 4 {
		t.Errorf("endpoint after Select = %d, want 4", ep.ID)
	}
	if err := pair.Controller.Select(9); !errors.Is(err, casting.ErrEndpointNotFound) {
		t.Errorf("Select(9) error = %v, want ErrEndpointNotFound", err)
	}
}

// TestE2E_ReadAll reads every global attribute of the selected endpoint.
func TestE2E_ReadAll(t *testing.T) {
	pair := NewTestPair(t, DefaultTestPairConfig())
	s, ep := pair.Session()
	ctx := pair.Context()

	readings, err := s.Dispatcher().ReadAll(ctx, ep).Await(ctx)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if want := len(ep.Clusters) * len(datamodel.GlobalAttributes); len(readings) != want {
		t.Fatalf("ReadAll() = %d readings, want %d", len(readings), want)
	}
	for _, r := range readings {
		if r.Path.Attribute != datamodel.GlobalAttrClusterRevision {
			continue
		}
		if r.Err != nil || r.Value.Kind != datamodel.KindUint {
			t.Errorf("%s = %v, %v, want a revision", r.Path, r.Value, r.Err)
		}
	}
}

// TestE2E_ReconnectFromCache reconnects to a player loaded from the cache.
func TestE2E_ReconnectFromCache(t *testing.T) {
	pair := NewTestPair(t, DefaultTestPairConfig())
	s, _ := pair.Session()
	id := s.Player().ID

	if err := pair.Controller.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if _, _, err := pair.Controller.Session(); err == nil {
		t.Fatal("Session() after Disconnect returned no error")
	}

	known, err := pair.Controller.KnownPlayers()
	if err != nil || len(known) != 1 || known[0].ID != id {
		t.Fatalf("KnownPlayers() = %v, %v", known, err)
	}
	if eps := known[0].Endpoints(); len(eps) != 1 || eps[0].ID != 4 {
		t.Errorf("cached endpoints = %v, want endpoint 4", eps)
	}

	player, err := pair.Controller.Player(id)
	if err != nil {
		t.Fatalf("Player(%q) error = %v", id, err)
	}
	ctx := pair.Context()
	if err := pair.Controller.Connect(ctx, player); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if pair.Dials != 2 {
		t.Errorf("Dials = %d, want 2", pair.Dials)
	}

	s, ep := pair.Session()
	if _, err := mediaplayback.NewClient(s, ep).Play(ctx).Await(ctx); err != nil {
		t.Errorf("Play() after reconnect error = %v", err)
	}
}

// TestE2E_MQTTMirror checks the player's bridge mirrors attribute changes
// made through the casting client.
func TestE2E_MQTTMirror(t *testing.T) {
	pair := NewTestPair(t, DefaultTestPairConfig())
	s, ep := pair.Session()
	ctx := pair.Context()

	topic := "matter-tv/4/0506/0000"
	decode := func() (mqttbridge.Message, bool) {
		var msg mqttbridge.Message
		b, ok := pair.MQTT.Retained(topic)
		if !ok {
			return msg, false
		}
		if err := json.Unmarshal(b, &msg); err != nil {
			t.Errorf("payload %q: %v", b, err)
			return msg, false
		}
		return msg, true
	}

	msg, ok := decode()
	if !ok {
		t.Fatalf("no snapshot on %s", topic)
	}
	if msg.Value != float64(mediaplayback.PlaybackStateNotPlaying) {
		t.Errorf("snapshot value = %v, want %d", msg.Value, mediaplayback.PlaybackStateNotPlaying)
	}

	if _, err := mediaplayback.NewClient(s, ep).Play(ctx).Await(ctx); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	waitFor(t, "Playing on MQTT", func() bool {
		msg, ok := decode()
		return ok && msg.Value == float64(mediaplayback.PlaybackStatePlaying)
	})

	pair.Device.Close()
	if !pair.MQTT.Disconnected() {
		t.Error("bridge did not disconnect on Close")
	}
	if state, _ := pair.MQTT.Retained("matter-tv/bridge/state"); string(state) != "offline" {
		t.Errorf("bridge state = %q, want offline", state)
	}
}
