package discovery

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

func TestPlayerTXT_EncodeParse(t *testing.T) {
	tests := []struct {
		name string
		txt  PlayerTXT
		want []string
	}{
		{
			name: "full",
			txt:  PlayerTXT{VendorID: 65521, ProductID: 32769, DeviceType: 35, DeviceName: "Living Room TV", CommissionerPasscode: true},
			want: []string{"VP=65521+32769", "DT=35", "DN=Living Room TV", "CP=1"},
		},
		{
			name: "empty",
			txt:  PlayerTXT{},
			want: nil,
		},
		{
			name: "name only",
			txt:  PlayerTXT{DeviceName: "TV"},
			want: []string{"DN=TV"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.txt.Encode()
			if strings.Join(got, ";") != strings.Join(tt.want, ";") {
				t.Fatalf("Encode() = %v, want %v", got, tt.want)
			}

			parsed, err := ParsePlayerTXT(ParseTXT(got))
			if err != nil {
				t.Fatalf("ParsePlayerTXT() error = %v", err)
			}
			if *parsed != tt.txt {
				t.Errorf("ParsePlayerTXT() = %+v, want %+v", *parsed, tt.txt)
			}
		})
	}
}

func TestPlayerTXT_Truncation(t *testing.T) {
	long := strings.Repeat("x", 40)
	txt := PlayerTXT{DeviceName: long}
	if err := txt.Validate(); !errors.Is(err, ErrInvalidDeviceName) {
		t.Errorf("Validate() error = %v, want ErrInvalidDeviceName", err)
	}
	enc := txt.Encode()
	if len(enc) != 1 || len(enc[0]) != len("DN=")+MaxDeviceNameLength {
		t.Errorf("Encode() = %v, want name truncated to %d", enc, MaxDeviceNameLength)
	}
}

func TestParsePlayerTXT_Invalid(t *testing.T) {
	tests := []map[string]string{
		{"VP": "abc"},
		{"VP": "1+x"},
		{"DT": "-1"},
	}
	for _, m := range tests {
		if _, err := ParsePlayerTXT(m); !errors.Is(err, ErrInvalidTXTRecord) {
			t.Errorf("ParsePlayerTXT(%v) error = %v, want ErrInvalidTXTRecord", m, err)
		}
	}

	txt, err := ParsePlayerTXT(map[string]string{"VP": "65521"})
	if err != nil || txt.VendorID != 65521 || txt.ProductID != 0 {
		t.Errorf("ParsePlayerTXT(VP without PID) = %+v, %v", txt, err)
	}
}

func TestSortIPsByPreference(t *testing.T) {
	ips := []net.IP{
		net.ParseIP("192.168.1.10"),
		net.ParseIP("fe80::1"),
		net.ParseIP("::1"),
		net.ParseIP("fd00::1"),
		net.ParseIP("2001:db8::1"),
	}
	got := SortIPsByPreference(ips)
	want := []string{"2001:db8::1", "fd00::1", "192.168.1.10", "fe80::1", "::1"}
	for i, w := range want {
		if got[i].String() != w {
			t.Errorf("sorted[%d] = %s, want %s", i, got[i], w)
		}
	}
	if ips[0].String() != "192.168.1.10" {
		t.Error("SortIPsByPreference modified its input")
	}
	if v4 := FilterIPv4(ips); len(v4) != 1 {
		t.Errorf("FilterIPv4() = %v", v4)
	}
}

func TestAdvertiser_StartStop(t *testing.T) {
	factory := &MockServerFactory{}
	adv, err := NewAdvertiser(AdvertiserConfig{InstanceName: "TV1", Port: 6000, ServerFactory: factory})
	if err != nil {
		t.Fatalf("NewAdvertiser() error = %v", err)
	}

	if err := adv.Start(PlayerTXT{VendorID: 65521, ProductID: 1, DeviceType: 35, DeviceName: "TV"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !adv.IsAdvertising() || adv.InstanceName() != "TV1" {
		t.Errorf("IsAdvertising() = %v, InstanceName() = %q", adv.IsAdvertising(), adv.InstanceName())
	}
	if err := adv.Start(PlayerTXT{}); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}

	servers := factory.Servers()
	if len(servers) != 1 {
		t.Fatalf("registrations = %d, want 1", len(servers))
	}
	s := servers[0]
	if s.Service != "_matterd._udp,_V65521,_T35" {
		t.Errorf("service = %q", s.Service)
	}
	if s.Port != 6000 {
		t.Errorf("port = %d, want 6000", s.Port)
	}

	if err := adv.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !s.IsShutdown() {
		t.Error("server not shut down")
	}
	if err := adv.Stop(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("second Stop() error = %v, want ErrNotStarted", err)
	}

	adv.Close()
	if err := adv.Start(PlayerTXT{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after Close error = %v, want ErrClosed", err)
	}
}

func TestAdvertiser_DefaultsAndErrors(t *testing.T) {
	if _, err := NewAdvertiser(AdvertiserConfig{Port: 70000}); !errors.Is(err, ErrInvalidPort) {
		t.Errorf("NewAdvertiser(port 70000) error = %v, want ErrInvalidPort", err)
	}

	factory := &MockServerFactory{}
	factory.SetError(errors.New("no multicast"))
	adv, _ := NewAdvertiser(AdvertiserConfig{ServerFactory: factory})
	if adv.config.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", adv.config.Port, DefaultPort)
	}
	if err := adv.Start(PlayerTXT{}); err == nil {
		t.Error("Start() with failing factory returned nil")
	}
	if adv.IsAdvertising() {
		t.Error("IsAdvertising() after failed Start")
	}
}

func TestResolver_BrowsePlayers(t *testing.T) {
	mock := NewMockMDNSResolver()
	factory := &MockServerFactory{Resolver: mock}

	adv, _ := NewAdvertiser(AdvertiserConfig{InstanceName: "TV1", ServerFactory: factory})
	adv.Start(PlayerTXT{VendorID: 65521, ProductID: 32769, DeviceType: 35, DeviceName: "Living Room"})

	mock.RegisterService(MockPlayerService("TV2", 5541, net.IPv4(10, 0, 0, 2), PlayerTXT{VendorID: 4447, DeviceName: "Bedroom"}), "_V4447")

	r, err := NewResolver(ResolverConfig{MDNSResolver: mock})
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	results, err := r.BrowsePlayers(ctx)
	if err != nil {
		t.Fatalf("BrowsePlayers() error = %v", err)
	}
	var names []string
	for svc := range results {
		txt, err := svc.TXT()
		if err != nil {
			t.Fatalf("TXT() error = %v", err)
		}
		names = append(names, txt.DeviceName)
	}
	if strings.Join(names, ",") != "Living Room,Bedroom" {
		t.Errorf("browsed players = %v", names)
	}

	filtered, _ := r.BrowsePlayersByVendor(ctx, 65521)
	var got []ResolvedService
	for svc := range filtered {
		got = append(got, svc)
	}
	if len(got) != 1 || got[0].InstanceName != "TV1" {
		t.Errorf("BrowsePlayersByVendor() = %+v", got)
	}
}

func TestResolver_Lookup(t *testing.T) {
	mock := NewMockMDNSResolver()
	mock.RegisterService(MockPlayerService("TV1", 5540, net.IPv4(10, 0, 0, 1), PlayerTXT{DeviceName: "TV"}))

	r, _ := NewResolver(ResolverConfig{MDNSResolver: mock})

	svc, err := r.Lookup(context.Background(), "TV1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if svc.Port != 5540 || !svc.PreferredIP().Equal(net.IPv4(10, 0, 0, 1)) {
		t.Errorf("Lookup() = %+v", svc)
	}

	if _, err := r.Lookup(context.Background(), "missing"); !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("Lookup(missing) error = %v, want ErrServiceNotFound", err)
	}
}
