package visualiser

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD service under which the stroke stream is advertised.
const ServiceType = "_airwrite._tcp"

// Advertisement announces a running publisher on the local network.
type Advertisement struct {
	server *mdns.Server
}

// serviceZone builds the DNS-SD records for a stream on port. An empty host
// uses the OS hostname; nil ips are resolved from the host.
func serviceZone(instance, host string, port int, ips []net.IP, sessionID string) (*mdns.MDNSService, error) {
	if instance == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("could not get hostname: %w", err)
		}
		instance = h
	}
	if host != "" && !strings.HasSuffix(host, ".") {
		host += "."
	}
	txt := []string{"method=" + WatchMethod}
	if sessionID != "" {
		txt = append(txt, "session="+sessionID)
	}
	svc, err := mdns.NewMDNSService(instance, ServiceType, "", host, port, ips, txt)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	return svc, nil
}

// Advertise announces the publisher listening on addr. Call Shutdown to
// withdraw it.
func Advertise(addr net.Addr, sessionID string) (*Advertisement, error) {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return nil, fmt.Errorf("cannot advertise non-TCP address %v", addr)
	}
	var ips []net.IP
	if tcp.IP != nil && !tcp.IP.IsUnspecified() {
		ips = []net.IP{tcp.IP}
	}
	svc, err := serviceZone("", "", tcp.Port, ips, sessionID)
	if err != nil {
		return nil, err
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: svc})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	diagf("advertising %s on port %d", ServiceType, tcp.Port)
	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertisement) Shutdown() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}
