package ifcheck

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/neteng-tools/popctl/pkg/billboard"
	"github.com/neteng-tools/popctl/pkg/util"
)

// Host runs a shell command on a server and returns its stdout.
type Host interface {
	Run(ctx context.Context, cmd string) (string, error)
}

// PeerSource lists billboard peers. *billboard.Runner implements it.
type PeerSource interface {
	GetPeers(ctx context.Context, hostname string) ([]billboard.PeerRecord, error)
}

// TransitTarget is pinged for transit circuits, whose far end usually
// drops ICMP.
const TransitTarget = "4.2.2.2"

const (
	DefaultInterval  = 30 * time.Second
	DefaultPingCount = 5000
)

// Stage names reported to Progress.
const (
	StageLink     = "Validating Interfaces are UP"
	StageLight    = "Gathering Light Levels"
	StageLoss     = "Gathering Packet Loss"
	StageCounters = "Gathering Incrementing CRC, RX and TX Errors"
)

// Checker runs the check stages against one server.
type Checker struct {
	Server string
	Host   Host

	// Peers resolves far-end addresses for circuits that are not /31s.
	// Nil skips the lookup.
	Peers PeerSource

	// Interval separates the two counter samples.
	Interval  time.Duration
	PingCount int

	// Diagnostic only gathers light levels.
	Diagnostic bool

	// Progress, if set, is called when a stage starts and finishes.
	Progress func(stage string, done bool)
}

// Run executes every stage over ifaces. Each stage runs one goroutine per
// interface and waits for all of them before the next stage starts. Stage
// failures are recorded on the interface; Run only fails when ctx ends.
func (c *Checker) Run(ctx context.Context, ifaces []*Interface) error {
	stages := []struct {
		name string
		fn   func(context.Context, *Interface)
	}{
		{StageLink, c.checkLink},
		{StageLight, c.checkLight},
		{StageLoss, c.checkLoss},
	}
	if c.Diagnostic {
		stages = stages[1:2]
	}

	for _, s := range stages {
		c.stage(ctx, s.name, ifaces, s.fn)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if c.Diagnostic {
		return nil
	}
	return c.checkCounters(ctx, ifaces)
}

func (c *Checker) stage(ctx context.Context, name string, ifaces []*Interface, fn func(context.Context, *Interface)) {
	if c.Progress != nil {
		c.Progress(name, false)
	}
	util.WithOperation("ifcheck."+name).WithField("device", c.Server).Debugf("stage: %s", name)

	var wg sync.WaitGroup
	for _, iface := range ifaces {
		wg.Add(1)
		go func(iface *Interface) {
			defer wg.Done()
			fn(ctx, iface)
		}(iface)
	}
	wg.Wait()

	if c.Progress != nil {
		c.Progress(name, true)
	}
}

func (c *Checker) run(ctx context.Context, iface *Interface, cmd string) (string, bool) {
	out, err := c.Host.Run(ctx, cmd)
	if err != nil {
		iface.Errors = append(iface.Errors, fmt.Sprintf("%s: %v", cmd, err))
		return "", false
	}
	return out, true
}

func (c *Checker) checkLink(ctx context.Context, iface *Interface) {
	out, ok := c.run(ctx, iface, "sudo ip -s link show "+iface.Name)
	if !ok {
		return
	}
	state, ok := ParseLinkState(out)
	if !ok {
		iface.Errors = append(iface.Errors, "could not read link state of "+iface.Name)
		return
	}
	iface.State = state
}

func (c *Checker) checkLight(ctx context.Context, iface *Interface) {
	name := strings.ToLower(iface.Name)
	out, ok := c.run(ctx, iface, "sudo ethtool "+name+" | grep Speed")
	if !ok {
		return
	}
	iface.Speed = ParseSpeed(out)

	grep := `| grep "Rcvr signal avg optical power"`
	if iface.Speed == "10G" {
		grep = `| grep "Receiver signal average optical power"`
	}
	out, ok = c.run(ctx, iface, "sudo ethtool -m "+name+" "+grep)
	if !ok {
		return
	}
	iface.RawLight = out
	iface.Light = ParseLight(out, iface.Speed)
}

func (c *Checker) checkLoss(ctx context.Context, iface *Interface) {
	target, err := c.pingTarget(ctx, iface)
	if err != nil {
		iface.Errors = append(iface.Errors, err.Error())
		return
	}
	iface.PingTarget = target

	source := HostAddress(iface.IP)
	if source == "" {
		out, ok := c.run(ctx, iface, "ip -br a show "+strings.ToLower(iface.Name))
		if !ok {
			return
		}
		source = ParseBriefIPv4(out)
	}
	if source == "" {
		iface.Errors = append(iface.Errors, "no IPv4 address on "+iface.Name)
		return
	}

	count := c.PingCount
	if count == 0 {
		count = DefaultPingCount
	}
	out, ok := c.run(ctx, iface, fmt.Sprintf("sudo ping -f %s -c %d -I %s", target, count, source))
	if !ok {
		return
	}
	iface.RawLoss = out
	if loss, ok := ParseLoss(out); ok {
		iface.PacketLoss = loss
		iface.LossMeasured = true
	}
}

// pingTarget picks the far end to ping: a public resolver for transit, the
// other side of a /31, or the billboard peer in the same /24.
func (c *Checker) pingTarget(ctx context.Context, iface *Interface) (string, error) {
	if iface.Type != PNI && iface.Type != IXP && iface.Type != Wave {
		return TransitTarget, nil
	}
	if peer := util.ComputeNeighborIP(iface.IP); peer != "" {
		return peer, nil
	}
	if c.Peers == nil {
		return "", fmt.Errorf("no peer address for %s", iface.Name)
	}

	addr := HostAddress(iface.IP)
	octets := strings.Split(addr, ".")
	if len(octets) != 4 {
		return "", fmt.Errorf("no IPv4 circuit address on %s", iface.Name)
	}
	net24 := strings.Join(octets[:3], ".") + "."

	peers, err := c.Peers.GetPeers(ctx, c.Server)
	if err != nil {
		return "", fmt.Errorf("billboard peers: %w", err)
	}
	for _, p := range peers {
		if strings.HasPrefix(p.IP, net24) && p.IP != addr {
			return p.IP, nil
		}
	}
	return "", fmt.Errorf("no billboard peer in %s0/24 for %s", net24, iface.Name)
}

func (c *Checker) sample(ctx context.Context, iface *Interface, into *Counters) {
	name := strings.ToLower(iface.Name)
	if out, ok := c.run(ctx, iface, "sudo ethtool -S "+name+" | grep rx_crc_errors"); ok {
		into.CRC, into.CRCValid = ParseCRC(out)
	}
	if out, ok := c.run(ctx, iface, `sudo ip -s link show `+name+` | grep "RX\|TX" -A 1`); ok {
		into.RX, into.TX, into.RXTXValid = ParseRXTX(out)
	}
}

// checkCounters samples every interface, waits Interval, then samples again.
func (c *Checker) checkCounters(ctx context.Context, ifaces []*Interface) error {
	if c.Progress != nil {
		c.Progress(StageCounters, false)
	}

	c.stage(ctx, StageCounters+" (before)", ifaces, func(ctx context.Context, iface *Interface) {
		c.sample(ctx, iface, &iface.Before)
	})

	interval := c.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	c.stage(ctx, StageCounters+" (after)", ifaces, func(ctx context.Context, iface *Interface) {
		c.sample(ctx, iface, &iface.After)
	})

	if c.Progress != nil {
		c.Progress(StageCounters, true)
	}
	return ctx.Err()
}
