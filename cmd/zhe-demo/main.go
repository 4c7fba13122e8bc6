// Command zhe-demo is the reference driver for the zhe engine: it
// owns the one process-level loop (wait on the transport, feed
// Input, call Housekeeping) and the ping/pong demo mode ported from
// original_source/main.c's mode==1/mode==-1 publisher/subscriber
// scenario (spec §8 scenario 3).
package main

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/jim1993/zhe/pkg/zhe"
	"github.com/jim1993/zhe/pkg/zhe/types"
	"github.com/jim1993/zhe/transport/udp"
)

const (
	exitOK        = 0
	exitUsage     = 1
	exitTransport = 2
)

var (
	app = kingpin.New("zhe-demo", "reference driver for the zhe pub/sub engine")

	flagID        = app.Flag("id", "explicit peer id, e.g. de:ad:be:ef").Short('h').String()
	flagPublish   = app.Flag("publish", "run as the ping/pong publisher").Short('p').Bool()
	flagSubscribe = app.Flag("subscribe", "run as the ping/pong subscriber").Short('s').Bool()
	flagConduit   = app.Flag("conduit", "conduit id to publish/subscribe on").Short('c').Default("0").Uint8()
	flagUnreli    = app.Flag("unreliable", "pass reliable=false to Publish; the conduit's configured kind still decides, and this demo configures no best-effort conduit").Short('u').Bool()
	flagCheckIntv = app.Flag("check-interval", "print/pong every N samples").Short('C').Default("16384").Uint32()
	flagScoutAddr = app.Flag("scout-addr", "scout rendezvous address").Short('S').Default(":7447").String()
	flagJoin      = app.Flag("join", "comma-separated multicast groups to join").Short('G').Default("").String()
	flagMConduit  = app.Flag("mconduit-dst", "comma-separated mconduit destination addresses").Short('M').Default("239.255.0.2:7447").String()
	flagDropPct   = app.Flag("drop-pct", "artificial percentage of outgoing packets to drop").Short('X').Default("0").Int()
	flagListen    = app.Flag("listen", "local UDP listen address").Default(":0").String()
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if _, err := app.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("usage error: %v", err))
		return exitUsage
	}

	idBytes, err := hex.DecodeString(strings.ReplaceAll(*flagID, ":", ""))
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("usage error: --id: %v", err))
		return exitUsage
	}
	id := types.PeerID(idBytes)
	if len(id) == 0 {
		id = randomID()
	}

	cfg := zhe.DefaultConfig(id)

	base, err := udp.Listen(*flagListen)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("transport: %v", err))
		return exitTransport
	}
	defer base.Close()

	var trans zhe.Transport = base
	if *flagDropPct > 0 {
		trans = udp.NewDropTransport(base, *flagDropPct, time.Now().UnixNano())
	}

	scoutAddr, err := base.ParseAddr(*flagScoutAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("%s: invalid address", *flagScoutAddr))
		return exitTransport
	}
	cfg.ScoutAddr = scoutAddr
	if err := base.JoinGroup(*flagScoutAddr); err != nil {
		color.Yellow("scout group join: %v", err)
	}

	for _, addrstr := range splitCSV(*flagJoin) {
		a, err := base.ParseAddr(addrstr)
		if err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("%s: invalid address", addrstr))
			return exitTransport
		}
		if err := base.JoinGroup(addrstr); err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("%s: join failed: %v", addrstr, err))
			return exitTransport
		}
		cfg.MCGroupsJoin = append(cfg.MCGroupsJoin, a)
	}

	for _, addrstr := range splitCSV(*flagMConduit) {
		a, err := base.ParseAddr(addrstr)
		if err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("%s: invalid address", addrstr))
			return exitTransport
		}
		cfg.MConduitDstAddrs = append(cfg.MConduitDstAddrs, a)
	}

	e := zhe.NewEngine()
	now := zhe.Time(0)
	if err := e.Init(cfg, trans, now); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("init failed: %v", err))
		return exitUsage
	}
	e.Start(now)

	switch {
	case *flagPublish:
		runPublisher(e, base, types.ConduitID(*flagConduit), !*flagUnreli, *flagCheckIntv)
	case *flagSubscribe:
		runSubscriber(e, base, *flagCheckIntv)
	default:
		runDiscoveryOnly(e, base)
	}
	return exitOK
}

// runDiscoveryOnly mirrors main.c's mode==0: just run discovery and
// housekeeping for 20 seconds.
func runDiscoveryOnly(e *zhe.Engine, base *udp.Transport) {
	start := time.Now()
	buf := make([]byte, 2048)
	for time.Since(start) < 20*time.Second {
		if base.Wait(10) {
			n, src, err := base.Recv(buf)
			if err == nil && n > 0 {
				_ = e.Input(buf[:n], src, zheNow(start))
			}
		}
		e.Housekeeping(zheNow(start))
	}
}

// runPublisher mirrors main.c's mode==1: publish an incrementing
// uint32 sample as fast as the transmit window allows, and log every
// checkintv-th sample no more than once a second. Pongs coming back
// from the subscriber are logged by pongHandler, registered below.
func runPublisher(e *zhe.Engine, base *udp.Transport, cid types.ConduitID, reliable bool, checkintv uint32) {
	pub, err := e.Publish(1, cid, reliable)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("publish: %v", err))
		return
	}
	if _, err := e.Subscribe(2, 8, cid, pongHandler, nil); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("subscribe: %v", err))
		return
	}

	start := time.Now()
	tprint := zheNow(start)
	var k uint32
	buf := make([]byte, 2048)
	sample := make([]byte, 4)
	for {
		now := zheNow(start)
		e.Housekeeping(now)

		for base.Wait(0) {
			n, src, err := base.Recv(buf)
			if err != nil || n == 0 {
				break
			}
			_ = e.Input(buf[:n], src, now)
		}

		const blockSize = 50
		for i := 0; i < blockSize; i++ {
			binary.LittleEndian.PutUint32(sample, k)
			ok, err := e.Write(pub, sample)
			if err != nil && !errors.Is(err, zhe.ErrWindowFull) {
				fmt.Fprintln(os.Stderr, color.RedString("write: %v", err))
				return
			}
			if !ok {
				base.Wait(10)
				break
			}
			if checkintv > 0 && k%checkintv == 0 {
				if now.Sub(tprint) >= 1000 {
					fmt.Printf("%4d.%03d %d [%d]\n", now.Seconds(), now.Millis(), k, e.Telemetry().SynchSentValue())
					tprint = now
				}
			}
			k++
		}
	}
}

// runSubscriber mirrors main.c's mode==-1: subscribe to the
// publisher's sample stream and echo a pong every checkintv-th
// sample no more than once a second (shandler's role).
func runSubscriber(e *zhe.Engine, base *udp.Transport, checkintv uint32) {
	pub, err := e.Publish(2, 0, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("publish: %v", err))
		return
	}
	hs := &pingState{pub: pub, engine: e, checkintv: checkintv}
	if _, err := e.Subscribe(1, 4, 0, hs.handle, nil); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("subscribe: %v", err))
		return
	}

	start := time.Now()
	buf := make([]byte, 2048)
	for {
		if base.Wait(10) {
			n, src, err := base.Recv(buf)
			if err == nil && n > 0 {
				_ = e.Input(buf[:n], src, zheNow(start))
			}
		}
		e.Housekeeping(zheNow(start))
	}
}

// pingState holds the subscriber-side echo counters, the ping/pong
// handler's equivalent of shandler's function-local statics.
type pingState struct {
	pub       types.PubIdx
	engine    *zhe.Engine
	checkintv uint32

	lastK     uint32
	lastKInit bool
	oooc      uint32
	tprint    zhe.Time
}

func (s *pingState) handle(rid types.RID, payload []byte, arg interface{}) {
	if len(payload) != 4 {
		return
	}
	k := binary.LittleEndian.Uint32(payload)
	if s.lastKInit && k != s.lastK+1 {
		s.oooc++
	}
	s.lastK = k
	s.lastKInit = true

	if s.checkintv == 0 || k%s.checkintv != 0 {
		return
	}
	now := zhe.Time(time.Now().UnixNano() / int64(time.Millisecond))
	if now.Sub(s.tprint) < 1000 {
		return
	}
	pong := make([]byte, 8)
	binary.LittleEndian.PutUint32(pong[0:4], k)
	binary.LittleEndian.PutUint32(pong[4:8], uint32(now))
	if _, err := s.engine.Write(s.pub, pong); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("pong write: %v", err))
	}
	tele := s.engine.Telemetry()
	fmt.Printf("%4d.%03d %d %d [%d,%d]\n", now.Seconds(), now.Millis(), k, s.oooc,
		tele.DeliveredValue(), tele.DiscardedValue())
	s.tprint = now
}

// pongHandler logs the publisher-side round trip (rhandler's role).
func pongHandler(rid types.RID, payload []byte, arg interface{}) {
	if len(payload) != 8 {
		return
	}
	k := binary.LittleEndian.Uint32(payload[0:4])
	t := zhe.Time(binary.LittleEndian.Uint32(payload[4:8]))
	now := zhe.Time(time.Now().UnixNano() / int64(time.Millisecond))
	fmt.Printf("%4d.%03d pong %d %4d.%03d\n", now.Seconds(), now.Millis(), k, t.Seconds(), t.Millis())
}

func zheNow(start time.Time) zhe.Time {
	return zhe.Time(time.Since(start).Milliseconds())
}

func randomID() types.PeerID {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		for i := range b {
			b[i] = byte(time.Now().UnixNano() >> uint(i*8))
		}
	}
	return types.PeerID(b)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
