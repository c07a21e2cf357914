package rtppacket

import (
	"net"

	"github.com/hoakea/camrtsp/internal/logging"
)

var log = logging.DefaultLogger.WithTag("rtppacket")

// Destination is one session's RTP receive endpoint.
type Destination struct {
	Addr *net.UDPAddr
}

// FanOut writes pkt to every destination in dests using conn, the shared
// outbound RTP UDP socket. A send error is logged and otherwise ignored --
// per §4.2, one session's bad address or closed peer must never abort
// delivery to the rest of the frame's audience.
func FanOut(conn *net.UDPConn, dests []Destination, pkt []byte) {
	for _, d := range dests {
		if d.Addr == nil {
			continue
		}
		if _, err := conn.WriteToUDP(pkt, d.Addr); err != nil {
			log.Warn("RTP send to %s failed: %v", d.Addr, err)
		}
	}
}
