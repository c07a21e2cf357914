package rtspwire

import (
	"fmt"
	"strings"

	"github.com/hoakea/camrtsp/internal/sdp"
)

// VideoDescription carries the parameters needed to build the SDP body for
// a DESCRIBE response: stream dimensions and (if already cached) the
// current SPS/PPS NAL units.
type VideoDescription struct {
	Width, Height int
	SPS, PPS      []byte // may be nil if not yet cached
}

// BuildSDP assembles the single-video-track SDP body described in §4.1:
// session-level v/o/s/c/t/a=control/a=range, one m=video line for H.264 at
// payload type 96, packetization-mode=1, and (when both SPS and PPS are
// cached) an appended sprop-parameter-sets fmtp parameter.
func BuildSDP(streamPath string, serverAddr string, v VideoDescription) string {
	session := sdp.Session{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "-",
			SessionId:      "0",
			SessionVersion: 0,
			NetworkType:    "IN",
			AddressType:    "IP4",
			Address:        serverAddr,
		},
		Name: "Stream",
		Connection: &sdp.Connection{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     serverAddr,
		},
		Time: []sdp.Time{{}},
		Attributes: []sdp.Attribute{
			{Key: "control", Value: "*"},
			{Key: "range", Value: "npt=0-"},
		},
		Media: []sdp.Media{
			{
				Type:   "video",
				Port:   0,
				Proto:  "RTP/AVP",
				Format: []string{"96"},
				Attributes: []sdp.Attribute{
					{Key: "rtpmap", Value: "96 H264/90000"},
					{Key: "fmtp", Value: fmtpLine(v)},
					{Key: "control", Value: "track1"},
					{Key: "framerate", Value: "30"},
					{Key: "framesize", Value: fmt.Sprintf("96 %d-%d", v.Width, v.Height)},
				},
			},
		},
	}

	return session.String()
}

func fmtpLine(v VideoDescription) string {
	parts := []string{"96 packetization-mode=1"}
	if len(v.SPS) > 0 && len(v.PPS) > 0 {
		parts[0] += fmt.Sprintf(";sprop-parameter-sets=%s,%s",
			Base64Encode(v.SPS), Base64Encode(v.PPS))
	}
	return strings.Join(parts, "")
}
