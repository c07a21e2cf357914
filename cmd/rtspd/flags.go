package main

import (
	"fmt"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	flagEnvFile    string
	flagRTSPPort   int
	flagRTPPort    int
	flagRTCPPort   int
	flagStreamPath string
	flagBitrate    int
	flagGOP        int
	flagQPMin      int
	flagQPMax      int
	flagMaxClients int
	flagUsername   string
	flagPassword   string
	flagCamera     string
	flagWidth      int
	flagHeight     int
	flagHelp       bool
	flagVersion    bool
)

func init() {
	flag.StringVarP(&flagEnvFile, "env-file", "e", "", "Optional .env overlay file")
	flag.IntVarP(&flagRTSPPort, "port", "p", 0, "RTSP listen port (default 554)")
	flag.IntVarP(&flagRTPPort, "rtp-port", "", 0, "RTP UDP port (default 5004)")
	flag.IntVarP(&flagRTCPPort, "rtcp-port", "", 0, "RTCP UDP port (default 5005)")
	flag.StringVarP(&flagStreamPath, "stream-path", "s", "", "RTSP stream path (default /stream)")
	flag.IntVarP(&flagBitrate, "bitrate", "b", 0, "Target video bitrate, in bits/sec")
	flag.IntVarP(&flagGOP, "gop", "g", 0, "Group-of-pictures size, in frames")
	flag.IntVarP(&flagQPMin, "qp-min", "", 0, "Minimum quantization parameter")
	flag.IntVarP(&flagQPMax, "qp-max", "", 0, "Maximum quantization parameter")
	flag.IntVarP(&flagMaxClients, "max-clients", "m", 0, "Maximum simultaneous clients")
	flag.StringVarP(&flagUsername, "username", "u", "", "Basic-auth username")
	flag.StringVarP(&flagPassword, "password", "", "", "Basic-auth password")
	flag.StringVarP(&flagCamera, "input", "i", "", "Camera device path (default /dev/video0)")
	flag.IntVarP(&flagWidth, "width", "x", 0, "Capture width, in pixels")
	flag.IntVarP(&flagHeight, "height", "y", 0, "Capture height, in pixels")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

const helpString = `Onboard H.264/RTP streaming over RTSP

Usage: rtspd [OPTION]...

Network:
  -p, --port=NUM          RTSP listen port (default: 554)
      --rtp-port=NUM      RTP UDP port (default: 5004)
      --rtcp-port=NUM     RTCP UDP port (default: 5005)
  -s, --stream-path=PATH  RTSP stream path (default: /stream)

Video source:
  -i, --input=FILE        Camera device path (default: /dev/video0)
  -x, --width=NUM         Capture width (default: 1280)
  -y, --height=NUM        Capture height (default: 720)
  -b, --bitrate=NUM       Target bitrate, bits/sec (default: 2000000)
  -g, --gop=NUM           Group-of-pictures size (default: 30)
      --qp-min=NUM        Minimum quantization parameter (default: 10)
      --qp-max=NUM        Maximum quantization parameter (default: 40)

Access control:
  -u, --username=NAME     Basic-auth username (default: disabled)
      --password=PASS     Basic-auth password (default: disabled)
  -m, --max-clients=NUM   Maximum simultaneous clients (default: 3)

Configuration:
  -e, --env-file=FILE     Optional .env overlay file

Miscellaneous:
  -h, --help              Prints this help message and exits
  -v, --version           Prints version information and exits`

// help prints a colorized banner and the usage string. It does not exit;
// main exits after calling it.
func help() {
	r := color.New(color.FgRed)
	c := color.New(color.FgCyan)

	//  _  __   __    __  __
	// | |/ /  / /   / /_/ /__ ___ ___
	// | ' /  / /   / __/ / -_)_ \(_-<
	// |_|\_\/_/    \__/_/\__/___/___/

	r.Printf("  _  __  ")
	c.Println(" __    __  __")
	r.Printf(" | |/ /  ")
	c.Println("/ /   / /_/ /__ ___ ___")
	r.Printf(" | ' /  ")
	c.Println("/ /   / __/ / -_)_ \\(_-<")
	r.Printf(" |_|\\_\\")
	c.Println("/_/    \\__/_/\\__/___/___/")

	fmt.Println()
	fmt.Println(helpString)
}
