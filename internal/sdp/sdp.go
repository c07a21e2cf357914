// Package sdp builds RFC 4566 session descriptions for the single-video-
// track bodies this server returns from DESCRIBE (§4.6). It only builds
// SDP text; nothing in this server parses an SDP offer, so the generic
// parser the teacher's SDP package carried (for WebRTC answer/offer
// negotiation) is not part of this adaptation -- every field kept below,
// except Media.Connection, is one internal/rtspwire/sdp.go actually sets.
package sdp

import (
	"fmt"
	"strings"
)

// Session is one SDP session-level description plus its media sections.
type Session struct {
	Version    int
	Origin     Origin
	Name       string
	Connection *Connection // Optional
	Time       []Time
	Attributes []Attribute
	Media      []Media
}

type Origin struct {
	Username       string
	SessionId      string
	SessionVersion uint64
	NetworkType    string
	AddressType    string
	Address        string
}

type Connection struct {
	NetworkType string
	AddressType string
	Address     string
}

// Time is a session's active time range. A zero value ({0 0}) means
// "permanent session", which is what a live RTSP stream always is.
type Time struct {
	Start uint64
	Stop  uint64
}

type Attribute struct {
	Key   string
	Value string
}

// Media is one "m=" media section and its attributes.
type Media struct {
	Type   string
	Port   int
	Proto  string
	Format []string

	Connection *Connection // Optional
	Attributes []Attribute
}

type writer strings.Builder

func (w *writer) Write(fragments ...string) {
	for _, s := range fragments {
		(*strings.Builder)(w).WriteString(s)
	}
}

func (w *writer) Writef(format string, args ...interface{}) {
	fmt.Fprintf((*strings.Builder)(w), format, args...)
}

func (w *writer) String() string {
	return (*strings.Builder)(w).String()
}

func (o *Origin) String() string {
	return fmt.Sprintf("%s %s %d %s %s %s",
		o.Username, o.SessionId, o.SessionVersion, o.NetworkType, o.AddressType, o.Address)
}

func (c *Connection) String() string {
	return fmt.Sprintf("%s %s %s", c.NetworkType, c.AddressType, c.Address)
}

func (t Time) String() string {
	return fmt.Sprintf("%d %d", t.Start, t.Stop)
}

func (a Attribute) String() string {
	if a.Value == "" {
		return a.Key
	}
	return fmt.Sprintf("%s:%s", a.Key, a.Value)
}

func (m *Media) String() string {
	var w writer
	w.Writef("m=%s %d %s %s\r\n", m.Type, m.Port, m.Proto, strings.Join(m.Format, " "))
	if m.Connection != nil {
		w.Write("c=", m.Connection.String(), "\r\n")
	}
	for _, a := range m.Attributes {
		w.Write("a=", a.String(), "\r\n")
	}
	return w.String()
}

// String renders the full session description, session fields first
// (v=/o=/s=/c=/t=/a=) followed by each media section in order.
func (s *Session) String() string {
	var w writer
	w.Writef("v=%d\r\n", s.Version)
	w.Write("o=", s.Origin.String(), "\r\n")
	w.Write("s=", s.Name, "\r\n")
	if s.Connection != nil {
		w.Write("c=", s.Connection.String(), "\r\n")
	}
	for _, t := range s.Time {
		w.Write("t=", t.String(), "\r\n")
	}
	for _, a := range s.Attributes {
		w.Write("a=", a.String(), "\r\n")
	}
	for _, m := range s.Media {
		w.Write(m.String())
	}
	return w.String()
}
