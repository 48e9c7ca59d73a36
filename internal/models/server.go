package models

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ServerRecord is one entry of the upstream server list. Records are produced
// fresh on every poll and never mutated afterwards.
type ServerRecord struct {
	Name         string `json:"Name"`
	Map          string `json:"Map"`
	Region       string `json:"Region"`
	Gamemode     string `json:"Gamemode"`
	Players      int    `json:"Players"`
	QueuePlayers int    `json:"QueuePlayers"`
	MaxPlayers   int    `json:"MaxPlayers"`
}

// ServerIdentity names a server slot. Two records share an identity only while
// both name and map are equal, so a map rotation yields a new identity.
type ServerIdentity uint64

func (id ServerIdentity) String() string {
	return strconv.FormatUint(uint64(id), 16)
}

// Identify computes the identity of a server from its name and map.
func Identify(server ServerRecord) ServerIdentity {
	d := xxhash.New()
	_, _ = d.WriteString(server.Name)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(server.Map)
	return ServerIdentity(d.Sum64())
}

// Identity is shorthand for Identify(s).
func (s ServerRecord) Identity() ServerIdentity {
	return Identify(s)
}

// MatchEvent is one matched server together with every subscriber that should
// hear about it during the current tick.
type MatchEvent struct {
	Server     ServerRecord   `json:"server"`
	Identity   ServerIdentity `json:"identity"`
	Recipients []string       `json:"recipients"`
}

// DeliveryResult is the outcome of delivering one MatchEvent to one recipient.
type DeliveryResult struct {
	Subscriber string
	Identity   ServerIdentity
	Server     string
	Err        error
}

// Delivered reports whether the recipient was reached.
func (r DeliveryResult) Delivered() bool {
	return r.Err == nil
}
