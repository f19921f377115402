// Package link is the request/report protocol between a casting client and
// the content apps hosted on a player.
//
// Every datagram is one CBOR-encoded Frame. A client greets the player with
// Hello and learns its endpoint list, then sends Invoke, Read and Subscribe
// requests that the player answers with the matching response op. An
// established subscription receives Report frames: a priming report when
// the attribute has a value, one report per change no closer together than
// the minimum interval, and a heartbeat when nothing changed for the maximum
// interval.
//
// Server hosts contentapp.App instances; Client implements
// casting.Transport. The protocol has no security layer and is meant for
// trusted local networks and tests.
package link
