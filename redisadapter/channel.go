package redisadapter

import "strings"

// channelKind distinguishes the shapes a channel name can take, used
// when decoding an inbound message's channel to decide which path
// should handle it.
type channelKind int

const (
	kindNamespace channelKind = iota
	kindRoom
	kindClientRequest
	kindClientResponse
)

// namespaceChannel is the per-namespace broadcast channel: every node
// subscribes to it once per live namespace.
//
//	{prefix}#{nsp}#
func namespaceChannel(prefix, nsp string) string {
	return prefix + "#" + nsp + "#"
}

// roomChannel is the per-room broadcast channel: subscribed only while
// the local node has at least one member in that room.
//
//	{prefix}#{nsp}#{room}#
func roomChannel(prefix, nsp, room string) string {
	return prefix + "#" + nsp + "#" + room + "#"
}

// clientRequestChannel is the single process-wide channel clients
// queries are published to.
//
//	{prefix}#clientrequest
func clientRequestChannel(prefix string) string {
	return prefix + "#clientrequest"
}

// clientResponseChannel is the per-query reply channel, subscribed only
// while that particular query is outstanding.
//
//	{prefix}#{muid}#clientresponse
func clientResponseChannel(prefix, muid string) string {
	return prefix + "#" + muid + "#clientresponse"
}

// decodedChannel is the result of classifying an inbound channel name.
// MUID is populated for the clients-response shape; dispatch routes
// purely on Kind and MUID, so the namespace/room segments themselves
// are discarded rather than carried as fields nothing reads (the
// broadcast and clients-request payloads carry their own namespace).
type decodedChannel struct {
	Kind channelKind
	MUID string
}

// decodeChannel classifies an inbound channel name and extracts
// whatever the shape carries (the query muid, for a response channel).
// Channel strings are opaque bytes on the wire: no collation, no case
// folding. The kind is recovered from the final non-empty
// "#"-delimited segment.
func decodeChannel(prefix, channel string) (decodedChannel, bool) {
	if !strings.HasPrefix(channel, prefix+"#") {
		return decodedChannel{}, false
	}
	rest := channel[len(prefix)+1:]

	if rest == "clientrequest" {
		return decodedChannel{Kind: kindClientRequest}, true
	}
	if strings.HasSuffix(rest, "#clientresponse") {
		muid := strings.TrimSuffix(rest, "#clientresponse")
		return decodedChannel{Kind: kindClientResponse, MUID: muid}, true
	}

	segments := strings.Split(strings.TrimSuffix(rest, "#"), "#")
	switch len(segments) {
	case 1:
		return decodedChannel{Kind: kindNamespace}, true
	case 2:
		return decodedChannel{Kind: kindRoom}, true
	default:
		return decodedChannel{}, false
	}
}
