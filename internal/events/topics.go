package events

import "fmt"

// TopicBroadcast carries every extension-originated event frame
// (response, urlChanged, cookiesChanged) destined for every connected
// client session — the broker never forwards an event to the
// extension session itself (spec §8 invariant), so this topic has no
// subscriber on that side.
const TopicBroadcast = "broker.broadcast"

// ClientTopic scopes an event to exactly one client session, used for
// delivering command responses through the same bus that carries
// broadcasts, keeping a single delivery path per client socket.
func ClientTopic(clientSessionID string) string {
	return fmt.Sprintf("broker.client.%s", clientSessionID)
}
