package measure

import (
	"fmt"
	"strconv"
	"strings"
)

const nodeListMarker = "/NodeList/"

// ResolveNodeIndex extracts the node index embedded in a trace context such
// as "/NodeList/7/ApplicationList/0/$ns3::UdpServer/Rx". It reports false when
// the marker is missing, no '/' follows the numeric segment, or the segment is
// not an unsigned 32-bit decimal.
func ResolveNodeIndex(context string) (NodeIndex, bool) {
	pos := strings.Index(context, nodeListMarker)
	if pos < 0 {
		return 0, false
	}
	rest := context[pos+len(nodeListMarker):]
	end := strings.IndexByte(rest, '/')
	if end < 0 {
		return 0, false
	}
	n, err := strconv.ParseUint(rest[:end], 10, 32)
	if err != nil {
		return 0, false
	}
	return NodeIndex(n), true
}

// RxContext builds the delivery context of the UDP server application app
// installed on node.
func RxContext(node NodeIndex, app int) string {
	return fmt.Sprintf("/NodeList/%d/ApplicationList/%d/$ns3::UdpServer/Rx", node, app)
}
