package synth

import (
	"strings"

	"github.com/google/uuid"
)

// newMessageID returns a freshly generated "msg_<random>" identifier.
func newMessageID() string {
	return "msg_" + compactUUID()
}

// syntheticToolUseID returns a "toolu_<random>" identifier used when an
// upstream tool-call delta omits an id on its first fragment.
func syntheticToolUseID() string {
	return "toolu_" + compactUUID()
}

func compactUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
