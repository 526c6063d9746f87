package core

import "github.com/google/uuid"

// HostRef is the identity handle for a connected host instance. The ID is
// minted at connect time and stays stable for the connection's lifetime; it
// is what external change detectors key their dirty tracking on. Host carries
// the instance itself for detectors that need direct access.
type HostRef struct {
	ID   string
	Host any
}

// NewHostRef mints a HostRef for the given host with a fresh unique ID.
func NewHostRef(host any) HostRef {
	return HostRef{ID: NewID(), Host: host}
}

// NewID generates a new unique identifier.
//
// This function creates a UUID-based unique identifier used for host
// references and effect metadata entries, enabling correlation across log
// entries and change-detection requests.
//
// Returns a string representation of a new UUID.
func NewID() string { return uuid.NewString() }

// ChangeDetector is the boundary to the embedding framework's
// change-detection/rendering subsystem. ScheduleCheck requests a batched,
// eventually-consistent check for the host; CheckNow runs one synchronously
// before returning. Implementations must tolerate both being called from
// inside subscriber callbacks.
type ChangeDetector interface {
	ScheduleCheck(ref HostRef)
	CheckNow(ref HostRef)
}
