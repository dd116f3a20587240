package sender

// Resource is something Post acquires and must give back
type Resource string

const (
	ResourceDocument Resource = "document"
	ResourcePayload  Resource = "payload"
	ResourceHandle   Resource = "handle"
	ResourceHeaders  Resource = "headers"
)

// Tracker observes resource lifetimes, mostly useful for checking for leaks
type Tracker interface {
	Acquired(r Resource)
	Released(r Resource)
}

type nopTracker struct{}

func (nopTracker) Acquired(Resource) {}
func (nopTracker) Released(Resource) {}
