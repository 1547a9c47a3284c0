package domain

// Identity the authenticated actor viewing the feed
type Identity interface {
	ActorID() string
}
