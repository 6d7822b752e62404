package model

// Owner identifies who created a hold or booking: either an authenticated
// member (UserID set) or an anonymous visitor carrying a guest cookie
// (GuestID set).  Exactly one of the two should be present.
type Owner struct {
	UserID  *uint64 // member id from the session token, nil for guests
	GuestID string  // random hex id issued by the identity middleware
}

// IsMember reports whether the owner is an authenticated member.
func (o Owner) IsMember() bool { return o.UserID != nil }

// Known reports whether the owner carries any identity at all.
func (o Owner) Known() bool { return o.UserID != nil || o.GuestID != "" }
