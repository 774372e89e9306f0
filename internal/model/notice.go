package model

// NoticeKind says why a requester is being notified.
type NoticeKind string

const (
	NoticeApproved NoticeKind = "approved"
	NoticeRejected NoticeKind = "rejected"
	NoticeOverdue  NoticeKind = "overdue"
)

// Notice is one notification job for the push worker pool.
type Notice struct {
	Kind        NoticeKind `json:"kind"`
	PassID      string     `json:"passId"`
	RequesterID string     `json:"-"`
}
