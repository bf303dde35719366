package dto

// UnreadCountResponse is the body of GET /me/notifications/unread-count.
type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}

// MarkAllReadResponse reports how many notifications were marked.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
