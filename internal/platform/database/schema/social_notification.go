package schema

// SocialNotificationTable represents the 'social.notification' table
type SocialNotificationTable struct {
	Table     string
	ID        string
	UserID    string
	ActorID   string
	Type      string
	EntityID  string
	CommentID string
	IsRead    string
	CreatedAt string
	ReadAt    string
}

// SocialNotification is the schema definition for social.notification
var SocialNotification = SocialNotificationTable{
	Table:     "social.notification",
	ID:        "id",
	UserID:    "userid",
	ActorID:   "actorid",
	Type:      "type",
	EntityID:  "entityid",
	CommentID: "commentid",
	IsRead:    "isread",
	CreatedAt: "createdat",
	ReadAt:    "readat",
}
