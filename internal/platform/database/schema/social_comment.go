package schema

// SocialCommentTable represents the 'social.comment' table
type SocialCommentTable struct {
	Table        string
	ID           string
	EntityID     string
	UserID       string
	ParentID     string
	Content      string
	RepliesCount string
	Upvotes      string
	Downvotes    string
	CreatedAt    string
	UpdatedAt    string
	DeletedAt    string
}

// SocialComment is the schema definition for social.comment
var SocialComment = SocialCommentTable{
	Table:        "social.comment",
	ID:           "id",
	EntityID:     "entityid",
	UserID:       "userid",
	ParentID:     "parentid",
	Content:      "content",
	RepliesCount: "repliescount",
	Upvotes:      "upvotes",
	Downvotes:    "downvotes",
	CreatedAt:    "createdat",
	UpdatedAt:    "updatedat",
	DeletedAt:    "deletedat",
}
