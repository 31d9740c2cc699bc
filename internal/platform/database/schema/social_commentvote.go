package schema

// SocialCommentVoteTable represents the 'social.commentvote' table
type SocialCommentVoteTable struct {
	Table     string
	CommentID string
	UserID    string
	VoteType  string
	CreatedAt string
	UpdatedAt string
}

// SocialCommentVote is the schema definition for social.commentvote
var SocialCommentVote = SocialCommentVoteTable{
	Table:     "social.commentvote",
	CommentID: "commentid",
	UserID:    "userid",
	VoteType:  "votetype",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
}
