package testutil

import "wallsync/internal/feed"

// StatusItem builds a well-formed status item for ingestion tests.
func StatusItem(id, message, privacy, createdTime string) feed.Item {
	return feed.Item{
		ID:          id,
		Message:     &message,
		Type:        "status",
		CreatedTime: createdTime,
		Privacy:     &feed.Privacy{Description: &privacy},
	}
}

// LikesItem builds an item carrying a likes list for the given post id.
func LikesItem(id string, likers ...feed.Liker) feed.Item {
	return feed.Item{
		ID:    id,
		Likes: &feed.LikeList{Data: likers},
	}
}
