package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Favorite marks a file as a favorite of a user. One per (user, file).
type Favorite struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	FileID    primitive.ObjectID `bson:"file_id" json:"file_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
