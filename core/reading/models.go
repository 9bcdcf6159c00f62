package reading

import (
	"time"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/book"
)

type (
	// ReadingListItem is a book on a student's ordered to-read list.
	ReadingListItem struct {
		ID       int       `json:"id"`
		UserID   int       `json:"user_id"`
		BookID   int       `json:"book_id"`
		Position int       `json:"position"`
		AddedAt  time.Time `json:"added_at"` // UTC
		Book     book.Book `json:"book"`
	}

	// BookRead records a completed book.
	BookRead struct {
		ID          int       `json:"id"`
		UserID      int       `json:"user_id"`
		BookID      int       `json:"book_id"`
		CompletedAt time.Time `json:"completed_at"` // UTC
		Book        book.Book `json:"book"`
	}

	Review struct {
		ID           int       `json:"id"`
		UserID       int       `json:"user_id"`
		BookID       int       `json:"book_id"`
		Rating       int       `json:"rating"` // 1..5
		WhatLiked    string    `json:"what_liked"`
		WhatLearned  string    `json:"what_learned"`
		RecommendTo  string    `json:"recommend_to"`
		FavoritePart string    `json:"favorite_part"`
		CreatedAt    time.Time `json:"created_at"` // UTC
		UpdatedAt    time.Time `json:"updated_at"` // UTC
	}

	// Stats summarizes a student's read log.
	Stats struct {
		TotalRead int            `json:"total_read"`
		ByType    map[string]int `json:"by_type"` // Fiction / Non-Fiction
		ByGenre   map[string]int `json:"by_genre"`
		ByGrade   map[int]int    `json:"by_grade"`
	}
)

// NewReview contains a student's guided review of a read book.
// Writing a review for an already-reviewed book updates it in place.
type NewReview struct {
	BookID       int    `json:"book_id" validate:"required"`
	Rating       int    `json:"rating" validate:"required,min=1,max=5"`
	WhatLiked    string `json:"what_liked"`
	WhatLearned  string `json:"what_learned"`
	RecommendTo  string `json:"recommend_to"`
	FavoritePart string `json:"favorite_part"`
}

func (nr *NewReview) Validate() error {
	nr.WhatLiked = core.CleanString(nr.WhatLiked)
	nr.WhatLearned = core.CleanString(nr.WhatLearned)
	nr.RecommendTo = core.CleanString(nr.RecommendTo)
	nr.FavoritePart = core.CleanString(nr.FavoritePart)
	return core.Validate.Struct(nr)
}
