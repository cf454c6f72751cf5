package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/review"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const reviewListLimit = 100

type ReviewsDTO struct {
	Reviews []*review.Review `json:"reviews"`
	Summary review.Summary   `json:"summary"`
}

type ListReviews struct {
	reviews ReviewStore
}

func NewListReviews(reviews ReviewStore) *ListReviews {
	return &ListReviews{reviews: reviews}
}

func (uc *ListReviews) Execute(ctx context.Context) (*ReviewsDTO, error) {
	list, err := uc.reviews.List(ctx, reviewListLimit)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	if list == nil {
		list = []*review.Review{}
	}
	return &ReviewsDTO{Reviews: list, Summary: review.Summarize(list)}, nil
}

type CreateReview struct {
	reviews  ReviewStore
	validate *validator.Validate
	now      func() time.Time
}

func NewCreateReview(reviews ReviewStore) *CreateReview {
	return &CreateReview{
		reviews:  reviews,
		validate: validation.New(),
		now:      time.Now,
	}
}

type CreateReviewParams struct {
	Author  string `json:"author" validate:"required,max=80"`
	Country string `json:"country" validate:"omitempty,max=60"`
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Text    string `json:"text" validate:"required,min=10,max=2000"`
}

func (uc *CreateReview) Execute(ctx context.Context, params CreateReviewParams) (*review.Review, error) {
	params.Author = strings.TrimSpace(params.Author)
	params.Text = strings.TrimSpace(params.Text)
	if err := uc.validate.Struct(params); err != nil {
		return nil, invalid("%s", validation.Describe(err))
	}

	rv := &review.Review{
		ID:        uuid.New().String(),
		Author:    params.Author,
		Country:   strings.TrimSpace(params.Country),
		Rating:    params.Rating,
		Text:      params.Text,
		Source:    "direct",
		CreatedAt: uc.now(),
	}
	if err := uc.reviews.Create(ctx, rv); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	return rv, nil
}
