package models

import "time"

type Action string

const (
	ActionImage Action = "image"
	ActionVideo Action = "video"
)

type ReservationStatus string

const (
	ReservationReserved ReservationStatus = "reserved"
	ReservationSettled  ReservationStatus = "settled"
	ReservationRefunded ReservationStatus = "refunded"
)

type User struct {
	ID        string    `json:"id"`
	Credits   int       `json:"credits"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Project is one generation request and its result.
type Project struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"userId"`
	Name               string    `json:"name"`
	ProductName        string    `json:"productName"`
	ProductDescription string    `json:"productDescription,omitempty"`
	UserPrompt         string    `json:"userPrompt,omitempty"`
	AspectRatio        string    `json:"aspectRatio"`
	TargetLength       int       `json:"targetLength"`
	UploadedImages     []string  `json:"uploadedImages"`
	GeneratedImage     string    `json:"generatedImage,omitempty"`
	GeneratedVideo     string    `json:"generatedVideo,omitempty"`
	IsGenerating       bool      `json:"isGenerating"`
	IsPublished        bool      `json:"isPublished"`
	Error              string    `json:"error,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// CreditReservation records credits taken from a user for one paid action.
// A reservation is refunded at most once.
type CreditReservation struct {
	ID        string
	UserID    string
	Amount    int
	Action    Action
	Status    ReservationStatus
	CreatedAt time.Time
}
