package models

import "time"

type User struct {
	ID        string
	Email     string
	Password  string
	FullName  string
	CreatedAt time.Time
}

type Project struct {
	ID          string
	Name        string
	Description string
	DocID       string
	SheetID     string
	CreatedAt   time.Time
}

type Resource struct {
	ID         string
	ProjectID  string
	Name       string
	ParsedText string
	UploadedBy string
	CreatedAt  time.Time
}

type ChatRecord struct {
	ID              string
	ProjectID       string
	UserID          string
	Query           string
	TranslatedQuery string
	Answer          string
	ResourceCount   int
	LatencyMS       int
	CreatedAt       time.Time
}
