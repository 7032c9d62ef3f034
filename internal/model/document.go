package model

import "time"

// Document материал библиотеки. Сам файл хранится вне ядра,
// слоты ссылаются на документ по ID.
type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Type       string    `json:"type"` // "pdf", "slides", "worksheet", ...
	FileName   string    `json:"file_name"`
	SizeBytes  int64     `json:"size_bytes"`
	MimeType   string    `json:"mime_type"`
	UploadedBy string    `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func (d Document) Clone() Document {
	return d
}
