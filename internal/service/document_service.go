package service

import (
	"context"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"go.uber.org/zap"
)

// RegisterDocumentInput метаданные документа библиотеки. Сам файл хранится вне ядра.
type RegisterDocumentInput struct {
	Title     string `validate:"required,max=256"`
	Type      string `validate:"required"`
	FileName  string `validate:"required"`
	SizeBytes int64  `validate:"gte=0"`
	MimeType  string
}

type DocumentService struct {
	store  *repository.Store
	logger *zap.Logger
}

func NewDocumentService(store *repository.Store, logger *zap.Logger) *DocumentService {
	return &DocumentService{store: store, logger: logger}
}

// Register регистрирует документ, чтобы его можно было прикреплять к слотам
func (s *DocumentService) Register(ctx context.Context, actor model.Actor, in RegisterDocumentInput) (*model.Document, error) {
	if err := validateInput("document", "Register", in); err != nil {
		return nil, err
	}
	if actor.IsStudent() {
		return nil, model.NewDomainError("document", "Register", model.ErrForbidden, "students cannot upload documents")
	}

	var doc model.Document
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		var err error
		doc, err = tx.Documents().Create(model.Document{
			Title:      in.Title,
			Type:       in.Type,
			FileName:   in.FileName,
			SizeBytes:  in.SizeBytes,
			MimeType:   in.MimeType,
			UploadedBy: actor.UserID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Document registered",
		zap.String("document_id", doc.ID),
		zap.String("title", doc.Title),
	)

	return &doc, nil
}

// Get получает документ по ID
func (s *DocumentService) Get(ctx context.Context, documentID string) (*model.Document, error) {
	var doc model.Document
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		var err error
		doc, err = tx.Documents().GetByID(documentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// List возвращает все документы
func (s *DocumentService) List(ctx context.Context) ([]model.Document, error) {
	var docs []model.Document
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		docs = tx.Documents().GetAll()
		return nil
	})
	return docs, err
}
