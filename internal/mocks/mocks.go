package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mentor-chat-service/internal/models"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, senderID, receiverID, text string) (models.Message, error) {
	args := m.Called(ctx, senderID, receiverID, text)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) LatestFrom(ctx context.Context, senderID, receiverID string) (models.Message, error) {
	args := m.Called(ctx, senderID, receiverID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) UpdateContent(ctx context.Context, messageID int, text string) (models.Message, error) {
	args := m.Called(ctx, messageID, text)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) MarkSeen(ctx context.Context, viewerID, otherID string) (int64, error) {
	args := m.Called(ctx, viewerID, otherID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepositoryMock) ListBetween(ctx context.Context, userID, otherID string) ([]models.Message, error) {
	args := m.Called(ctx, userID, otherID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

type LinkRepositoryMock struct {
	mock.Mock
}

func (m *LinkRepositoryMock) Approved(ctx context.Context, mentorID, studentID string) (bool, error) {
	args := m.Called(ctx, mentorID, studentID)
	return args.Bool(0), args.Error(1)
}

func (m *LinkRepositoryMock) GetForStudent(ctx context.Context, studentID string) (models.MentorStudentLink, error) {
	args := m.Called(ctx, studentID)
	var link models.MentorStudentLink
	if val := args.Get(0); val != nil {
		link = val.(models.MentorStudentLink)
	}
	return link, args.Error(1)
}

func (m *LinkRepositoryMock) ListForMentor(ctx context.Context, mentorID string) ([]models.MentorStudentLink, error) {
	args := m.Called(ctx, mentorID)
	var links []models.MentorStudentLink
	if val := args.Get(0); val != nil {
		links = val.([]models.MentorStudentLink)
	}
	return links, args.Error(1)
}

func (m *LinkRepositoryMock) Approve(ctx context.Context, mentorID, studentID string) error {
	args := m.Called(ctx, mentorID, studentID)
	return args.Error(0)
}

type TypingRepositoryMock struct {
	mock.Mock
}

func (m *TypingRepositoryMock) Upsert(ctx context.Context, status models.TypingStatus) error {
	args := m.Called(ctx, status)
	return args.Error(0)
}
