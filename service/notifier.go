package service

import (
	"context"
	"face-insight-api/logger"
	"face-insight-api/model"

	"github.com/sirupsen/logrus"
)

// Notifier delivers a password reset link to a user.
type Notifier interface {
	SendPasswordReset(ctx context.Context, user *model.User, link string) error
}

// LogNotifier writes reset links to the application log instead of sending mail.
type LogNotifier struct{}

func (LogNotifier) SendPasswordReset(_ context.Context, user *model.User, link string) error {
	logger.Log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
		"link":    link,
	}).Info("Password reset requested")
	return nil
}
