package core

import (
	"stepup/internal/models"
	"stepup/internal/notifier"

	"go.uber.org/zap"
)

func NewNotifier(config models.NotifierConfiguration) notifier.INotifier {
	switch config.Type {
	case "smtp":
		return notifier.NewSMTPNotifier(*config.SMTP)
	case "filesystem":
		return notifier.NewFilesystemNotifier(*config.Filesystem)
	default:
		zap.L().Fatal("Unsupported notifier type", zap.String("type", config.Type))
		return nil
	}
}
