package notifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stepup/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FilesystemNotifier writes each rendered notification to its own JSON file.
// Meant for local development, where no SMS or mail gateway is available.
type FilesystemNotifier struct {
	directory string
}

func NewFilesystemNotifier(config models.FilesystemNotifierConfiguration) *FilesystemNotifier {
	if err := os.MkdirAll(config.Directory, 0750); err != nil {
		zap.L().Fatal("Failed to create notification directory", zap.Error(err))
	}
	return &FilesystemNotifier{directory: config.Directory}
}

func (f *FilesystemNotifier) NotifyFromTemplate(to string, subject string, templateName string, data any) error {
	body, err := render(templateName, data)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	content, err := json.MarshalIndent(map[string]any{
		"to":            to,
		"subject":       subject,
		"template_name": templateName,
		"body":          body,
		"timestamp":     now.Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	path := filepath.Join(f.directory, fmt.Sprintf("%d-%s.json", now.UnixNano(), uuid.NewString()[:8]))
	if err = os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("failed to write notification file: %w", err)
	}

	zap.L().Info("Notification written to filesystem",
		zap.String("path", path),
		zap.String("template", templateName),
	)
	return nil
}
