package mail

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"blog-server/internal/domain"
)

const resetSubject = "Request for Password Reset"

// Notifier delivers password reset links to a user's registered address.
type Notifier interface {
	SendResetLink(ctx context.Context, user *domain.User, link string) error
}

func resetBody(link string) string {
	return fmt.Sprintf(`To reset your password, visit the following link:
%s

If you did not make this request simply ignore or delete this mail.
`, link)
}

// LogNotifier writes reset mails to the log instead of sending them. It is
// used when no SMTP host is configured.
type LogNotifier struct {
	logger logrus.FieldLogger
}

func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendResetLink(_ context.Context, user *domain.User, link string) error {
	n.logger.WithFields(logrus.Fields{
		"to":      user.Email,
		"subject": resetSubject,
	}).Info(resetBody(link))
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
